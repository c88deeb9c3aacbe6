package tui

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"github.com/mgpai22/subtake/internal/subtitle"
)

var errBadClock = errors.New("expected [[HH:]MM:]SS[.mmm]")

// parseClock reads HH:MM:SS.mmm with the leading fields optional.
func parseClock(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errBadClock
	}

	var p [4]float64
	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac {
		if len(frac) == 0 || len(frac) > 3 {
			return 0, errBadClock
		}
		frac += strings.Repeat("0", 3-len(frac))
		ms, err := strconv.Atoi(frac)
		if err != nil || ms < 0 {
			return 0, errBadClock
		}
		p[3] = float64(ms)
	}

	fields := strings.Split(whole, ":")
	if len(fields) > 3 {
		return 0, errBadClock
	}
	// right-align into h, m, s
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return 0, errBadClock
		}
		p[3-len(fields)+i] = float64(n)
	}
	if !hasFrac {
		return p[0]*3600 + p[1]*60 + p[2], nil
	}
	return subtitle.ResolveTime(p), nil
}

// parseSpan reads "begin end" or "begin - end".
func parseSpan(s string) (subtitle.Span, error) {
	fields := strings.Fields(strings.ReplaceAll(s, " - ", " "))
	if len(fields) != 2 {
		return subtitle.Span{}, fmt.Errorf("expected begin and end, got %q", s)
	}
	begin, err := parseClock(fields[0])
	if err != nil {
		return subtitle.Span{}, fmt.Errorf("begin: %w", err)
	}
	end, err := parseClock(fields[1])
	if err != nil {
		return subtitle.Span{}, fmt.Errorf("end: %w", err)
	}
	return subtitle.Span{BeginTime: begin, EndTime: end}, nil
}

// clockText renders t from its SplitTime fields, so that parseClock reads
// back the same fields.
func clockText(t float64) string {
	p := subtitle.SplitTime(t)
	if math.IsNaN(p[0]) {
		return ""
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", int(p[0]), int(p[1]), int(p[2]), int(p[3]))
}

func formatSpan(s subtitle.Span) string {
	return strings.TrimSpace(clockText(s.BeginTime) + " - " + clockText(s.EndTime))
}

// one row per entry; a pending preview gets the next number and a marker
func buildRows(entries []subtitle.Entry, preview *subtitle.Entry) []table.Row {
	rows := make([]table.Row, 0, len(entries)+1)
	for i, e := range entries {
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			subtitle.FormatTime(e.BeginTime),
			subtitle.FormatTime(e.EndTime),
			e.Text,
		})
	}
	if preview != nil {
		rows = append(rows, table.Row{
			strconv.Itoa(len(entries)+1) + "*",
			subtitle.FormatTime(preview.BeginTime),
			subtitle.FormatTime(preview.EndTime),
			"",
		})
	}
	return rows
}
