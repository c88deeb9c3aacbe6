package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	cueTimingRegex = regexp.MustCompile(
		`(?:(\d{1,2}):)?(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(?:(\d{1,2}):)?(\d{2}):(\d{2})[,.](\d{3})`,
	)
	assTagRegex = regexp.MustCompile(`\{[^}]*\}`)
)

// parses a subtitle file, picking the parser from the extension
func Open(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var format Format
	switch ext {
	case ".srt":
		format = FormatSRT
	case ".vtt":
		format = FormatVTT
	case ".ass", ".ssa":
		format = FormatASS
	default:
		return nil, fmt.Errorf("unsupported subtitle format: %s", ext)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	return Read(file, format)
}

func Read(r io.Reader, format Format) (*Document, error) {
	switch format {
	case FormatSRT, FormatVTT:
		return parseCues(r)
	case FormatASS:
		return parseASS(r)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// SRT and VTT share the cue layout: optional identifier, timing, text lines
func parseCues(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	doc := &Document{}

	var current *Entry
	var textLines []string
	lineNum := 0

	flush := func() {
		if current != nil && len(textLines) > 0 {
			current.Text = NormalizeText(strings.Join(textLines, "\n"))
			doc.Entries = append(doc.Entries, *current)
		}
		current = nil
		textLines = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++

		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
			if strings.HasPrefix(strings.TrimSpace(line), "WEBVTT") {
				continue
			}
		}

		trimmed := strings.TrimSpace(line)

		if current == nil &&
			(strings.HasPrefix(trimmed, "NOTE") || strings.HasPrefix(trimmed, "STYLE")) {
			for scanner.Scan() {
				lineNum++
				if strings.TrimSpace(scanner.Text()) == "" {
					break
				}
			}
			continue
		}

		if trimmed == "" {
			flush()
			continue
		}

		if m := cueTimingRegex.FindStringSubmatch(line); m != nil {
			flush()
			begin, err := cueSeconds(m[1], m[2], m[3], m[4])
			if err != nil {
				return nil, fmt.Errorf("invalid start timestamp at line %d: %w", lineNum, err)
			}
			end, err := cueSeconds(m[5], m[6], m[7], m[8])
			if err != nil {
				return nil, fmt.Errorf("invalid end timestamp at line %d: %w", lineNum, err)
			}
			current = &Entry{BeginTime: begin, EndTime: end}
			continue
		}

		if current != nil {
			textLines = append(textLines, line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading subtitle file: %w", err)
	}

	return doc, nil
}

func cueSeconds(h, m, s, ms string) (float64, error) {
	hours := 0
	if h != "" {
		v, err := strconv.Atoi(h)
		if err != nil {
			return 0, err
		}
		hours = v
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	millis, err := strconv.Atoi(ms)
	if err != nil {
		return 0, err
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// reads styles as options and Dialogue lines as entries
func parseASS(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	doc := &Document{}
	styleIndex := map[string]int{}

	section := ""
	var columns []string
	lineNum := 0

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			section = strings.ToLower(strings.Trim(trimmed, "[]"))
			columns = nil
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "Format:"):
			columns = splitColumns(strings.TrimPrefix(trimmed, "Format:"))

		case strings.HasPrefix(section, "v4") && strings.HasPrefix(trimmed, "Style:"):
			fields := splitASSFields(strings.TrimSpace(strings.TrimPrefix(trimmed, "Style:")), len(columns))
			name := strings.TrimSpace(fieldByName(columns, fields, "Name"))
			if name == "" {
				continue
			}
			styleIndex[name] = len(doc.Options)
			doc.Options = append(doc.Options, Option{Name: name, Style: strings.TrimSpace(trimmed)})

		case section == "events" && strings.HasPrefix(trimmed, "Dialogue:"):
			if len(columns) == 0 {
				return nil, fmt.Errorf("dialogue before Format line at line %d", lineNum)
			}
			fields := splitASSFields(strings.TrimSpace(strings.TrimPrefix(trimmed, "Dialogue:")), len(columns))
			if len(fields) < len(columns) {
				return nil, fmt.Errorf(
					"failed to parse Dialogue at line %d: expected %d fields, got %d",
					lineNum, len(columns), len(fields),
				)
			}

			text := fieldByName(columns, fields, "Text")
			text = assTagRegex.ReplaceAllString(text, "")
			text = strings.NewReplacer(`\N`, "\n", `\n`, "\n", `\h`, " ").Replace(text)

			entry := Entry{
				BeginTime: parseASSTimestamp(fieldByName(columns, fields, "Start")),
				EndTime:   parseASSTimestamp(fieldByName(columns, fields, "End")),
				Text:      NormalizeText(text),
			}
			if idx, ok := styleIndex[strings.TrimSpace(fieldByName(columns, fields, "Style"))]; ok {
				entry.Option = idx
			}
			doc.Entries = append(doc.Entries, entry)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ASS file: %w", err)
	}

	return doc, nil
}

func splitColumns(s string) []string {
	cols := strings.Split(s, ",")
	for i, c := range cols {
		cols[i] = strings.TrimSpace(c)
	}
	return cols
}

func fieldByName(columns, fields []string, name string) string {
	for i, c := range columns {
		if strings.EqualFold(c, name) && i < len(fields) {
			return fields[i]
		}
	}
	return ""
}

// the last field keeps any commas it contains
func splitASSFields(content string, numFields int) []string {
	if numFields <= 0 {
		return nil
	}
	return strings.SplitN(content, ",", numFields)
}

// H:MM:SS.cc
func parseASSTimestamp(ts string) float64 {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) != 3 {
		return 0
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	s, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0
	}
	return float64(h*3600+m*60) + s
}
