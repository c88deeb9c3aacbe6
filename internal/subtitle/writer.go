package subtitle

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// interface for writing subtitles
type Writer interface {
	Write(doc *Document, w io.Writer) error
}

// SubRip format
type SRTWriter struct{}

// WebVTT format
type VTTWriter struct{}

// Advanced SubStation Alpha format
type ASSWriter struct {
	Title    string
	FontName string
	FontSize int
}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatSRT:
		return &SRTWriter{}, nil
	case FormatVTT:
		return &VTTWriter{}, nil
	case FormatASS:
		return &ASSWriter{
			Title:    "Subtake Subtitles",
			FontName: "Arial",
			FontSize: 20,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// renders the document in the given format
func Render(doc *Document, format Format) (string, error) {
	writer, err := NewWriter(format)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := writer.Write(doc, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// writes the document to path, creating parent directories
func WriteFile(doc *Document, path string, format Format) error {
	out, err := Render(doc, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(path, []byte(out), 0644)
}

// entries with unset or inverted times are not exportable
func exportable(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Span().Valid() {
			out = append(out, e)
		}
	}
	return out
}

func (w *SRTWriter) Write(doc *Document, out io.Writer) error {
	var sb strings.Builder
	for i, entry := range exportable(doc.Entries) {
		// index (1-based)
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n",
			formatClock(entry.BeginTime, ","),
			formatClock(entry.EndTime, ","))
		sb.WriteString(entry.Text)
		sb.WriteString("\n\n")
	}
	_, err := io.WriteString(out, sb.String())
	return err
}

func (w *VTTWriter) Write(doc *Document, out io.Writer) error {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	for i, entry := range exportable(doc.Entries) {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n",
			formatClock(entry.BeginTime, "."),
			formatClock(entry.EndTime, "."))
		sb.WriteString(entry.Text)
		sb.WriteString("\n\n")
	}
	_, err := io.WriteString(out, sb.String())
	return err
}

func (w *ASSWriter) Write(doc *Document, out io.Writer) error {
	var sb strings.Builder

	sb.WriteString("[Script Info]\n")
	fmt.Fprintf(&sb, "Title: %s\n", w.Title)
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("Collisions: Normal\n")
	sb.WriteString("PlayDepth: 0\n\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	for _, name := range w.styleNames(doc.Options) {
		fmt.Fprintf(&sb, "Style: %s,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1\n",
			name, w.FontName, w.FontSize)
	}
	sb.WriteString("\n")

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, entry := range exportable(doc.Entries) {
		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
			formatASSTime(entry.BeginTime),
			formatASSTime(entry.EndTime),
			styleFor(doc.Options, entry.Option),
			entry.Text)
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

// one style per option, always including Default
func (w *ASSWriter) styleNames(options []Option) []string {
	names := []string{"Default"}
	for _, o := range options {
		if o.Name != "" && o.Name != "Default" {
			names = append(names, o.Name)
		}
	}
	return names
}

func styleFor(options []Option, idx int) string {
	if idx >= 0 && idx < len(options) && options[idx].Name != "" {
		return options[idx].Name
	}
	return "Default"
}

// HH:MM:SS<sep>mmm with millisecond rounding
func formatClock(t float64, sep string) string {
	total := int64(math.Round(t * 1000))
	ms := total % 1000
	s := (total / 1000) % 60
	m := (total / 60000) % 60
	h := total / 3600000
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, sep, ms)
}

func formatASSTime(t float64) string {
	total := int64(math.Round(t * 100))
	cs := total % 100
	s := (total / 100) % 60
	m := (total / 6000) % 60
	h := total / 360000
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// subtitle format based on file extension
func GetFormatFromExtension(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vtt":
		return FormatVTT
	case ".ass", ".ssa":
		return FormatASS
	default:
		return FormatSRT
	}
}

// file extension for a format
func GetExtensionForFormat(format Format) string {
	switch format {
	case FormatVTT:
		return ".vtt"
	case FormatASS:
		return ".ass"
	default:
		return ".srt"
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "srt":
		return FormatSRT, nil
	case "vtt":
		return FormatVTT, nil
	case "ass", "ssa":
		return FormatASS, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use srt, vtt, or ass", s)
	}
}
