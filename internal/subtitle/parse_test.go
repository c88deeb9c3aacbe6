package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSRTFile(t *testing.T) {
	content := `1
00:00:01,000 --> 00:00:04,000
Hello, world!

2
00:00:05,500 --> 00:00:08,200
This is a test.
With multiple lines.

3
00:00:10,000 --> 00:00:12,500
Final subtitle.
`
	tmpDir := t.TempDir()
	srtPath := filepath.Join(tmpDir, "test.srt")
	if err := os.WriteFile(srtPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	doc, err := Open(srtPath)
	if err != nil {
		t.Fatalf("failed to open SRT file: %v", err)
	}

	if len(doc.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(doc.Entries))
	}
	if doc.Entries[0].BeginTime != 1 || doc.Entries[0].EndTime != 4 {
		t.Errorf("entry 0: expected 1s-4s, got %v-%v",
			doc.Entries[0].BeginTime, doc.Entries[0].EndTime)
	}
	if doc.Entries[0].Text != "Hello, world!" {
		t.Errorf("entry 0: expected 'Hello, world!', got %q", doc.Entries[0].Text)
	}

	expectedText := "This is a test. With multiple lines."
	if doc.Entries[1].Text != expectedText {
		t.Errorf("entry 1: expected %q, got %q", expectedText, doc.Entries[1].Text)
	}
	if doc.Entries[1].BeginTime != 5.5 {
		t.Errorf("entry 1: expected start 5.5, got %v", doc.Entries[1].BeginTime)
	}
}

func TestParseVTT(t *testing.T) {
	content := "\ufeffWEBVTT\n\nNOTE a comment\nspanning lines\n\n1\n00:00:01.000 --> 00:00:04.000\nHello, world!\n\n00:05.500 --> 00:08.200\nShort timestamps.\n"

	doc, err := Read(strings.NewReader(content), FormatVTT)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(doc.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(doc.Entries))
	}
	if doc.Entries[1].BeginTime != 5.5 || doc.Entries[1].EndTime != 8.2 {
		t.Errorf("entry 1: expected 5.5-8.2, got %v-%v",
			doc.Entries[1].BeginTime, doc.Entries[1].EndTime)
	}
}

func TestParseASS(t *testing.T) {
	content := `[Script Info]
Title: Test

[V4+ Styles]
Format: Name, Fontname, Fontsize
Style: Default,Arial,20
Style: Sign,Arial,28

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
Dialogue: 0,0:00:01.00,0:00:03.50,Default,,0,0,0,,Hello, there
Dialogue: 0,0:00:04.00,0:00:06.00,Sign,,0,0,0,,{\an8}Top\Nline
`

	doc, err := Read(strings.NewReader(content), FormatASS)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(doc.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(doc.Options))
	}
	if len(doc.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(doc.Entries))
	}
	if doc.Entries[0].Text != "Hello, there" {
		t.Errorf("entry 0: expected comma preserved, got %q", doc.Entries[0].Text)
	}
	if doc.Entries[1].Text != "Top line" {
		t.Errorf("entry 1: expected tags stripped, got %q", doc.Entries[1].Text)
	}
	if doc.Entries[1].Option != 1 {
		t.Errorf("entry 1: expected option 1, got %d", doc.Entries[1].Option)
	}
	if doc.Entries[0].EndTime != 3.5 {
		t.Errorf("entry 0: expected end 3.5, got %v", doc.Entries[0].EndTime)
	}
}

func TestOpenUnsupportedExtension(t *testing.T) {
	if _, err := Open("movie.txt"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
