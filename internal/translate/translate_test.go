package translate

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/mgpai22/subtake/internal/frame"
	"github.com/mgpai22/subtake/internal/history"
	"github.com/mgpai22/subtake/internal/subtitle"
)

func TestFactoryReturnsProviders(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		provider Provider
		check    func(Translator) bool
	}{
		{ProviderGemini, func(tr Translator) bool { _, ok := tr.(*GeminiTranslator); return ok }},
		{ProviderOpenAI, func(tr Translator) bool { _, ok := tr.(*OpenAITranslator); return ok }},
		{ProviderAnthropic, func(tr Translator) bool { _, ok := tr.(*AnthropicTranslator); return ok }},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			tr, err := Factory(ctx, tt.provider, "fake-key", Options{TargetLanguage: "Japanese"})
			if err != nil {
				t.Fatalf("Factory(%s) returned error: %v", tt.provider, err)
			}
			if !tt.check(tr) {
				t.Errorf("unexpected translator type %T", tr)
			}
		})
	}
}

func TestFactoryRequiresTargetLanguage(t *testing.T) {
	if _, err := Factory(context.Background(), ProviderGemini, "fake-key", Options{}); err == nil {
		t.Error("expected error for missing target language")
	}
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	opts := Options{TargetLanguage: "French"}
	if _, err := Factory(context.Background(), Provider("unknown"), "fake-key", opts); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestFactoryRequiresAPIKey(t *testing.T) {
	opts := Options{TargetLanguage: "French"}
	for _, p := range []Provider{ProviderGemini, ProviderOpenAI, ProviderAnthropic} {
		if _, err := Factory(context.Background(), p, "", opts); err == nil {
			t.Errorf("%s: expected error for empty key", p)
		}
	}
}

// upper-cases text and records batch sizes
type upperTranslator struct {
	mu      sync.Mutex
	sizes   []int
	failOn  int
	dropOne bool
}

func (u *upperTranslator) TranslateBatch(ctx context.Context, items []Item) ([]Item, error) {
	u.mu.Lock()
	u.sizes = append(u.sizes, len(items))
	u.mu.Unlock()

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Index == u.failOn {
			return nil, errors.New("provider down")
		}
		out = append(out, Item{Index: it.Index, Text: strings.ToUpper(it.Text)})
	}
	if u.dropOne {
		out = out[1:]
	}
	return out, nil
}

func TestRunBatchesAndSorts(t *testing.T) {
	items := make([]Item, 7)
	for i := range items {
		items[i] = Item{Index: i * 2, Text: "line"}
	}

	u := &upperTranslator{failOn: -1}
	got, err := Run(context.Background(), u, items, 3, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("got %d results, want 7", len(got))
	}
	for i, r := range got {
		if r.Index != i*2 || r.Text != "LINE" {
			t.Errorf("result %d = %+v", i, r)
		}
	}
	if len(u.sizes) != 3 {
		t.Errorf("made %d requests, want 3", len(u.sizes))
	}
}

func TestRunFailures(t *testing.T) {
	items := []Item{{Index: 0, Text: "a"}, {Index: 1, Text: "b"}}

	if _, err := Run(context.Background(), &upperTranslator{failOn: 1}, items, 1, 1); err == nil {
		t.Error("expected provider error")
	}
	if _, err := Run(context.Background(), &upperTranslator{failOn: -1, dropOne: true}, items, 5, 1); err == nil {
		t.Error("expected count mismatch error")
	}
}

func TestRunEmpty(t *testing.T) {
	got, err := Run(context.Background(), &upperTranslator{failOn: -1}, nil, 0, 0)
	if err != nil || len(got) != 0 {
		t.Errorf("Run(nil) = %v, %v", got, err)
	}
}

func TestCheckBatch(t *testing.T) {
	in := []Item{{Index: 3}, {Index: 4}}
	tests := []struct {
		name    string
		out     []Item
		wantErr bool
	}{
		{"same indices", []Item{{Index: 4}, {Index: 3}}, false},
		{"short", []Item{{Index: 3}}, true},
		{"foreign index", []Item{{Index: 3}, {Index: 9}}, true},
		{"repeated index", []Item{{Index: 3}, {Index: 3}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := checkBatch(in, tt.out); (err != nil) != tt.wantErr {
				t.Errorf("checkBatch() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyWritesUndoableText(t *testing.T) {
	h := history.New(history.Config{
		Filename: "clip.mp4",
		Duration: 30,
		Entries: []subtitle.Entry{
			{BeginTime: 0, EndTime: 1, Text: "hello"},
			{BeginTime: 1, EndTime: 2, Text: ""},
			{BeginTime: 2, EndTime: 3, Text: "world"},
		},
		Scheduler: frame.Inline{},
	})

	n, err := Apply(context.Background(), h, &upperTranslator{failOn: -1}, 0, 0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if n != 2 {
		t.Errorf("changed %d entries, want 2", n)
	}

	got := h.Subtitles()
	if got[0].Text != "HELLO" || got[1].Text != "" || got[2].Text != "WORLD" {
		t.Fatalf("entries = %+v", got)
	}

	h.Undo()
	h.Undo()
	if got := h.Subtitles(); got[0].Text != "hello" || got[2].Text != "world" {
		t.Errorf("after undo entries = %+v", got)
	}
}

func TestApplyWritesNothingOnFailure(t *testing.T) {
	h := history.New(history.Config{
		Entries:   []subtitle.Entry{{BeginTime: 0, EndTime: 1, Text: "a"}, {BeginTime: 1, EndTime: 2, Text: "b"}},
		Scheduler: frame.Inline{},
	})

	if _, err := Apply(context.Background(), h, &upperTranslator{failOn: 1}, 1, 1); err == nil {
		t.Fatal("expected error")
	}
	if h.CanUndo() {
		t.Error("failed translation recorded edits")
	}
}

// only runs if OPENAI_API_KEY is set
func TestOpenAITranslatorIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set; skipping integration test")
	}

	ctx := context.Background()
	tr, err := NewOpenAITranslator(ctx, apiKey, Options{TargetLanguage: "Spanish"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator error: %v", err)
	}

	results, err := Run(ctx, tr, []Item{{Index: 0, Text: "Hello"}, {Index: 1, Text: "Goodbye"}}, 0, 0)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	for _, r := range results {
		if r.Text == "" {
			t.Errorf("result index %d has empty text", r.Index)
		}
	}
}
