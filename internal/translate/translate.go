package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mgpai22/subtake/internal/history"
	"github.com/mgpai22/subtake/internal/subtitle"
)

const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 3
)

// single line of text keyed by its entry index
type Item struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// translates one batch per request
type Translator interface {
	TranslateBatch(ctx context.Context, items []Item) ([]Item, error)
}

// translation service provider
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

type Options struct {
	InputLanguage  string
	TargetLanguage string
	Model          string
	Prompt         string
}

// creates Translator based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Translator, error) {
	if opts.TargetLanguage == "" {
		return nil, fmt.Errorf("target language is required")
	}

	switch provider {
	case ProviderGemini:
		return NewGeminiTranslator(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranslator(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewAnthropicTranslator(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", provider)
	}
}

// BuildPrompt creates the translation prompt for LLM providers
func BuildPrompt(opts Options, items []Item) string {
	var sb strings.Builder

	if opts.InputLanguage != "" {
		fmt.Fprintf(&sb, "Translate the following %s subtitle texts to %s.\n\n",
			opts.InputLanguage, opts.TargetLanguage)
	} else {
		fmt.Fprintf(&sb, "Translate the following subtitle texts to %s.\n\n",
			opts.TargetLanguage)
	}

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Translate ONLY the text content, preserving the meaning.\n")
	sb.WriteString("2. Keep any formatting tags (like {\\pos}, {\\an}, etc.) unchanged.\n")
	sb.WriteString("3. Keep each text on a single line.\n")
	sb.WriteString("4. Return ONLY a JSON array with the same structure.\n")
	sb.WriteString("5. Each object must have 'index' and 'text' fields.\n")
	sb.WriteString("6. The 'index' values must match the input indices exactly.\n")
	sb.WriteString("7. Do not add any explanation or markdown formatting.\n\n")

	if opts.Prompt != "" {
		fmt.Fprintf(&sb, "Additional instructions: %s\n\n", opts.Prompt)
	}

	sb.WriteString("Input JSON:\n")
	inputJSON, _ := json.MarshalIndent(items, "", "  ")
	sb.Write(inputJSON)
	sb.WriteString("\n\nOutput the translated JSON array only:")

	return sb.String()
}

func batches(items []Item, size int) [][]Item {
	var out [][]Item
	for i := 0; i < len(items); i += size {
		out = append(out, items[i:min(i+size, len(items))])
	}
	return out
}

// Run splits items into batches and translates up to concurrency of them
// at once. Results are sorted by index; the first failed batch cancels the
// rest.
func Run(
	ctx context.Context,
	t Translator,
	items []Item,
	batchSize, concurrency int,
) ([]Item, error) {
	if len(items) == 0 {
		return []Item{}, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	parts := batches(items, batchSize)
	results := make([][]Item, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, batch := range parts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := t.TranslateBatch(gctx, batch)
			if err != nil {
				return fmt.Errorf("batch %d failed: %w", i, err)
			}
			if err := checkBatch(batch, res); err != nil {
				return fmt.Errorf("batch %d failed: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]Item, 0, len(items))
	for _, r := range results {
		all = append(all, r...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Index < all[j].Index })
	return all, nil
}

// every input index comes back exactly once
func checkBatch(in, out []Item) error {
	if len(out) != len(in) {
		return fmt.Errorf("expected %d results, got %d", len(in), len(out))
	}
	want := make(map[int]bool, len(in))
	for _, it := range in {
		want[it.Index] = true
	}
	for _, it := range out {
		if !want[it.Index] {
			return fmt.Errorf("unexpected or repeated index %d", it.Index)
		}
		delete(want, it.Index)
	}
	return nil
}

// Entries returns the non-empty entry texts of h as items.
func Entries(h *history.History) []Item {
	var items []Item
	for i, e := range h.Subtitles() {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		items = append(items, Item{Index: i, Text: e.Text})
	}
	return items
}

// Apply translates every entry of h and writes the results back as text
// edits, so each one can be undone. Nothing is written if any batch fails.
// It returns the number of entries changed.
func Apply(
	ctx context.Context,
	h *history.History,
	t Translator,
	batchSize, concurrency int,
) (int, error) {
	results, err := Run(ctx, t, Entries(h), batchSize, concurrency)
	if err != nil {
		return 0, err
	}

	before := h.Subtitles()
	changed := 0
	for _, r := range results {
		text := subtitle.NormalizeText(r.Text)
		if r.Index >= len(before) || text == "" || before[r.Index].Text == text {
			continue
		}
		h.WriteText(r.Index, text)
		changed++
	}
	return changed, nil
}
