package transcribe

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mgpai22/subtake/internal/audio"
	"github.com/mgpai22/subtake/internal/history"
	"github.com/mgpai22/subtake/internal/subtitle"
)

// DefaultConcurrency is the number of chunks transcribed at once.
const DefaultConcurrency = 3

// transcription result; Duration is seconds
type Result struct {
	Segments []subtitle.Segment
	Language string
	Duration float64
}

// interface for audio transcription
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// transcription service provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// transcription options
type Options struct {
	Language           string // source language of audio
	TranscriptLanguage string // output language for transcript (default: "native")
	Model              string
	Prompt             string
}

// creates transcriber based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Transcriber, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiTranscriber(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranscriber(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// shifts segment times by a chunk's offset
func offset(segments []subtitle.Segment, by float64) []subtitle.Segment {
	out := make([]subtitle.Segment, len(segments))
	for i, seg := range segments {
		out[i] = subtitle.Segment{
			BeginTime: seg.BeginTime + by,
			EndTime:   seg.EndTime + by,
			Text:      seg.Text,
		}
	}
	return out
}

// TranscribeChunks transcribes chunks in parallel and merges the segments
// in chunk order. The first failure cancels the remaining chunks.
func TranscribeChunks(
	ctx context.Context,
	t Transcriber,
	chunks []audio.Chunk,
	concurrency int,
) (*Result, error) {
	if len(chunks) == 0 {
		return &Result{}, nil
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]*Result, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := t.Transcribe(gctx, c.Path)
			if err != nil {
				return fmt.Errorf("chunk %d failed: %w", c.Index, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &Result{Duration: chunks[len(chunks)-1].EndTime}
	for i, r := range results {
		merged.Segments = append(merged.Segments, offset(r.Segments, chunks[i].BeginTime)...)
		if merged.Language == "" {
			merged.Language = r.Language
		}
	}
	return merged, nil
}

// Draft appends generated entries to h, one append and one text write per
// entry, so the whole draft can be undone step by step. It returns the
// number of entries added.
func Draft(h *history.History, segments []subtitle.Segment, gen *subtitle.Generator) int {
	if gen == nil {
		gen = subtitle.NewDefaultGenerator()
	}

	entries := gen.Generate(segments)
	for _, e := range entries {
		index := h.Len()
		h.AppendItem(e.BeginTime, e.EndTime)
		h.WriteText(index, e.Text)
	}
	return len(entries)
}
