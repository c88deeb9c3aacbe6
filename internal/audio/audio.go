package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/sync/errgroup"

	ffmpegbin "github.com/mgpai22/subtake/internal/ffmpeg"
	"github.com/mgpai22/subtake/internal/media"
)

// DefaultConcurrency bounds parallel ffmpeg processes when splitting.
const DefaultConcurrency = 10

// audio chunk info; times are seconds into the source
type Chunk struct {
	Path      string
	Index     int
	BeginTime float64
	EndTime   float64
}

// Prepare compresses the audio track of a media file for upload.
func Prepare(ctx context.Context, inputPath, outputDir string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	out := filepath.Join(outputDir, base+".mp3")
	if err := media.ExtractAudio(ctx, inputPath, out, media.TranscriptionExtractOptions()); err != nil {
		return "", err
	}
	return out, nil
}

// plan lays out back to back chunks covering [0, total)
func plan(total, chunkSeconds float64) []Chunk {
	var chunks []Chunk
	for i := 0; ; i++ {
		begin := float64(i) * chunkSeconds
		if begin >= total {
			break
		}
		chunks = append(chunks, Chunk{
			Index:     i,
			BeginTime: begin,
			EndTime:   min(begin+chunkSeconds, total),
		})
	}
	return chunks
}

// Split cuts an audio file into chunks of chunkSeconds, running up to
// concurrency ffmpeg processes at once. Chunks come back in order.
func Split(
	ctx context.Context,
	audioPath string,
	chunkSeconds float64,
	outputDir string,
	concurrency int,
) ([]Chunk, error) {
	if chunkSeconds <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", chunkSeconds)
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	info, err := media.Probe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio duration: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ffmpegPath, err := ffmpegbin.FFmpegPath(ctx)
	if err != nil {
		return nil, err
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	ext := filepath.Ext(audioPath)

	chunks := plan(info.Duration, chunkSeconds)
	for i := range chunks {
		chunks[i].Path = filepath.Join(
			outputDir,
			fmt.Sprintf("%s_chunk_%03d%s", baseName, i, ext),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := ffmpeg.Input(audioPath).
				Output(c.Path, ffmpeg.KwArgs{
					"ss": c.BeginTime,
					"t":  c.EndTime - c.BeginTime,
					"c":  "copy",
				}).
				OverWriteOutput().
				SetFfmpegPath(ffmpegPath).
				Run()
			if err != nil {
				return fmt.Errorf("failed to create chunk %d: %w", c.Index, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = Cleanup(chunks)
		return nil, err
	}

	return chunks, nil
}

// removes all chunk files
func Cleanup(chunks []Chunk) error {
	var errs []error
	for _, c := range chunks {
		if c.Path == "" {
			continue
		}
		if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
