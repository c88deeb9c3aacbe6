// Package waveform derives drawable amplitude and spectrum frames from an
// audio buffer and renders them into a PNG bitmap.
package waveform

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/mgpai22/subtake/internal/logging"
	"github.com/mgpai22/subtake/internal/media"
)

const (
	FramesPerSecond = 30
	PixelsPerSecond = 20
	Height          = 256
	Center          = 128
)

// Frame is one 1/30 s slice of a channel.
type Frame struct {
	Peak      [2]float64 `json:"peak"` // max, min
	Frequency []byte     `json:"frequency,omitempty"`
}

// Data holds the frames of every channel.
type Data struct {
	Channels [][]Frame `json:"channels"`
	Duration float64   `json:"duration"`
}

// Width is the bitmap width for d, in pixels.
func (d *Data) Width() int {
	return int(math.Round(d.Duration * PixelsPerSecond))
}

// Bitmap is a rendered waveform.
type Bitmap struct {
	DataURL string `json:"dataUrl"`
	Width   int    `json:"width"`
}

// Wave is either a rendered bitmap or the failed sentinel.
type Wave struct {
	Bitmap *Bitmap `json:"bitmap,omitempty"`
	Failed bool    `json:"failed,omitempty"`
}

// FailedWave marks audio that could not be decoded or drawn.
var FailedWave = &Wave{Failed: true}

type Extractor struct {
	Decoder media.Decoder
	// computes Frame.Frequency when set
	Spectrum bool
	// bounds concurrent spectrum work; <= 0 means 4
	Workers int
	Logger  *logging.Logger
}

func NewExtractor(decoder media.Decoder, logger *logging.Logger) *Extractor {
	return &Extractor{
		Decoder: decoder,
		Logger:  logging.Or(logger).Named("waveform"),
	}
}

// Extract decodes data and derives its frames. It returns nil when the input
// is empty or cannot be decoded; the error is logged, not returned.
func (e *Extractor) Extract(ctx context.Context, data []byte) *Data {
	log := logging.Or(e.Logger)
	if len(data) == 0 {
		log.Warnw("empty audio buffer")
		return nil
	}

	pcm, err := e.Decoder.Decode(ctx, data)
	if err != nil {
		log.Errorw("decode error", "error", err)
		return nil
	}
	return e.FromPCM(ctx, pcm)
}

// FromPCM derives frames from already decoded audio, or nil when there is
// not enough audio for a single frame.
func (e *Extractor) FromPCM(ctx context.Context, pcm *media.PCM) *Data {
	log := logging.Or(e.Logger)

	duration := pcm.Duration()
	size := int(math.Round(duration * FramesPerSecond))
	if size <= 0 || pcm.NumChannels() == 0 {
		log.Warnw("audio too short for a waveform", "duration", duration)
		return nil
	}

	sampleSize := float64(pcm.Len()) / float64(size)
	step := max(1, int(sampleSize/10))

	data := &Data{
		Channels: make([][]Frame, pcm.NumChannels()),
		Duration: duration,
	}
	for c, samples := range pcm.Channels {
		data.Channels[c] = peaks(samples, size, sampleSize, step)
	}

	if e.Spectrum {
		if err := e.fillSpectrum(ctx, pcm, data, sampleSize); err != nil {
			log.Errorw("spectrum analysis failed", "error", err)
			return nil
		}
	}

	log.Debugw("waveform extracted", "channels", len(data.Channels), "frames", size, "duration", duration)
	return data
}

// peaks scans every step-th sample of each frame for its max and min.
func peaks(samples []float32, size int, sampleSize float64, step int) []Frame {
	frames := make([]Frame, size)
	for i := range frames {
		start := int(float64(i) * sampleSize)
		end := min(int(float64(start)+sampleSize), len(samples))
		if start >= len(samples) {
			continue
		}

		hi := float64(samples[start])
		lo := hi
		for j := start; j < end; j += step {
			v := float64(samples[j])
			hi = max(hi, v)
			lo = min(lo, v)
		}
		frames[i].Peak = [2]float64{hi, lo}
	}
	return frames
}

func (e *Extractor) fillSpectrum(ctx context.Context, pcm *media.PCM, data *Data, sampleSize float64) error {
	workers := e.Workers
	if workers <= 0 {
		workers = 4
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for c, frames := range data.Channels {
		samples := pcm.Channels[c]
		g.Go(func() error {
			an := newAnalyser()
			for i := range frames {
				if err := ctx.Err(); err != nil {
					return err
				}
				start := int(float64(i) * sampleSize)
				frames[i].Frequency = an.frequencies(samples, start)
			}
			return nil
		})
	}
	return g.Wait()
}
