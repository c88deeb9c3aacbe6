package waveform

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/vector"

	"github.com/mgpai22/subtake/internal/frame"
)

var ErrEmptyWave = errors.New("waveform has no width")

// #f33, #33f; channels alternate
var channelColors = []color.RGBA{
	{R: 0xff, G: 0x33, B: 0x33, A: 0xff},
	{R: 0x33, G: 0x33, B: 0xff, A: 0xff},
}

// Render draws every channel as a filled envelope onto a transparent
// PixelsPerSecond*duration by Height canvas and encodes it as a PNG data URL.
func Render(d *Data) (*Bitmap, error) {
	width := d.Width()
	if width <= 0 {
		return nil, ErrEmptyWave
	}

	img := image.NewRGBA(image.Rect(0, 0, width, Height))
	for c, frames := range d.Channels {
		z := vector.NewRasterizer(width, Height)
		envelope(z, width, frames)
		z.Draw(img, img.Bounds(), image.NewUniform(channelColors[c%len(channelColors)]), image.Point{})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode waveform png: %w", err)
	}
	return &Bitmap{
		DataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:   width,
	}, nil
}

// envelope traces the max values left to right, then the min values back,
// around the centre line.
func envelope(z *vector.Rasterizer, width int, frames []Frame) {
	n := len(frames)
	fx := func(i int) float32 {
		return float32(i)*float32(width-1)/float32(n+2) + 0.5
	}
	fy := func(v float64) float32 {
		return float32(Center - v*Height/2)
	}
	peak := func(i, k int) float64 {
		if i < 0 || i >= n {
			return 0
		}
		return frames[i].Peak[k]
	}

	z.MoveTo(0, Center)
	z.LineTo(0, fy(peak(0, 0)))
	for i := 0; i < n+1; i++ {
		z.LineTo(fx(i), fy(peak(i, 0)))
	}
	for i := n + 1; i >= 0; i-- {
		z.LineTo(fx(i), fy(peak(i, 1)))
	}
	z.LineTo(0, fy(peak(0, 1)))
	z.ClosePath()
}

// render is swapped in tests.
var render = Render

// RenderOnFrame starts Render from a frame callback of sched and waits for
// it. The draw runs on its own goroutine so the frame loop keeps delivering
// other callbacks meanwhile.
func RenderOnFrame(ctx context.Context, sched frame.Scheduler, d *Data) (*Bitmap, error) {
	type result struct {
		bm  *Bitmap
		err error
	}
	done := make(chan result, 1)

	sched.RequestFrame(func() {
		if ctx.Err() != nil {
			done <- result{err: ctx.Err()}
			return
		}
		go func() {
			bm, err := render(d)
			done <- result{bm, err}
		}()
	})

	select {
	case r := <-done:
		return r.bm, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
