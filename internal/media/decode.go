package media

import (
	"context"
	"errors"
	"fmt"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/subtake/internal/logging"
)

// Decoder turns an encoded audio buffer into PCM.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*PCM, error)
}

// WAVDecoder decodes uncompressed WAV in process.
type WAVDecoder struct{}

func (WAVDecoder) Decode(ctx context.Context, data []byte) (*PCM, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DecodeWAV(data)
}

// FFmpegDecoder decodes plain WAV in process and pipes anything else
// through ffmpeg.
type FFmpegDecoder struct {
	Logger *logging.Logger
}

func NewFFmpegDecoder(logger *logging.Logger) *FFmpegDecoder {
	return &FFmpegDecoder{Logger: logging.Or(logger).Named("decoder")}
}

func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte) (*PCM, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	if IsWAV(data) {
		pcm, err := DecodeWAV(data)
		if err == nil || !errors.Is(err, ErrUnsupportedWAV) {
			return pcm, err
		}
		logging.Or(d.Logger).Debugw("wav encoding not handled in process, using ffmpeg", "error", err)
	}

	raw, err := transcode(ctx, ffmpeg.Input("pipe:"), data)
	if err != nil {
		return nil, err
	}
	pcm, err := DecodeWAV(raw)
	if err != nil {
		return nil, fmt.Errorf("decode ffmpeg output: %w", err)
	}
	return pcm, nil
}
