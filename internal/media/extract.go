package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/subtake/internal/ffmpeg"
)

// holds options for audio extraction
type ExtractOptions struct {
	Format     string // wav, mp3, aac, flac
	SampleRate int    // Hz; 0 keeps the source rate
	Channels   int    // 0 keeps the source layout
	Bitrate    string // lossy formats only, e.g. "128k"
}

// wav at the source rate and layout, as the editor waveform wants
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{Format: "wav"}
}

// mono 16 kHz mp3, small enough for transcription uploads
func TranscriptionExtractOptions() ExtractOptions {
	return ExtractOptions{
		Format:     "mp3",
		SampleRate: 16000,
		Channels:   1,
		Bitrate:    "64k",
	}
}

func (o ExtractOptions) kwargs() ffmpeg.KwArgs {
	kwargs := ffmpeg.KwArgs{"vn": ""}
	if o.SampleRate > 0 {
		kwargs["ar"] = o.SampleRate
	}
	if o.Channels > 0 {
		kwargs["ac"] = o.Channels
	}

	switch o.Format {
	case "mp3":
		kwargs["acodec"] = "libmp3lame"
	case "aac":
		kwargs["acodec"] = "aac"
	case "flac":
		kwargs["acodec"] = "flac"
	default:
		kwargs["acodec"] = "pcm_s16le"
	}
	if o.Bitrate != "" && (o.Format == "mp3" || o.Format == "aac") {
		kwargs["b:a"] = o.Bitrate
	}
	return kwargs
}

// ExtractAudio writes the audio track of inputPath to outputPath.
func ExtractAudio(ctx context.Context, inputPath, outputPath string, opts ExtractOptions) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("media file not found: %s", inputPath)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ffmpegPath, err := ffmpegbin.FFmpegPath(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var stderr bytes.Buffer
	err = ffmpeg.Input(inputPath).
		Output(outputPath, opts.kwargs()).
		OverWriteOutput().
		WithErrorOutput(&stderr).
		SetFfmpegPath(ffmpegPath).
		Run()
	if err != nil {
		return fmt.Errorf("ffmpeg extraction failed: %w: %s", err, lastLine(stderr.Bytes()))
	}
	return nil
}

// ExtractWAV decodes the audio track of path and re-encodes it as a 16-bit
// PCM WAV held in memory, returning both the bytes and the decoded samples.
func ExtractWAV(ctx context.Context, path string) ([]byte, *PCM, error) {
	info, err := Probe(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if !info.HasAudio {
		return nil, nil, ErrNoAudio
	}

	raw, err := transcode(ctx, ffmpeg.Input(path), nil)
	if err != nil {
		return nil, nil, err
	}
	pcm, err := DecodeWAV(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("decode extracted audio: %w", err)
	}
	if pcm.Len() == 0 {
		return nil, nil, ErrNoAudio
	}

	wav, err := EncodeWAV(pcm, Int16)
	if err != nil {
		return nil, nil, err
	}
	return wav, pcm, nil
}

// transcode runs src through ffmpeg and returns a float32 WAV stream read
// from its stdout. stdin, when set, feeds an input of "pipe:".
func transcode(ctx context.Context, src *ffmpeg.Stream, stdin []byte) ([]byte, error) {
	ffmpegPath, err := ffmpegbin.FFmpegPath(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out, stderr bytes.Buffer
	stream := src.
		Output("pipe:", ffmpeg.KwArgs{"vn": "", "format": "wav", "acodec": "pcm_f32le"}).
		WithOutput(&out).
		WithErrorOutput(&stderr).
		SetFfmpegPath(ffmpegPath)
	if stdin != nil {
		stream = stream.WithInput(bytes.NewReader(stdin))
	}

	if err := stream.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w: %s", err, lastLine(stderr.Bytes()))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func lastLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	}
	return string(b)
}
