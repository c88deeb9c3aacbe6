package media

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func stereoPCM() *PCM {
	return &PCM{
		SampleRate: 8000,
		Channels: [][]float32{
			{0, 0.5, -0.5, 1, -1},
			{0.25, -0.25, 0, 0.75, -0.75},
		},
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	wav, err := EncodeWAV(stereoPCM(), Int16)
	if err != nil {
		t.Fatalf("EncodeWAV returned error: %v", err)
	}

	le := binary.LittleEndian
	if got, want := len(wav), 44+5*2*2; got != want {
		t.Fatalf("len = %d, want %d", got, want)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if got := le.Uint16(wav[20:]); got != wavFormatPCM {
		t.Errorf("format tag = %d", got)
	}
	if got := le.Uint16(wav[22:]); got != 2 {
		t.Errorf("channels = %d", got)
	}
	if got := le.Uint32(wav[28:]); got != 8000*4 {
		t.Errorf("byte rate = %d", got)
	}
	// interleaved L, R
	if got := int16(le.Uint16(wav[46:])); got != floatToInt16(0.25) {
		t.Errorf("first right sample = %d", got)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		format SampleFormat
		tol    float64
	}{
		{"int16", Int16, 1.0 / 32767},
		{"float32", Float32, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := stereoPCM()
			wav, err := EncodeWAV(in, tt.format)
			if err != nil {
				t.Fatalf("EncodeWAV: %v", err)
			}
			out, err := DecodeWAV(wav)
			if err != nil {
				t.Fatalf("DecodeWAV: %v", err)
			}
			if out.SampleRate != in.SampleRate || out.NumChannels() != 2 || out.Len() != 5 {
				t.Fatalf("got %d Hz, %d channels, %d samples", out.SampleRate, out.NumChannels(), out.Len())
			}
			for c := range in.Channels {
				for i, want := range in.Channels[c] {
					if d := math.Abs(float64(out.Channels[c][i] - want)); d > tt.tol {
						t.Errorf("ch%d[%d] = %v, want %v", c, i, out.Channels[c][i], want)
					}
				}
			}
		})
	}
}

func TestDecodeWAVStreamedSize(t *testing.T) {
	wav, err := EncodeWAV(stereoPCM(), Float32)
	if err != nil {
		t.Fatal(err)
	}
	// ffmpeg writing to a pipe cannot seek back to patch the sizes
	binary.LittleEndian.PutUint32(wav[4:], 0xFFFFFFFF)
	binary.LittleEndian.PutUint32(wav[40:], 0xFFFFFFFF)

	pcm, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV returned error: %v", err)
	}
	if pcm.Len() != 5 {
		t.Errorf("expected 5 samples, got %d", pcm.Len())
	}
}

func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	wav, err := EncodeWAV(stereoPCM(), Int16)
	if err != nil {
		t.Fatal(err)
	}
	list := []byte("LIST\x03\x00\x00\x00abc\x00")
	withList := append(append(append([]byte{}, wav[:36]...), list...), wav[36:]...)

	pcm, err := DecodeWAV(withList)
	if err != nil {
		t.Fatalf("DecodeWAV returned error: %v", err)
	}
	if pcm.Len() != 5 {
		t.Errorf("expected 5 samples, got %d", pcm.Len())
	}
}

func TestDecodeWAV24Bit(t *testing.T) {
	wav, err := EncodeWAV(&PCM{SampleRate: 100, Channels: [][]float32{{0}}}, Int16)
	if err != nil {
		t.Fatal(err)
	}
	le := binary.LittleEndian
	le.PutUint16(wav[32:], 3)
	le.PutUint16(wav[34:], 24)
	le.PutUint32(wav[40:], 6)
	wav = append(wav[:44], 0x00, 0x00, 0x40, 0x00, 0x00, 0xC0)

	pcm, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV returned error: %v", err)
	}
	if got := pcm.Channels[0]; len(got) != 2 || got[0] != 0.5 || got[1] != -0.5 {
		t.Errorf("unexpected samples %v", got)
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	if _, err := DecodeWAV(nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("nil input: got %v", err)
	}
	if _, err := DecodeWAV([]byte("not audio at all")); !errors.Is(err, ErrNotWAV) {
		t.Errorf("garbage input: got %v", err)
	}

	wav, _ := EncodeWAV(stereoPCM(), Int16)
	binary.LittleEndian.PutUint16(wav[20:], 85) // mp3 in a wav wrapper
	if _, err := DecodeWAV(wav); !errors.Is(err, ErrUnsupportedWAV) {
		t.Errorf("compressed wav: got %v", err)
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	if _, err := EncodeWAV(&PCM{SampleRate: 44100}, Int16); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestDecodersRejectEmptyInput(t *testing.T) {
	ctx := context.Background()
	if _, err := (WAVDecoder{}).Decode(ctx, []byte{}); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("WAVDecoder: got %v", err)
	}
	if _, err := NewFFmpegDecoder(nil).Decode(ctx, nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("FFmpegDecoder: got %v", err)
	}
}

func TestPCMDuration(t *testing.T) {
	p := &PCM{SampleRate: 4, Channels: [][]float32{make([]float32, 10)}}
	if got := p.Duration(); got != 2.5 {
		t.Errorf("Duration = %v, want 2.5", got)
	}
	if got := (&PCM{}).Duration(); got != 0 {
		t.Errorf("empty Duration = %v", got)
	}
}
