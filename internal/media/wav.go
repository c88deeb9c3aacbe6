package media

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// SampleFormat selects the sample encoding EncodeWAV writes.
type SampleFormat int

const (
	Int16 SampleFormat = iota
	Float32
)

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

var (
	ErrEmptyInput = errors.New("empty audio input")
	ErrNotWAV     = errors.New("not a RIFF/WAVE stream")
	// ErrUnsupportedWAV covers valid WAV files whose sample encoding this
	// decoder cannot read; callers fall back to ffmpeg.
	ErrUnsupportedWAV = errors.New("unsupported WAV encoding")
)

// PCM is decoded audio, one float32 slice per channel in [-1, 1].
type PCM struct {
	SampleRate int
	Channels   [][]float32
}

func (p *PCM) NumChannels() int {
	return len(p.Channels)
}

// Len is the number of samples per channel.
func (p *PCM) Len() int {
	if len(p.Channels) == 0 {
		return 0
	}
	return len(p.Channels[0])
}

// Duration in seconds.
func (p *PCM) Duration() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(p.Len()) / float64(p.SampleRate)
}

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// EncodeWAV writes pcm as a canonical 44-byte-header WAV file with
// interleaved channels.
func EncodeWAV(pcm *PCM, format SampleFormat) ([]byte, error) {
	channels := pcm.NumChannels()
	if channels == 0 {
		return nil, ErrEmptyInput
	}
	if channels > math.MaxUint16 {
		return nil, fmt.Errorf("too many channels: %d", channels)
	}

	tag, bitDepth := uint16(wavFormatPCM), 16
	if format == Float32 {
		tag, bitDepth = wavFormatFloat, 32
	}
	bytesPerSample := bitDepth / 8
	blockAlign := channels * bytesPerSample
	dataSize := pcm.Len() * blockAlign

	buf := make([]byte, 44+dataSize)
	le := binary.LittleEndian

	copy(buf[0:4], "RIFF")
	le.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	le.PutUint32(buf[16:20], 16)
	le.PutUint16(buf[20:22], tag)
	le.PutUint16(buf[22:24], uint16(channels))
	le.PutUint32(buf[24:28], uint32(pcm.SampleRate))
	le.PutUint32(buf[28:32], uint32(pcm.SampleRate*blockAlign))
	le.PutUint16(buf[32:34], uint16(blockAlign))
	le.PutUint16(buf[34:36], uint16(bitDepth))
	copy(buf[36:40], "data")
	le.PutUint32(buf[40:44], uint32(dataSize))

	off := 44
	for i := 0; i < pcm.Len(); i++ {
		for c := 0; c < channels; c++ {
			s := pcm.Channels[c][i]
			if format == Float32 {
				le.PutUint32(buf[off:], math.Float32bits(s))
			} else {
				le.PutUint16(buf[off:], uint16(floatToInt16(s)))
			}
			off += bytesPerSample
		}
	}
	return buf, nil
}

func floatToInt16(s float32) int16 {
	s = max(-1, min(1, s))
	if s < 0 {
		return int16(s * 0x8000)
	}
	return int16(s * 0x7FFF)
}

type wavFormat struct {
	tag        uint16
	channels   int
	sampleRate int
	bitDepth   int
}

// DecodeWAV reads PCM (8/16/24/32-bit integer) and IEEE float (32/64-bit)
// WAV data. A data chunk whose declared size is zero or runs past the end of
// the input, as written by ffmpeg to a pipe, is read to the end.
func DecodeWAV(data []byte) (*PCM, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if !IsWAV(data) {
		return nil, ErrNotWAV
	}

	le := binary.LittleEndian
	var (
		fmtChunk *wavFormat
		payload  []byte
	)

	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(le.Uint32(data[off+4 : off+8]))
		body := off + 8

		switch id {
		case "fmt ":
			if size < 16 || body+size > len(data) {
				return nil, fmt.Errorf("%w: truncated fmt chunk", ErrNotWAV)
			}
			f := &wavFormat{
				tag:        le.Uint16(data[body:]),
				channels:   int(le.Uint16(data[body+2:])),
				sampleRate: int(le.Uint32(data[body+4:])),
				bitDepth:   int(le.Uint16(data[body+14:])),
			}
			if f.tag == wavFormatExtensible && size >= 26 {
				// first two bytes of the subformat GUID carry the real tag
				f.tag = le.Uint16(data[body+24:])
			}
			fmtChunk = f
		case "data":
			end := body + size
			if size == 0 || end > len(data) || end < body {
				end = len(data)
			}
			payload = data[body:end]
		}

		if payload != nil && fmtChunk != nil {
			break
		}
		next := body + size + size%2
		if next <= off {
			break
		}
		off = next
	}

	if fmtChunk == nil {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrNotWAV)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: missing data chunk", ErrNotWAV)
	}
	return decodeSamples(*fmtChunk, payload)
}

func decodeSamples(f wavFormat, payload []byte) (*PCM, error) {
	if f.channels <= 0 || f.sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedWAV, f.channels, f.sampleRate)
	}

	var read func(b []byte) float32
	le := binary.LittleEndian
	switch {
	case f.tag == wavFormatPCM && f.bitDepth == 8:
		read = func(b []byte) float32 { return (float32(b[0]) - 128) / 128 }
	case f.tag == wavFormatPCM && f.bitDepth == 16:
		read = func(b []byte) float32 { return float32(int16(le.Uint16(b))) / 32768 }
	case f.tag == wavFormatPCM && f.bitDepth == 24:
		read = func(b []byte) float32 {
			v := int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
			return float32(v) / 8388608
		}
	case f.tag == wavFormatPCM && f.bitDepth == 32:
		read = func(b []byte) float32 { return float32(int32(le.Uint32(b))) / 2147483648 }
	case f.tag == wavFormatFloat && f.bitDepth == 32:
		read = func(b []byte) float32 { return math.Float32frombits(le.Uint32(b)) }
	case f.tag == wavFormatFloat && f.bitDepth == 64:
		read = func(b []byte) float32 { return float32(math.Float64frombits(le.Uint64(b))) }
	default:
		return nil, fmt.Errorf("%w: format %d, %d bits", ErrUnsupportedWAV, f.tag, f.bitDepth)
	}

	bytesPerSample := f.bitDepth / 8
	blockAlign := bytesPerSample * f.channels
	frames := len(payload) / blockAlign

	pcm := &PCM{SampleRate: f.sampleRate, Channels: make([][]float32, f.channels)}
	for c := range pcm.Channels {
		pcm.Channels[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		base := i * blockAlign
		for c := 0; c < f.channels; c++ {
			off := base + c*bytesPerSample
			pcm.Channels[c][i] = read(payload[off : off+bytesPerSample])
		}
	}
	return pcm, nil
}
