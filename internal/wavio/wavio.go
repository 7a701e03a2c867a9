// Package wavio reads and writes canonical 16-bit PCM WAV files. The detector
// and trimmer operate on mono sample slices; multi-channel input is downmixed
// on decode.
package wavio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

// Data holds decoded mono PCM audio.
type Data struct {
	SampleRate int
	Samples    []int16
}

// Duration returns the playback length of the audio.
func (d Data) Duration() time.Duration {
	if d.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(d.Samples)) / float64(d.SampleRate) * float64(time.Second))
}

// Floats converts the samples to float64 for correlation math.
func (d Data) Floats() []float64 {
	out := make([]float64, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = float64(s)
	}
	return out
}

var errNotWAV = errors.New("not a RIFF/WAVE stream")

// Decode parses a 16-bit PCM WAV stream.
func Decode(r io.Reader) (Data, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Data{}, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return Data{}, errNotWAV
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		haveFormat    bool
	)

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Data{}, errors.New("missing data chunk")
			}
			return Data{}, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return Data{}, fmt.Errorf("read fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return Data{}, errors.New("fmt chunk too short")
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			if format != 1 {
				return Data{}, fmt.Errorf("unsupported audio format %d (want PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			if bitsPerSample != 16 {
				return Data{}, fmt.Errorf("unsupported bit depth %d (want 16)", bitsPerSample)
			}
			if channels < 1 {
				return Data{}, fmt.Errorf("invalid channel count %d", channels)
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return Data{}, errors.New("data chunk before fmt chunk")
			}
			raw := make([]byte, size)
			if _, err := io.ReadFull(r, raw); err != nil {
				return Data{}, fmt.Errorf("read data chunk: %w", err)
			}
			return Data{
				SampleRate: sampleRate,
				Samples:    downmix(raw, channels),
			}, nil
		default:
			// Skip ancillary chunks (LIST, fact, ...). Chunks are word aligned.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return Data{}, fmt.Errorf("skip %s chunk: %w", id, err)
			}
		}
	}
}

// DecodeFile parses a 16-bit PCM WAV file.
func DecodeFile(path string) (Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return Data{}, err
	}
	defer f.Close()
	return Decode(f)
}

func downmix(raw []byte, channels int) []int16 {
	frames := len(raw) / (2 * channels)
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var acc int
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			acc += int(int16(binary.LittleEndian.Uint16(raw[off : off+2])))
		}
		out[i] = int16(acc / channels)
	}
	return out
}

// Encode writes d as a canonical mono 16-bit PCM WAV stream.
func Encode(w io.Writer, d Data) error {
	if d.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}
	dataSize := len(d.Samples) * 2
	if dataSize > math.MaxUint32-36 {
		return errors.New("audio too large for WAV container")
	}

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], 1) // mono
	binary.LittleEndian.PutUint32(header[24:28], uint32(d.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(d.SampleRate*2))
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write WAV header: %w", err)
	}

	buf := make([]byte, dataSize)
	for i, s := range d.Samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write WAV data: %w", err)
	}
	return nil
}

// EncodeFile writes d to path as a mono 16-bit PCM WAV file.
func EncodeFile(path string, d Data) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, d); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
