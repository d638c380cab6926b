// Package audio reads and writes 16-bit PCM WAV files and prepares
// recordings for recognition: multi-channel input is downmixed to mono and
// peak-normalized before it is sent to the model services.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Waveform is decoded mono or multi-channel PCM audio. Samples are
// interleaved and scaled to [-1, 1].
type Waveform struct {
	SampleRate int
	Channels   int
	Samples    []float64
}

// Duration returns the length of the waveform in seconds
func (w *Waveform) Duration() float64 {
	if w.SampleRate == 0 || w.Channels == 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate*w.Channels)
}

const (
	riffHeaderSize = 12
	pcmFormat      = 1
)

// ReadWAV decodes a 16-bit PCM WAV file
func ReadWAV(path string) (*Waveform, error) {
	data, err := os.ReadFile(path) // #nosec G304 - caller provides the audio path
	if err != nil {
		return nil, fmt.Errorf("error reading audio file: %w", err)
	}
	return DecodeWAV(data)
}

// DecodeWAV decodes 16-bit PCM WAV data
func DecodeWAV(data []byte) (*Waveform, error) {
	if len(data) < riffHeaderSize || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, fmt.Errorf("not a WAV file")
	}

	var (
		sampleRate int
		channels   int
		bitDepth   int
		pcm        []byte
	)

	// Chunks may appear in any order; LIST and other metadata chunks are
	// skipped.
	offset := riffHeaderSize
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			return nil, fmt.Errorf("truncated %q chunk", chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("malformed fmt chunk")
			}
			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != pcmFormat {
				return nil, fmt.Errorf("unsupported WAV format %d, only PCM is supported", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunk bodies are word-aligned
		offset = body + chunkSize + chunkSize%2
	}

	if sampleRate == 0 || channels == 0 {
		return nil, fmt.Errorf("missing fmt chunk")
	}
	if bitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d, only 16-bit PCM is supported", bitDepth)
	}
	if pcm == nil {
		return nil, fmt.Errorf("missing data chunk")
	}

	samples := make([]float64, len(pcm)/2)
	for i := range samples {
		raw := int16(binary.LittleEndian.Uint16(pcm[2*i : 2*i+2]))
		samples[i] = float64(raw) / 32768.0
	}

	return &Waveform{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples,
	}, nil
}

// WriteWAV encodes a waveform as 16-bit PCM and writes it to path
func WriteWAV(path string, w *Waveform) error {
	var buf bytes.Buffer
	if err := EncodeWAV(&buf, w); err != nil {
		return err
	}
	// #nosec G306 - Audio files need to be readable by the model services
	if err := os.WriteFile(path, buf.Bytes(), 0640); err != nil {
		return fmt.Errorf("error writing audio file: %w", err)
	}
	return nil
}

// EncodeWAV writes a waveform to out as 16-bit PCM WAV
func EncodeWAV(out io.Writer, w *Waveform) error {
	if w.SampleRate <= 0 || w.Channels <= 0 {
		return fmt.Errorf("invalid waveform: rate=%d channels=%d", w.SampleRate, w.Channels)
	}

	dataSize := len(w.Samples) * 2
	blockAlign := w.Channels * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(pcmFormat))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(w.Channels)) // #nosec G115 - channel counts are small
	_ = binary.Write(&buf, binary.LittleEndian, uint32(w.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(w.SampleRate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign)) // #nosec G115 - block align is small
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range w.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		_ = binary.Write(&buf, binary.LittleEndian, int16(s*32767))
	}

	_, err := out.Write(buf.Bytes())
	return err
}
