package recording

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavPCMFormat = 1

// WAVWriter streams signed 16-bit little-endian PCM into a WAV container.
// Frames may split samples; a trailing odd byte is carried into the next Write.
type WAVWriter struct {
	enc      *wav.Encoder
	format   *audio.Format
	leftover []byte
	samples  int
}

func NewWAVWriter(w io.WriteSeeker, sampleRate, channels int) *WAVWriter {
	return &WAVWriter{
		enc:    wav.NewEncoder(w, sampleRate, 16, channels, wavPCMFormat),
		format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
	}
}

func (w *WAVWriter) Write(pcm []byte) error {
	if len(w.leftover) > 0 {
		pcm = append(w.leftover, pcm...)
		w.leftover = nil
	}
	if len(pcm)%2 != 0 {
		w.leftover = []byte{pcm[len(pcm)-1]}
		pcm = pcm[:len(pcm)-1]
	}
	if len(pcm) == 0 {
		return nil
	}

	data := make([]int, len(pcm)/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	if err := w.enc.Write(&audio.IntBuffer{Format: w.format, Data: data, SourceBitDepth: 16}); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	w.samples += len(data)
	return nil
}

// Samples returns the number of samples written so far (all channels).
func (w *WAVWriter) Samples() int {
	return w.samples
}

// Close finalizes the header sizes. The underlying writer is left open.
func (w *WAVWriter) Close() error {
	if w.samples == 0 {
		// the encoder only writes its header on the first Write
		if err := w.enc.Write(&audio.IntBuffer{Format: w.format, Data: []int{}, SourceBitDepth: 16}); err != nil {
			return fmt.Errorf("write wav header: %w", err)
		}
	}
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// WriteWAVFile writes pcm to path as a complete WAV file.
func WriteWAVFile(path string, pcm []byte, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav file: %w", err)
	}

	w := NewWAVWriter(f, sampleRate, channels)
	if err := w.Write(pcm); err != nil {
		f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
