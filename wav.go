package mpa

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV decodes the rest of the stream into a 16-bit PCM WAV file written to w.
// It returns the number of samples per channel written.
func EncodeWAV(w io.WriteSeeker, d *Decoder) (int, error) {
	if d.closed {
		return 0, ErrClosed
	}

	channels := d.Channels()
	enc := wav.NewEncoder(w, d.SampleRate(), 16, channels, 1)

	buf := &audio.IntBuffer{
		Format: d.Format(),
		Data:   make([]int, 1152*channels*8),
	}

	total := 0
	for {
		n, err := d.PCMBuffer(buf)
		if n > 0 {
			chunk := &audio.IntBuffer{
				Format:         buf.Format,
				Data:           buf.Data[:n],
				SourceBitDepth: 16,
			}
			if werr := enc.Write(chunk); werr != nil {
				return total, fmt.Errorf("mpa: encode wav: %w", werr)
			}
			total += n / channels
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, err
		}
	}

	if err := enc.Close(); err != nil {
		return total, fmt.Errorf("mpa: close wav: %w", err)
	}

	return total, nil
}
