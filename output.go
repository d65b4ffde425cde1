package mpa

import (
	"encoding/binary"
	"math"
)

// Samples is one decoded frame of interleaved signed 16-bit PCM.
type Samples struct {
	// Time of the first sample in seconds.
	Time float64
	// Frame index within the stream.
	Frame    int
	Channels int
	S16      []int16

	order binary.ByteOrder
}

// Bytes returns the samples encoded in the decoder byte order.
func (s *Samples) Bytes() []byte {
	return appendPCM(make([]byte, 0, len(s.S16)*2), s.S16, s.order)
}

func appendPCM(dst []byte, pcm []int16, order binary.ByteOrder) []byte {
	var b [2]byte
	for _, v := range pcm {
		order.PutUint16(b[:], uint16(v))
		dst = append(dst, b[0], b[1])
	}

	return dst
}

// pcm16 converts a normalized sample to 16 bits, rounding to nearest and clamping.
func pcm16(x float32) int16 {
	v := math.Round(float64(x) * 32768)
	switch {
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	}

	return int16(v)
}
