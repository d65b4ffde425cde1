package mpa

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gen2brain/mpa/internal/spline"
)

const (
	xingFrames  = 0x1
	xingBytes   = 0x2
	xingTOC     = 0x4
	xingQuality = 0x8

	vbriOffset = 4 + 32
)

// infoTag is the side information carried by a Xing, Info or VBRI frame.
type infoTag struct {
	Tag     string
	Frames  int   // -1 if absent
	Bytes   int64 // -1 if absent
	Quality int

	// Xing table of contents, byte position in 1/256 of the stream at each percent of playtime
	toc []byte

	// VBRI seek table, cumulative byte offsets every framesPerEntry frames
	vbri           []int64
	framesPerEntry int

	Encoder        string
	EncoderDelay   int
	EncoderPadding int
}

// cbr reports whether the tag marks a constant bitrate stream.
func (t *infoTag) cbr() bool {
	return t.Tag == "Info"
}

// parseInfoTag looks for a Xing/Info or VBRI tag in the first frame. The Xing tag sits
// after the side information of a Layer III frame, so encoders place it at one of the
// Layer III offsets or directly after the header (and CRC) in Layer I/II streams.
func parseInfoTag(h Header, frame []byte) *infoTag {
	first := 4
	if h.Protected {
		first += 2
	}

	for _, off := range []int{first, 4 + 9, 4 + 17, 4 + 32} {
		if off+8 > len(frame) {
			continue
		}

		switch string(frame[off : off+4]) {
		case "Xing", "Info":
			if t := parseXing(frame[off:]); t != nil {
				return t
			}
		}
	}

	if vbriOffset+26 <= len(frame) && string(frame[vbriOffset:vbriOffset+4]) == "VBRI" {
		return parseVBRI(frame[vbriOffset:])
	}

	return nil
}

func parseXing(b []byte) *infoTag {
	t := &infoTag{Tag: string(b[:4]), Frames: -1, Bytes: -1}

	flags := binary.BigEndian.Uint32(b[4:8])
	p := 8

	if flags&xingFrames != 0 {
		if p+4 > len(b) {
			return nil
		}
		t.Frames = int(binary.BigEndian.Uint32(b[p:]))
		p += 4
	}

	if flags&xingBytes != 0 {
		if p+4 > len(b) {
			return nil
		}
		t.Bytes = int64(binary.BigEndian.Uint32(b[p:]))
		p += 4
	}

	if flags&xingTOC != 0 {
		if p+100 > len(b) {
			return nil
		}
		t.toc = append([]byte(nil), b[p:p+100]...)
		p += 100
	}

	if flags&xingQuality != 0 {
		if p+4 > len(b) {
			return nil
		}
		t.Quality = int(binary.BigEndian.Uint32(b[p:]))
		p += 4
	}

	// LAME extension: 9 byte version string, delay and padding 12 bits each at byte 21.
	if p+24 <= len(b) {
		switch string(b[p : p+4]) {
		case "LAME", "GOGO":
			t.Encoder = string(bytes.TrimRight(b[p:p+9], "\x00 "))
			x := b[p+21 : p+24]
			t.EncoderDelay = int(x[0])<<4 | int(x[1])>>4
			t.EncoderPadding = int(x[1]&0x0f)<<8 | int(x[2])
		}
	}

	return t
}

func parseVBRI(b []byte) *infoTag {
	// version, delay and quality
	p := 4 + 6

	t := &infoTag{Tag: "VBRI"}
	t.Bytes = int64(binary.BigEndian.Uint32(b[p:]))
	t.Frames = int(binary.BigEndian.Uint32(b[p+4:])) + 1

	entries := int(binary.BigEndian.Uint16(b[p+8:]))
	scale := int64(binary.BigEndian.Uint16(b[p+10:]))
	size := int(binary.BigEndian.Uint16(b[p+12:]))
	t.framesPerEntry = int(binary.BigEndian.Uint16(b[p+14:]))
	p += 16

	if size < 1 || size > 4 || t.framesPerEntry == 0 || p+entries*size > len(b) {
		// The totals are still usable without the table.
		return t
	}

	t.vbri = make([]int64, entries+1)
	var sum int64
	for i := 0; i < entries; i++ {
		var v int64
		for j := 0; j < size; j++ {
			v = v<<8 | int64(b[p])
			p++
		}

		sum += v * scale
		t.vbri[i+1] = sum
	}

	return t
}

// SeekTable maps a playtime fraction in [0, 1] to a byte offset and back. Between
// the table points the mapping is interpolated by a monotone cubic spline.
type SeekTable struct {
	// Origin is the byte offset of playtime 0.
	Origin int64
	// Length is the number of bytes covered by the table.
	Length int64

	times   []float64
	offsets []float64

	forward *spline.Monotone
	inverse *spline.Monotone
}

var errSeekTable = errors.New("mpa: unusable seek table")

// newSeekTable builds a table from points given as fractions of the playtime and of Length.
// Offsets are made non-decreasing and the end point (1, 1) is appended if missing.
func newSeekTable(origin, length int64, times, offsets []float64) (*SeekTable, error) {
	if length <= 0 || len(times) == 0 || len(times) != len(offsets) {
		return nil, errSeekTable
	}

	t := &SeekTable{Origin: origin, Length: length}

	last := 0.0
	for i, tm := range times {
		if tm < 0 || tm >= 1 || (len(t.times) > 0 && tm <= t.times[len(t.times)-1]) {
			continue
		}

		off := math.Max(last, math.Min(1, offsets[i]))
		t.times = append(t.times, tm)
		t.offsets = append(t.offsets, off)
		last = off
	}
	t.times = append(t.times, 1)
	t.offsets = append(t.offsets, 1)

	var err error
	t.forward, err = spline.New(t.times, t.offsets)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errSeekTable, err)
	}

	// Flat stretches of the table map to their first time.
	var ys, xs []float64
	for i, off := range t.offsets {
		if len(ys) > 0 && off <= ys[len(ys)-1] {
			continue
		}
		ys = append(ys, off)
		xs = append(xs, t.times[i])
	}

	if len(ys) >= 2 {
		t.inverse, err = spline.New(ys, xs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errSeekTable, err)
		}
	}

	return t, nil
}

// xingSeekTable converts a 100 entry Xing TOC.
func xingSeekTable(origin, length int64, toc []byte) (*SeekTable, error) {
	times := make([]float64, len(toc))
	offsets := make([]float64, len(toc))
	for i, v := range toc {
		times[i] = float64(i) / 100
		offsets[i] = float64(v) / 256
	}

	return newSeekTable(origin, length, times, offsets)
}

// vbriSeekTable converts the cumulative VBRI offsets.
func vbriSeekTable(origin int64, tag *infoTag) (*SeekTable, error) {
	if tag.Frames <= 0 || tag.Bytes <= 0 || len(tag.vbri) == 0 {
		return nil, errSeekTable
	}

	times := make([]float64, len(tag.vbri))
	offsets := make([]float64, len(tag.vbri))
	for i, v := range tag.vbri {
		times[i] = float64(i*tag.framesPerEntry) / float64(tag.Frames)
		offsets[i] = float64(v) / float64(tag.Bytes)
	}

	return newSeekTable(origin, tag.Bytes, times, offsets)
}

// Len returns the number of table points including the end point.
func (t *SeekTable) Len() int {
	return len(t.times)
}

// Point returns the i-th table point as playtime and byte fractions.
func (t *SeekTable) Point(i int) (time, offset float64) {
	return t.times[i], t.offsets[i]
}

// Offset returns the byte offset for a playtime fraction.
func (t *SeekTable) Offset(fraction float64) int64 {
	fraction = math.Max(0, math.Min(1, fraction))

	return t.Origin + int64(t.forward.At(fraction)*float64(t.Length))
}

// Fraction returns the playtime fraction for a byte offset.
func (t *SeekTable) Fraction(offset int64) float64 {
	if t.inverse == nil || t.Length <= 0 {
		return 0
	}

	y := float64(offset-t.Origin) / float64(t.Length)

	return t.inverse.At(math.Max(0, math.Min(1, y)))
}
