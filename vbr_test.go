package mpa

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestParseInfoTagOffsets(t *testing.T) {
	h := testHeader(LayerII, ModeStereo, 8, 0)
	protected := h
	protected.Protected = true

	tests := []struct {
		name   string
		header Header
		offset int
	}{
		{"after header", h, 4},
		{"after crc", protected, 6},
		{"mono side info", h, 4 + 9},
		{"stereo lsf side info", h, 4 + 17},
		{"stereo side info", h, 4 + 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := make([]byte, 417)
			binary.BigEndian.PutUint32(frame, tt.header.Uint32())
			copy(frame[tt.offset:], "Info")
			binary.BigEndian.PutUint32(frame[tt.offset+4:], xingFrames)
			binary.BigEndian.PutUint32(frame[tt.offset+8:], 1234)

			tag := parseInfoTag(tt.header, frame)
			if tag == nil {
				t.Fatal("got no tag")
			}
			if tag.Tag != "Info" || !tag.cbr() || tag.Frames != 1234 || tag.Bytes != -1 {
				t.Errorf("got %+v", tag)
			}
		})
	}

	if tag := parseInfoTag(h, make([]byte, 417)); tag != nil {
		t.Errorf("empty frame: got %+v", tag)
	}
}

func TestParseXing(t *testing.T) {
	h := testHeader(LayerII, ModeStereo, 8, 0)
	frame := xingFrame(t, h, 1000, 417000, 1105, 2000)

	tag := parseInfoTag(h, frame)
	if tag == nil {
		t.Fatal("got no tag")
	}

	if tag.Tag != "Xing" || tag.cbr() {
		t.Errorf("Tag: got %q", tag.Tag)
	}
	if tag.Frames != 1000 || tag.Bytes != 417000 {
		t.Errorf("totals: got %d frames %d bytes, want %d and %d", tag.Frames, tag.Bytes, 1000, 417000)
	}
	if len(tag.toc) != 100 {
		t.Errorf("TOC: got %d entries, want %d", len(tag.toc), 100)
	}
	if tag.Encoder != "LAME3.100" || tag.EncoderDelay != 1105 || tag.EncoderPadding != 2000 {
		t.Errorf("LAME: got %q delay %d padding %d", tag.Encoder, tag.EncoderDelay, tag.EncoderPadding)
	}

	// A truncated TOC makes the tag unusable.
	if tag := parseXing(frame[4:60]); tag != nil {
		t.Errorf("truncated: got %+v", tag)
	}
}

// vbriFrame builds a VBRI frame with the given per-entry byte counts.
func vbriFrame(h Header, frames int, size int64, framesPerEntry int, scale uint16, entries []uint16) []byte {
	b := make([]byte, h.FrameSize(0))
	binary.BigEndian.PutUint32(b, h.Uint32())

	v := b[vbriOffset:]
	copy(v, "VBRI")
	binary.BigEndian.PutUint16(v[4:], 1)
	binary.BigEndian.PutUint32(v[10:], uint32(size))
	binary.BigEndian.PutUint32(v[14:], uint32(frames-1))
	binary.BigEndian.PutUint16(v[18:], uint16(len(entries)))
	binary.BigEndian.PutUint16(v[20:], scale)
	binary.BigEndian.PutUint16(v[22:], 2)
	binary.BigEndian.PutUint16(v[24:], uint16(framesPerEntry))
	for i, e := range entries {
		binary.BigEndian.PutUint16(v[26+2*i:], e)
	}

	return b
}

func TestParseVBRI(t *testing.T) {
	h := testHeader(LayerII, ModeStereo, 8, 0)
	entries := []uint16{64, 192, 32, 224}
	frame := vbriFrame(h, 400, 1024, 100, 2, entries)

	tag := parseInfoTag(h, frame)
	if tag == nil {
		t.Fatal("got no tag")
	}

	if tag.Tag != "VBRI" || tag.Frames != 400 || tag.Bytes != 1024 {
		t.Errorf("got tag %q frames %d bytes %d", tag.Tag, tag.Frames, tag.Bytes)
	}

	want := []int64{0, 128, 512, 576, 1024}
	if len(tag.vbri) != len(want) {
		t.Fatalf("table: got %v, want %v", tag.vbri, want)
	}
	for i := range want {
		if tag.vbri[i] != want[i] {
			t.Errorf("table: got %v, want %v", tag.vbri, want)

			break
		}
	}

	table, err := vbriSeekTable(1000, tag)
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Offset(0.5); got != 1000+512 {
		t.Errorf("Offset(0.5): got %d, want %d", got, 1512)
	}
	if got := table.Fraction(1000 + 576); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("Fraction: got %f, want %f", got, 0.75)
	}
}

func TestSeekTable(t *testing.T) {
	toc := make([]byte, 100)
	for i := range toc {
		// Uneven, with a flat stretch and a step back.
		toc[i] = byte(math.Min(255, math.Sqrt(float64(i)/100)*256))
	}
	toc[40] = toc[39]
	toc[41] = toc[39]
	toc[60] = toc[58] - 3

	table, err := xingSeekTable(500, 100000, toc)
	if err != nil {
		t.Fatal(err)
	}

	if table.Len() != 101 {
		t.Errorf("Len: got %d, want %d", table.Len(), 101)
	}

	prevTime, prevOffset := -1.0, -1.0
	for i := 0; i < table.Len(); i++ {
		tm, off := table.Point(i)
		if tm <= prevTime || off < prevOffset {
			t.Errorf("point %d: (%f, %f) after (%f, %f)", i, tm, off, prevTime, prevOffset)
		}
		prevTime, prevOffset = tm, off
	}

	for i := 0; i+1 < table.Len(); i++ {
		t0, o0 := table.Point(i)
		t1, o1 := table.Point(i + 1)

		lo := table.Origin + int64(o0*float64(table.Length))
		hi := table.Origin + int64(o1*float64(table.Length))

		for _, f := range []float64{0.25, 0.5, 0.75} {
			got := table.Offset(t0 + (t1-t0)*f)
			if got < lo || got > hi {
				t.Fatalf("between points %d and %d: got %d, want within [%d, %d]", i, i+1, got, lo, hi)
			}
		}
	}

	if got := table.Offset(0); got != 500 {
		t.Errorf("Offset(0): got %d, want %d", got, 500)
	}
	if got := table.Offset(1); got != 100500 {
		t.Errorf("Offset(1): got %d, want %d", got, 100500)
	}

	for _, f := range []float64{0.1, 0.33, 0.8} {
		off := table.Offset(f)
		if got := table.Fraction(off); math.Abs(got-f) > 0.01 {
			t.Errorf("Fraction(Offset(%f)): got %f", f, got)
		}
	}
}

func TestSeekTableErrors(t *testing.T) {
	if _, err := newSeekTable(0, 0, []float64{0}, []float64{0}); err == nil {
		t.Error("zero length: got nil error")
	}
	if _, err := newSeekTable(0, 100, nil, nil); err == nil {
		t.Error("no points: got nil error")
	}
	if _, err := vbriSeekTable(0, &infoTag{Tag: "VBRI", Frames: 10, Bytes: 100}); err == nil {
		t.Error("VBRI without table: got nil error")
	}
}
