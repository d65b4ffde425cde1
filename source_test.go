package mpa

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func sequence(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}

	return b
}

func TestReaderSourceMarkReset(t *testing.T) {
	data := sequence(300)

	tests := []struct {
		name     string
		reader   io.Reader
		seekable bool
	}{
		{"seeker", bytes.NewReader(data), true},
		{"reader", onlyReader{bytes.NewReader(data)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewSource(tt.reader)
			if err != nil {
				t.Fatal(err)
			}
			if src.Seekable() != tt.seekable {
				t.Errorf("Seekable: got %v, want %v", src.Seekable(), tt.seekable)
			}

			if _, err := src.Skip(10); err != nil {
				t.Fatal(err)
			}

			src.Mark(100)
			first := make([]byte, 50)
			if _, err := io.ReadFull(src, first); err != nil {
				t.Fatal(err)
			}
			if err := src.Reset(); err != nil {
				t.Fatal(err)
			}

			again := make([]byte, 80)
			if _, err := io.ReadFull(src, again); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(again, data[10:90]) {
				t.Errorf("after Reset: got %v, want %v", again[:8], data[10:18])
			}

			rest, err := io.ReadAll(src)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(rest, data[90:]) {
				t.Errorf("rest: got %d bytes, want %d", len(rest), len(data)-90)
			}
		})
	}
}

func TestReaderSourceMarkLimit(t *testing.T) {
	src, err := NewSource(onlyReader{bytes.NewReader(sequence(100))})
	if err != nil {
		t.Fatal(err)
	}

	src.Mark(10)
	if _, err := io.ReadFull(src, make([]byte, 20)); err != nil {
		t.Fatal(err)
	}

	if err := src.Reset(); err == nil {
		t.Error("Reset: got nil error past the read limit")
	}
}

func TestReaderSourceSize(t *testing.T) {
	r := bytes.NewReader(sequence(100))
	if _, err := r.Seek(30, io.SeekStart); err != nil {
		t.Fatal(err)
	}

	src, err := NewSource(r)
	if err != nil {
		t.Fatal(err)
	}

	if got := src.Size(); got != 70 {
		t.Errorf("Size: got %d, want %d", got, 70)
	}

	n, err := src.Skip(100)
	if n != 70 || err != nil {
		t.Errorf("Skip: got (%d, %v), want (%d, nil)", n, err, 70)
	}

	if _, err := src.Seek(5, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	b := make([]byte, 1)
	if _, err := src.Read(b); err != nil || b[0] != 35 {
		t.Errorf("after Seek: got (%d, %v), want %d", b[0], err, 35)
	}

	plain, _ := NewSource(onlyReader{r})
	if got := plain.Size(); got != -1 {
		t.Errorf("Size without seeker: got %d, want %d", got, -1)
	}
	if _, err := plain.Seek(0, io.SeekStart); !errors.Is(err, ErrNotSeekable) {
		t.Errorf("Seek without seeker: got %v, want %v", err, ErrNotSeekable)
	}
}

func TestStreamBuffer(t *testing.T) {
	b := NewStreamBuffer()
	_, _ = b.Write(sequence(10))

	p := make([]byte, 8)
	if n, err := b.Read(p); n != 8 || err != nil {
		t.Fatalf("Read: got (%d, %v), want (%d, nil)", n, err, 8)
	}

	b.Mark(100)
	if n, _ := b.Read(p); n != 2 {
		t.Errorf("Read: got %d bytes, want %d", n, 2)
	}
	if _, err := b.Read(p); !errors.Is(err, ErrNeedMoreData) {
		t.Errorf("drained: got %v, want %v", err, ErrNeedMoreData)
	}

	_, _ = b.Write([]byte{10, 11, 12})
	if err := b.Reset(); err != nil {
		t.Fatal(err)
	}
	if got := b.Remaining(); got != 5 {
		t.Errorf("Remaining: got %d, want %d", got, 5)
	}

	if n, err := b.Skip(10); n != 5 || !errors.Is(err, ErrNeedMoreData) {
		t.Errorf("Skip: got (%d, %v), want (%d, %v)", n, err, 5, ErrNeedMoreData)
	}

	if got := b.Size(); got != -1 {
		t.Errorf("Size before end: got %d, want %d", got, -1)
	}
	b.SignalEnd()
	if got := b.Size(); got != 13 {
		t.Errorf("Size: got %d, want %d", got, 13)
	}
	if _, err := b.Read(p); err != io.EOF {
		t.Errorf("ended: got %v, want %v", err, io.EOF)
	}

	if _, err := b.Seek(9, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	if n, _ := b.Read(p); n != 4 || p[0] != 9 {
		t.Errorf("after Seek: got %d bytes starting %d, want %d starting %d", n, p[0], 4, 9)
	}
	if _, err := b.Seek(0, io.SeekStart); !errors.Is(err, ErrNotSeekable) {
		t.Errorf("Seek to discarded bytes: got %v, want %v", err, ErrNotSeekable)
	}
}

func TestStreamBufferReleasesMark(t *testing.T) {
	b := NewStreamBuffer()
	_, _ = b.Write(sequence(100))

	b.Mark(10)
	_, _ = b.Read(make([]byte, 50))
	_, _ = b.Write(sequence(10))

	if err := b.Reset(); err == nil {
		t.Error("Reset: got nil error past the read limit")
	}
	if got := b.Remaining(); got != 60 {
		t.Errorf("Remaining: got %d, want %d", got, 60)
	}
}
