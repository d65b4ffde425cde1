package mpa

import (
	"errors"
	"io"
)

// Source is the byte-oriented input consumed by the decoder.
// Read, Skip, Mark and Reset are the entire contract; where the bytes come from is up to the caller.
type Source interface {
	// Read reads up to len(p) bytes. It returns io.EOF at the end of the stream
	// and ErrNeedMoreData if a progressive source is temporarily drained.
	Read(p []byte) (int, error)
	// Skip discards up to n bytes and returns the number of bytes skipped.
	Skip(n int64) (int64, error)
	// Mark remembers the current position. Reset returns to it as long as
	// no more than readLimit bytes were read in between.
	Mark(readLimit int)
	// Reset repositions the source to the last mark.
	Reset() error
}

// sizer is implemented by sources that know their total length.
type sizer interface {
	Size() int64
}

var errNoMark = errors.New("mpa: reset without a valid mark")

// tell returns the current offset of src, 0 if it does not track one.
// ReaderSource and StreamBuffer report their position even when they cannot seek.
func tell(src Source) int64 {
	if s, ok := src.(io.Seeker); ok {
		pos, _ := s.Seek(0, io.SeekCurrent)

		return pos
	}

	return 0
}

// ReaderSource adapts an io.Reader to Source. If the reader also implements io.Seeker,
// Mark/Reset and Skip are done by seeking and ReaderSource itself is seekable. Otherwise
// the bytes read after Mark are kept in memory for replay.
type ReaderSource struct {
	r      io.Reader
	seeker io.Seeker
	origin int64
	size   int64
	pos    int64

	marked  bool
	markPos int64
	limit   int
	replay  []byte
	rpos    int

	scratch []byte
}

// NewSource creates a Source reading from r. Positions are relative to the
// current position of r.
func NewSource(r io.Reader) (*ReaderSource, error) {
	s := &ReaderSource{r: r, size: -1}

	if seeker, ok := r.(io.Seeker); ok {
		cur, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		end, err := seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, err
		}
		_, err = seeker.Seek(cur, io.SeekStart)
		if err != nil {
			return nil, err
		}

		s.seeker = seeker
		s.origin = cur
		s.size = end - cur
	}

	return s, nil
}

// Size returns the number of bytes from the origin to the end, or -1 if unknown.
func (s *ReaderSource) Size() int64 {
	return s.size
}

// Seekable returns true if the underlying reader is an io.Seeker.
func (s *ReaderSource) Seekable() bool {
	return s.seeker != nil
}

// Read implements the io.Reader interface.
func (s *ReaderSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if s.rpos < len(s.replay) {
		n := copy(p, s.replay[s.rpos:])
		s.rpos += n
		s.pos += int64(n)
		if !s.marked && s.rpos == len(s.replay) {
			s.replay = s.replay[:0]
			s.rpos = 0
		}

		return n, nil
	}

	n, err := s.r.Read(p)
	if n > 0 {
		s.pos += int64(n)
		if s.marked && s.seeker == nil {
			if len(s.replay)+n > s.limit {
				s.marked = false
				s.replay = s.replay[:0]
				s.rpos = 0
			} else {
				s.replay = append(s.replay, p[:n]...)
				s.rpos = len(s.replay)
			}
		}
	}

	return n, err
}

// Skip implements Source.
func (s *ReaderSource) Skip(n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	if s.seeker != nil && s.rpos == len(s.replay) {
		remaining := s.size - s.pos
		if n > remaining {
			n = remaining
		}
		if _, err := s.seeker.Seek(s.origin+s.pos+n, io.SeekStart); err != nil {
			return 0, err
		}
		s.pos += n
		if n == 0 {
			return 0, io.EOF
		}

		return n, nil
	}

	if s.scratch == nil {
		s.scratch = make([]byte, 4096)
	}

	var skipped int64
	for skipped < n {
		chunk := s.scratch
		if rest := n - skipped; rest < int64(len(chunk)) {
			chunk = chunk[:rest]
		}

		m, err := s.Read(chunk)
		skipped += int64(m)
		if err != nil {
			return skipped, err
		}
		if m == 0 {
			return skipped, io.ErrNoProgress
		}
	}

	return skipped, nil
}

// Mark implements Source.
func (s *ReaderSource) Mark(readLimit int) {
	s.marked = true
	s.markPos = s.pos
	s.limit = readLimit

	if s.seeker == nil {
		// Keep bytes that are still waiting to be replayed.
		s.replay = append(s.replay[:0], s.replay[s.rpos:]...)
		s.rpos = 0
	}
}

// Reset implements Source.
func (s *ReaderSource) Reset() error {
	if !s.marked {
		return errNoMark
	}

	if s.seeker != nil {
		if _, err := s.seeker.Seek(s.origin+s.markPos, io.SeekStart); err != nil {
			return err
		}
		s.pos = s.markPos

		return nil
	}

	s.rpos = 0
	s.pos = s.markPos

	return nil
}

// Seek implements the io.Seeker interface. Offsets are relative to the origin of the source.
// It returns ErrNotSeekable if the underlying reader is not an io.Seeker.
func (s *ReaderSource) Seek(offset int64, whence int) (int64, error) {
	if s.seeker == nil {
		return s.pos, ErrNotSeekable
	}

	switch whence {
	case io.SeekCurrent:
		offset += s.pos
	case io.SeekEnd:
		offset += s.size
	}

	if offset < 0 {
		return s.pos, errors.New("mpa: negative position")
	}

	if _, err := s.seeker.Seek(s.origin+offset, io.SeekStart); err != nil {
		return s.pos, err
	}

	s.pos = offset
	s.replay = s.replay[:0]
	s.rpos = 0

	return offset, nil
}

// StreamBuffer is a Source fed progressively by the caller, e.g. from a network stream.
// Reads beyond the written data return ErrNeedMoreData until SignalEnd is called.
type StreamBuffer struct {
	bytes []byte
	base  int64
	index int
	mark  int
	limit int
	ended bool
}

// NewStreamBuffer creates an empty stream buffer.
func NewStreamBuffer() *StreamBuffer {
	return &StreamBuffer{
		bytes: make([]byte, 0, BufferSize),
		mark:  -1,
	}
}

// Write appends the contents of p to the buffer.
func (b *StreamBuffer) Write(p []byte) (int, error) {
	b.discardReadBytes()
	b.bytes = append(b.bytes, p...)

	return len(p), nil
}

// SignalEnd marks the current byte length as the end of this buffer.
// It should be called just after the last Write.
func (b *StreamBuffer) SignalEnd() {
	b.ended = true
}

// Remaining returns the number of written but not yet read bytes.
func (b *StreamBuffer) Remaining() int {
	return len(b.bytes) - b.index
}

// Size returns the total size once the end was signalled, or -1.
func (b *StreamBuffer) Size() int64 {
	if !b.ended {
		return -1
	}

	return b.base + int64(len(b.bytes))
}

// Read implements Source.
func (b *StreamBuffer) Read(p []byte) (int, error) {
	if b.index == len(b.bytes) {
		if b.ended {
			return 0, io.EOF
		}

		return 0, ErrNeedMoreData
	}

	n := copy(p, b.bytes[b.index:])
	b.index += n

	return n, nil
}

// Skip implements Source.
func (b *StreamBuffer) Skip(n int64) (int64, error) {
	available := int64(len(b.bytes) - b.index)
	if n <= available {
		b.index += int(n)

		return n, nil
	}

	b.index = len(b.bytes)
	if b.ended {
		return available, io.EOF
	}

	return available, ErrNeedMoreData
}

// Mark implements Source. Marked bytes are retained until more than readLimit bytes
// were read past the mark.
func (b *StreamBuffer) Mark(readLimit int) {
	b.mark = b.index
	b.limit = readLimit
}

// Reset implements Source.
func (b *StreamBuffer) Reset() error {
	if b.mark < 0 {
		return errNoMark
	}

	b.index = b.mark

	return nil
}

// Seek implements the io.Seeker interface for positions still retained in memory.
func (b *StreamBuffer) Seek(offset int64, whence int) (int64, error) {
	cur := b.base + int64(b.index)

	switch whence {
	case io.SeekCurrent:
		offset += cur
	case io.SeekEnd:
		offset += b.base + int64(len(b.bytes))
	}

	if offset < b.base || offset > b.base+int64(len(b.bytes)) {
		return cur, ErrNotSeekable
	}

	b.index = int(offset - b.base)

	return offset, nil
}

func (b *StreamBuffer) discardReadBytes() {
	if b.mark >= 0 && b.index-b.mark > b.limit {
		b.mark = -1
	}

	keep := b.index
	if b.mark >= 0 && b.mark < keep {
		keep = b.mark
	}

	if keep == 0 {
		return
	}

	copy(b.bytes, b.bytes[keep:])
	b.bytes = b.bytes[:len(b.bytes)-keep]
	b.base += int64(keep)
	b.index -= keep
	if b.mark >= 0 {
		b.mark -= keep
	}
}
