package mpa

import (
	"errors"
	"io"
)

const (
	// BufferSize is the default size for input reads.
	BufferSize = 128 * 1024
)

// scanStatus is the outcome of a byte-wise header scan.
type scanStatus int

const (
	scanFound scanStatus = iota
	scanEOF
	scanNeedMoreData
	scanExhausted
)

// bitReader keeps a window of source bytes and a bit cursor into it.
type bitReader struct {
	src   Source
	bytes []byte

	bitIndex int
	// offset of bytes[0] in the source
	base int64
	// bytes from this offset on survive a refill, -1 if unpinned
	pin int64

	available []byte
	err       error
}

func newBitReader(src Source, size int) *bitReader {
	if size <= 0 {
		size = BufferSize
	}

	return &bitReader{
		src:       src,
		bytes:     make([]byte, 0, size),
		available: make([]byte, size),
		pin:       -1,
	}
}

// hold keeps the bytes from pos on buffered until release, so a frame can be revisited.
func (b *bitReader) hold(pos int64) {
	b.pin = pos
}

func (b *bitReader) release() {
	b.pin = -1
}

// position returns the absolute byte offset of the cursor.
func (b *bitReader) position() int64 {
	return b.base + int64(b.bitIndex>>3)
}

// ended reports whether the last refill hit the end of the source.
func (b *bitReader) ended() bool {
	return errors.Is(b.err, io.EOF)
}

// starved reports whether the last refill found a progressive source drained.
func (b *bitReader) starved() bool {
	return errors.Is(b.err, ErrNeedMoreData)
}

func (b *bitReader) load() bool {
	b.discardReadBytes()

	n, err := b.src.Read(b.available)
	if n > 0 {
		b.bytes = append(b.bytes, b.available[:n]...)
		b.err = nil

		return true
	}

	if err == nil {
		err = io.ErrNoProgress
	}
	b.err = err

	return false
}

// has makes sure count bits are buffered, refilling from the source as needed.
func (b *bitReader) has(count int) bool {
	for ((len(b.bytes) << 3) - b.bitIndex) < count {
		if !b.load() {
			return false
		}
	}

	return true
}

func (b *bitReader) read(count int) int {
	if !b.has(count) {
		return 0
	}

	value := 0
	for count != 0 {
		currentByte := int(b.bytes[b.bitIndex>>3])

		remaining := 8 - (b.bitIndex & 7) // Remaining bits in byte
		read := count
		if remaining < count { // Bits in self run
			read = remaining
		}

		shift := remaining - read
		mask := 0xff >> (8 - read)

		value = (value << read) | ((currentByte & (mask << shift)) >> shift)

		b.bitIndex += read
		count -= read
	}

	return value
}

func (b *bitReader) read1() int {
	if !b.has(1) {
		return 0
	}

	currentByte := int(b.bytes[b.bitIndex>>3])

	shift := 7 - (b.bitIndex & 7)
	value := (currentByte & (1 << shift)) >> shift

	b.bitIndex++

	return value
}

// peek32 returns the next four bytes as a big-endian word without advancing.
func (b *bitReader) peek32() (uint32, bool) {
	b.align()
	if !b.has(32) {
		return 0, false
	}

	i := b.bitIndex >> 3

	return uint32(b.bytes[i])<<24 | uint32(b.bytes[i+1])<<16 | uint32(b.bytes[i+2])<<8 | uint32(b.bytes[i+3]), true
}

func (b *bitReader) align() {
	b.bitIndex = ((b.bitIndex + 7) >> 3) << 3 // Align to next byte
}

func (b *bitReader) skip(count int) {
	if b.has(count) {
		b.bitIndex += count
	}
}

// window returns n buffered bytes starting at the absolute offset pos.
func (b *bitReader) window(pos int64, n int) ([]byte, bool) {
	i := int(pos - b.base)
	if i < 0 || n < 0 || i+n > len(b.bytes) {
		return nil, false
	}

	return b.bytes[i : i+n], true
}

// readBlock copies n bytes from the byte-aligned cursor into the ring dst starting at index at,
// wrapping around the end of dst. It returns the ring index following the copied bytes.
func (b *bitReader) readBlock(dst []byte, at, n int) int {
	b.align()
	if n <= 0 || len(dst) == 0 || !b.has(n<<3) {
		return at
	}

	src := b.bytes[b.bitIndex>>3 : (b.bitIndex>>3)+n]
	b.bitIndex += n << 3

	if n > len(dst) {
		// Only the tail survives in the ring.
		at = (at + n - len(dst)) % len(dst)
		src = src[n-len(dst):]
		n = len(dst)
	}

	first := copy(dst[at:], src)
	if first < n {
		copy(dst, src[first:])
	}

	return (at + n) % len(dst)
}

// findFrameSync scans byte-wise for the 11-bit sync pattern, leaving the cursor at the
// first byte of the candidate header. At most limit bytes are skipped.
func (b *bitReader) findFrameSync(limit int) (scanStatus, int) {
	b.align()

	skipped := 0
	for skipped <= limit {
		if !b.has(16) {
			switch {
			case b.starved():
				return scanNeedMoreData, skipped
			default:
				return scanEOF, skipped
			}
		}

		i := b.bitIndex >> 3
		if b.bytes[i] == 0xFF && (b.bytes[i+1]&0xE0) == 0xE0 {
			return scanFound, skipped
		}

		b.bitIndex += 8
		skipped++
	}

	return scanExhausted, skipped
}

// seekTo moves the cursor to the absolute byte offset pos, repositioning the source if
// pos is outside the buffered window.
func (b *bitReader) seekTo(pos int64) error {
	end := b.base + int64(len(b.bytes))
	if pos >= b.base && pos <= end {
		b.bitIndex = int(pos-b.base) << 3
		b.err = nil

		return nil
	}

	if pos > end {
		n := pos - end
		skipped, err := b.src.Skip(n)
		b.drop(end + skipped)
		if err != nil {
			return err
		}
		if skipped < n {
			return io.EOF
		}

		return nil
	}

	seeker, ok := b.src.(io.Seeker)
	if !ok {
		return ErrNotSeekable
	}

	off, err := seeker.Seek(pos, io.SeekStart)
	if err != nil {
		return err
	}
	b.drop(off)

	return nil
}

// drop empties the window; the next byte read from the source is at offset pos.
func (b *bitReader) drop(pos int64) {
	b.bytes = b.bytes[:0]
	b.bitIndex = 0
	b.base = pos
	b.pin = -1
	b.err = nil
}

func (b *bitReader) discardReadBytes() {
	bytePos := b.bitIndex >> 3
	if b.pin >= 0 && b.pin-b.base < int64(bytePos) {
		bytePos = int(max(b.pin-b.base, 0))
	}
	if bytePos == len(b.bytes) {
		b.bytes = b.bytes[:0]

		b.bitIndex = 0
		b.base += int64(bytePos)
	} else if bytePos > 0 {
		copy(b.bytes, b.bytes[bytePos:])
		b.bytes = b.bytes[:len(b.bytes)-bytePos]

		b.bitIndex -= bytePos << 3
		b.base += int64(bytePos)
	}
}
