package mpa

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// maxFrameSize bounds any Layer I/II frame, free format at the lowest sample rate included.
const maxFrameSize = 144*freeFormatMax/8000 + 1

// StreamInfo describes a detected Layer I/II stream.
type StreamInfo struct {
	// Header of the first frame.
	Header Header
	// Start is the offset of the first audio frame. A Xing/Info or VBRI frame is not audio.
	Start int64
	// TagStart is the offset of the Xing/Info or VBRI frame, -1 if there is none.
	TagStart int64
	// Tag is "Xing", "Info", "VBRI" or empty.
	Tag string

	// FreeBitrate is the inferred bitrate of a free format stream, 0 otherwise.
	FreeBitrate int
	VBR         bool

	// Frames is the number of audio frames, -1 if unknown.
	Frames int
	// Bytes is the length of the audio data from Start, -1 if unknown.
	Bytes int64
	// GrossBytes is the length of the source from where detection started, -1 if unknown.
	GrossBytes int64
	// Duration in microseconds, -1 if unknown.
	Duration int64
	// Bitrate in bits per second, the average for VBR streams.
	Bitrate int

	// TOC maps playtime to byte offsets, nil without a Xing or VBRI table.
	TOC *SeekTable

	Encoder        string
	EncoderDelay   int
	EncoderPadding int
}

// LastFrame returns the index of the last frame, -1 if the frame count is unknown.
func (s *StreamInfo) LastFrame() int {
	if s.Frames <= 0 {
		return -1
	}

	return s.Frames - 1
}

// Detect probes src for a Layer I/II stream. It skips a leading ID3v2 tag, scans up to
// cfg.ScanLimit bytes for a frame header and accepts it once cfg.SyncFrames consecutive
// headers agree. On success src is positioned at the first audio frame. On failure src
// is reset to where it was, so another detector can try the same bytes.
func Detect(src Source, cfg Config) (*StreamInfo, error) {
	cfg.setDefaults()

	tagSize, err := id3v2Size(src)
	if err != nil {
		return nil, err
	}

	at := tell(src)
	probe := cfg.ScanLimit + (cfg.SyncFrames+1)*maxFrameSize
	src.Mark(tagSize + probe)

	info, err := detect(src, cfg, tagSize, probe, at)
	if rerr := src.Reset(); rerr != nil && err == nil {
		err = rerr
	}
	if err != nil {
		return nil, err
	}

	if err := skipFull(src, info.Start); err != nil {
		return nil, err
	}

	cfg.Logger.Debug("mpa: stream detected",
		"version", info.Header.Version.String(),
		"layer", info.Header.Layer.String(),
		"samplerate", info.Header.Samplerate(),
		"start", info.Start,
		"tag", info.Tag,
	)

	return info, nil
}

// id3v2Size returns the size of an ID3v2 tag at the current position, 0 if there is none.
// The source position is not changed.
func id3v2Size(src Source) (int, error) {
	var b [10]byte

	src.Mark(len(b))
	n, rerr := readFull(src, b[:])
	if err := src.Reset(); err != nil {
		return 0, err
	}
	if rerr != nil && !errors.Is(rerr, io.EOF) && !errors.Is(rerr, ErrNeedMoreData) {
		return 0, rerr
	}

	if n < len(b) || string(b[:3]) != "ID3" || b[3] == 0xff || b[4] == 0xff {
		return 0, nil
	}

	size := 0
	for _, v := range b[6:10] {
		if v&0x80 != 0 {
			return 0, nil
		}
		size = size<<7 | int(v)
	}

	size += len(b)
	if b[5]&0x10 != 0 {
		// footer
		size += 10
	}

	return size, nil
}

func detect(src Source, cfg Config, tagSize, probe int, at int64) (*StreamInfo, error) {
	if tagSize > 0 {
		if err := skipFull(src, int64(tagSize)); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrUnsupportedFormat
			}

			return nil, err
		}
	}

	buf := make([]byte, probe)
	n, err := readFull(src, buf)
	buf = buf[:n]

	ended := errors.Is(err, io.EOF)
	starved := errors.Is(err, ErrNeedMoreData)
	if err != nil && !ended && !starved {
		return nil, err
	}

	layerIII := false
	for i := 0; i+4 <= len(buf) && i <= cfg.ScanLimit; i++ {
		if buf[i] != 0xff || buf[i+1]&0xe0 != 0xe0 {
			continue
		}

		h, err := ParseHeader(binary.BigEndian.Uint32(buf[i:]))
		if err != nil {
			if errors.Is(err, ErrLayerIII) {
				layerIII = true
			}

			continue
		}

		free := 0
		if h.BitrateIndex == 0 {
			if free = probeFreeBitrate(buf, i, h); free == 0 {
				continue
			}
		}

		switch verifyChain(buf, i, h, free, cfg.SyncFrames, ended) {
		case chainOK:
			return describe(src, buf, i, h, free, tagSize, at), nil
		case chainShort:
			if starved {
				return nil, ErrNeedMoreData
			}
		}
	}

	switch {
	case starved:
		return nil, ErrNeedMoreData
	case layerIII:
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, ErrLayerIII)
	}

	return nil, ErrUnsupportedFormat
}

type chainResult int

const (
	chainOK chainResult = iota
	chainBroken
	chainShort
)

// verifyChain checks that count headers compatible with first follow each other from pos.
// A chain that runs into the end of the stream, or into a trailing tag, is accepted.
func verifyChain(buf []byte, pos int, first Header, free, count int, ended bool) chainResult {
	h := first
	for n := 1; n < count; n++ {
		size := h.FrameSize(free)
		if size <= 4 {
			return chainBroken
		}

		pos += size
		if pos+4 > len(buf) {
			switch {
			case !ended:
				return chainShort
			case pos == len(buf), pos < len(buf) && isTrailer(buf[pos:]):
				return chainOK
			}

			return chainBroken
		}

		next, err := ParseHeader(binary.BigEndian.Uint32(buf[pos:]))
		if err != nil || !first.compatible(next) {
			if ended && isTrailer(buf[pos:]) {
				return chainOK
			}

			return chainBroken
		}

		h = next
	}

	return chainOK
}

// isTrailer reports tags that are appended after the last frame.
func isTrailer(b []byte) bool {
	return bytes.HasPrefix(b, []byte("TAG")) ||
		bytes.HasPrefix(b, []byte("APETAGEX")) ||
		bytes.HasPrefix(b, []byte("LYRICSBEGIN"))
}

// probeFreeBitrate finds the next compatible free format header after pos and infers
// the bitrate from the gap. It returns 0 if the gap does not match any bitrate step.
func probeFreeBitrate(buf []byte, pos int, h Header) int {
	limit := pos + h.FrameSize(freeFormatMax) + 1
	if limit > len(buf)-4 {
		limit = len(buf) - 4
	}

	for j := pos + 4; j <= limit; j++ {
		if buf[j] != 0xff || buf[j+1]&0xe0 != 0xe0 {
			continue
		}

		next, err := ParseHeader(binary.BigEndian.Uint32(buf[j:]))
		if err != nil || !h.compatible(next) {
			continue
		}

		gap := j - pos
		br := freeFormatBitrate(h, gap)
		if br == 0 || h.FrameSize(br) != gap {
			return 0
		}

		return br
	}

	return 0
}

// describe fills StreamInfo from the first frame at buf[pos:].
func describe(src Source, buf []byte, pos int, h Header, free, tagSize int, at int64) *StreamInfo {
	first := int64(tagSize + pos)
	size := h.FrameSize(free)

	info := &StreamInfo{
		Header:      h,
		Start:       first,
		TagStart:    -1,
		FreeBitrate: free,
		Frames:      -1,
		Bytes:       -1,
		GrossBytes:  -1,
		Duration:    -1,
		Bitrate:     h.Bitrate(),
	}
	if free > 0 {
		info.Bitrate = free
	}

	if s, ok := src.(sizer); ok && s.Size() >= at {
		info.GrossBytes = s.Size() - at
	}

	end := pos + size
	if end > len(buf) {
		end = len(buf)
	}

	if tag := parseInfoTag(h, buf[pos:end]); tag != nil {
		info.Tag = tag.Tag
		info.TagStart = first
		info.Start = first + int64(size)
		info.VBR = !tag.cbr()
		info.Frames = tag.Frames
		info.Encoder = tag.Encoder
		info.EncoderDelay = tag.EncoderDelay
		info.EncoderPadding = tag.EncoderPadding

		// Totals in the tag count the tag frame, frame indices and the TOC domain do not.
		if tag.Bytes > int64(size) {
			info.Bytes = tag.Bytes - int64(size)
		} else if info.GrossBytes > 0 {
			info.Bytes = info.GrossBytes - info.Start
		}

		switch {
		case len(tag.toc) == 100 && info.Bytes > 0:
			info.TOC, _ = xingSeekTable(info.Start, info.Bytes, tag.toc)
		case len(tag.vbri) > 0:
			info.TOC, _ = vbriSeekTable(info.Start, tag)
		}
	}

	if info.Bytes < 0 && info.GrossBytes >= 0 {
		info.Bytes = info.GrossBytes - info.Start
	}

	sr := h.Samplerate()
	spf := h.SamplesPerFrame()

	if info.Frames < 0 && !info.VBR && info.Bytes > 0 && info.Bitrate > 0 {
		info.Frames = int(math.Round(float64(info.Bytes) * 8 * float64(sr) / float64(info.Bitrate*spf)))
	}

	switch {
	case info.Frames >= 0:
		info.Duration = int64(info.Frames) * int64(spf) * 1000000 / int64(sr)
	case info.Bytes > 0 && info.Bitrate > 0:
		info.Duration = info.Bytes * 8 * 1000000 / int64(info.Bitrate)
	}

	switch {
	case info.Tag != "" && info.Frames > 0 && info.Bytes > 0:
		// The tag totals are more reliable than the bitrate field of the header, also for Info.
		info.Bitrate = int(math.Round(float64(info.Bytes) * 8 * float64(sr) / float64(info.Frames*spf)))
	case info.VBR && info.Duration > 0 && info.Bytes > 0:
		info.Bitrate = int(info.Bytes * 8 * 1000000 / info.Duration)
	}

	return info
}

// readFull reads until p is full or the source reports an error.
func readFull(src Source, p []byte) (int, error) {
	n := 0
	for n < len(p) {
		m, err := src.Read(p[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, io.ErrNoProgress
		}
	}

	return n, nil
}

// skipFull skips exactly n bytes.
func skipFull(src Source, n int64) error {
	for n > 0 {
		m, err := src.Skip(n)
		n -= m
		if err != nil {
			return err
		}
		if m == 0 {
			return io.ErrNoProgress
		}
	}

	return nil
}
