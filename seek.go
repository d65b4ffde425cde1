package mpa

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

// Seek results for active seeking. A non-negative result of Seek is the corrected byte
// offset of a passive seek.
const (
	ActiveSeekingReady   = -1
	ActiveSeekingFailed  = -2
	ActiveSeekingAborted = -3
)

// Soft mute, in frames, after repositioning. The synthesis history needs a few
// frames to settle.
const (
	muteFramesStart = 2
	muteFrames      = 4
)

// positionCache holds the byte offset of every frame from 0 up to the furthest frame
// whose position is known exactly.
type positionCache struct {
	offsets []int64
}

func (c *positionCache) add(frame int, offset int64) {
	if frame == len(c.offsets) {
		c.offsets = append(c.offsets, offset)
	}
}

func (c *positionCache) len() int {
	return len(c.offsets)
}

func (c *positionCache) offset(frame int) (int64, bool) {
	if frame < 0 || frame >= len(c.offsets) {
		return 0, false
	}

	return c.offsets[frame], true
}

// nearest returns the last cached frame starting at or before offset.
func (c *positionCache) nearest(offset int64) (int, int64) {
	i := sort.Search(len(c.offsets), func(i int) bool { return c.offsets[i] > offset })
	if i == 0 {
		return 0, c.offsets[0]
	}

	return i - 1, c.offsets[i-1]
}

type walkStatus int

const (
	walkReady walkStatus = iota
	walkEnd
	walkFailed
	walkAborted
)

// walk parses frame headers forward from a known frame, caching every position on the
// way, until done accepts a frame or the stream ends. A failed or aborted walk leaves
// the read position where it was and returns the cause.
func (d *Decoder) walk(frame int, pos int64, done func(frame int, next int64) bool) (int, int64, walkStatus, error) {
	free := d.info.FreeBitrate
	save := d.br.position()

	fail := func(status walkStatus, err error) (int, int64, walkStatus, error) {
		_ = d.br.seekTo(save)

		return frame, pos, status, err
	}

	for {
		if err := d.br.seekTo(pos); err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return frame, pos, walkEnd, nil
			case errors.Is(err, ErrNeedMoreData):
				return fail(walkAborted, err)
			}

			return fail(walkFailed, err)
		}

		word, ok := d.br.peek32()
		if !ok {
			if d.br.starved() {
				return fail(walkAborted, ErrNeedMoreData)
			}

			return frame, pos, walkEnd, nil
		}

		h, err := ParseHeader(word)
		if err == nil && !d.header.compatible(h) {
			err = fmt.Errorf("%w: incompatible header", ErrInvalidHeader)
		}
		if err != nil {
			if d.atTrailer() {
				return frame, pos, walkEnd, nil
			}

			return fail(walkFailed, fmt.Errorf("frame %d at offset %d: %w", frame, pos-d.origin, err))
		}

		next := pos + int64(h.FrameSize(free))
		d.cache.add(frame+1, next)

		if done(frame, next) {
			return frame, pos, walkReady, nil
		}

		frame++
		pos = next
	}
}

// passiveFrame estimates the frame at byte offset pos from the TOC or from the constant
// bitrate. Offsets up to the first audio frame map to frame 0.
func (d *Decoder) passiveFrame(pos int64) (int, bool) {
	info := d.info
	if info.Frames <= 0 {
		return 0, false
	}

	start := d.origin + info.Start

	var f float64
	switch {
	case info.TOC != nil:
		toc := *info.TOC
		toc.Origin += d.origin
		f = toc.Fraction(pos)
	case !info.VBR && info.Bytes > 0:
		f = float64(pos-start) / float64(info.Bytes)
	default:
		return 0, false
	}

	if pos <= start {
		return 0, true
	}

	frame := int(math.Round(f * float64(info.Frames)))

	return min(max(frame, 0), info.Frames), true
}

// passiveOffset estimates where frame starts. The estimate is exact for frame 0.
func (d *Decoder) passiveOffset(frame int) int64 {
	info := d.info
	start := d.origin + info.Start
	if frame <= 0 {
		return start
	}

	if info.TOC != nil {
		return max(d.origin+info.TOC.Offset(float64(frame)/float64(info.Frames)), start)
	}

	return start + int64(frame)*info.Bytes/int64(info.Frames)
}

// align moves to the first confirmed header at or after the read position and returns
// its offset. At the end of the data the read position is returned.
func (d *Decoder) align() (int64, error) {
	_, _, at, err := d.nextHeader()
	switch {
	case err == nil:
		return at, nil
	case errors.Is(err, io.EOF), errors.Is(err, ErrNeedMoreData):
		return d.br.position(), nil
	}

	return 0, err
}

// Seek moves to the frame containing the byte offset, counted from the start of the
// stream. With fast seeking and a TOC or a constant bitrate, the frame is estimated and
// the offset of its header is returned. Otherwise frame headers are walked and one of
// ActiveSeekingReady, ActiveSeekingFailed or ActiveSeekingAborted is returned.
func (d *Decoder) Seek(offset int64) (int64, error) {
	if d.closed {
		return ActiveSeekingFailed, ErrClosed
	}

	start := d.origin + d.info.Start
	target := max(d.origin+offset, start)

	if d.cfg.FastSeeking {
		if frame, ok := d.passiveFrame(target); ok {
			pos, err := d.seekPassive(frame)
			if err != nil {
				return ActiveSeekingFailed, fmt.Errorf("%w: %w", ErrSeekFailed, err)
			}

			d.log.Debug("mpa: seek", "mode", "passive", "target", offset, "frame", d.index, "offset", pos-d.origin)

			return pos - d.origin, nil
		}
	}

	frame, pos := d.cache.nearest(target)
	frame, pos, status, err := d.walk(frame, pos, func(_ int, next int64) bool {
		return next > target
	})

	return d.finishActive(offset, frame, pos, status, err)
}

// seekPassive moves to the estimated start of frame and snaps to the header found there.
// The frame index follows the header actually reached.
func (d *Decoder) seekPassive(frame int) (int64, error) {
	if pos, ok := d.cache.offset(frame); ok {
		return pos, d.reposition(frame, pos, true)
	}

	pos := d.passiveOffset(frame)
	if err := d.reposition(frame, pos, frame == 0); err != nil {
		return 0, err
	}
	if frame == 0 {
		return pos, nil
	}

	at, err := d.align()
	if err != nil {
		return 0, err
	}

	if at != pos {
		if f, ok := d.passiveFrame(at); ok && f != frame {
			d.index = f
			d.sampleIndex = int64(f) * int64(d.header.SamplesPerFrame())
		}
	}

	return at, nil
}

func (d *Decoder) finishActive(target any, frame int, pos int64, status walkStatus, cause error) (int64, error) {
	switch status {
	case walkFailed:
		d.log.Debug("mpa: seek", "mode", "active", "target", target, "result", "failed", "err", cause)

		return ActiveSeekingFailed, fmt.Errorf("%w: %w", ErrSeekFailed, cause)
	case walkAborted:
		d.log.Debug("mpa: seek", "mode", "active", "target", target, "result", "aborted")

		return ActiveSeekingAborted, ErrSeekAborted
	case walkEnd:
		d.updateFrames(frame)
	}

	if err := d.reposition(frame, pos, true); err != nil {
		return ActiveSeekingFailed, fmt.Errorf("%w: %w", ErrSeekFailed, err)
	}

	d.log.Debug("mpa: seek", "mode", "active", "target", target, "frame", frame, "offset", pos-d.origin)

	return ActiveSeekingReady, nil
}

// SetPlaytime moves to the frame playing at t.
func (d *Decoder) SetPlaytime(t time.Duration) error {
	if d.closed {
		return ErrClosed
	}

	h := d.header
	spf := int64(h.SamplesPerFrame())
	frame := int(t.Microseconds() * int64(h.Samplerate()) / (spf * 1000000))
	frame = max(frame, 0)
	if d.info.Frames >= 0 {
		frame = min(frame, d.info.Frames)
	}

	if pos, ok := d.cache.offset(frame); ok {
		return d.reposition(frame, pos, true)
	}

	if d.cfg.FastSeeking && d.info.Frames > 0 && (d.info.TOC != nil || (!d.info.VBR && d.info.Bytes > 0)) {
		_, err := d.seekPassive(frame)

		return err
	}

	last := d.cache.len() - 1
	pos, _ := d.cache.offset(last)
	found, pos, status, err := d.walk(last, pos, func(f int, _ int64) bool {
		return f == frame
	})

	if _, err := d.finishActive(t, found, pos, status, err); err != nil {
		return err
	}

	return nil
}

// Playtime returns the position of the next frame. After Close it is the position
// reached before closing.
func (d *Decoder) Playtime() time.Duration {
	h := d.header
	samples := int64(d.index) * int64(h.SamplesPerFrame())

	return time.Duration(samples * int64(time.Second) / int64(h.Samplerate()))
}

// Rewind moves back to the first frame.
func (d *Decoder) Rewind() error {
	return d.SetPlaytime(0)
}

// reposition continues decoding at frame, which starts at or near pos.
func (d *Decoder) reposition(frame int, pos int64, exact bool) error {
	if err := d.br.seekTo(pos); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	d.index = frame
	d.exact = exact
	d.resyncing = !exact
	d.skipped = 0
	d.silent = false
	d.sampleIndex = int64(frame) * int64(d.header.SamplesPerFrame())

	d.synth[0].reset()
	d.synth[1].reset()
	d.mute = muteFrames
	if frame == 0 {
		d.mute = muteFramesStart
	}

	d.pending = d.pending[:0]
	d.partial = d.partial[:0]
	d.ancillaryLen = 0
	d.analyzer.reset()

	return nil
}

// Frame returns the index of the next frame to decode.
func (d *Decoder) Frame() int {
	return d.index
}
