package mpa

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-audio/audio"
)

// ancillarySize is the capacity of the ring holding the ancillary data of the last frame.
const ancillarySize = 4096

// Decoder decodes an MPEG-1/2 Audio Layer I or II stream into 16-bit PCM.
// A Decoder must not be used from more than one goroutine at a time.
type Decoder struct {
	src    Source
	cfg    Config
	log    *slog.Logger
	info   *StreamInfo
	origin int64

	br    *bitReader
	frame frameDecoder
	synth [2]polyphase

	// header of the first frame, every following header must be compatible
	header Header

	index     int
	exact     bool
	cache     positionCache
	resyncing bool
	skipped   int
	mute      int
	// the current frame is replaced by silence
	silent bool

	equalizer   [32]float32
	equalize    bool
	matrix      [2][2]float32
	mix         bool
	order       binary.ByteOrder
	trimHead    int64
	trimTail    int64
	sampleIndex int64

	samples Samples
	pcm     []int16
	pending []int16
	partial []byte

	ancillary    [ancillarySize]byte
	ancillaryAt  int
	ancillaryLen int

	analyzer analyzer

	closed bool
}

// New creates a decoder reading from r with the default configuration.
func New(r io.Reader) (*Decoder, error) {
	src, err := NewSource(r)
	if err != nil {
		return nil, err
	}

	return NewDecoder(src, DefaultConfig())
}

// NewDecoder detects the stream at the current position of src and prepares decoding.
// It returns ErrUnsupportedFormat if src holds no Layer I/II stream, in which case the
// position of src is unchanged.
func NewDecoder(src Source, cfg Config) (*Decoder, error) {
	cfg.setDefaults()

	origin := tell(src)

	info, err := Detect(src, cfg)
	if err != nil {
		return nil, err
	}

	d := &Decoder{
		src:    src,
		cfg:    cfg,
		log:    cfg.Logger,
		info:   info,
		origin: origin,
		header: info.Header,
		exact:  true,
		order:  cfg.ByteOrder,
	}

	d.br = newBitReader(src, cfg.BufferSize)
	d.br.drop(origin + info.Start)
	d.frame.br = d.br
	d.cache.add(0, origin+info.Start)

	for i := range d.equalizer {
		d.equalizer[i] = 1
	}
	d.matrix = [2][2]float32{{1, 0}, {0, 1}}
	d.analyzer.mode = cfg.Analyze

	if cfg.TrimPadding {
		d.trimHead = int64(info.EncoderDelay)
		if info.Frames > 0 && info.EncoderPadding > 0 {
			d.trimTail = int64(info.Frames)*int64(info.Header.SamplesPerFrame()) - int64(info.EncoderPadding)
		}
	}

	d.pcm = make([]int16, maxSlots*32*2)

	return d, nil
}

// Info returns the stream information gathered by detection.
// Info and the other metadata getters stay valid after Close.
func (d *Decoder) Info() StreamInfo {
	return *d.info
}

// SampleRate returns the sample rate in samples per second.
func (d *Decoder) SampleRate() int {
	return d.header.Samplerate()
}

// Channels returns the number of channels.
func (d *Decoder) Channels() int {
	return d.header.Channels()
}

// Bitrate returns the bitrate in bits per second, averaged for VBR streams.
func (d *Decoder) Bitrate() int {
	return d.info.Bitrate
}

// Duration returns the total playtime, or -1 if it is unknown.
func (d *Decoder) Duration() time.Duration {
	if d.info.Duration < 0 {
		return -1
	}

	return time.Duration(d.info.Duration) * time.Microsecond
}

// VBR reports whether the stream has a variable bitrate.
func (d *Decoder) VBR() bool {
	return d.info.VBR
}

// Frames returns the number of frames, or -1 if it is not known yet.
func (d *Decoder) Frames() int {
	return d.info.Frames
}

// Format returns the PCM format of the decoded audio.
func (d *Decoder) Format() *audio.Format {
	return &audio.Format{
		NumChannels: d.Channels(),
		SampleRate:  d.SampleRate(),
	}
}

// SetEqualizer sets the gain of each of the 32 subbands. All gains 1 is a flat response.
// Like the other setters it may be called after Close, it then has no audible effect.
func (d *Decoder) SetEqualizer(gains [32]float32) {
	d.equalizer = gains
	d.equalize = false
	for _, g := range gains {
		if g != 1 {
			d.equalize = true
		}
	}
}

// SetChannelMatrix sets the output mix of a stereo stream: out[i] = m[i][0]*left + m[i][1]*right.
// It has no effect on mono streams.
func (d *Decoder) SetChannelMatrix(m [2][2]float32) {
	d.matrix = m
	d.mix = m != [2][2]float32{{1, 0}, {0, 1}}
}

// SetFastSeeking toggles seeking by TOC or bitrate arithmetic.
func (d *Decoder) SetFastSeeking(fast bool) {
	d.cfg.FastSeeking = fast
}

// SetAnalyzeMode selects what AnalyzerView reports.
func (d *Decoder) SetAnalyzeMode(mode AnalyzeMode) {
	d.analyzer.setMode(mode)
}

// SetByteOrder sets the byte order of the PCM returned by Read.
func (d *Decoder) SetByteOrder(order binary.ByteOrder) {
	if order != nil {
		d.order = order
	}
}

// AnalyzerView returns the analyzer taps of the last frame, or the name of the new mode
// on the first call after the mode changed.
func (d *Decoder) AnalyzerView() ([]float32, string) {
	return d.analyzer.view()
}

// AncillaryData returns a copy of the bytes that followed the audio data in the last frame.
// After Close it is empty.
func (d *Decoder) AncillaryData() []byte {
	n := d.ancillaryLen
	out := make([]byte, n)

	start := (d.ancillaryAt - n + ancillarySize) % ancillarySize
	first := copy(out, d.ancillary[start:])
	if first < n {
		copy(out[first:], d.ancillary[:n-first])
	}

	return out
}

// Close releases the decoder and closes the source if it is an io.Closer.
// Later calls to Close, Read, PCMBuffer, DecodeFrame, Seek, SetPlaytime and Rewind
// return ErrClosed.
func (d *Decoder) Close() error {
	if d.closed {
		return ErrClosed
	}

	d.closed = true
	d.br = nil
	d.frame.br = nil
	d.pcm = nil
	d.pending = nil
	d.ancillaryLen = 0

	if c, ok := d.src.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// Read implements the io.Reader interface. It fills p with interleaved 16-bit PCM and
// returns io.EOF at the end of the stream.
func (d *Decoder) Read(p []byte) (int, error) {
	if d.closed {
		return 0, ErrClosed
	}

	n := 0
	for n < len(p) {
		if len(d.partial) > 0 {
			m := copy(p[n:], d.partial)
			d.partial = d.partial[m:]
			n += m

			continue
		}

		if len(d.pending) == 0 {
			s, err := d.DecodeFrame()
			if err != nil {
				if n > 0 && (errors.Is(err, io.EOF) || errors.Is(err, ErrNeedMoreData)) {
					return n, nil
				}

				return n, err
			}
			d.pending = s.S16
		}

		k := min(len(d.pending), (len(p)-n)>>1)
		if k == 0 {
			// One byte left in p, keep the other half of the sample.
			d.partial = appendPCM(d.partial[:0], d.pending[:1], d.order)
			d.pending = d.pending[1:]

			continue
		}

		for _, v := range d.pending[:k] {
			d.order.PutUint16(p[n:], uint16(v))
			n += 2
		}
		d.pending = d.pending[k:]
	}

	return n, nil
}

// PCMBuffer fills buf.Data with interleaved samples and returns their number. It returns
// io.EOF once the stream is exhausted.
func (d *Decoder) PCMBuffer(buf *audio.IntBuffer) (int, error) {
	if d.closed {
		return 0, ErrClosed
	}

	buf.Format = d.Format()
	buf.SourceBitDepth = 16

	n := 0
	for n < len(buf.Data) {
		if len(d.pending) == 0 {
			s, err := d.DecodeFrame()
			if err != nil {
				if n > 0 && (errors.Is(err, io.EOF) || errors.Is(err, ErrNeedMoreData)) {
					return n, nil
				}

				return n, err
			}
			d.pending = s.S16
		}

		k := min(len(d.pending), len(buf.Data)-n)
		for i, v := range d.pending[:k] {
			buf.Data[n+i] = int(v)
		}
		n += k
		d.pending = d.pending[k:]
	}

	return n, nil
}

// DecodeFrame decodes the next frame. Frames that fail their CRC are skipped. It returns
// io.EOF at the end of the stream and ErrNeedMoreData when a StreamBuffer runs dry.
// The returned samples are valid until the next call.
func (d *Decoder) DecodeFrame() (*Samples, error) {
	if d.closed {
		return nil, ErrClosed
	}

	for {
		s, err := d.decodeFrame()
		if errors.Is(err, errCRCMismatch) || (err == nil && len(s.S16) == 0) {
			continue
		}

		return s, err
	}
}

func (d *Decoder) decodeFrame() (*Samples, error) {
	h, word, start, err := d.nextHeader()
	if err != nil {
		if errors.Is(err, io.EOF) && d.exact {
			d.updateFrames(d.index)
		}

		return nil, err
	}

	size := h.FrameSize(d.info.FreeBitrate)

	d.br.hold(start)
	defer d.br.release()

	if !d.br.has(size << 3) {
		if d.br.starved() {
			return nil, ErrNeedMoreData
		}

		// Truncated last frame
		_ = d.br.seekTo(start + int64(size))
		if d.exact {
			d.updateFrames(d.index)
		}

		return nil, io.EOF
	}

	if d.exact {
		d.cache.add(d.index, start)
	}

	d.frame.begin(h, word, start)
	err = d.frame.decode()

	switch {
	case errors.Is(err, errCRCMismatch):
		d.log.Debug("mpa: crc mismatch, frame dropped", "frame", d.index, "offset", start-d.origin)

		if err := d.br.seekTo(start + int64(size)); err != nil {
			return nil, err
		}
		d.index++
		d.sampleIndex += int64(h.SamplesPerFrame())

		return nil, errCRCMismatch
	case errors.Is(err, errBadAllocation):
		d.log.Debug("mpa: illegal bit allocation, frame muted", "frame", d.index, "offset", start-d.origin)

		d.frame.silence(h.SamplesPerFrame() / 32)
		d.silent = true
		d.ancillaryLen = 0
		d.resyncing = true
		if err := d.br.seekTo(start + 1); err != nil {
			return nil, err
		}
	default:
		d.readAncillary(start + int64(size))
		if err := d.br.seekTo(start + int64(size)); err != nil {
			return nil, err
		}
	}

	s := d.synthesize(h)
	d.index++

	return s, nil
}

// nextHeader returns the header at the read position. If there is none, it scans for the
// next compatible header, at most VerificationDepth bytes since the last good frame.
func (d *Decoder) nextHeader() (Header, uint32, int64, error) {
	for {
		word, ok := d.br.peek32()
		if !ok {
			if d.br.starved() {
				return Header{}, 0, 0, ErrNeedMoreData
			}

			return Header{}, 0, 0, io.EOF
		}

		start := d.br.position()
		if h, err := ParseHeader(word); err == nil && d.header.compatible(h) && (!d.resyncing || d.confirm(h)) {
			if d.skipped > 0 {
				d.log.Debug("mpa: resync", "offset", start-d.origin, "skipped", d.skipped)
			}
			d.skipped = 0
			d.resyncing = false

			return h, word, start, nil
		}

		if d.atTrailer() {
			return Header{}, 0, 0, io.EOF
		}

		d.resyncing = true
		d.br.skip(8)
		d.skipped++

		status, n := d.br.findFrameSync(d.cfg.VerificationDepth - d.skipped)
		d.skipped += n

		switch status {
		case scanEOF:
			return Header{}, 0, 0, io.EOF
		case scanNeedMoreData:
			return Header{}, 0, 0, ErrNeedMoreData
		case scanExhausted:
			return Header{}, 0, 0, fmt.Errorf("%w: no frame within %d bytes at offset %d",
				ErrUnsupportedFormat, d.cfg.VerificationDepth, d.br.position()-d.origin)
		}
	}
}

// confirm checks that a header found by scanning is followed by another compatible
// header. It accepts the candidate when the next header is not available.
func (d *Decoder) confirm(h Header) bool {
	size := h.FrameSize(d.info.FreeBitrate)
	if size <= 4 {
		return false
	}

	if !d.br.has((size + 4) << 3) {
		return true
	}

	next, ok := d.br.window(d.br.position()+int64(size), 4)
	if !ok {
		return true
	}

	nh, err := ParseHeader(binary.BigEndian.Uint32(next))
	if err == nil && d.header.compatible(nh) {
		return true
	}

	return isTrailer(next)
}

// atTrailer reports a trailing tag at the read position.
func (d *Decoder) atTrailer() bool {
	if !d.br.has(32) {
		return false
	}

	b, ok := d.br.window(d.br.position(), 4)

	return ok && isTrailer(b)
}

func (d *Decoder) readAncillary(end int64) {
	d.br.align()

	n := int(end - d.br.position())
	if n <= 0 {
		d.ancillaryLen = 0

		return
	}

	d.ancillaryAt = d.br.readBlock(d.ancillary[:], d.ancillaryAt, n)
	d.ancillaryLen = min(n, ancillarySize)
}

// synthesize runs the filter bank over the subband samples of the frame.
func (d *Decoder) synthesize(h Header) *Samples {
	channels := h.Channels()
	slots := d.frame.slots
	n := slots * 32

	pcm := d.pcm[:n*channels]

	var in, out [32]float32
	for s := 0; s < slots; s++ {
		for ch := 0; ch < channels; ch++ {
			d.subbands(ch, s, channels, &in)
			d.synth[ch].synthesize(&in, &out)

			for j, v := range out {
				pcm[(s*32+j)*channels+ch] = pcm16(v)
			}
		}
	}

	if d.mute > 0 {
		clear(pcm)
		d.mute--
	}
	if d.silent {
		clear(pcm)
		d.silent = false
	}

	d.analyzer.update(&d.frame, pcm, channels)

	first := d.sampleIndex
	d.sampleIndex += int64(n)

	// Encoder delay and padding
	lo, hi := int64(0), int64(n)
	if d.trimHead > first {
		lo = min(d.trimHead-first, hi)
	}
	if d.trimTail > 0 && first+hi > d.trimTail {
		hi = max(d.trimTail-first, lo)
	}

	d.samples = Samples{
		Time:     float64(first) / float64(h.Samplerate()),
		Frame:    d.index,
		Channels: channels,
		S16:      pcm[lo*int64(channels) : hi*int64(channels)],
		order:    d.order,
	}

	return &d.samples
}

// subbands returns the samples of one channel and slot with equalizer and channel matrix applied.
func (d *Decoder) subbands(ch, slot, channels int, in *[32]float32) {
	f := &d.frame

	if d.mix && channels == 2 {
		m := d.matrix[ch]
		for sb := range in {
			in[sb] = m[0]*f.sample[0][slot][sb] + m[1]*f.sample[1][slot][sb]
		}
	} else {
		*in = f.sample[ch][slot]
	}

	if d.equalize {
		for sb := range in {
			in[sb] *= d.equalizer[sb]
		}
	}
}

// updateFrames records the frame count once the end of the stream was reached.
func (d *Decoder) updateFrames(frames int) {
	if d.info.Frames < 0 {
		d.info.Frames = frames
		spf := int64(d.header.SamplesPerFrame())
		d.info.Duration = int64(frames) * spf * 1000000 / int64(d.header.Samplerate())
	}
}
