package mpa

import (
	"bytes"
	"io"
	"math"
	"math/rand"
	"testing"
)

// bitWriter packs fields MSB first, the way they appear in a frame.
type bitWriter struct {
	buf  []byte
	bits int
}

func (w *bitWriter) write(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		if w.bits&7 == 0 {
			w.buf = append(w.buf, 0)
		}
		if (v>>uint(i))&1 != 0 {
			w.buf[w.bits>>3] |= 0x80 >> uint(w.bits&7)
		}
		w.bits++
	}
}

// testFrame is a synthesized frame with the subband samples a decoder has to reconstruct.
type testFrame struct {
	data     []byte
	subbands [2][maxSlots][32]float64
	slots    int
	channels int
}

func testHeader(layer Layer, mode Mode, bitrateIndex, samplerateIndex int) Header {
	return Header{
		Version:         MPEG1,
		Layer:           layer,
		BitrateIndex:    bitrateIndex,
		SamplerateIndex: samplerateIndex,
		Mode:            mode,
	}
}

// isoSample is the requantized value of a code of a quantizer with the given levels,
// (2c - (levels-1)) / levels, times scale factor 2 * 2^(-sf/3).
func isoSample(code, levels, sf int) float64 {
	return float64(2*code-(levels-1)) / float64(levels) * 2 * math.Pow(2, -float64(sf)/3)
}

// bitwiseCRC is the frame checksum computed one bit at a time.
func bitwiseCRC(header uint32, data []byte, bits int) uint16 {
	crc := uint16(0xffff)
	feed := func(bit uint16) {
		msb := crc >> 15
		crc <<= 1
		if msb^bit != 0 {
			crc ^= 0x8005
		}
	}

	for i := 15; i >= 0; i-- {
		feed(uint16(header>>uint(i)) & 1)
	}
	for i := 0; i < bits; i++ {
		feed(uint16(data[i>>3]>>(7-uint(i&7))) & 1)
	}

	return crc
}

// finishFrame pads the frame with ancillary bytes and fills in the CRC.
func finishFrame(tb testing.TB, w *bitWriter, h Header, size, crcBits int, ancillary []byte) []byte {
	tb.Helper()

	w.bits = (w.bits + 7) &^ 7
	data := w.buf
	if len(data)+len(ancillary) > size {
		tb.Fatalf("frame overflow: %d bytes, frame size %d", len(data)+len(ancillary), size)
	}
	data = append(data, make([]byte, size-len(data)-len(ancillary))...)
	data = append(data, ancillary...)

	if h.Protected {
		crc := bitwiseCRC(h.Uint32(), data[6:], crcBits)
		data[4] = byte(crc >> 8)
		data[5] = byte(crc)
	}

	return data
}

// buildLayerII writes a Layer II frame with random allocation in the lowest 8 subbands.
func buildLayerII(tb testing.TB, h Header, rng *rand.Rand, ancillary []byte) testFrame {
	tb.Helper()

	return buildLayerIISized(tb, h, h.FrameSize(0), rng, ancillary)
}

func buildLayerIISized(tb testing.TB, h Header, size int, rng *rand.Rand, ancillary []byte) testFrame {
	tb.Helper()

	table := AllocationFor(h.Version, h.Mode, h.BitrateIndex, h.SamplerateIndex)
	sblimit := table.Subbands()
	row := table.row()
	channels := h.Channels()
	bound := min(h.Bound(), sblimit)

	f := testFrame{slots: maxSlots, channels: channels}

	var w bitWriter
	w.write(h.Uint32(), 32)
	if h.Protected {
		w.write(0, 16)
	}

	var (
		code  [2][32]int
		q     [2][32]*quantizerSpec
		scfsi [2][32]int
		sf    [2][32][3]int
	)

	crcBits := 0
	for sb := 0; sb < sblimit; sb++ {
		nbal := int(quantLutStep3[row][sb] >> 4)
		for ch := 0; ch < channels; ch++ {
			if sb >= bound && ch > 0 {
				code[ch][sb] = code[0][sb]
				q[ch][sb] = q[0][sb]

				continue
			}

			if sb < 8 {
				code[ch][sb] = 1 + rng.Intn(3)
			}
			w.write(uint32(code[ch][sb]), nbal)
			crcBits += nbal

			if c := quantLutStep4[quantLutStep3[row][sb]&15][code[ch][sb]]; c != 0 {
				q[ch][sb] = &quantTab[c-1]
			}
		}
	}

	for sb := 0; sb < sblimit; sb++ {
		for ch := 0; ch < channels; ch++ {
			if q[ch][sb] != nil {
				scfsi[ch][sb] = rng.Intn(4)
				w.write(uint32(scfsi[ch][sb]), 2)
				crcBits += 2
			}
		}
	}

	for sb := 0; sb < sblimit; sb++ {
		for ch := 0; ch < channels; ch++ {
			if q[ch][sb] == nil {
				continue
			}

			s := &sf[ch][sb]
			for i := range s {
				s[i] = 10 + rng.Intn(30)
			}

			switch scfsi[ch][sb] {
			case 0:
				w.write(uint32(s[0]), 6)
				w.write(uint32(s[1]), 6)
				w.write(uint32(s[2]), 6)
			case 1:
				s[1] = s[0]
				w.write(uint32(s[0]), 6)
				w.write(uint32(s[2]), 6)
			case 2:
				s[1], s[2] = s[0], s[0]
				w.write(uint32(s[0]), 6)
			case 3:
				s[2] = s[1]
				w.write(uint32(s[0]), 6)
				w.write(uint32(s[1]), 6)
			}
		}
	}

	for part := 0; part < 3; part++ {
		for granule := 0; granule < 4; granule++ {
			slot := (part*4 + granule) * 3

			for sb := 0; sb < sblimit; sb++ {
				for ch := 0; ch < channels; ch++ {
					if sb >= bound && ch > 0 {
						continue
					}

					qs := q[ch][sb]
					if qs == nil {
						continue
					}

					levels := int(qs.Levels)
					var c [3]int
					for i := range c {
						c[i] = rng.Intn(levels)
					}

					if qs.Group != 0 {
						w.write(uint32(c[0]+c[1]*levels+c[2]*levels*levels), int(qs.Bits))
					} else {
						for i := range c {
							w.write(uint32(c[i]), int(qs.Bits))
						}
					}

					last := ch
					if sb >= bound {
						last = channels - 1
					}
					for k := ch; k <= last; k++ {
						for i := range c {
							f.subbands[k][slot+i][sb] = isoSample(c[i], levels, sf[k][sb][part])
						}
					}
				}
			}
		}
	}

	f.data = finishFrame(tb, &w, h, size, crcBits, ancillary)

	return f
}

// buildLayerI writes a Layer I frame with random allocation in the lowest 6 subbands.
func buildLayerI(tb testing.TB, h Header, rng *rand.Rand) testFrame {
	tb.Helper()

	channels := h.Channels()
	bound := h.Bound()

	f := testFrame{slots: 12, channels: channels}

	var w bitWriter
	w.write(h.Uint32(), 32)
	if h.Protected {
		w.write(0, 16)
	}

	var (
		alloc [2][32]int
		sf    [2][32]int
	)

	for sb := 0; sb < 32; sb++ {
		for ch := 0; ch < channels; ch++ {
			if sb >= bound && ch > 0 {
				alloc[ch][sb] = alloc[0][sb]

				continue
			}
			if sb < 6 {
				alloc[ch][sb] = 1 + rng.Intn(3)
			}
			w.write(uint32(alloc[ch][sb]), 4)
		}
	}
	crcBits := 4 * (bound*channels + 32 - bound)

	for sb := 0; sb < 32; sb++ {
		for ch := 0; ch < channels; ch++ {
			if alloc[ch][sb] != 0 {
				sf[ch][sb] = 10 + rng.Intn(30)
				w.write(uint32(sf[ch][sb]), 6)
			}
		}
	}

	for s := 0; s < 12; s++ {
		for sb := 0; sb < 32; sb++ {
			for ch := 0; ch < channels; ch++ {
				if sb >= bound && ch > 0 {
					continue
				}

				a := alloc[ch][sb]
				if a == 0 {
					continue
				}

				nb := a + 1
				levels := 1<<nb - 1
				c := rng.Intn(levels)
				w.write(uint32(c), nb)

				last := ch
				if sb >= bound {
					last = channels - 1
				}
				for k := ch; k <= last; k++ {
					f.subbands[k][s][sb] = isoSample(c, levels, sf[k][sb])
				}
			}
		}
	}

	f.data = finishFrame(tb, &w, h, h.FrameSize(0), crcBits, nil)

	return f
}

// silentLayerI is a valid Layer I frame without any allocated subband.
func silentLayerI(tb testing.TB, h Header) testFrame {
	tb.Helper()

	var w bitWriter
	w.write(h.Uint32(), 32)
	w.write(0, 4*32*h.Channels())

	return testFrame{data: finishFrame(tb, &w, h, h.FrameSize(0), 0, nil), slots: 12, channels: h.Channels()}
}

// corruptLayerI is a frame whose first allocation code is the forbidden value 15.
func corruptLayerI(tb testing.TB, h Header) []byte {
	tb.Helper()

	var w bitWriter
	w.write(h.Uint32(), 32)
	w.write(15, 4)

	return finishFrame(tb, &w, h, h.FrameSize(0), 0, nil)
}

func joinFrames(frames ...testFrame) []byte {
	var buf bytes.Buffer
	for _, f := range frames {
		buf.Write(f.data)
	}

	return buf.Bytes()
}

// refSynth is the ISO 11172-3 synthesis filter bank in its textbook form.
type refSynth struct {
	v [1024]float64
}

func (r *refSynth) run(s *[32]float64) (out [32]float64) {
	copy(r.v[64:], r.v[:960])
	for i := 0; i < 64; i++ {
		var sum float64
		for k := 0; k < 32; k++ {
			sum += math.Cos(float64((16+i)*(2*k+1))*math.Pi/64) * s[k]
		}
		r.v[i] = sum
	}

	var u [512]float64
	for i := 0; i < 8; i++ {
		for j := 0; j < 32; j++ {
			u[i*64+j] = r.v[i*128+j]
			u[i*64+32+j] = r.v[i*128+96+j]
		}
	}

	for j := 0; j < 32; j++ {
		for i := 0; i < 16; i++ {
			out[j] += u[j+32*i] * float64(synthesisWindow[j+32*i]) / 32768
		}
	}

	return out
}

func refPCM(x float64) int16 {
	v := math.Round(x * 32768)

	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, v)))
}

// referenceDecode synthesizes the expected interleaved PCM of every frame.
func referenceDecode(frames []testFrame) [][]int16 {
	var synth [2]refSynth

	out := make([][]int16, len(frames))
	for n, f := range frames {
		pcm := make([]int16, f.slots*32*f.channels)
		for s := 0; s < f.slots; s++ {
			for ch := 0; ch < f.channels; ch++ {
				in := f.subbands[ch][s]
				res := synth[ch].run(&in)
				for j, v := range res {
					pcm[(s*32+j)*f.channels+ch] = refPCM(v)
				}
			}
		}
		out[n] = pcm
	}

	return out
}

// decodeAll returns a copy of every frame the decoder produces until io.EOF.
func decodeAll(tb testing.TB, d *Decoder) [][]int16 {
	tb.Helper()

	var out [][]int16
	for {
		s, err := d.DecodeFrame()
		if err == io.EOF {
			return out
		}
		if err != nil {
			tb.Fatalf("DecodeFrame: %v", err)
		}

		out = append(out, append([]int16(nil), s.S16...))
	}
}

func newTestDecoder(tb testing.TB, data []byte, cfg Config) *Decoder {
	tb.Helper()

	src, err := NewSource(bytes.NewReader(data))
	if err != nil {
		tb.Fatal(err)
	}

	d, err := NewDecoder(src, cfg)
	if err != nil {
		tb.Fatalf("NewDecoder: %v", err)
	}

	return d
}

// layerIIStream builds n frames of Layer II stereo 44.1 kHz at 128 kbit/s.
func layerIIStream(tb testing.TB, n int, seed int64) ([]testFrame, []byte) {
	tb.Helper()

	rng := rand.New(rand.NewSource(seed))
	h := testHeader(LayerII, ModeStereo, 8, 0)

	frames := make([]testFrame, n)
	for i := range frames {
		frames[i] = buildLayerII(tb, h, rng, nil)
	}

	return frames, joinFrames(frames...)
}

// onlyReader hides every method but Read.
type onlyReader struct {
	r io.Reader
}

func (o onlyReader) Read(p []byte) (int, error) {
	return o.r.Read(p)
}
