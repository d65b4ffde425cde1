package mpa

import "fmt"

const frameSync = 0x7ff

// Version is the MPEG audio version, with the numeric value of its header bits.
type Version int

const (
	MPEG25 Version = 0x0
	MPEG2  Version = 0x2
	MPEG1  Version = 0x3
)

func (v Version) String() string {
	switch v {
	case MPEG1:
		return "MPEG-1"
	case MPEG2:
		return "MPEG-2"
	case MPEG25:
		return "MPEG-2.5"
	}

	return "reserved"
}

// lsf reports the lower sampling frequency extension (MPEG-2 and MPEG-2.5).
func (v Version) lsf() int {
	if v == MPEG1 {
		return 0
	}

	return 1
}

// Layer is the audio layer. Only layers I and II are decoded.
type Layer int

const (
	LayerI  Layer = 1
	LayerII Layer = 2
)

func (l Layer) String() string {
	switch l {
	case LayerI:
		return "Layer I"
	case LayerII:
		return "Layer II"
	}

	return "unknown"
}

// Mode is the channel mode.
type Mode int

const (
	ModeStereo      Mode = 0x0
	ModeJointStereo Mode = 0x1
	ModeDualChannel Mode = 0x2
	ModeMono        Mode = 0x3
)

func (m Mode) String() string {
	switch m {
	case ModeStereo:
		return "stereo"
	case ModeJointStereo:
		return "joint stereo"
	case ModeDualChannel:
		return "dual channel"
	case ModeMono:
		return "mono"
	}

	return "unknown"
}

// Header is a decoded 32-bit frame header.
type Header struct {
	Version         Version
	Layer           Layer
	Protected       bool // a 16-bit CRC follows the header
	BitrateIndex    int  // 0 is free format
	SamplerateIndex int
	Padding         bool
	Private         bool
	Mode            Mode
	ModeExtension   int
	Copyright       bool
	Original        bool
	Emphasis        int
}

// ParseHeader decodes a big-endian header word. It returns ErrLayerIII for Layer III
// headers and ErrInvalidHeader for anything else that is not a valid Layer I/II header.
func ParseHeader(word uint32) (Header, error) {
	var h Header

	if word>>21 != frameSync {
		return h, fmt.Errorf("%w: no sync", ErrInvalidHeader)
	}

	h.Version = Version((word >> 19) & 3)
	if h.Version == 1 {
		return h, fmt.Errorf("%w: reserved version", ErrInvalidHeader)
	}

	switch (word >> 17) & 3 {
	case 0:
		return h, fmt.Errorf("%w: reserved layer", ErrInvalidHeader)
	case 1:
		return h, ErrLayerIII
	case 2:
		h.Layer = LayerII
	case 3:
		h.Layer = LayerI
	}

	h.Protected = (word>>16)&1 == 0

	h.BitrateIndex = int((word >> 12) & 0xf)
	if h.BitrateIndex == 15 {
		return h, fmt.Errorf("%w: bitrate index 15", ErrInvalidHeader)
	}

	h.SamplerateIndex = int((word >> 10) & 3)
	if h.SamplerateIndex == 3 {
		return h, fmt.Errorf("%w: reserved samplerate", ErrInvalidHeader)
	}

	h.Padding = (word>>9)&1 == 1
	h.Private = (word>>8)&1 == 1
	h.Mode = Mode((word >> 6) & 3)
	h.ModeExtension = int((word >> 4) & 3)
	h.Copyright = (word>>3)&1 == 1
	h.Original = (word>>2)&1 == 1
	h.Emphasis = int(word & 3)

	return h, nil
}

// Uint32 encodes the header back into its 32-bit form.
func (h Header) Uint32() uint32 {
	word := uint32(frameSync) << 21
	word |= uint32(h.Version&3) << 19
	word |= uint32(4-h.Layer) << 17
	if !h.Protected {
		word |= 1 << 16
	}
	word |= uint32(h.BitrateIndex&0xf) << 12
	word |= uint32(h.SamplerateIndex&3) << 10
	if h.Padding {
		word |= 1 << 9
	}
	if h.Private {
		word |= 1 << 8
	}
	word |= uint32(h.Mode&3) << 6
	word |= uint32(h.ModeExtension&3) << 4
	if h.Copyright {
		word |= 1 << 3
	}
	if h.Original {
		word |= 1 << 2
	}
	word |= uint32(h.Emphasis & 3)

	return word
}

// Bitrate returns the bitrate in bits per second, or 0 for free format.
func (h Header) Bitrate() int {
	return bitrates[h.Version.lsf()][h.Layer-1][h.BitrateIndex] * 1000
}

// Samplerate returns the sample rate in samples per second.
func (h Header) Samplerate() int {
	return samplerates[h.Version][h.SamplerateIndex]
}

// Channels returns the number of channels.
func (h Header) Channels() int {
	if h.Mode == ModeMono {
		return 1
	}

	return 2
}

// SamplesPerFrame returns the number of samples per channel in one frame.
func (h Header) SamplesPerFrame() int {
	if h.Layer == LayerI {
		return 384
	}

	return 1152
}

// Bound returns the first subband coded in intensity stereo, 32 if there is none.
func (h Header) Bound() int {
	if h.Mode == ModeJointStereo {
		return (h.ModeExtension + 1) << 2
	}

	return 32
}

// FrameSize returns the frame size in bytes including the header. freeBitrate is used
// for free format headers and ignored otherwise.
func (h Header) FrameSize(freeBitrate int) int {
	br := h.Bitrate()
	if h.BitrateIndex == 0 {
		br = freeBitrate
	}

	sr := h.Samplerate()
	if br == 0 || sr == 0 {
		return 0
	}

	padding := 0
	if h.Padding {
		padding = 1
	}

	if h.Layer == LayerI {
		return (12*br/sr + padding) * 4
	}

	return 144*br/sr + padding
}

// PayloadSize returns the frame size without the 4 header bytes.
func (h Header) PayloadSize(freeBitrate int) int {
	size := h.FrameSize(freeBitrate)
	if size < 4 {
		return 0
	}

	return size - 4
}

// Subbands returns the number of subbands carrying allocation information.
func (h Header) Subbands() int {
	if h.Layer == LayerI {
		return 32
	}

	return AllocationFor(h.Version, h.Mode, h.BitrateIndex, h.SamplerateIndex).Subbands()
}

// AllocationFor selects the Layer II bit allocation table. MPEG-1 streams pick one of
// the four tables from the bitrate per channel and the sample rate, free format
// counts as the highest bitrate class. The lower sampling frequencies share one table.
func AllocationFor(version Version, mode Mode, bitrateIndex, samplerateIndex int) AllocTable {
	if version != MPEG1 {
		return AllocTableLSF
	}

	class := byte(2)
	if bitrateIndex > 0 {
		tab1 := 1
		if mode == ModeMono {
			tab1 = 0
		}
		class = quantLutStep1[tab1][bitrateIndex-1]
	}

	return quantLutStep2[class][samplerateIndex]
}

// compatible reports whether other can follow h in the same stream.
func (h Header) compatible(other Header) bool {
	return h.Version == other.Version &&
		h.Layer == other.Layer &&
		h.SamplerateIndex == other.SamplerateIndex &&
		(h.BitrateIndex == 0) == (other.BitrateIndex == 0) &&
		h.Channels() == other.Channels()
}

const (
	freeFormatStep = 1000
	freeFormatMax  = 641000
)

// freeFormatBitrate infers the bitrate of a free format frame from the distance in
// bytes to the next header: the highest 1 kbit/s step whose frame size fits the gap.
func freeFormatBitrate(h Header, gap int) int {
	best := 0
	for br := freeFormatStep; br < freeFormatMax; br += freeFormatStep {
		if h.FrameSize(br) <= gap {
			best = br
		}
	}

	return best
}
