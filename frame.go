package mpa

import "fmt"

var (
	errCRCMismatch   = fmt.Errorf("%w: crc mismatch", ErrCorruptFrame)
	errBadAllocation = fmt.Errorf("%w: illegal bit allocation", ErrCorruptFrame)
)

// maxSlots is the number of 32-sample sets in a Layer II frame.
const maxSlots = 36

// frameDecoder reads the side information and sample data of one frame and leaves
// the dequantized subband samples in sample[ch][slot][sb].
type frameDecoder struct {
	br *bitReader

	header Header
	word   uint32
	start  int64
	crc    uint16

	// Layer I allocation is the sample width minus one, Layer II uses the quantizer.
	allocation1     [2][32]int
	allocation      [2][32]*quantizerSpec
	scaleFactorInfo [2][32]byte
	scaleFactor     [2][32][3]int

	sample [2][maxSlots][32]float32
	slots  int
}

// begin consumes the header at start and the CRC word, if any.
func (f *frameDecoder) begin(h Header, word uint32, start int64) {
	f.header = h
	f.word = word
	f.start = start

	f.br.skip(32)
	if h.Protected {
		f.crc = uint16(f.br.read(16))
	}
}

// decode reads the frame body.
func (f *frameDecoder) decode() error {
	if f.header.Layer == LayerI {
		return f.decodeLayerI()
	}

	return f.decodeLayerII()
}

// checkCRC compares the transmitted checksum against the first bits of side information.
func (f *frameDecoder) checkCRC(bits int) error {
	if !f.header.Protected {
		return nil
	}

	data, ok := f.br.window(f.start+6, (bits+7)>>3)
	if !ok || protectedCRC(f.word, data, bits) != f.crc {
		return errCRCMismatch
	}

	return nil
}

// silence clears the subband samples, e.g. for a frame that could not be decoded.
func (f *frameDecoder) silence(slots int) {
	f.sample = [2][maxSlots][32]float32{}
	f.slots = slots
}
