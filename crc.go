package mpa

import (
	"github.com/sigurn/crc16"
)

// ISO/IEC 11172-3 CRC-16: polynomial 0x8005, initial value 0xFFFF, MSB first, no final xor.
var crcParams = crc16.Params{
	Poly:  0x8005,
	Init:  0xFFFF,
	Check: 0xAEE7,
	Name:  "CRC-16/CMS",
}

var crcTable = crc16.MakeTable(crcParams)

// crc16State accumulates the checksum over the protected bits of a frame.
// Whole bytes go through the table, the trailing bits of a field that does not
// end on a byte boundary are folded in one at a time.
type crc16State struct {
	crc uint16
}

func newCRC16() crc16State {
	return crc16State{crc: crc16.Init(crcTable)}
}

func (c *crc16State) reset() {
	c.crc = crc16.Init(crcTable)
}

func (c *crc16State) sum() uint16 {
	return crc16.Complete(c.crc, crcTable)
}

func (c *crc16State) updateBytes(p []byte) {
	c.crc = crc16.Update(c.crc, p, crcTable)
}

// updateBits adds the low n bits of v, most significant first.
func (c *crc16State) updateBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		bit := uint16(v>>uint(i)) & 1
		msb := c.crc >> 15
		c.crc <<= 1
		if msb^bit != 0 {
			c.crc ^= crcParams.Poly
		}
	}
}

// protectedCRC computes the checksum of a frame: header bits 16..31 followed by
// bits of side information starting at data (the byte after the CRC word).
func protectedCRC(header uint32, data []byte, bits int) uint16 {
	c := newCRC16()
	c.updateBytes([]byte{byte(header >> 8), byte(header)})

	whole := bits >> 3
	c.updateBytes(data[:whole])
	if rest := bits & 7; rest != 0 {
		c.updateBits(uint32(data[whole])>>(8-rest), rest)
	}

	return c.sum()
}
