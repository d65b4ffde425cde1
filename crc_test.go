package mpa

import (
	"math/rand"
	"testing"

	"github.com/sigurn/crc16"
)

func TestCRCCheckValue(t *testing.T) {
	c := newCRC16()
	c.updateBytes([]byte("123456789"))

	if got, want := c.sum(), uint16(0xaee7); got != want {
		t.Errorf("crc: got %#04x, want %#04x", got, want)
	}

	c.reset()
	c.updateBytes([]byte("123456789"))
	if got, want := c.sum(), uint16(0xaee7); got != want {
		t.Errorf("crc after reset: got %#04x, want %#04x", got, want)
	}

	if got := crc16.Checksum([]byte("123456789"), crcTable); got != crcParams.Check {
		t.Errorf("table checksum: got %#04x, want %#04x", got, crcParams.Check)
	}
}

func TestCRCBitsMatchBytes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := make([]byte, 64)
	rng.Read(data)

	bytewise := newCRC16()
	bytewise.updateBytes(data)

	bitwise := newCRC16()
	for _, v := range data {
		bitwise.updateBits(uint32(v)>>5, 3)
		bitwise.updateBits(uint32(v), 5)
	}

	if bytewise.sum() != bitwise.sum() {
		t.Errorf("bitwise: got %#04x, want %#04x", bitwise.sum(), bytewise.sum())
	}
}

func TestProtectedCRC(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	header := testHeader(LayerII, ModeStereo, 8, 0)
	header.Protected = true
	word := header.Uint32()

	data := make([]byte, 40)
	rng.Read(data)

	for _, bits := range []int{0, 1, 7, 8, 13, 142, 256, 319} {
		got := protectedCRC(word, data, bits)
		want := bitwiseCRC(word, data, bits)
		if got != want {
			t.Errorf("%d bits: got %#04x, want %#04x", bits, got, want)
		}
	}
}

func TestCRCSingleBitErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := make([]byte, 32)
	rng.Read(data)

	const bits = 256
	word := testHeader(LayerI, ModeMono, 4, 0).Uint32()
	sum := protectedCRC(word, data, bits)

	if again := protectedCRC(word, data, bits); again != sum {
		t.Fatalf("not deterministic: got %#04x, want %#04x", again, sum)
	}

	for i := 0; i < bits; i++ {
		data[i>>3] ^= 0x80 >> uint(i&7)
		if protectedCRC(word, data, bits) == sum {
			t.Errorf("flipped bit %d: checksum unchanged", i)
		}
		data[i>>3] ^= 0x80 >> uint(i&7)
	}

	for i := 0; i < 16; i++ {
		if protectedCRC(word^(1<<uint(i)), data, bits) == sum {
			t.Errorf("flipped header bit %d: checksum unchanged", i)
		}
	}
}

func BenchmarkProtectedCRC(b *testing.B) {
	data := make([]byte, 64)
	word := testHeader(LayerII, ModeStereo, 8, 0).Uint32()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		protectedCRC(word, data, 301)
	}
}
