package mpa

import "math"

// bitrates in kbit/s, indexed by [MPEG-1 or LSF][layer I, II][bitrate index].
var bitrates = [2][2][15]int{
	{
		{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448},
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384},
	},
	{
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
	},
}

// samplerates in Hz, indexed by [version bits][samplerate index].
var samplerates = [4][3]int{
	{11025, 12000, 8000},  // MPEG-2.5
	{0, 0, 0},             // reserved
	{22050, 24000, 16000}, // MPEG-2
	{44100, 48000, 32000}, // MPEG-1
}

// AllocTable identifies a Layer II bit allocation table.
type AllocTable int

const (
	// AllocTableA is ISO 11172-3 Table 3-B.2a: high rate, 27 subbands.
	AllocTableA AllocTable = iota
	// AllocTableB is Table 3-B.2b: high rate, 30 subbands.
	AllocTableB
	// AllocTableC is Table 3-B.2c: low rate, 8 subbands.
	AllocTableC
	// AllocTableD is Table 3-B.2d: low rate, 12 subbands.
	AllocTableD
	// AllocTableLSF is ISO 13818-3 Table B.1 for the lower sampling frequencies, 30 subbands.
	AllocTableLSF
)

var allocSubbands = [...]int{27, 30, 8, 12, 30}

// Subbands returns the number of subbands carrying allocation information.
func (t AllocTable) Subbands() int {
	return allocSubbands[t]
}

func (t AllocTable) String() string {
	switch t {
	case AllocTableA:
		return "3-B.2a"
	case AllocTableB:
		return "3-B.2b"
	case AllocTableC:
		return "3-B.2c"
	case AllocTableD:
		return "3-B.2d"
	case AllocTableLSF:
		return "LSF B.1"
	}

	return "unknown"
}

// row selects the quantLutStep3 row.
func (t AllocTable) row() int {
	switch t {
	case AllocTableC, AllocTableD:
		return 0
	case AllocTableA, AllocTableB:
		return 1
	}

	return 2
}

// Quantizer lookup, step 1: bitrate classes.
var quantLutStep1 = [2][14]byte{
	// 32, 48, 56, 64, 80, 96,112,128,160,192,224,256,320,384 <- bitrate
	{0, 0, 1, 1, 1, 2, 2, 2, 2, 2, 2, 2, 2, 2}, // mono
	// 16, 24, 28, 32, 40, 48, 56, 64, 80, 96,112,128,160,192 <- bitrate / chan
	{0, 0, 0, 0, 0, 0, 1, 1, 1, 2, 2, 2, 2, 2}, // stereo
}

// Quantizer lookup, step 2: bitrate class, sample rate -> allocation table.
var quantLutStep2 = [3][3]AllocTable{
	// 44.1 kHz, 48 kHz, 32 kHz
	{AllocTableC, AllocTableC, AllocTableD}, // 32 - 48 kbit/sec/ch
	{AllocTableA, AllocTableA, AllocTableA}, // 56 - 80 kbit/sec/ch
	{AllocTableB, AllocTableA, AllocTableB}, // 96+	 kbit/sec/ch
}

// Quantizer lookup, step 3: table, subband -> nbal, row index (upper 4 bits: nbal, lower 4 bits: row index).
var quantLutStep3 = [3][]byte{
	// Low-rate table (3-B.2c and 3-B.2d)
	{
		0x44, 0x44,
		0x34, 0x34, 0x34, 0x34, 0x34, 0x34, 0x34, 0x34, 0x34, 0x34,
	},
	// High-rate table (3-B.2a and 3-B.2b)
	{
		0x43, 0x43, 0x43,
		0x42, 0x42, 0x42, 0x42, 0x42, 0x42, 0x42, 0x42,
		0x31, 0x31, 0x31, 0x31, 0x31, 0x31, 0x31, 0x31, 0x31, 0x31, 0x31, 0x31,
		0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	},
	// MPEG-2 LSR table (B.1 in ISO 13818-3)
	{
		0x45, 0x45, 0x45, 0x45,
		0x34, 0x34, 0x34, 0x34, 0x34, 0x34, 0x34,
		0x24, 0x24, 0x24, 0x24, 0x24, 0x24, 0x24, 0x24, 0x24, 0x24,
		0x24, 0x24, 0x24, 0x24, 0x24, 0x24, 0x24, 0x24, 0x24,
	},
}

// Quantizer lookup, step 4: table row, allocation value -> quantizer class (1-based, 0 means no bits).
var quantLutStep4 = [6][]byte{
	{0, 1, 2, 17},
	{0, 1, 2, 3, 4, 5, 6, 17},
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 17},
	{0, 1, 3, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17},
	{0, 1, 2, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
}

// quantizerSpec is one Layer II quantizer class (ISO 11172-3 Table 3-B.4).
// Samples of grouped classes share one codeword of Bits bits; Width is the
// bit width of a single sample either way and drives the MSB inversion.
type quantizerSpec struct {
	Levels uint16
	Group  uint8
	Bits   uint8
	Width  uint8
	C      float32
	D      float32
}

var quantTab = [17]quantizerSpec{
	{3, 1, 5, 2, 1.33333333333, 0.50000000000},       //  1
	{5, 1, 7, 3, 1.60000000000, 0.50000000000},       //  2
	{7, 0, 3, 3, 1.14285714286, 0.25000000000},       //  3
	{9, 1, 10, 4, 1.77777777777, 0.50000000000},      //  4
	{15, 0, 4, 4, 1.06666666666, 0.12500000000},      //  5
	{31, 0, 5, 5, 1.03225806452, 0.06250000000},      //  6
	{63, 0, 6, 6, 1.01587301587, 0.03125000000},      //  7
	{127, 0, 7, 7, 1.00787401575, 0.01562500000},     //  8
	{255, 0, 8, 8, 1.00392156863, 0.00781250000},     //  9
	{511, 0, 9, 9, 1.00195694716, 0.00390625000},     // 10
	{1023, 0, 10, 10, 1.00097751711, 0.00195312500},  // 11
	{2047, 0, 11, 11, 1.00048851979, 0.00097656250},  // 12
	{4095, 0, 12, 12, 1.00024420024, 0.00048828125},  // 13
	{8191, 0, 13, 13, 1.00012208522, 0.00024414063},  // 14
	{16383, 0, 14, 14, 1.00006103888, 0.00012207031}, // 15
	{32767, 0, 15, 15, 1.00003051851, 0.00006103516}, // 16
	{65535, 0, 16, 16, 1.00001525902, 0.00003051758}, // 17
}

// Layer I quantizers for allocation 1..14: width nb = allocation+1, C = 2^nb/(2^nb-1), D = 2^(1-nb).
var layer1Quant = [15]quantizerSpec{
	{},
	{3, 0, 2, 2, 1.33333333333, 0.50000000000},
	{7, 0, 3, 3, 1.14285714286, 0.25000000000},
	{15, 0, 4, 4, 1.06666666666, 0.12500000000},
	{31, 0, 5, 5, 1.03225806452, 0.06250000000},
	{63, 0, 6, 6, 1.01587301587, 0.03125000000},
	{127, 0, 7, 7, 1.00787401575, 0.01562500000},
	{255, 0, 8, 8, 1.00392156863, 0.00781250000},
	{511, 0, 9, 9, 1.00195694716, 0.00390625000},
	{1023, 0, 10, 10, 1.00097751711, 0.00195312500},
	{2047, 0, 11, 11, 1.00048851979, 0.00097656250},
	{4095, 0, 12, 12, 1.00024420024, 0.00048828125},
	{8191, 0, 13, 13, 1.00012208522, 0.00024414063},
	{16383, 0, 14, 14, 1.00006103888, 0.00012207031},
	{32767, 0, 15, 15, 1.00003051851, 0.00006103516},
}

// dequantize maps a sample code to a normalized value: C * (fraction + D), where
// fraction is the code with its MSB inverted, read as a two's complement fraction.
func (q *quantizerSpec) dequantize(code int) float32 {
	half := 1 << (q.Width - 1)
	fraction := float32(code-half) / float32(half)

	return q.C * (fraction + q.D)
}

// scalefactors holds 2 * 2^(-i/3) for i = 0..62; index 63 is invalid and decodes to zero.
var scalefactors = func() (t [64]float32) {
	for i := 0; i < 63; i++ {
		t[i] = float32(2.0 * math.Pow(2, -float64(i)/3))
	}

	return t
}()

// synthWindow is the ISO synthesis window D[j+32*t] arranged as 32 output rows of 16 taps.
var synthWindow = func() (w [32][16]float32) {
	for j := 0; j < 32; j++ {
		for t := 0; t < 16; t++ {
			w[j][t] = synthesisWindow[j+32*t] / 32768
		}
	}

	return w
}()

// synthesisWindow is ISO 11172-3 Table 3-B.3 scaled by 32768.
var synthesisWindow = [512]float32{
	0.0, -0.5, -0.5, -0.5, -0.5, -0.5,
	-0.5, -1.0, -1.0, -1.0, -1.0, -1.5,
	-1.5, -2.0, -2.0, -2.5, -2.5, -3.0,
	-3.5, -3.5, -4.0, -4.5, -5.0, -5.5,
	-6.5, -7.0, -8.0, -8.5, -9.5, -10.5,
	-12.0, -13.0, -14.5, -15.5, -17.5, -19.0,
	-20.5, -22.5, -24.5, -26.5, -29.0, -31.5,
	-34.0, -36.5, -39.5, -42.5, -45.5, -48.5,
	-52.0, -55.5, -58.5, -62.5, -66.0, -69.5,
	-73.5, -77.0, -80.5, -84.5, -88.0, -91.5,
	-95.0, -98.0, -101.0, -104.0, 106.5, 109.0,
	111.0, 112.5, 113.5, 114.0, 114.0, 113.5,
	112.0, 110.5, 107.5, 104.0, 100.0, 94.5,
	88.5, 81.5, 73.0, 63.5, 53.0, 41.5,
	28.5, 14.5, -1.0, -18.0, -36.0, -55.5,
	-76.5, -98.5, -122.0, -147.0, -173.5, -200.5,
	-229.5, -259.5, -290.5, -322.5, -355.5, -389.5,
	-424.0, -459.5, -495.5, -532.0, -568.5, -605.0,
	-641.5, -678.0, -714.0, -749.0, -783.5, -817.0,
	-849.0, -879.5, -908.5, -935.0, -959.5, -981.0,
	-1000.5, -1016.0, -1028.5, -1037.5, -1042.5, -1043.5,
	-1040.0, -1031.5, 1018.5, 1000.0, 976.0, 946.5,
	911.0, 869.5, 822.0, 767.5, 707.0, 640.0,
	565.5, 485.0, 397.0, 302.5, 201.0, 92.5,
	-22.5, -144.0, -272.5, -407.0, -547.5, -694.0,
	-846.0, -1003.0, -1165.0, -1331.5, -1502.0, -1675.5,
	-1852.5, -2031.5, -2212.5, -2394.0, -2576.5, -2758.5,
	-2939.5, -3118.5, -3294.5, -3467.5, -3635.5, -3798.5,
	-3955.0, -4104.5, -4245.5, -4377.5, -4499.0, -4609.5,
	-4708.0, -4792.5, -4863.5, -4919.0, -4958.0, -4979.5,
	-4983.0, -4967.5, -4931.5, -4875.0, -4796.0, -4694.5,
	-4569.5, -4420.0, -4246.0, -4046.0, -3820.0, -3567.0,
	3287.0, 2979.5, 2644.0, 2280.5, 1888.0, 1467.5,
	1018.5, 541.0, 35.0, -499.0, -1061.0, -1650.0,
	-2266.5, -2909.0, -3577.0, -4270.0, -4987.5, -5727.5,
	-6490.0, -7274.0, -8077.5, -8899.5, -9739.0, -10594.5,
	-11464.5, -12347.0, -13241.0, -14144.5, -15056.0, -15973.5,
	-16895.5, -17820.0, -18744.5, -19668.0, -20588.0, -21503.0,
	-22410.5, -23308.5, -24195.0, -25068.5, -25926.5, -26767.0,
	-27589.0, -28389.0, -29166.5, -29919.0, -30644.5, -31342.0,
	-32009.5, -32645.0, -33247.0, -33814.5, -34346.0, -34839.5,
	-35295.0, -35710.0, -36084.5, -36417.5, -36707.5, -36954.0,
	-37156.5, -37315.0, -37428.0, -37496.0, 37519.0, 37496.0,
	37428.0, 37315.0, 37156.5, 36954.0, 36707.5, 36417.5,
	36084.5, 35710.0, 35295.0, 34839.5, 34346.0, 33814.5,
	33247.0, 32645.0, 32009.5, 31342.0, 30644.5, 29919.0,
	29166.5, 28389.0, 27589.0, 26767.0, 25926.5, 25068.5,
	24195.0, 23308.5, 22410.5, 21503.0, 20588.0, 19668.0,
	18744.5, 17820.0, 16895.5, 15973.5, 15056.0, 14144.5,
	13241.0, 12347.0, 11464.5, 10594.5, 9739.0, 8899.5,
	8077.5, 7274.0, 6490.0, 5727.5, 4987.5, 4270.0,
	3577.0, 2909.0, 2266.5, 1650.0, 1061.0, 499.0,
	-35.0, -541.0, -1018.5, -1467.5, -1888.0, -2280.5,
	-2644.0, -2979.5, 3287.0, 3567.0, 3820.0, 4046.0,
	4246.0, 4420.0, 4569.5, 4694.5, 4796.0, 4875.0,
	4931.5, 4967.5, 4983.0, 4979.5, 4958.0, 4919.0,
	4863.5, 4792.5, 4708.0, 4609.5, 4499.0, 4377.5,
	4245.5, 4104.5, 3955.0, 3798.5, 3635.5, 3467.5,
	3294.5, 3118.5, 2939.5, 2758.5, 2576.5, 2394.0,
	2212.5, 2031.5, 1852.5, 1675.5, 1502.0, 1331.5,
	1165.0, 1003.0, 846.0, 694.0, 547.5, 407.0,
	272.5, 144.0, 22.5, -92.5, -201.0, -302.5,
	-397.0, -485.0, -565.5, -640.0, -707.0, -767.5,
	-822.0, -869.5, -911.0, -946.5, -976.0, -1000.0,
	1018.5, 1031.5, 1040.0, 1043.5, 1042.5, 1037.5,
	1028.5, 1016.0, 1000.5, 981.0, 959.5, 935.0,
	908.5, 879.5, 849.0, 817.0, 783.5, 749.0,
	714.0, 678.0, 641.5, 605.0, 568.5, 532.0,
	495.5, 459.5, 424.0, 389.5, 355.5, 322.5,
	290.5, 259.5, 229.5, 200.5, 173.5, 147.0,
	122.0, 98.5, 76.5, 55.5, 36.0, 18.0,
	1.0, -14.5, -28.5, -41.5, -53.0, -63.5,
	-73.0, -81.5, -88.5, -94.5, -100.0, -104.0,
	-107.5, -110.5, -112.0, -113.5, -114.0, -114.0,
	-113.5, -112.5, -111.0, -109.0, 106.5, 104.0,
	101.0, 98.0, 95.0, 91.5, 88.0, 84.5,
	80.5, 77.0, 73.5, 69.5, 66.0, 62.5,
	58.5, 55.5, 52.0, 48.5, 45.5, 42.5,
	39.5, 36.5, 34.0, 31.5, 29.0, 26.5,
	24.5, 22.5, 20.5, 19.0, 17.5, 15.5,
	14.5, 13.0, 12.0, 10.5, 9.5, 8.5,
	8.0, 7.0, 6.5, 5.5, 5.0, 4.5,
	4.0, 3.5, 3.5, 3.0, 2.5, 2.5,
	2.0, 2.0, 1.5, 1.5, 1.0, 1.0,
	1.0, 1.0, 0.5, 0.5, 0.5, 0.5,
	0.5, 0.5,
}
