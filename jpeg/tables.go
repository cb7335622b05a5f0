package jpeg

// zigzag maps a position in zig-zag scan order to its natural (row-major)
// index in the 8x8 block. This is the standard T.81 Figure A.6 sequence.
var zigzag = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// QuantizationTable holds 64 quantizer step sizes in the zig-zag order of
// the bitstream. Values are 8- or 16-bit unsigned per the DQT precision.
type QuantizationTable [64]uint16

// dequantize scales a zig-zag-ordered coefficient block by a zig-zag-ordered
// quantization table, element by element.
func dequantize(block *[64]int32, qt *QuantizationTable) {
	for i := 0; i < 64; i++ {
		block[i] *= int32(qt[i])
	}
}

// deZigzag permutes a zig-zag-ordered block into natural order.
func deZigzag(block *[64]int32) [64]int32 {
	var out [64]int32
	for i := 0; i < 64; i++ {
		out[zigzag[i]] = block[i]
	}
	return out
}

// Default arithmetic conditioning, used for any table not defined by a DAC
// segment: DC bounds L=0, U=1 and AC threshold Kx=5 (T.81 F.1.4.4.1.2,
// F.1.4.4.2.1).
var defaultDCConditioning = dcConditioning{low: 0, high: 1 << 1}

var defaultACConditioning = acConditioning{kx: 5}
