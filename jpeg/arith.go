package jpeg

import "fmt"

// Statistics holds the adaptive coding state of one arithmetic table: per
// context, an index into the probability state table and the current more
// probable symbol. DC tables use 49 bins, AC tables 245.
type Statistics struct {
	state []uint8
	mps   []bool
}

const (
	dcStatBins = 49
	acStatBins = 245

	// Context area bases within a statistics table, T.81 Table F.4 / F.5.
	dcCtxX1    = 20  // DC magnitude categories
	acCtxX2Low = 189 // AC magnitude categories, zig-zag index <= Kx
	acCtxX2Hi  = 217 // AC magnitude categories, zig-zag index > Kx
)

// NewStatistics allocates n context bins, all in the startup state.
func NewStatistics(n int) *Statistics {
	return &Statistics{state: make([]uint8, n), mps: make([]bool, n)}
}

// Reset returns every bin to state 0 with MPS false, as required at scan
// start and after every restart marker.
func (s *Statistics) Reset() {
	for i := range s.state {
		s.state[i] = 0
		s.mps[i] = false
	}
}

// arithDecoder is the T.81 Annex D arithmetic decoder. C carries the current
// 16-bit code window in its high half and up to eight buffered input bits
// below it; A is the probability interval, kept in [0x8000, 0x10000) between
// decisions by renormalization. Input bytes arrive with byte stuffing already
// removed; exhausted input continues as zero bytes.
type arithDecoder struct {
	data []byte
	pos  int

	a  uint32
	c  uint32
	ct int
}

func newArithDecoder(data []byte) *arithDecoder {
	d := &arithDecoder{data: data}
	d.c = uint32(d.nextByte())<<24 | uint32(d.nextByte())<<16
	d.a = 0x10000
	return d
}

func (d *arithDecoder) nextByte() byte {
	if d.pos >= len(d.data) {
		return 0
	}
	b := d.data[d.pos]
	d.pos++
	return b
}

// DecodeBit decodes one binary decision in the given context. The MPS
// sub-interval sits at the bottom of A; conditional exchange applies whenever
// the MPS sub-interval has shrunk below Qe.
func (d *arithDecoder) DecodeBit(st *Statistics, ctx int) int {
	e := &arithStateTable[st.state[ctx]]
	qe := e.Qe
	d.a -= qe

	mps := 0
	if st.mps[ctx] {
		mps = 1
	}

	if d.c>>16 < d.a {
		if d.a >= 0x8000 {
			return mps
		}
		var bit int
		if d.a < qe {
			bit = 1 - mps
			if e.Switch {
				st.mps[ctx] = !st.mps[ctx]
			}
			st.state[ctx] = e.NextLPS
		} else {
			bit = mps
			st.state[ctx] = e.NextMPS
		}
		d.renorm()
		return bit
	}

	d.c -= d.a << 16
	var bit int
	if d.a < qe {
		bit = mps
		st.state[ctx] = e.NextMPS
	} else {
		bit = 1 - mps
		if e.Switch {
			st.mps[ctx] = !st.mps[ctx]
		}
		st.state[ctx] = e.NextLPS
	}
	d.a = qe
	d.renorm()
	return bit
}

// DecodeFixedBit decodes one bit with the fixed equiprobable estimate
// (Qe = 0x5A1D) and no statistics update. Used for AC coefficient signs and
// the sign of refinement corrections.
func (d *arithDecoder) DecodeFixedBit() int {
	d.a -= fixedQe
	if d.c>>16 < d.a {
		if d.a >= 0x8000 {
			return 0
		}
		bit := 0
		if d.a < fixedQe {
			bit = 1
		}
		d.renorm()
		return bit
	}
	d.c -= d.a << 16
	bit := 1
	if d.a < fixedQe {
		bit = 0
	}
	d.a = fixedQe
	d.renorm()
	return bit
}

func (d *arithDecoder) renorm() {
	for d.a < 0x8000 {
		if d.ct == 0 {
			d.c |= uint32(d.nextByte()) << 8
			d.ct = 8
		}
		d.a <<= 1
		d.c <<= 1
		d.ct--
	}
}

// dcConditioning holds the derived DC conditioning thresholds: low is 0 for
// L=0 and 1<<(L-1) otherwise, high is 1<<U.
type dcConditioning struct {
	low  int
	high int
}

// acConditioning holds the AC conditioning threshold Kx separating the two
// magnitude-category banks.
type acConditioning struct {
	kx int
}

// DC difference context bucket bases within the 20 S0 bins, chosen from the
// previous difference for the same component (T.81 F.1.4.4.1.2).
const (
	dcCtxZero     = 0
	dcCtxSmallPos = 4
	dcCtxSmallNeg = 8
	dcCtxLargePos = 12
	dcCtxLargeNeg = 16
)

// decodeDCDiff decodes one DC difference and returns it together with the
// context bucket to condition the next difference of this component on.
func (d *arithDecoder) decodeDCDiff(st *Statistics, bucket int, cond dcConditioning) (int, int, error) {
	base := bucket
	if d.DecodeBit(st, base) == 0 {
		return 0, dcCtxZero, nil
	}

	sign := d.DecodeBit(st, base+1)
	m := d.DecodeBit(st, base+2+sign)
	ctx := base + 2 + sign
	if m != 0 {
		ctx = dcCtxX1
		for d.DecodeBit(st, ctx) != 0 {
			m <<= 1
			// The X1 area holds 14 category bins; a longer category
			// cannot come from a conforming stream.
			if m == 0x4000 {
				return 0, 0, fmt.Errorf("%w: DC magnitude category overflow", ErrInvalidArithmetic)
			}
			ctx++
		}
	}

	// Conditioning category for the next difference, from the magnitude
	// category base. The thresholds are powers of two, so comparing the
	// category base is equivalent to comparing the value itself.
	next := dcCtxSmallPos + sign*4
	if m < cond.low {
		next = dcCtxZero
	} else if m >= cond.high {
		next = dcCtxLargePos + sign*4
	}

	v := m
	ctx += 14
	for bit := m >> 1; bit > 0; bit >>= 1 {
		if d.DecodeBit(st, ctx) != 0 {
			v |= bit
		}
	}
	v++
	if sign != 0 {
		v = -v
	}
	return v, next, nil
}

// decodeACBand decodes AC coefficients for zig-zag positions ss..se into a
// zig-zag-ordered block, left-shifting each value by al. Three contexts serve
// each position: end-of-block, coefficient-nonzero, and magnitude; the sign
// uses the fixed estimate (T.81 F.1.4.4.2).
func (d *arithDecoder) decodeACBand(st *Statistics, block *[64]int32, ss, se, al int, cond acConditioning) error {
	for k := ss; k <= se; k++ {
		ctx := 3 * (k - 1)
		if d.DecodeBit(st, ctx) != 0 {
			break // end of block
		}
		for d.DecodeBit(st, ctx+1) == 0 {
			ctx += 3
			k++
			if k > se {
				return fmt.Errorf("%w: AC run past end of band", ErrInvalidArithmetic)
			}
		}

		sign := d.DecodeFixedBit()
		ctx += 2
		m := d.DecodeBit(st, ctx)
		if m != 0 {
			if d.DecodeBit(st, ctx) != 0 {
				m = 2
				ctx = acCtxX2Low
				if k > cond.kx {
					ctx = acCtxX2Hi
				}
				for d.DecodeBit(st, ctx) != 0 {
					m <<= 1
					if m == 0x4000 {
						return fmt.Errorf("%w: AC magnitude category overflow", ErrInvalidArithmetic)
					}
					ctx++
				}
			}
		}

		v := m
		ctx += 14
		for bit := m >> 1; bit > 0; bit >>= 1 {
			if d.DecodeBit(st, ctx) != 0 {
				v |= bit
			}
		}
		v++
		if sign != 0 {
			v = -v
		}
		block[k] = int32(v) << al
	}
	return nil
}
