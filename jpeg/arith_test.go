package jpeg

import (
	"bytes"
	"testing"
)

// kTestWords is the ITU-T T.81 Annex K.2 reference bit sequence, 32 bits per
// word, most significant bit first.
var kTestWords = []uint32{
	0x00020051, 0x000000C0, 0x0352872A, 0xAAAAAAAA,
	0x82C02000, 0xFCD79EF6, 0x74EAABF7, 0x697EE74C,
}

// kTestEncoded is the Annex K.4 coded byte stream for kTestWords, including
// the stuffed 0x00 after the 0xFF.
var kTestEncoded = []byte{
	0x65, 0x5B, 0x51, 0x44, 0xF7, 0x96, 0x9D, 0x51,
	0x78, 0x55, 0xBF, 0xFF, 0x00, 0xFC, 0x51, 0x84,
	0xC7, 0xCE, 0xF9, 0x39, 0x00, 0x28, 0x7D, 0x46,
	0x70, 0x8E, 0xCB, 0xC0, 0xF6,
}

func TestArithEncoderAnnexK(t *testing.T) {
	e := newArithEncoder()
	st := NewStatistics(1)
	for _, w := range kTestWords {
		for i := 31; i >= 0; i-- {
			e.EncodeBit(st, 0, int(w>>uint(i))&1)
		}
	}
	got := e.Flush()
	if !bytes.Equal(got, kTestEncoded) {
		t.Errorf("encoded stream:\n got %X\nwant %X", got, kTestEncoded)
	}
}

func TestArithDecoderAnnexK(t *testing.T) {
	d := newArithDecoder(unstuff(kTestEncoded))
	st := NewStatistics(1)
	for wi, want := range kTestWords {
		var got uint32
		for i := 0; i < 32; i++ {
			got = got<<1 | uint32(d.DecodeBit(st, 0))
		}
		if got != want {
			t.Errorf("word %d = %#08X, want %#08X", wi, got, want)
		}
	}
}

// TestArithRoundTrip checks decode(encode(x)) == x for assorted bit
// sequences and context counts.
func TestArithRoundTrip(t *testing.T) {
	sequences := [][]int{
		{0},
		{1},
		{0, 0, 0, 0, 0, 0, 0, 0, 1},
		{1, 1, 1, 1, 1, 1, 1, 1, 0},
		{0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1},
		{1, 0, 0, 1, 1, 1, 0, 1, 0, 0, 0, 1, 1, 0, 1, 1, 1, 0, 0, 1, 0, 1, 1, 0},
	}
	for si, seq := range sequences {
		for _, nctx := range []int{1, 3} {
			e := newArithEncoder()
			est := NewStatistics(nctx)
			for i, b := range seq {
				e.EncodeBit(est, i%nctx, b)
			}
			data := e.Flush()

			d := newArithDecoder(unstuff(data))
			dst := NewStatistics(nctx)
			for i, want := range seq {
				if got := d.DecodeBit(dst, i%nctx); got != want {
					t.Fatalf("seq %d nctx %d bit %d = %d, want %d", si, nctx, i, got, want)
				}
			}
		}
	}
}

// TestArithFixedBitRoundTrip covers the non-adaptive sign-bit path.
func TestArithFixedBitRoundTrip(t *testing.T) {
	seq := []int{1, 0, 1, 1, 0, 0, 1, 0, 1, 1, 1, 0}
	e := newArithEncoder()
	for _, b := range seq {
		e.EncodeFixedBit(b)
	}
	data := e.Flush()

	d := newArithDecoder(unstuff(data))
	for i, want := range seq {
		if got := d.DecodeFixedBit(); got != want {
			t.Fatalf("bit %d = %d, want %d", i, got, want)
		}
	}
}

func TestArithStateTableShape(t *testing.T) {
	if len(arithStateTable) != 113 {
		t.Fatalf("state table has %d rows, want 113", len(arithStateTable))
	}
	if arithStateTable[0].Qe != 0x5A1D || !arithStateTable[0].Switch {
		t.Error("startup state must be Qe=0x5A1D with MPS switch")
	}
	for i, s := range arithStateTable {
		if int(s.NextLPS) >= len(arithStateTable) || int(s.NextMPS) >= len(arithStateTable) {
			t.Errorf("state %d: transition out of range", i)
		}
		if s.Qe == 0 || s.Qe > 0x8000 {
			t.Errorf("state %d: Qe %#x out of range", i, s.Qe)
		}
	}
}

func TestStatisticsReset(t *testing.T) {
	st := NewStatistics(dcStatBins)
	d := newArithDecoder([]byte{0xA5, 0x5A, 0x3C, 0xC3})
	for i := 0; i < 30; i++ {
		d.DecodeBit(st, i%dcStatBins)
	}
	st.Reset()
	for i := range st.state {
		if st.state[i] != 0 {
			t.Fatalf("state[%d] = %d after reset", i, st.state[i])
		}
		if st.mps[i] {
			t.Fatalf("mps[%d] set after reset", i)
		}
	}
}

// TestArithDecoderExhaustedInput checks that reading past the end of the
// data continues with zero bytes and never panics.
func TestArithDecoderExhaustedInput(t *testing.T) {
	d := newArithDecoder([]byte{0x42})
	st := NewStatistics(1)
	for i := 0; i < 200; i++ {
		if b := d.DecodeBit(st, 0); b != 0 && b != 1 {
			t.Fatalf("bit value %d", b)
		}
	}
}
