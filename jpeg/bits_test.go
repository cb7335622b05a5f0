package jpeg

import (
	"errors"
	"testing"
)

func TestBitReaderVectors(t *testing.T) {
	buf := []byte{0xA6, 0x35}

	tests := []struct {
		name     string
		pos, bit int
		n        int
		want     uint32
		wantPos  int
		wantBit  int
	}{
		{"3 bits at (0,0)", 0, 0, 3, 5, 0, 3},
		{"8 bits at (0,0)", 0, 0, 8, 0xA6, 1, 0},
		{"16 bits at (0,0)", 0, 0, 16, 0xA635, 2, 0},
		{"7 bits at (0,1)", 0, 1, 7, 0x26, 1, 0},
		{"0 bits at (0,5)", 0, 5, 0, 0, 0, 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &bitReader{data: buf, pos: tc.pos, bit: tc.bit}
			v, err := r.ReadBits(tc.n)
			if err != nil {
				t.Fatalf("ReadBits: %v", err)
			}
			if v != tc.want {
				t.Errorf("value = %#x, want %#x", v, tc.want)
			}
			if r.pos != tc.wantPos || r.bit != tc.wantBit {
				t.Errorf("cursor = (%d,%d), want (%d,%d)", r.pos, r.bit, tc.wantPos, tc.wantBit)
			}
		})
	}
}

func TestBitReaderCrossesBytes(t *testing.T) {
	r := newBitReader([]byte{0x0F, 0xF0})
	if _, err := r.ReadBits(4); err != nil {
		t.Fatal(err)
	}
	v, err := r.ReadBits(8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xFF {
		t.Errorf("cross-byte read = %#x, want 0xFF", v)
	}
}

func TestBitReaderTruncation(t *testing.T) {
	r := newBitReader([]byte{0xAA})
	if _, err := r.ReadBits(9); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestReceiveExtend(t *testing.T) {
	tests := []struct {
		bits byte
		ssss int
		want int
	}{
		// 4-bit category: 0b0111 -> -8, 0b1000 -> 8
		{0x70, 4, -8},
		{0x80, 4, 8},
		{0xF0, 4, 15},
		{0x00, 4, -15},
	}
	for _, tc := range tests {
		r := newBitReader([]byte{tc.bits})
		v, err := r.receiveExtend(tc.ssss)
		if err != nil {
			t.Fatal(err)
		}
		if v != tc.want {
			t.Errorf("receiveExtend(%#x, %d) = %d, want %d", tc.bits, tc.ssss, v, tc.want)
		}
	}
}

func TestUnstuff(t *testing.T) {
	in := []byte{0x12, 0xFF, 0x00, 0x34, 0xFF, 0x00}
	want := []byte{0x12, 0xFF, 0x34, 0xFF}
	got := unstuff(in)
	if len(got) != len(want) {
		t.Fatalf("unstuff length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("unstuff[%d] = %#x, want %#x", i, got[i], want[i])
		}
	}
}
