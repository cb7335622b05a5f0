package jpeg

import "fmt"

// huffCode identifies one canonical Huffman code as (bit length, code bits).
type huffCode struct {
	length int
	bits   uint32
}

// HuffmanTable holds a canonical Huffman code set built from a DHT segment:
// sixteen length counts followed by the symbol values in code order.
type HuffmanTable struct {
	Bits   [16]int
	Values []byte

	codes  map[huffCode]byte
	maxLen int
}

// BuildHuffmanTable constructs the canonical code map per T.81 C.2: codes of
// each length are assigned counting upward, and the counter is shifted left
// by one when moving to the next length.
func BuildHuffmanTable(bits [16]int, values []byte) (*HuffmanTable, error) {
	t := &HuffmanTable{Bits: bits, Values: values, codes: make(map[huffCode]byte)}

	total := 0
	for _, n := range bits {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative code count", ErrInvalidHuffman)
		}
		total += n
	}
	if total > len(values) || total > 256 {
		return nil, fmt.Errorf("%w: %d codes but %d symbols", ErrInvalidHuffman, total, len(values))
	}

	nextCode := uint32(0)
	vi := 0
	for l := 1; l <= 16; l++ {
		count := bits[l-1]
		for i := 0; i < count; i++ {
			if nextCode+uint32(i) >= 1<<l {
				return nil, fmt.Errorf("%w: code overflow at length %d", ErrInvalidHuffman, l)
			}
			t.codes[huffCode{l, nextCode + uint32(i)}] = values[vi]
			vi++
		}
		if count > 0 {
			t.maxLen = l
		}
		nextCode = (nextCode + uint32(count)) << 1
	}
	return t, nil
}

// Lookup returns the symbol for a code, if the code set contains it.
func (t *HuffmanTable) Lookup(length int, bits uint32) (byte, bool) {
	sym, ok := t.codes[huffCode{length, bits}]
	return sym, ok
}

// dfaTransition describes one edge of the nibble decoder: the symbols whose
// codes complete inside the consumed chunk, how many chunk bits the first of
// them used, and the state identified by the undecoded remainder.
type dfaTransition struct {
	symbols  []byte
	firstLen int
	next     int // -1 when the remainder is not a prefix of any code
}

// HuffmanDecoder is a deterministic automaton over 4-bit inputs. States are
// the proper prefixes of the code set (state 0 is the empty prefix); three
// sentinel tables handle the 1..3 leading bits needed to realign a cursor
// that does not sit on a nibble boundary.
type HuffmanDecoder struct {
	table  *HuffmanTable
	states []([16]dfaTransition)
	align  [4][]dfaTransition // align[r] indexed by an r-bit value, r in 1..3
}

// NewHuffmanDecoder prepares the nibble automaton for a built table.
func NewHuffmanDecoder(t *HuffmanTable) (*HuffmanDecoder, error) {
	if len(t.codes) == 0 {
		return nil, fmt.Errorf("%w: empty code set", ErrInvalidHuffman)
	}
	d := &HuffmanDecoder{table: t}

	// Enumerate prefix states. Index 0 must be the empty prefix.
	index := map[huffCode]int{{0, 0}: 0}
	prefixes := []huffCode{{0, 0}}
	for code := range t.codes {
		for l := 1; l < code.length; l++ {
			p := huffCode{l, code.bits >> (code.length - l)}
			if _, ok := index[p]; !ok {
				index[p] = len(prefixes)
				prefixes = append(prefixes, p)
			}
		}
	}

	d.states = make([]([16]dfaTransition), len(prefixes))
	for si, p := range prefixes {
		for v := 0; v < 16; v++ {
			d.states[si][v] = d.transition(p, 4, uint32(v), index)
		}
	}
	for r := 1; r <= 3; r++ {
		d.align[r] = make([]dfaTransition, 1<<r)
		for v := 0; v < 1<<r; v++ {
			d.align[r][v] = d.transition(huffCode{0, 0}, r, uint32(v), index)
		}
	}
	return d, nil
}

// transition concatenates a prefix with a w-bit input chunk, greedily strips
// complete codes, and resolves the remainder to a state.
func (d *HuffmanDecoder) transition(p huffCode, w int, v uint32, index map[huffCode]int) dfaTransition {
	length := p.length + w
	bits := p.bits<<w | v

	tr := dfaTransition{next: -1}
	pos := 0
	for {
		matched := false
		for l := 1; l <= length-pos && l <= d.table.maxLen; l++ {
			sym, ok := d.table.Lookup(l, (bits>>(length-pos-l))&((1<<l)-1))
			if !ok {
				continue
			}
			if len(tr.symbols) == 0 {
				tr.firstLen = pos + l - p.length
			}
			tr.symbols = append(tr.symbols, sym)
			pos += l
			matched = true
			break
		}
		if !matched {
			break
		}
	}

	rem := huffCode{length - pos, bits & ((1 << (length - pos)) - 1)}
	if si, ok := index[rem]; ok {
		tr.next = si
	}
	return tr
}

// DecodeSymbol decodes one symbol starting at the reader's cursor. The cursor
// is left on the bit immediately after the decoded code, so value bits can be
// read directly; trailing symbols completed by the same chunk are re-decoded
// by later calls.
func (d *HuffmanDecoder) DecodeSymbol(r *bitReader) (byte, error) {
	state := 0
	for {
		w := 4
		var tr dfaTransition
		if r.bit%4 != 0 {
			w = 4 - r.bit%4
		}
		v, err := r.ReadBits(w)
		if err != nil {
			return 0, err
		}
		if w < 4 {
			tr = d.align[w][v]
		} else {
			tr = d.states[state][v]
		}

		if len(tr.symbols) > 0 {
			rewind := w - tr.firstLen
			abs := r.pos*8 + r.bit - rewind
			r.pos, r.bit = abs/8, abs%8
			return tr.symbols[0], nil
		}
		if tr.next < 0 {
			if r.AtLastByte() {
				return 0, fmt.Errorf("%w: scan padding ends inside a Huffman code", ErrTruncated)
			}
			return 0, fmt.Errorf("%w: no code matches input", ErrInvalidHuffman)
		}
		state = tr.next
	}
}

// DecodeAll consumes a whole buffer nibble by nibble and returns every symbol
// encountered. Trailing bits that form only a partial code are ignored, but a
// dead state with further input remaining is an error.
func (d *HuffmanDecoder) DecodeAll(data []byte) ([]byte, error) {
	var out []byte
	state := 0
	for i := 0; i < len(data)*2; i++ {
		v := data[i/2]
		if i%2 == 0 {
			v >>= 4
		}
		tr := d.states[state][v&0x0F]
		out = append(out, tr.symbols...)
		if tr.next < 0 {
			if i == len(data)*2-1 {
				break
			}
			return out, fmt.Errorf("%w: no code matches input", ErrInvalidHuffman)
		}
		state = tr.next
	}
	return out, nil
}
