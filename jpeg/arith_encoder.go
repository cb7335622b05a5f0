package jpeg

// arithEncoder is the T.81 Annex D arithmetic encoder, the exact dual of
// arithDecoder. It exists for the round-trip validation of the decoder (the
// Annex K test sequence); the library does not encode images.
//
// C accumulates the interval base with byte output from bits 26..19; carries
// propagate into the pending byte, and completed 0xFF bytes are stacked until
// a later byte resolves whether they overflow. Zero bytes are withheld until
// a nonzero byte follows, so trailing zeros are never emitted.
type arithEncoder struct {
	a  uint32
	c  uint32
	ct int

	buffer int // pending output byte, -1 before the first
	sc     int // stacked 0xFF bytes awaiting carry resolution
	zc     int // withheld 0x00 bytes

	out []byte
}

func newArithEncoder() *arithEncoder {
	return &arithEncoder{a: 0x10000, ct: 11, buffer: -1}
}

func (e *arithEncoder) emit(b byte) {
	e.out = append(e.out, b)
}

func (e *arithEncoder) emitZeros() {
	for ; e.zc > 0; e.zc-- {
		e.emit(0x00)
	}
}

// EncodeBit codes one binary decision in the given context, updating the
// statistics exactly as the decoder will.
func (e *arithEncoder) EncodeBit(st *Statistics, ctx, bit int) {
	s := &arithStateTable[st.state[ctx]]
	qe := s.Qe
	e.a -= qe

	mps := 0
	if st.mps[ctx] {
		mps = 1
	}

	if bit != mps {
		// LPS: code the upper sub-interval unless exchange applies.
		if e.a >= qe {
			e.c += e.a
			e.a = qe
		}
		if s.Switch {
			st.mps[ctx] = !st.mps[ctx]
		}
		st.state[ctx] = s.NextLPS
	} else {
		if e.a >= 0x8000 {
			return
		}
		if e.a < qe {
			e.c += e.a
			e.a = qe
		}
		st.state[ctx] = s.NextMPS
	}
	e.renorm()
}

// EncodeFixedBit codes one bit with the fixed equiprobable estimate and no
// statistics update, mirroring DecodeFixedBit.
func (e *arithEncoder) EncodeFixedBit(bit int) {
	e.a -= fixedQe
	if bit != 0 {
		if e.a >= fixedQe {
			e.c += e.a
			e.a = fixedQe
		}
	} else {
		if e.a >= 0x8000 {
			return
		}
		if e.a < fixedQe {
			e.c += e.a
			e.a = fixedQe
		}
	}
	e.renorm()
}

func (e *arithEncoder) renorm() {
	for {
		e.a <<= 1
		e.c <<= 1
		e.ct--
		if e.ct == 0 {
			e.byteOut()
			e.ct = 8
		}
		if e.a >= 0x8000 {
			return
		}
	}
}

// byteOut moves the completed byte out of C, resolving carries into the
// pending byte and any stacked 0xFF bytes (T.81 D.1.6, byte stuffing
// included: an emitted 0xFF is always followed by 0x00).
func (e *arithEncoder) byteOut() {
	temp := e.c >> 19
	switch {
	case temp > 0xFF:
		// Carry into the pending byte; stacked 0xFF bytes become 0x00.
		if e.buffer >= 0 {
			e.emitZeros()
			e.emit(byte(e.buffer + 1))
			if e.buffer+1 == 0xFF {
				e.emit(0x00)
			}
		}
		e.zc += e.sc
		e.sc = 0
		e.buffer = int(temp & 0xFF)
	case temp == 0xFF:
		e.sc++
	default:
		if e.buffer == 0 {
			e.zc++
		} else if e.buffer >= 0 {
			e.emitZeros()
			e.emit(byte(e.buffer))
		}
		if e.sc > 0 {
			e.emitZeros()
			for ; e.sc > 0; e.sc-- {
				e.emit(0xFF)
				e.emit(0x00)
			}
		}
		e.buffer = int(temp)
	}
	e.c &= 0x7FFFF
}

// Flush terminates the code stream per T.81 D.1.8: the value in the final
// interval with the most trailing zero bits is selected, and trailing zero
// bytes are discarded.
func (e *arithEncoder) Flush() []byte {
	temp := (e.a - 1 + e.c) & 0xFFFF0000
	if temp < e.c {
		e.c = temp + 0x8000
	} else {
		e.c = temp
	}
	e.c <<= uint(e.ct)

	if e.c&0xF8000000 != 0 {
		// Final carry.
		if e.buffer >= 0 {
			e.emitZeros()
			e.emit(byte(e.buffer + 1))
			if e.buffer+1 == 0xFF {
				e.emit(0x00)
			}
		}
		e.zc += e.sc
		e.sc = 0
	} else {
		if e.buffer == 0 {
			e.zc++
		} else if e.buffer >= 0 {
			e.emitZeros()
			e.emit(byte(e.buffer))
		}
		if e.sc > 0 {
			e.emitZeros()
			for ; e.sc > 0; e.sc-- {
				e.emit(0xFF)
				e.emit(0x00)
			}
		}
	}

	if e.c&0x7FFF800 != 0 {
		e.emitZeros()
		b := byte(e.c >> 19)
		e.emit(b)
		if b == 0xFF {
			e.emit(0x00)
		}
		if e.c&0x7F800 != 0 {
			b = byte(e.c >> 11)
			e.emit(b)
			if b == 0xFF {
				e.emit(0x00)
			}
		}
	}
	return e.out
}
