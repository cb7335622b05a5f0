package jpeg

import "fmt"

// decodeProgressiveUnit dispatches one progressive scan unit to the DC or AC,
// first or refinement path for the frame's entropy coding.
func (d *decoder) decodeProgressiveUnit(sc *scanState, es *entropySource, m int) error {
	if sc.ss == 0 {
		return d.decodeDCProgressiveUnit(sc, es, m)
	}
	return d.decodeACProgressiveBlock(sc, es, m)
}

// decodeDCProgressiveUnit handles one unit of a DC scan (spectral position
// zero only). DC scans may be interleaved.
func (d *decoder) decodeDCProgressiveUnit(sc *scanState, es *entropySource, m int) error {
	for si, comp := range sc.comps {
		hb, vb := 1, 1
		if sc.interleaved {
			hb, vb = comp.H, comp.V
		}
		for i := 0; i < vb; i++ {
			for j := 0; j < hb; j++ {
				by, bx := sc.blockCoords(d.frame, comp, m, i, j)
				block := d.blockTarget(sc.idx[si], by, bx)
				var err error
				if sc.ah == 0 {
					err = d.decodeDCFirst(sc, es, si, block)
				} else {
					err = d.refineDC(sc, es, block)
				}
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// decodeDCFirst decodes the high-order DC bits: the difference is decoded as
// in a sequential scan and the accumulated predictor stored pre-shifted by Al.
func (d *decoder) decodeDCFirst(sc *scanState, es *entropySource, si int, block *[64]int32) error {
	comp := sc.comps[si]
	if es.bits != nil {
		s, err := d.dcHuff[comp.dcSel].DecodeSymbol(es.bits)
		if err != nil {
			return err
		}
		if s > 15 {
			return fmt.Errorf("%w: DC category %d", ErrInvalidHuffman, s)
		}
		diff, err := es.bits.receiveExtend(int(s))
		if err != nil {
			return err
		}
		sc.prevDC[si] += int32(diff)
	} else {
		diff, bucket, err := es.arith.decodeDCDiff(d.dcStats[comp.dcSel], sc.dcCtx[si], d.dcCond[comp.dcSel])
		if err != nil {
			return err
		}
		sc.dcCtx[si] = bucket
		sc.prevDC[si] += int32(diff)
	}
	block[0] = sc.prevDC[si] << sc.al
	return nil
}

// refineDC appends one low-order bit to the DC coefficient. Arithmetic
// refinement bits use the fixed estimate and never touch statistics.
func (d *decoder) refineDC(sc *scanState, es *entropySource, block *[64]int32) error {
	var bit int
	if es.bits != nil {
		b, err := es.bits.ReadBit()
		if err != nil {
			return err
		}
		bit = b
	} else {
		bit = es.arith.DecodeFixedBit()
	}
	if bit != 0 {
		block[0] |= 1 << sc.al
	}
	return nil
}

// decodeACProgressiveBlock handles one block of a non-interleaved AC scan.
func (d *decoder) decodeACProgressiveBlock(sc *scanState, es *entropySource, m int) error {
	comp := sc.comps[0]
	by, bx := sc.blockCoords(d.frame, comp, m, 0, 0)
	block := d.blockTarget(sc.idx[0], by, bx)

	switch {
	case sc.ah == 0 && es.bits != nil:
		return d.decodeACFirstHuffman(es.bits, sc, comp, block)
	case sc.ah == 0:
		return es.arith.decodeACBand(d.acStats[comp.acSel], block, sc.ss, sc.se, sc.al, d.acCond[comp.acSel])
	case es.bits != nil:
		return d.refineACHuffman(es.bits, sc, comp, block)
	default:
		return d.refineACArith(es.arith, sc, comp, block)
	}
}

// decodeACFirstHuffman decodes the first scan of an AC band (T.81 G.2.2,
// Figure G.3). A composite RRRR|0000 with RRRR < 15 starts an EOB run of
// 2^RRRR - 1 + extra-bits further all-zero blocks.
func (d *decoder) decodeACFirstHuffman(br *bitReader, sc *scanState, comp *Component, block *[64]int32) error {
	if d.eobRun > 0 {
		d.eobRun--
		return nil
	}

	ac := d.acHuff[comp.acSel]
	k := sc.ss
	for k <= sc.se {
		sym, err := ac.DecodeSymbol(br)
		if err != nil {
			return err
		}
		r, size := int(sym>>4), int(sym&0x0F)
		if size == 0 {
			if r < 15 {
				d.eobRun = 1<<r - 1
				if r > 0 {
					bits, err := br.ReadBits(r)
					if err != nil {
						return err
					}
					d.eobRun += int(bits)
				}
				break
			}
			k += 16 // ZRL
			continue
		}
		k += r
		if k > sc.se {
			return fmt.Errorf("%w: AC run past end of band", ErrInvalidHuffman)
		}
		v, err := br.receiveExtend(size)
		if err != nil {
			return err
		}
		block[k] = int32(v) << sc.al
		k++
	}
	return nil
}

// refineACHuffman adds one approximation bit to a band (T.81 G.1.2.3,
// Figure G.7). Existing non-zero coefficients gain a correction bit as they
// are passed over; a composite with SSSS=1 places a new coefficient of
// magnitude one at the next zero position after RRRR skipped zeros.
func (d *decoder) refineACHuffman(br *bitReader, sc *scanState, comp *Component, block *[64]int32) error {
	delta := int32(1) << sc.al
	ac := d.acHuff[comp.acSel]
	k := sc.ss

	if d.eobRun == 0 {
	scan:
		for k <= sc.se {
			sym, err := ac.DecodeSymbol(br)
			if err != nil {
				return err
			}
			r, size := int(sym>>4), int(sym&0x0F)
			newCoef := int32(0)
			switch size {
			case 0:
				if r < 15 {
					d.eobRun = 1 << r
					if r > 0 {
						bits, err := br.ReadBits(r)
						if err != nil {
							return err
						}
						d.eobRun += int(bits)
					}
					break scan
				}
				// ZRL: pass 16 zero positions, refining along the way.
			case 1:
				bit, err := br.ReadBit()
				if err != nil {
					return err
				}
				if bit != 0 {
					newCoef = delta
				} else {
					newCoef = -delta
				}
			default:
				return fmt.Errorf("%w: refinement magnitude %d", ErrInvalidHuffman, size)
			}

			k, err = d.refinePass(br, block, k, sc.se, r, delta)
			if err != nil {
				return err
			}
			if k > sc.se {
				if newCoef != 0 {
					return fmt.Errorf("%w: refinement run past end of band", ErrInvalidHuffman)
				}
				break
			}
			if newCoef != 0 {
				block[k] = newCoef
			}
			k++
		}
	}

	if d.eobRun > 0 {
		// The rest of the band carries no new coefficients, but existing
		// non-zero coefficients still receive their correction bits.
		d.eobRun--
		_, err := d.refinePass(br, block, k, sc.se, -1, delta)
		return err
	}
	return nil
}

// refinePass walks zig-zag positions k..se, reading a correction bit for
// every non-zero coefficient. With nz >= 0 it stops at the (nz+1)-th zero
// position; with nz < 0 it runs to the end of the band.
func (d *decoder) refinePass(br *bitReader, block *[64]int32, k, se, nz int, delta int32) (int, error) {
	for ; k <= se; k++ {
		if block[k] == 0 {
			if nz == 0 {
				break
			}
			nz--
			continue
		}
		bit, err := br.ReadBit()
		if err != nil {
			return k, err
		}
		if bit == 0 {
			continue
		}
		if block[k] >= 0 {
			block[k] += delta
		} else {
			block[k] -= delta
		}
	}
	return k, nil
}

// refineACArith adds one approximation bit to a band with the arithmetic
// coder (T.81 G.1.2.3 / F.1.4.4.2). The end-of-block decision is only coded
// for positions beyond the previous stage's last non-zero coefficient; signs
// of newly non-zero coefficients use the fixed estimate.
func (d *decoder) refineACArith(ad *arithDecoder, sc *scanState, comp *Component, block *[64]int32) error {
	st := d.acStats[comp.acSel]
	p1 := int32(1) << sc.al
	m1 := int32(-1) << sc.al

	kex := sc.se
	for kex > 0 && block[kex] == 0 {
		kex--
	}

	for k := sc.ss; k <= sc.se; k++ {
		ctx := 3 * (k - 1)
		if k > kex {
			if ad.DecodeBit(st, ctx) != 0 {
				break
			}
		}
		for {
			if block[k] != 0 {
				if ad.DecodeBit(st, ctx+2) != 0 {
					if block[k] < 0 {
						block[k] += m1
					} else {
						block[k] += p1
					}
				}
				break
			}
			if ad.DecodeBit(st, ctx+1) != 0 {
				if ad.DecodeFixedBit() != 0 {
					block[k] = m1
				} else {
					block[k] = p1
				}
				break
			}
			ctx += 3
			k++
			if k > sc.se {
				return fmt.Errorf("%w: refinement run past end of band", ErrInvalidArithmetic)
			}
		}
	}
	return nil
}
