package jpeg

import "fmt"

// scanState carries the per-scan decoding state: the scan's components in
// header order, the spectral and approximation parameters, DC predictors and
// (for arithmetic coding) DC conditioning buckets.
type scanState struct {
	comps []*Component
	idx   []int // frame component indices, parallel to comps

	interleaved bool
	units       int // MCUs when interleaved, blocks otherwise

	ss, se, ah, al int

	prevDC []int32
	dcCtx  []int
}

// entropySource is the per-chunk entropy decoding state: exactly one of the
// two fields is set, selected once per scan by the frame's coding mode.
type entropySource struct {
	bits  *bitReader
	arith *arithDecoder
}

// parseScanHeader validates an SOS segment body against the frame and
// prepares the scan state.
func (d *decoder) parseScanHeader(body []byte) (*scanState, error) {
	f := d.frame
	if len(body) < 1 {
		return nil, fmt.Errorf("%w: scan header", ErrTruncated)
	}
	ns := int(body[0])
	if ns < 1 || ns > 4 {
		return nil, fmt.Errorf("%w: %d scan components", ErrInvalidMarker, ns)
	}
	if len(body) < 1+2*ns+3 {
		return nil, fmt.Errorf("%w: scan header", ErrTruncated)
	}

	sc := &scanState{
		prevDC: make([]int32, ns),
		dcCtx:  make([]int, ns),
	}
	for i := 0; i < ns; i++ {
		id := body[1+2*i]
		sel := body[2+2*i]
		comp, ci := f.componentByID(id)
		if comp == nil {
			return nil, fmt.Errorf("%w: component id %d not in frame", ErrShapeMismatch, id)
		}
		for _, prev := range sc.comps {
			if prev.ID == id {
				return nil, fmt.Errorf("%w: component id %d listed twice", ErrShapeMismatch, id)
			}
		}
		comp.dcSel = int(sel >> 4)
		comp.acSel = int(sel & 0x0F)
		if comp.dcSel > 3 || comp.acSel > 3 {
			return nil, fmt.Errorf("%w: entropy table selector", ErrInvalidTable)
		}
		sc.comps = append(sc.comps, comp)
		sc.idx = append(sc.idx, ci)
	}

	sc.ss = int(body[1+2*ns])
	sc.se = int(body[2+2*ns])
	sc.ah = int(body[3+2*ns] >> 4)
	sc.al = int(body[3+2*ns] & 0x0F)

	if f.Mode != ModeProgressive {
		if sc.ss != 0 || sc.se != 63 || sc.ah != 0 || sc.al != 0 {
			return nil, fmt.Errorf("%w: spectral selection in sequential scan", ErrInvalidMarker)
		}
	} else {
		if sc.ss > 63 || sc.se > 63 || sc.ss > sc.se {
			return nil, fmt.Errorf("%w: spectral range %d..%d", ErrInvalidMarker, sc.ss, sc.se)
		}
		if sc.ss == 0 && sc.se != 0 {
			return nil, fmt.Errorf("%w: DC scan with spectral end %d", ErrInvalidMarker, sc.se)
		}
		if sc.ss > 0 && ns != 1 {
			return nil, fmt.Errorf("%w: interleaved AC scan", ErrInvalidMarker)
		}
		if sc.ah > 13 || sc.al > 13 {
			return nil, fmt.Errorf("%w: approximation %d/%d", ErrInvalidMarker, sc.ah, sc.al)
		}
	}

	sc.interleaved = ns > 1
	if sc.interleaved {
		sc.units = f.TotalMCUs
	} else {
		sc.units = sc.comps[0].BlocksPerRow * sc.comps[0].BlocksPerCol
	}

	if err := d.checkScanTables(sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// checkScanTables verifies every entropy table the scan will use exists, and
// for arithmetic coding allocates statistics bins on first use.
func (d *decoder) checkScanTables(sc *scanState) error {
	needDC := sc.ss == 0 && sc.ah == 0
	needAC := sc.se > 0

	for _, comp := range sc.comps {
		if d.frame.Coding == CodingHuffman {
			if needDC && d.dcHuff[comp.dcSel] == nil {
				return fmt.Errorf("%w: DC table %d undefined", ErrShapeMismatch, comp.dcSel)
			}
			if needAC && d.acHuff[comp.acSel] == nil {
				return fmt.Errorf("%w: AC table %d undefined", ErrShapeMismatch, comp.acSel)
			}
			continue
		}
		if d.dcStats[comp.dcSel] == nil {
			d.dcStats[comp.dcSel] = NewStatistics(dcStatBins)
		}
		if d.acStats[comp.acSel] == nil {
			d.acStats[comp.acSel] = NewStatistics(acStatBins)
		}
	}
	return nil
}

// blockCoords maps a unit index and intra-MCU block position to coefficient
// grid coordinates. Interleaved scans use MCU-relative addressing;
// non-interleaved scans walk the component's own grid in row-major order.
func (sc *scanState) blockCoords(f *FrameData, comp *Component, m, i, j int) (by, bx int) {
	if sc.interleaved {
		return (m/f.McusPerRow)*comp.V + i, (m%f.McusPerRow)*comp.H + j
	}
	return m / comp.BlocksPerRow, m % comp.BlocksPerRow
}

// blockTarget returns the grid block at (by, bx) for a component, or a
// scratch block when the coordinates fall in the MCU padding outside the
// grid. Padding blocks are decoded for their side effects on predictors and
// statistics, then discarded.
func (d *decoder) blockTarget(ci, by, bx int) *[64]int32 {
	comp := d.frame.Components[ci]
	if by < comp.BlocksPerCol && bx < comp.BlocksPerRow {
		return &d.coeffs[ci][by*comp.BlocksPerRow+bx]
	}
	d.scratch = [64]int32{}
	return &d.scratch
}

// runScan drives the unit loop over the scan's entropy-coded chunks. Chunk
// boundaries are restart markers: each chunk gets a fresh bit or arithmetic
// decoder over its unstuffed bytes, predictors reset to zero, conditioning
// buckets and statistics reset, and any outstanding EOB run cleared.
func (d *decoder) runScan(sc *scanState, chunks [][]byte, restarts []uint16, unit func(es *entropySource, m int) error) error {
	if d.restartInterval == 0 && len(chunks) > 1 {
		return fmt.Errorf("%w: restart marker without restart interval", ErrInvalidMarker)
	}
	for i, rst := range restarts {
		if rst != uint16(MarkerRST0+uint16(i%8)) {
			return fmt.Errorf("%w: restart marker 0x%04X out of sequence", ErrInvalidMarker, rst)
		}
	}

	m := 0
	for ci, chunk := range chunks {
		data := unstuff(chunk)
		es := &entropySource{}
		if d.frame.Coding == CodingHuffman {
			es.bits = newBitReader(data)
		} else {
			es.arith = newArithDecoder(data)
		}

		for si := range sc.prevDC {
			sc.prevDC[si] = 0
			sc.dcCtx[si] = dcCtxZero
		}
		d.eobRun = 0
		for t := 0; t < 4; t++ {
			if d.dcStats[t] != nil {
				d.dcStats[t].Reset()
			}
			if d.acStats[t] != nil {
				d.acStats[t].Reset()
			}
		}

		end := sc.units
		if d.restartInterval > 0 && ci < len(chunks)-1 {
			end = (ci + 1) * d.restartInterval
			if end > sc.units {
				return fmt.Errorf("%w: restart marker past final MCU", ErrInvalidMarker)
			}
		}
		for ; m < end; m++ {
			if err := unit(es, m); err != nil {
				return err
			}
		}
	}
	if m < sc.units {
		return fmt.Errorf("%w: scan ends after %d of %d units", ErrTruncated, m, sc.units)
	}
	return nil
}

// decodeSequentialUnit decodes one MCU (or one block, non-interleaved) of a
// baseline or extended sequential scan.
func (d *decoder) decodeSequentialUnit(sc *scanState, es *entropySource, m int) error {
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
				if es.bits != nil {
					err = d.decodeBlockHuffman(es.bits, sc, si, block)
				} else {
					err = d.decodeBlockArith(es.arith, sc, si, block)
				}
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// decodeBlockHuffman decodes one full block: DC magnitude category and value
// bits against the running predictor, then run/size AC composites until EOB
// or position 63. Coefficients are stored in zig-zag order.
func (d *decoder) decodeBlockHuffman(br *bitReader, sc *scanState, si int, block *[64]int32) error {
	comp := sc.comps[si]

	s, err := d.dcHuff[comp.dcSel].DecodeSymbol(br)
	if err != nil {
		return err
	}
	if s > 15 {
		return fmt.Errorf("%w: DC category %d", ErrInvalidHuffman, s)
	}
	diff, err := br.receiveExtend(int(s))
	if err != nil {
		return err
	}
	sc.prevDC[si] += int32(diff)
	block[0] = sc.prevDC[si]

	ac := d.acHuff[comp.acSel]
	k := 1
	for k < 64 {
		rs, err := ac.DecodeSymbol(br)
		if err != nil {
			return err
		}
		r, size := int(rs>>4), int(rs&0x0F)
		if size == 0 {
			if r == 15 {
				k += 16
				continue
			}
			break // EOB
		}
		k += r
		if k > 63 {
			return fmt.Errorf("%w: AC run past end of block", ErrInvalidHuffman)
		}
		v, err := br.receiveExtend(size)
		if err != nil {
			return err
		}
		block[k] = int32(v)
		k++
	}
	return nil
}

// decodeBlockArith decodes one full block with the arithmetic decoder: the
// DC difference against the conditioning bucket of the previous difference,
// then the whole AC band.
func (d *decoder) decodeBlockArith(ad *arithDecoder, sc *scanState, si int, block *[64]int32) error {
	comp := sc.comps[si]

	diff, bucket, err := ad.decodeDCDiff(d.dcStats[comp.dcSel], sc.dcCtx[si], d.dcCond[comp.dcSel])
	if err != nil {
		return err
	}
	sc.dcCtx[si] = bucket
	sc.prevDC[si] += int32(diff)
	block[0] = sc.prevDC[si]

	return ad.decodeACBand(d.acStats[comp.acSel], block, 1, 63, 0, d.acCond[comp.acSel])
}
