// Package jpeg implements a correctness-oriented JPEG decoder covering the
// baseline sequential, extended sequential and progressive DCT modes of
// ITU-T T.81, with both Huffman and arithmetic entropy coding. The decoder
// consumes a resident byte slice and produces an interleaved 8-bit RGB
// raster; grayscale images are expanded to RGB.
package jpeg

import "fmt"

// decoder owns all mutable state of one decode call: table stores, the
// per-component coefficient grids and the restart interval. Tables are
// replaced whenever their defining segment re-appears.
type decoder struct {
	frame *FrameData

	quant  [4]*QuantizationTable
	dcHuff [4]*HuffmanDecoder
	acHuff [4]*HuffmanDecoder

	dcCond  [4]dcConditioning
	acCond  [4]acConditioning
	dcStats [4]*Statistics
	acStats [4]*Statistics

	coeffs [][][64]int32 // per component, blocks row-major in zig-zag order

	restartInterval int
	eobRun          int

	scratch [64]int32 // target for decoded blocks outside the grid
}

func newDecoder() *decoder {
	d := &decoder{}
	for i := 0; i < 4; i++ {
		d.dcCond[i] = defaultDCConditioning
		d.acCond[i] = defaultACConditioning
	}
	return d
}

// Decode decodes a JPEG byte stream and returns the frame description along
// with the decoded raster: height*width*3 bytes of interleaved RGB, row
// major, top to bottom. One-component images are returned with R=G=B.
func Decode(data []byte) (*FrameData, []byte, error) {
	d := newDecoder()
	r := newSegmentReader(data)

	marker, err := r.ReadMarker()
	if err != nil {
		return nil, nil, err
	}
	if marker != MarkerSOI {
		return nil, nil, fmt.Errorf("%w: expected SOI, got 0x%04X", ErrInvalidMarker, marker)
	}
	d.restartInterval = 0

	for {
		marker, err = r.ReadMarker()
		if err != nil {
			return nil, nil, err
		}

		switch {
		case marker == MarkerEOI:
			raster, err := d.render()
			if err != nil {
				return nil, nil, err
			}
			return d.frame, raster, nil

		case IsSOF(marker):
			body, err := r.ReadSegment()
			if err != nil {
				return nil, nil, err
			}
			if err := d.parseFrame(marker, body); err != nil {
				return nil, nil, err
			}

		case marker == MarkerDHT:
			body, err := r.ReadSegment()
			if err != nil {
				return nil, nil, err
			}
			if err := d.parseDHT(body); err != nil {
				return nil, nil, err
			}

		case marker == MarkerDAC:
			body, err := r.ReadSegment()
			if err != nil {
				return nil, nil, err
			}
			if err := d.parseDAC(body); err != nil {
				return nil, nil, err
			}

		case marker == MarkerDQT:
			body, err := r.ReadSegment()
			if err != nil {
				return nil, nil, err
			}
			if err := d.parseDQT(body); err != nil {
				return nil, nil, err
			}

		case marker == MarkerDRI:
			body, err := r.ReadSegment()
			if err != nil {
				return nil, nil, err
			}
			if len(body) != 2 {
				return nil, nil, fmt.Errorf("%w: DRI length", ErrInvalidMarker)
			}
			d.restartInterval = int(body[0])<<8 | int(body[1])

		case marker == MarkerSOS:
			if err := d.decodeScan(r); err != nil {
				return nil, nil, err
			}

		case IsRST(marker):
			// Stray restart marker between segments; nothing to reset.

		default:
			// APPn, COM, DNL and anything unrecognized: skip by length.
			if HasLength(marker) {
				if err := r.SkipSegment(); err != nil {
					return nil, nil, err
				}
			}
		}
	}
}

// parseFrame handles a Start of Frame segment and allocates the coefficient
// grids. A file carries exactly one frame.
func (d *decoder) parseFrame(marker uint16, body []byte) error {
	if d.frame != nil {
		return fmt.Errorf("%w: second SOF", ErrInvalidMarker)
	}
	f, err := parseSOF(marker, body)
	if err != nil {
		return err
	}
	if n := len(f.Components); n != 1 && n != 3 {
		return fmt.Errorf("%w: %d components", ErrUnsupportedMode, n)
	}
	d.frame = f
	d.coeffs = make([][][64]int32, len(f.Components))
	for i, c := range f.Components {
		d.coeffs[i] = make([][64]int32, c.BlocksPerRow*c.BlocksPerCol)
	}
	return nil
}

// parseDQT stores the quantization tables of a DQT segment, in the zig-zag
// order of the bitstream.
func (d *decoder) parseDQT(body []byte) error {
	for off := 0; off < len(body); {
		pq := int(body[off] >> 4)
		tq := int(body[off] & 0x0F)
		if tq > 3 {
			return fmt.Errorf("%w: quantization table id %d", ErrInvalidTable, tq)
		}
		if pq > 1 {
			return fmt.Errorf("%w: quantization precision %d", ErrInvalidTable, pq)
		}
		off++

		var t QuantizationTable
		if pq == 0 {
			if off+64 > len(body) {
				return fmt.Errorf("%w: quantization table", ErrTruncated)
			}
			for i := 0; i < 64; i++ {
				t[i] = uint16(body[off+i])
			}
			off += 64
		} else {
			if off+128 > len(body) {
				return fmt.Errorf("%w: quantization table", ErrTruncated)
			}
			for i := 0; i < 64; i++ {
				t[i] = uint16(body[off+2*i])<<8 | uint16(body[off+2*i+1])
			}
			off += 128
		}
		d.quant[tq] = &t
	}
	return nil
}

// parseDHT builds a Huffman table and its nibble decoder for every table in
// the segment.
func (d *decoder) parseDHT(body []byte) error {
	for off := 0; off < len(body); {
		tc := int(body[off] >> 4)
		th := int(body[off] & 0x0F)
		if tc > 1 {
			return fmt.Errorf("%w: Huffman table class %d", ErrInvalidTable, tc)
		}
		if th > 3 {
			return fmt.Errorf("%w: Huffman table id %d", ErrInvalidTable, th)
		}
		off++

		if off+16 > len(body) {
			return fmt.Errorf("%w: Huffman length counts", ErrTruncated)
		}
		var bits [16]int
		total := 0
		for i := 0; i < 16; i++ {
			bits[i] = int(body[off+i])
			total += bits[i]
		}
		off += 16
		if off+total > len(body) {
			return fmt.Errorf("%w: Huffman values", ErrTruncated)
		}
		values := make([]byte, total)
		copy(values, body[off:off+total])
		off += total

		table, err := BuildHuffmanTable(bits, values)
		if err != nil {
			return err
		}
		dec, err := NewHuffmanDecoder(table)
		if err != nil {
			return err
		}
		if tc == 0 {
			d.dcHuff[th] = dec
		} else {
			d.acHuff[th] = dec
		}
	}
	return nil
}

// parseDAC stores arithmetic conditioning values and discards any statistics
// accumulated under the previous conditioning.
func (d *decoder) parseDAC(body []byte) error {
	if len(body)%2 != 0 {
		return fmt.Errorf("%w: DAC length", ErrInvalidMarker)
	}
	for off := 0; off < len(body); off += 2 {
		tc := int(body[off] >> 4)
		tb := int(body[off] & 0x0F)
		v := int(body[off+1])
		if tb > 3 {
			return fmt.Errorf("%w: conditioning table id %d", ErrInvalidTable, tb)
		}
		switch tc {
		case 0:
			l := v & 0x0F
			u := v >> 4
			if l > u {
				return fmt.Errorf("%w: DC conditioning L=%d U=%d", ErrInvalidTable, l, u)
			}
			low := 0
			if l > 0 {
				low = 1 << (l - 1)
			}
			d.dcCond[tb] = dcConditioning{low: low, high: 1 << u}
			d.dcStats[tb] = NewStatistics(dcStatBins)
		case 1:
			if v < 1 || v > 63 {
				return fmt.Errorf("%w: AC conditioning Kx=%d", ErrInvalidTable, v)
			}
			d.acCond[tb] = acConditioning{kx: v}
			d.acStats[tb] = NewStatistics(acStatBins)
		default:
			return fmt.Errorf("%w: conditioning class %d", ErrInvalidTable, tc)
		}
	}
	return nil
}

// decodeScan parses a scan header, collects its entropy-coded data and runs
// the sequential or progressive unit loop over it.
func (d *decoder) decodeScan(r *segmentReader) error {
	if d.frame == nil {
		return fmt.Errorf("%w: SOS before SOF", ErrInvalidMarker)
	}
	body, err := r.ReadSegment()
	if err != nil {
		return err
	}
	sc, err := d.parseScanHeader(body)
	if err != nil {
		return err
	}
	chunks, restarts, err := r.ReadECS()
	if err != nil {
		return err
	}

	unit := func(es *entropySource, m int) error {
		return d.decodeSequentialUnit(sc, es, m)
	}
	if d.frame.Mode == ModeProgressive {
		unit = func(es *entropySource, m int) error {
			return d.decodeProgressiveUnit(sc, es, m)
		}
	}
	return d.runScan(sc, chunks, restarts, unit)
}

// render runs the coefficient-to-pixel pipeline after EOI: dequantize in
// zig-zag order, permute to natural order, inverse DCT, align chroma and
// paint the raster.
func (d *decoder) render() ([]byte, error) {
	f := d.frame
	if f == nil {
		return nil, fmt.Errorf("%w: EOI without SOF", ErrInvalidMarker)
	}

	planes := make([][]float64, len(f.Components))
	for ci, comp := range f.Components {
		qt := d.quant[comp.QuantSel]
		if qt == nil {
			return nil, fmt.Errorf("%w: quantization table %d undefined", ErrInvalidTable, comp.QuantSel)
		}

		plane := samplePlane{
			stride:  comp.BlocksPerRow * 8,
			rows:    comp.BlocksPerCol * 8,
			samples: make([]float64, comp.BlocksPerRow*comp.BlocksPerCol*64),
		}
		for by := 0; by < comp.BlocksPerCol; by++ {
			for bx := 0; bx < comp.BlocksPerRow; bx++ {
				blk := d.coeffs[ci][by*comp.BlocksPerRow+bx]
				dequantize(&blk, qt)
				nat := deZigzag(&blk)
				spatial := idct8x8(&nat)
				for y := 0; y < 8; y++ {
					copy(plane.samples[(by*8+y)*plane.stride+bx*8:], spatial[y*8:y*8+8])
				}
			}
		}
		planes[ci] = alignPlane(plane, comp.H, comp.V, f.MaxH, f.MaxV, f.Width, f.Height)
	}

	raster := make([]byte, f.Width*f.Height*3)
	for i := 0; i < f.Width*f.Height; i++ {
		var r, g, b byte
		if len(planes) == 1 {
			r, g, b = grayToRGB(planes[0][i])
		} else {
			r, g, b = ycbcrToRGB(planes[0][i], planes[1][i], planes[2][i])
		}
		raster[3*i] = r
		raster[3*i+1] = g
		raster[3*i+2] = b
	}
	return raster, nil
}
