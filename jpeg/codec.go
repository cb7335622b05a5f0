package jpeg

import (
	"fmt"

	"github.com/cocosip/go-jpeg-decoder/codec"
)

// Codec adapts the decoder to the codec registry for one operating mode.
// The bitstream itself selects the mode; the codec verifies the file matches
// the identity it was looked up under.
type Codec struct {
	mode Mode
	uid  string
	name string
}

// NewBaselineCodec creates the codec for baseline sequential DCT files.
func NewBaselineCodec() *Codec {
	return &Codec{mode: ModeBaseline, uid: "1.2.840.10008.1.2.4.50", name: "jpeg-baseline"}
}

// NewExtendedCodec creates the codec for extended sequential DCT files.
func NewExtendedCodec() *Codec {
	return &Codec{mode: ModeExtendedSequential, uid: "1.2.840.10008.1.2.4.51", name: "jpeg-extended"}
}

// NewProgressiveCodec creates the codec for progressive DCT files.
func NewProgressiveCodec() *Codec {
	return &Codec{mode: ModeProgressive, uid: "1.2.840.10008.1.2.4.55", name: "jpeg-progressive"}
}

// Decode decodes a JPEG byte stream to interleaved RGB pixel data.
func (c *Codec) Decode(data []byte) (*codec.DecodeResult, error) {
	frame, raster, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if frame.Mode != c.mode {
		return nil, fmt.Errorf("%w: %s stream given to %s codec", codec.ErrUnsupportedFormat, frame.Mode, c.name)
	}
	return &codec.DecodeResult{
		PixelData:  raster,
		Width:      frame.Width,
		Height:     frame.Height,
		Components: 3,
		BitDepth:   8,
	}, nil
}

// UID returns the DICOM Transfer Syntax UID associated with the mode.
func (c *Codec) UID() string {
	return c.uid
}

// Name returns the human-readable name
func (c *Codec) Name() string {
	return c.name
}

func init() {
	codec.Register(NewBaselineCodec())
	codec.Register(NewExtendedCodec())
	codec.Register(NewProgressiveCodec())
}
