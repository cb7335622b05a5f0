// Package dicom registers the JPEG decoder with go-dicom's imaging codec
// registry, so DICOM datasets with JPEG transfer syntaxes can be decoded
// through the standard pipeline. The codecs are decode-only.
package dicom

import (
	"fmt"

	"github.com/cocosip/go-dicom/pkg/dicom/transfer"
	"github.com/cocosip/go-dicom/pkg/imaging/codec"
	"github.com/cocosip/go-dicom/pkg/imaging/types"

	"github.com/cocosip/go-jpeg-decoder/jpeg"
)

var _ codec.Codec = (*JPEGCodec)(nil)

// JPEGCodec implements the external codec.Codec interface for one JPEG
// transfer syntax. Encoding is not supported by this module.
type JPEGCodec struct {
	name   string
	syntax *transfer.Syntax
}

// NewBaselineCodec creates the codec for JPEG Baseline (Process 1).
func NewBaselineCodec() *JPEGCodec {
	return &JPEGCodec{name: "JPEG Baseline (decode only)", syntax: transfer.JPEGBaseline8Bit}
}

// NewExtendedCodec creates the codec for JPEG Extended (Process 2 & 4).
func NewExtendedCodec() *JPEGCodec {
	return &JPEGCodec{name: "JPEG Extended (decode only)", syntax: transfer.JPEGExtended12Bit}
}

// Name returns the codec name
func (c *JPEGCodec) Name() string {
	return c.name
}

// TransferSyntax returns the transfer syntax this codec handles
func (c *JPEGCodec) TransferSyntax() *transfer.Syntax {
	return c.syntax
}

// GetDefaultParameters returns the default codec parameters
func (c *JPEGCodec) GetDefaultParameters() codec.Parameters {
	return NewParameters()
}

// Encode is not supported; this module only decodes.
func (c *JPEGCodec) Encode(oldPixelData types.PixelData, newPixelData types.PixelData, parameters codec.Parameters) error {
	return fmt.Errorf("%s: encoding not supported", c.name)
}

// Decode decodes every JPEG frame of the pixel data to interleaved RGB.
func (c *JPEGCodec) Decode(oldPixelData types.PixelData, newPixelData types.PixelData, parameters codec.Parameters) error {
	frameCount := oldPixelData.FrameCount()
	for frameIndex := 0; frameIndex < frameCount; frameIndex++ {
		frameData, err := oldPixelData.GetFrame(frameIndex)
		if err != nil {
			return fmt.Errorf("failed to get frame %d: %w", frameIndex, err)
		}

		_, raster, err := jpeg.Decode(frameData)
		if err != nil {
			return fmt.Errorf("JPEG decode failed for frame %d: %w", frameIndex, err)
		}

		if err := newPixelData.AddFrame(raster); err != nil {
			return fmt.Errorf("failed to add decoded frame %d: %w", frameIndex, err)
		}
	}
	return nil
}

// RegisterCodecs registers the JPEG decode codecs with the global go-dicom
// registry.
func RegisterCodecs() {
	registry := codec.GetGlobalRegistry()
	registry.RegisterCodec(transfer.JPEGBaseline8Bit, NewBaselineCodec())
	registry.RegisterCodec(transfer.JPEGExtended12Bit, NewExtendedCodec())
}

func init() {
	RegisterCodecs()
}
