package dicom

import (
	"testing"

	"github.com/cocosip/go-dicom/pkg/dicom/transfer"
	"github.com/cocosip/go-dicom/pkg/imaging/codec"
	"github.com/cocosip/go-dicom/pkg/imaging/types"
)

// testPixelData is a minimal types.PixelData implementation for exercising
// the codec interface.
type testPixelData struct {
	frames    [][]byte
	frameInfo *types.FrameInfo
}

func newTestPixelData(frameInfo *types.FrameInfo) *testPixelData {
	return &testPixelData{frameInfo: frameInfo}
}

func (p *testPixelData) GetFrame(frameIndex int) ([]byte, error) {
	if frameIndex < 0 || frameIndex >= len(p.frames) {
		return nil, nil
	}
	return p.frames[frameIndex], nil
}

func (p *testPixelData) AddFrame(frameData []byte) error {
	p.frames = append(p.frames, frameData)
	return nil
}

func (p *testPixelData) FrameCount() int {
	return len(p.frames)
}

func (p *testPixelData) GetFrameInfo() *types.FrameInfo {
	return p.frameInfo
}

func (p *testPixelData) IsEncapsulated() bool {
	return true
}

// solidBlackJPEG is a baseline 8x8 all-black grayscale stream: unit
// quantization, single-code Huffman tables, one DC difference of -1024.
func solidBlackJPEG() []byte {
	return []byte{
		0xFF, 0xD8, // SOI
		0xFF, 0xDB, 0x00, 0x43, 0x00, // DQT, table 0
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
		0xFF, 0xC0, 0x00, 0x0B, 8, 0, 8, 0, 8, 1, 1, 0x11, 0, // SOF0 8x8
		0xFF, 0xC4, 0x00, 0x14, 0x00, // DHT DC 0
		1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 11,
		0xFF, 0xC4, 0x00, 0x14, 0x10, // DHT AC 0
		1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x00,
		0xFF, 0xDA, 0x00, 0x08, 1, 1, 0x00, 0, 63, 0, // SOS
		0x3F, 0xF7, // entropy-coded data
		0xFF, 0xD9, // EOI
	}
}

func TestCodecInterface(t *testing.T) {
	c := NewBaselineCodec()
	var _ codec.Codec = c

	if c.Name() == "" {
		t.Error("codec name should not be empty")
	}
	ts := c.TransferSyntax()
	if ts == nil {
		t.Fatal("transfer syntax should not be nil")
	}
	if ts.UID().UID() != transfer.JPEGBaseline8Bit.UID().UID() {
		t.Errorf("transfer syntax UID mismatch: got %s, want %s",
			ts.UID().UID(), transfer.JPEGBaseline8Bit.UID().UID())
	}
}

func TestCodecDecode(t *testing.T) {
	frameInfo := &types.FrameInfo{
		Width:                     8,
		Height:                    8,
		BitsAllocated:             8,
		BitsStored:                8,
		HighBit:                   7,
		SamplesPerPixel:           1,
		PhotometricInterpretation: "MONOCHROME2",
	}
	src := newTestPixelData(frameInfo)
	if err := src.AddFrame(solidBlackJPEG()); err != nil {
		t.Fatal(err)
	}

	dst := newTestPixelData(frameInfo)
	if err := NewBaselineCodec().Decode(src, dst, nil); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	decoded, _ := dst.GetFrame(0)
	if len(decoded) != 8*8*3 {
		t.Fatalf("decoded frame length %d, want %d", len(decoded), 8*8*3)
	}
	for i, b := range decoded {
		if b != 0 {
			t.Fatalf("pixel byte %d = %d, want 0", i, b)
		}
	}
}

func TestCodecEncodeUnsupported(t *testing.T) {
	frameInfo := &types.FrameInfo{Width: 8, Height: 8, SamplesPerPixel: 1}
	src := newTestPixelData(frameInfo)
	dst := newTestPixelData(frameInfo)
	if err := NewBaselineCodec().Encode(src, dst, nil); err == nil {
		t.Error("Encode should report unsupported")
	}
}

func TestCodecRegistry(t *testing.T) {
	RegisterCodecs()
	registry := codec.GetGlobalRegistry()

	c, exists := registry.GetCodec(transfer.JPEGBaseline8Bit)
	if !exists {
		t.Fatal("baseline codec not found in registry")
	}
	if c == nil {
		t.Fatal("retrieved codec is nil")
	}

	c, exists = registry.GetCodec(transfer.JPEGExtended12Bit)
	if !exists {
		t.Fatal("extended codec not found in registry")
	}
	if c.Name() == "" {
		t.Error("codec name should not be empty")
	}
}
