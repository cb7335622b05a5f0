package jpeg

import "errors"

// Error kinds surfaced by the decoder. All are fatal for the current decode
// call; malformed input never panics.
var (
	// ErrTruncated reports end of input inside a header, a segment, or an
	// entropy-coded segment.
	ErrTruncated = errors.New("truncated JPEG data")

	// ErrInvalidMarker reports an unexpected marker or a mis-aligned length field.
	ErrInvalidMarker = errors.New("invalid JPEG marker")

	// ErrInvalidHuffman reports bits that match no Huffman code, or a DHT
	// payload from which no canonical code set can be built.
	ErrInvalidHuffman = errors.New("invalid Huffman code")

	// ErrInvalidArithmetic reports a corrupt arithmetic-coding state.
	ErrInvalidArithmetic = errors.New("invalid arithmetic coding state")

	// ErrUnsupportedMode reports a lossless or differential SOF, or a frame
	// with more than four components.
	ErrUnsupportedMode = errors.New("unsupported JPEG mode")

	// ErrInvalidTable reports an out-of-range table definition (DQT precision,
	// conditioning threshold, table selector).
	ErrInvalidTable = errors.New("invalid table definition")

	// ErrShapeMismatch reports a scan header referencing a component not in
	// the frame, or a table that was never defined.
	ErrShapeMismatch = errors.New("scan does not match frame")
)
