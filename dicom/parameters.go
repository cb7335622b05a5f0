package dicom

import (
	"github.com/cocosip/go-dicom/pkg/imaging/codec"
)

// Ensure Parameters implements codec.Parameters
var _ codec.Parameters = (*Parameters)(nil)

// Parameters implements codec.Parameters for the decode-only JPEG codecs.
// Decoding takes no options; custom parameters are stored for pass-through.
type Parameters struct {
	params map[string]interface{}
}

// NewParameters creates an empty parameter set
func NewParameters() *Parameters {
	return &Parameters{params: make(map[string]interface{})}
}

// GetParameter retrieves a parameter by name (implements codec.Parameters)
func (p *Parameters) GetParameter(name string) interface{} {
	return p.params[name]
}

// SetParameter sets a parameter value (implements codec.Parameters)
func (p *Parameters) SetParameter(name string, value interface{}) {
	p.params[name] = value
}

// Validate checks if the parameters are valid
func (p *Parameters) Validate() error {
	return nil
}
