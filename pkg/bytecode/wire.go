package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Container is the on-disk form of a Buffer: the raw action bytes plus the
// metadata a parser knows about them.
type Container struct {
	Name       string   `cbor:"1,keyasint,omitempty"`
	Version    int      `cbor:"2,keyasint,omitempty"`
	Code       []byte   `cbor:"3,keyasint"`
	Dictionary []string `cbor:"4,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalContainer serializes b to canonical CBOR.
func MarshalContainer(b *Buffer) ([]byte, error) {
	c := Container{
		Name:    b.name,
		Version: b.version,
		Code:    b.code,
	}
	// Only an explicit dictionary is stored; pools are re-derived on load.
	if b.explicitDict {
		c.Dictionary = b.dict
	}
	return cborEncMode.Marshal(&c)
}

// UnmarshalContainer decodes a CBOR container into a Buffer.
func UnmarshalContainer(data []byte) (*Buffer, error) {
	var c Container
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal container: %w", err)
	}
	opts := []BufferOption{WithName(c.Name), WithVersion(c.Version)}
	if c.Dictionary != nil {
		opts = append(opts, WithDictionary(c.Dictionary))
	}
	return NewBuffer(c.Code, opts...), nil
}
