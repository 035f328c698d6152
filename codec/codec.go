// Package codec converts entities to and from the bytes a backing store keeps.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Funcs adapts a pair of functions to Codec.
type Funcs[V any] struct {
	EncodeFunc func(V) ([]byte, error)
	DecodeFunc func([]byte) (V, error)
}

func (f Funcs[V]) Encode(v V) ([]byte, error) { return f.EncodeFunc(v) }
func (f Funcs[V]) Decode(b []byte) (V, error) { return f.DecodeFunc(b) }
