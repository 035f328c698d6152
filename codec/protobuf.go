package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

// Protobuf persists entities that are already generated messages, so a
// repository shares one schema with whatever else reads its rows. Output is
// deterministic, so an unchanged entity always writes the same record bytes.
type Protobuf[T proto.Message] struct {
	empty func() T
}

// NewProtobuf takes the constructor of an empty entity message, e.g.
// func() *pb.PlayerStats { return &pb.PlayerStats{} }.
func NewProtobuf[T proto.Message](empty func() T) Protobuf[T] {
	return Protobuf[T]{empty: empty}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.empty == nil {
		var zero T
		return zero, errors.New("codec: protobuf codec built without a message constructor")
	}
	m := c.empty()
	return m, proto.Unmarshal(b, m)
}
