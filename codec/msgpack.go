package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack trades readability for smaller records than JSON, which matters
// when a shared store holds every row of a busy namespace. Entities need
// `msgpack` tags to keep the field names they use under JSON.
type Msgpack[V any] struct{}

func (Msgpack[V]) Encode(v V) ([]byte, error) { return msgpack.Marshal(v) }

func (Msgpack[V]) Decode(b []byte) (entity V, err error) {
	err = msgpack.Unmarshal(b, &entity)
	return entity, err
}
