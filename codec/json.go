package codec

import "encoding/json"

// JSON is the default entity codec for store.KV: rows are readable with
// redis-cli and survive field additions as long as json tags are stable.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (JSON[V]) Decode(b []byte) (entity V, err error) {
	err = json.Unmarshal(b, &entity)
	return entity, err
}
