package codec

// Bytes is an identity codec for []byte entities; the store still frames
// them as records so the secondary index keeps working.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) {
	// records alias provider memory; hand out a private copy
	return append([]byte(nil), b...), nil
}

// String stores string entities as UTF-8 bytes without validation.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
