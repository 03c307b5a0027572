package codec

import "encoding/json"

// JSON is the readable option, handy when inspecting a shared Redis store by
// hand. []byte fields become base64.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
