// Package serializer isolates the payload/result encoding the core
// depends on behind an interface, so store and handler code never call
// encoding/json directly. Grounded on the teacher's queue/nats/nats.go,
// which does explicit json.Marshal/Unmarshal around SendJob rather than
// leaning on a framework's body parser.
package serializer

import "encoding/json"

// Serializer converts between a Go value and its wire bytes.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is the default Serializer, backed by encoding/json.
type JSON struct{}

// NewJSON builds the default JSON serializer.
func NewJSON() JSON { return JSON{} }

func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
