package ws

import "encoding/json"

// Envelope is the wire frame: a named event plus its JSON payload. Inbound
// frames keep Data raw so each event decodes into its own shape.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EncodeEvent builds an outbound frame. Marshal failures are programmer
// errors (all outbound payloads are plain structs), so the frame is dropped
// and nil is returned rather than panicking mid-fanout.
func EncodeEvent(event string, data any) []byte {
	b, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{Event: event, Data: data})
	if err != nil {
		return nil
	}
	return b
}
