package ws

import (
	"encoding/json"
	"time"
)

// inboundEnvelope is the wire shape of every message read from a
// connection: a verb plus an opaque payload decoded per-verb by the
// handler table.
type inboundEnvelope struct {
	T    string          `json:"t"`
	Data json.RawMessage `json:"data"`
}

// outboundEnvelope is the wire shape of every message written to a
// connection.
type outboundEnvelope struct {
	V    int    `json:"v"`
	T    string `json:"t"`
	TS   int64  `json:"ts"`
	Data any    `json:"data"`
}

// ErrorPayload is the data field of an `error` outbound envelope.
type ErrorPayload struct {
	Code         string `json:"code,omitempty"`
	Message      string `json:"message"`
	RetryAfterMs int64  `json:"retryAfterMs,omitempty"`
}

func encodeOutbound(t string, v any) ([]byte, error) {
	return json.Marshal(outboundEnvelope{V: 1, T: t, TS: time.Now().UnixMilli(), Data: v})
}
