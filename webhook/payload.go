// Package webhook hosts the signed HTTP event receiver: the signature
// verification middleware, the challenge handshake and the dispatch-to-sink
// forwarding.
package webhook

import (
	json "github.com/goccy/go-json"
)

// Webhook opcodes. Dispatch and HTTPCallbackValidation arrive from the
// platform; HTTPCallbackAck is sent back for every accepted dispatch.
const (
	OpDispatch               = 0
	OpHTTPCallbackAck        = 12
	OpHTTPCallbackValidation = 13
)

// Signature headers attached to every webhook delivery.
const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

// envelope is the webhook body shape, sharing the gateway envelope layout.
type envelope struct {
	ID   string          `json:"id,omitempty"`
	Op   int             `json:"op"`
	Seq  uint32          `json:"s,omitempty"`
	Tag  string          `json:"t,omitempty"`
	Data json.RawMessage `json:"d,omitempty"`
}

// validationRequest is the opcode-13 challenge payload.
type validationRequest struct {
	PlainToken string `json:"plain_token"`
	EventTS    string `json:"event_ts"`
}

// validationResponse answers the challenge: the token echoed back plus the
// hex signature over event_ts || plain_token.
type validationResponse struct {
	PlainToken string `json:"plain_token"`
	Signature  string `json:"signature"`
}

// ack is the opcode-12 reply for an accepted dispatch: the original id and
// nothing else.
type ack struct {
	ID string `json:"id,omitempty"`
	Op int    `json:"op"`
}
