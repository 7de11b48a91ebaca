// Package gateway maintains the websocket event connections: the payload
// codec, the per-shard connection state machine, the supervisor retry loop
// and the multi-shard manager.
package gateway

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/qguild-go/qguild/qerr"
)

// Opcode discriminates the gateway envelope.
type Opcode int

// Gateway opcodes. Dispatch, Heartbeat, Reconnect, InvalidSession, Hello and
// HeartbeatAck arrive from the platform; Heartbeat, Identify and Resume are
// sent by the client.
const (
	OpDispatch       Opcode = 0
	OpHeartbeat      Opcode = 1
	OpIdentify       Opcode = 2
	OpResume         Opcode = 6
	OpReconnect      Opcode = 7
	OpInvalidSession Opcode = 9
	OpHello          Opcode = 10
	OpHeartbeatAck   Opcode = 11
)

// Identify authenticates a fresh gateway session.
type Identify struct {
	Token      string            `json:"token"`
	Intents    Intents           `json:"intents"`
	Shard      *[2]uint32        `json:"shard,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Resume re-attaches to an existing server-side session at its last seen
// sequence number.
type Resume struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       uint32 `json:"seq"`
}

// sentPayload is the upload envelope: op and d, never s or t.
type sentPayload struct {
	Op   Opcode `json:"op"`
	Data any    `json:"d"`
}

// receivedPayload is the raw download envelope.
type receivedPayload struct {
	Op   Opcode          `json:"op"`
	Seq  uint32          `json:"s,omitempty"`
	Tag  string          `json:"t,omitempty"`
	Data json.RawMessage `json:"d,omitempty"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

// download is one classified inbound frame.
type download struct {
	Op   Opcode
	Seq  uint32
	Tag  string
	Data json.RawMessage

	// HeartbeatInterval is set for OpHello.
	HeartbeatInterval time.Duration
}

// decodeDownload parses and classifies one inbound frame. An opcode outside
// the download set is a protocol error and fails the connection.
func decodeDownload(raw []byte) (download, error) {
	var p receivedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return download{}, qerr.Wrap(qerr.KindSerialization, "decode gateway frame", err)
	}
	switch p.Op {
	case OpDispatch, OpHeartbeat, OpReconnect, OpInvalidSession, OpHeartbeatAck:
		return download{Op: p.Op, Seq: p.Seq, Tag: p.Tag, Data: p.Data}, nil
	case OpHello:
		var h helloData
		if err := json.Unmarshal(p.Data, &h); err != nil {
			return download{}, qerr.Wrap(qerr.KindSerialization, "decode hello payload", err)
		}
		return download{Op: OpHello, HeartbeatInterval: time.Duration(h.HeartbeatInterval) * time.Millisecond}, nil
	default:
		return download{}, qerr.New(qerr.KindUnexpected, fmt.Sprintf("unknown gateway opcode %d", p.Op))
	}
}
