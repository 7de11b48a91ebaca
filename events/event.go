// Package events defines the inbound event union shared by the websocket
// gateway and the webhook receiver, and the broadcast bus those transports
// publish on.
package events

import (
	json "github.com/goccy/go-json"

	"github.com/qguild-go/qguild/model"
)

// Type tags an inbound event. The values are the platform's dispatch tags.
type Type string

// Dispatch tags carried in the envelope's "t" field.
const (
	TypeMessageCreate         Type = "MESSAGE_CREATE"
	TypeMessageDelete         Type = "MESSAGE_DELETE"
	TypePublicMessageDelete   Type = "PUBLIC_MESSAGE_DELETE"
	TypeAtMessageCreate       Type = "AT_MESSAGE_CREATE"
	TypeMessageAuditPass      Type = "MESSAGE_AUDIT_PASS"
	TypeMessageAuditReject    Type = "MESSAGE_AUDIT_REJECT"
	TypeMessageReactionAdd    Type = "MESSAGE_REACTION_ADD"
	TypeMessageReactionRemove Type = "MESSAGE_REACTION_REMOVE"
	TypeReady                 Type = "READY"
	TypeResumed               Type = "RESUMED"
	TypeUnknown               Type = ""
)

// Event is one decoded inbound event. Exactly one payload pointer is non-nil
// for the known tags; unknown tags keep the raw payload and Type "".
type Event struct {
	Type Type

	Message  *model.MessageReceived
	Deleted  *model.MessageDeleted
	Audited  *model.MessageAudited
	Reaction *model.MessageReaction
	Ready    *Ready
	Resumed  string

	// Raw is the undecoded payload for unknown tags.
	Raw json.RawMessage
}

// Ready is the payload of the READY dispatch that completes an Identify
// handshake.
type Ready struct {
	Version   int        `json:"version"`
	SessionID string     `json:"session_id"`
	User      model.User `json:"user"`
	Shard     *[2]uint32 `json:"shard,omitempty"`
}

// Decode turns a dispatch tag and its raw payload into an Event. Unknown
// tags produce an Unknown event rather than an error; a payload that fails
// to decode for a known tag is an error.
func Decode(tag string, data json.RawMessage) (Event, error) {
	decode := func(dst any) error {
		return json.Unmarshal(data, dst)
	}

	switch Type(tag) {
	case TypeMessageCreate, TypeAtMessageCreate:
		var m model.MessageReceived
		if err := decode(&m); err != nil {
			return Event{}, err
		}
		return Event{Type: Type(tag), Message: &m}, nil
	case TypeMessageDelete, TypePublicMessageDelete:
		var m model.MessageDeleted
		if err := decode(&m); err != nil {
			return Event{}, err
		}
		return Event{Type: Type(tag), Deleted: &m}, nil
	case TypeMessageAuditPass, TypeMessageAuditReject:
		var m model.MessageAudited
		if err := decode(&m); err != nil {
			return Event{}, err
		}
		return Event{Type: Type(tag), Audited: &m}, nil
	case TypeMessageReactionAdd, TypeMessageReactionRemove:
		var m model.MessageReaction
		if err := decode(&m); err != nil {
			return Event{}, err
		}
		return Event{Type: Type(tag), Reaction: &m}, nil
	case TypeReady:
		var r Ready
		if err := decode(&r); err != nil {
			return Event{}, err
		}
		return Event{Type: TypeReady, Ready: &r}, nil
	case TypeResumed:
		var s string
		// RESUMED carries an opaque string payload; tolerate absence.
		if len(data) > 0 {
			if err := decode(&s); err != nil {
				return Event{}, err
			}
		}
		return Event{Type: TypeResumed, Resumed: s}, nil
	default:
		return Event{Type: TypeUnknown, Raw: data}, nil
	}
}

// IsUnknown reports whether the event carried a tag this library does not
// decode.
func (e Event) IsUnknown() bool { return e.Type == TypeUnknown }

// AuditID returns the audit id for moderation outcome events and "" for
// everything else.
func (e Event) AuditID() string {
	if e.Audited == nil {
		return ""
	}
	return e.Audited.AuditID
}
