package api

import (
	json "github.com/goccy/go-json"

	"github.com/qguild-go/qguild/qerr"
)

// UnparseableCode is the sentinel failure code AsResult uses when the
// platform's body matched neither the success shape nor the failure envelope.
const UnparseableCode = ^uint32(0)

// Fail is the platform's structured failure envelope.
type Fail struct {
	Message string          `json:"message"`
	Code    uint32          `json:"code"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Response is the decoded body of one API call: exactly one of Ok, Fail or
// Raw is set. Raw holds the body when it parsed as JSON but matched neither
// shape.
type Response[T any] struct {
	Ok   *T
	Fail *Fail
	Raw  json.RawMessage
}

// failProbe detects the failure envelope before attempting the success
// shape: success DTOs decode permissively, so the order matters.
type failProbe struct {
	Message *string `json:"message"`
	Code    *uint32 `json:"code"`
}

// DecodeResponse classifies a response body. An empty body is a success with
// the zero value, which is how the platform encodes its no-content replies.
func DecodeResponse[T any](body []byte) Response[T] {
	if len(body) == 0 {
		var zero T
		return Response[T]{Ok: &zero}
	}

	var probe failProbe
	if err := json.Unmarshal(body, &probe); err == nil && probe.Code != nil && probe.Message != nil {
		var fail Fail
		if err := json.Unmarshal(body, &fail); err == nil {
			return Response[T]{Fail: &fail}
		}
	}

	var ok T
	if err := json.Unmarshal(body, &ok); err == nil {
		return Response[T]{Ok: &ok}
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		raw = append([]byte(nil), body...)
	}
	return Response[T]{Raw: raw}
}

// AsResult flattens the envelope: Fail and Unparseable surface as
// qerr.KindAPIFail, with the unparseable body carried as the failure data.
func (r Response[T]) AsResult() (T, error) {
	switch {
	case r.Ok != nil:
		return *r.Ok, nil
	case r.Fail != nil:
		var zero T
		return zero, qerr.APIFail("api response", r.Fail.Code, r.Fail.Message, r.Fail.Data)
	default:
		var zero T
		return zero, qerr.APIFail("api response", UnparseableCode, "unparseable response body", r.Raw)
	}
}
