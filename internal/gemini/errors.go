package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned before any network activity when no
// credential has been configured.
var ErrMissingAPIKey = errors.New("gemini: api key not configured")

// UpstreamError carries a non-2xx answer from the generation service. Body is
// the upstream JSON exactly as received.
type UpstreamError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gemini: upstream status %d: %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) HTTPStatusCode() int {
	return e.StatusCode
}

// TransportError reports a local failure: the request could not be sent, the
// response could not be read, or its body was not JSON.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "gemini: transport failure"
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
