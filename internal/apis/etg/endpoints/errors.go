package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrBadJSON marks a 200 response whose body is not a JSON object.
var ErrBadJSON = errors.New("bad json")

type APIError struct {
	Status  int
	Code    any
	Message string
	Body    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	if e.Code == nil {
		return fmt.Sprintf("api error: status=%d message=%s", e.Status, msg)
	}
	return fmt.Sprintf("api error: status=%d code=%v message=%s", e.Status, e.Code, msg)
}

// ParseAPIError keeps at most 1 KiB of body and picks code/message when the body is JSON.
func ParseAPIError(status int, body []byte) *APIError {
	out := &APIError{Status: status, Body: excerpt(body, 1024)}

	var m map[string]any
	if json.Unmarshal(body, &m) == nil {
		if v, ok := m["code"]; ok {
			out.Code = v
		}
		if v, ok := m["message"].(string); ok {
			out.Message = v
		} else if v, ok := m["error"].(string); ok {
			out.Message = v
		}
	}
	return out
}
