// ABOUTME: Typed API errors and HTTP status classification
// ABOUTME: Maps backend error payloads to Unauthorized, Forbidden, Validation or generic errors

package apiclient

import (
	"errors"
	"net/http"
)

// Sentinels matched by *Error through errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation error")
)

// Kind classifies an API failure.
type Kind int

const (
	KindGeneric Kind = iota
	KindUnauthorized
	KindForbidden
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	default:
		return "generic"
	}
}

// Error codes assigned by classification.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeValidation   = "VALIDATION_ERROR"
)

// Error is a classified failure returned by the backend.
type Error struct {
	Kind         Kind
	Status       int
	Code         string
	Message      string
	FieldErrors  map[string][]string
	Details      any
	ShouldLogout bool
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrForbidden:
		return e.Kind == KindForbidden
	case ErrValidation:
		return e.Kind == KindValidation
	}
	return false
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsSessionInvalidating reports whether err means the backend no longer
// accepts the session: a 401, or a body that asks the client to log out.
func IsSessionInvalidating(err error) bool {
	apiErr, ok := AsError(err)
	if !ok {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.ShouldLogout
}

func newUnauthorized(message string, details any) *Error {
	return &Error{
		Kind:    KindUnauthorized,
		Status:  http.StatusUnauthorized,
		Code:    CodeUnauthorized,
		Message: message,
		Details: details,
	}
}

// mapError classifies a failed response.
func mapError(status int, payload any, fallback string) *Error {
	e := &Error{
		Status:       status,
		Message:      inferMessage(payload, fallback),
		Details:      payload,
		ShouldLogout: shouldLogout(payload),
	}

	switch status {
	case http.StatusUnauthorized:
		e.Kind, e.Code = KindUnauthorized, CodeUnauthorized
	case http.StatusForbidden:
		e.Kind, e.Code = KindForbidden, CodeForbidden
	case http.StatusBadRequest:
		e.Kind, e.Code = KindValidation, CodeValidation
		e.FieldErrors = fieldErrors(payload)
	default:
		e.Kind, e.Code = KindGeneric, inferCode(payload)
	}
	return e
}

// inferMessage looks at message, a string error, then error.message.
func inferMessage(payload any, fallback string) string {
	switch body := payload.(type) {
	case nil:
		return fallback
	case string:
		if body == "" {
			return fallback
		}
		return body
	case map[string]any:
		if msg, ok := body["message"].(string); ok {
			return msg
		}
		if msg, ok := body["error"].(string); ok {
			return msg
		}
		if nested, ok := body["error"].(map[string]any); ok {
			if msg, ok := nested["message"].(string); ok {
				return msg
			}
		}
	}
	return fallback
}

// inferCode looks at code, then error.code.
func inferCode(payload any) string {
	body, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	if code, ok := body["code"].(string); ok {
		return code
	}
	if nested, ok := body["error"].(map[string]any); ok {
		if code, ok := nested["code"].(string); ok {
			return code
		}
	}
	return ""
}

func shouldLogout(payload any) bool {
	body, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	flag, _ := body["shouldLogout"].(bool)
	return flag
}

// fieldErrors reads an errors object of field -> message list. Single
// string messages are accepted too.
func fieldErrors(payload any) map[string][]string {
	body, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := body["errors"].(map[string]any)
	if !ok {
		return nil
	}

	out := make(map[string][]string, len(raw))
	for field, v := range raw {
		switch msgs := v.(type) {
		case string:
			out[field] = []string{msgs}
		case []any:
			for _, m := range msgs {
				if s, ok := m.(string); ok {
					out[field] = append(out[field], s)
				}
			}
		}
	}
	return out
}
