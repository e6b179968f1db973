// ABOUTME: User-facing helpers that turn API errors into display text
// ABOUTME: Provides generic messages, whitelisted readable codes, and form error resolution

package apiclient

import (
	"slices"
	"strings"
)

// DefaultErrorMessage is shown when an error carries no message.
const DefaultErrorMessage = "Errors occured."

// GenericErrorTitle is shown for codes that are not safe to surface.
const GenericErrorTitle = "Oops! Something went wrong"

var readableCodes = []string{
	"DEMO_MODE_RESTRICTION",
	"SUBSCRIPTION_EXPIRED",
	"INSUFFICIENT_PERMISSIONS",
}

// Message returns err's message, or fallback when there is none.
func Message(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}

// ReadableCode turns a whitelisted error code into a title such as
// "Subscription Expired". Any other error yields GenericErrorTitle.
func ReadableCode(err error) string {
	apiErr, ok := AsError(err)
	if !ok || !slices.Contains(readableCodes, apiErr.Code) {
		return GenericErrorTitle
	}

	words := strings.Split(strings.ToLower(apiErr.Code), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// FormError is what a form shows after a failed submit.
type FormError struct {
	Message     string
	FieldErrors map[string][]string
}

// ResolveFormError extracts a form-level message and per-field errors.
func ResolveFormError(err error, fallback string) FormError {
	apiErr, ok := AsError(err)
	if !ok {
		return FormError{Message: Message(err, fallback)}
	}

	fe := FormError{Message: apiErr.Message, FieldErrors: apiErr.FieldErrors}
	if fe.Message == "" {
		fe.Message = fallback
	}
	if fe.FieldErrors == nil {
		// validation details may sit under error.errors
		if body, ok := apiErr.Details.(map[string]any); ok {
			fe.FieldErrors = fieldErrors(body["error"])
		}
	}
	return fe
}
