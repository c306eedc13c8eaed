package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/groceryscout/storefront-gateway/pkg/errors"
)

// StatusError carries the backend's HTTP status and reported message so the
// response writer can surface validation text verbatim.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream returned %d", e.Status)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Message)
}

func (e *StatusError) UpstreamStatus() int { return e.Status }

func (e *StatusError) UpstreamMessage() string { return e.Message }

// errorFromResponse maps a non-2xx backend response onto a coded error.
// Structured 4xx messages pass through verbatim; everything else collapses
// to the code's public message.
func errorFromResponse(resp *http.Response) error {
	statusErr := &StatusError{
		Status:  resp.StatusCode,
		Message: decodeErrorMessage(resp.Body),
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, statusErr, "authentication required")
	case resp.StatusCode == http.StatusForbidden:
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, statusErr, "access denied")
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, statusErr, messageOr(statusErr, "resource not found"))
	case resp.StatusCode == http.StatusConflict:
		return pkgerrors.Wrap(pkgerrors.CodeConflict, statusErr, messageOr(statusErr, "conflict detected"))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, statusErr, messageOr(statusErr, "request rejected"))
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, statusErr, "upstream request failed")
	}
}

// decodeErrorMessage pulls the message out of the backend's error payloads,
// which arrive either as {"error": "..."} or {"message": "..."}.
func decodeErrorMessage(body io.Reader) string {
	payload, err := io.ReadAll(io.LimitReader(body, 1<<16))
	if err != nil {
		return ""
	}
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return strings.TrimSpace(string(payload))
	}
	if envelope.Error != "" {
		return envelope.Error
	}
	return envelope.Message
}

func messageOr(err *StatusError, fallback string) string {
	if msg := strings.TrimSpace(err.Message); msg != "" {
		return msg
	}
	return fallback
}

// Retryable reports whether the request may be re-sent: transport failures
// and 5xx responses only, never 4xx.
func retryable(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return true
	}
	switch typed.Code() {
	case pkgerrors.CodeUnavailable, pkgerrors.CodeDependency:
		return true
	default:
		return false
	}
}
