package xclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Platform error codes the campaign and crawl loops react to.
const (
	CodeRateLimitExceeded = 88
	CodeDMPermission      = 93
	CodeRecipientRejected = 349
)

// APIError is a non-2xx response from the platform.
type APIError struct {
	Endpoint string
	Status   int
	Code     int
	Message  string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("x api %s: status %d code %d: %s", e.Endpoint, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("x api %s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

// Kind is the retry policy class of an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindRateLimited
	KindReadOnly
	KindRecipientRejected
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindReadOnly:
		return "read_only"
	case KindRecipientRejected:
		return "recipient_rejected"
	default:
		return "unknown"
	}
}

// Classify maps an error from this package to a Kind. Errors that are not
// *APIError (network failures, context errors) are KindUnknown.
func Classify(err error) Kind {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return KindUnknown
	}
	switch {
	case apiErr.Code == CodeRateLimitExceeded, apiErr.Status == http.StatusTooManyRequests:
		return KindRateLimited
	case apiErr.Code == CodeDMPermission, strings.HasPrefix(apiErr.Message, "Read-only"):
		return KindReadOnly
	case apiErr.Code == CodeRecipientRejected:
		return KindRecipientRejected
	}
	return KindUnknown
}

// parseAPIError builds an APIError from a response body. v1.1 errors are
// {"errors":[{"code":N,"message":"..."}]}; some are plain text.
func parseAPIError(endpoint string, status int, body []byte) *APIError {
	e := &APIError{Endpoint: endpoint, Status: status}
	var raw struct {
		Errors []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &raw); err == nil {
		if len(raw.Errors) > 0 {
			e.Code = raw.Errors[0].Code
			e.Message = raw.Errors[0].Message
			return e
		}
		if raw.Error != "" {
			e.Message = raw.Error
			return e
		}
	}
	e.Message = strings.TrimSpace(string(body))
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
