package client

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	if body := strings.TrimSpace(string(e.Body)); body != "" && len(body) <= 200 {
		msg += ": " + body
	}
	return msg
}

// StatusCode extracts the HTTP status from an error chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
