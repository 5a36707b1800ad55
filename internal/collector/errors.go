package collector

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoData is returned when the broker reports success but sends no rows.
var ErrNoData = errors.New("no candle data returned")

// APIError is an explicit failure reported by the broker.
type APIError struct {
	Code    string
	Message string
	// Transient is set when the code is retryable and the retry budget ran out.
	Transient bool
}

func (e *APIError) Error() string {
	if e.Transient {
		return fmt.Sprintf("smartapi error %s (retries exhausted): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("smartapi error %s: %s", e.Code, e.Message)
}

var sessionCodes = map[string]bool{
	"AG8001":  true, // invalid token
	"AG8002":  true, // token expired
	"AG8003":  true, // token missing
	"HTTP401": true,
	"HTTP403": true,
}

var sessionPhrases = []string{
	"invalid token",
	"token expired",
	"invalid session",
	"session expired",
	"unauthor",
}

// IsSessionError reports whether err is a broker error caused by a missing or stale session.
func IsSessionError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if sessionCodes[strings.ToUpper(apiErr.Code)] {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	for _, p := range sessionPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
