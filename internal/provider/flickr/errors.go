package flickr

import (
	"fmt"
	"strings"
)

// NetworkError reports a transport failure: no connection, timeout or cancellation.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("flickr: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProviderError reports a response that arrived but cannot be used: a non-2xx status,
// an unparseable body, a failure stat, or a missing field.
type ProviderError struct {
	StatusCode int
	// Code and Message are the provider's own failure details, when present.
	Code    int
	Message string
	Reason  string
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString("flickr: ")
	b.WriteString(e.Reason)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
		if e.Code != 0 {
			fmt.Fprintf(&b, " [code %d]", e.Code)
		}
	}
	return b.String()
}
