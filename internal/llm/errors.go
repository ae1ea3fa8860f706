package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// WrapCallError classifies a transport or SDK error from provider.
// Deadline and network timeouts become ErrModelTimeout; the original error
// stays in the chain.
func WrapCallError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if IsTimeout(err) {
		return fmt.Errorf("%s: %w: %w", provider, ErrModelTimeout, err)
	}
	return fmt.Errorf("%s: %w", provider, err)
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	// some SDKs flatten the transport error into text
	msg := err.Error()
	return strings.Contains(msg, "Client.Timeout") || strings.Contains(msg, "context deadline exceeded")
}

// Blocked wraps a refusal reason reported by provider.
func Blocked(provider, reason string) error {
	return fmt.Errorf("%s: %w: %s", provider, ErrContentBlocked, reason)
}
