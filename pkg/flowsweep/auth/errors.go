package auth

import (
	"fmt"
	"time"
)

// PortConflictError reports that the configured callback port could not be
// bound. The listener never falls back to another port because the connected
// app's registered redirect URL is port-specific.
type PortConflictError struct {
	Port int
	Err  error
}

func (e *PortConflictError) Error() string {
	return fmt.Sprintf("callback port %d is already in use: %v", e.Port, e.Err)
}

func (e *PortConflictError) Unwrap() error { return e.Err }

// CallbackTimeoutError reports that no redirect arrived before the listener
// deadline.
type CallbackTimeoutError struct {
	Timeout time.Duration
}

func (e *CallbackTimeoutError) Error() string {
	return fmt.Sprintf("no authorization callback received within %s", e.Timeout)
}

// AuthenticationError covers every way the handshake can be rejected: a state
// mismatch on the callback, an error redirect from the authorization server,
// or a token-endpoint rejection. Secrets are never included in the message.
type AuthenticationError struct {
	Code        string
	Description string
}

func (e *AuthenticationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authentication failed: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authentication failed: %s", e.Code)
}
