package auth

import (
	"context"
	"fmt"
	"io"
	"time"
)

// LoginOptions drive one complete browser handshake.
type LoginOptions struct {
	Port            int
	Timeout         time.Duration
	RetryOnMismatch bool
	// OpenBrowser overrides how the authorization URL is opened. Nil means
	// OpenBrowser; tests inject a driver that performs the callback
	// themselves.
	OpenBrowser func(url string) error
	// Output receives the progress messages for the human completing the
	// handshake. Nil discards them.
	Output io.Writer
}

// Login performs the full authorization-code handshake for one instance:
// generate a session, capture the redirect on the local listener, and
// exchange the code. The listener is fully closed before Login returns, so
// the next login may bind the same port.
func Login(ctx context.Context, cfg Config, opts LoginOptions) (*TokenSet, error) {
	session, err := NewSession(opts.Port)
	if err != nil {
		return nil, err
	}

	listener := NewListener(session, ListenerOptions{
		Timeout:         opts.Timeout,
		RetryOnMismatch: opts.RetryOnMismatch,
	})
	if err := listener.Start(); err != nil {
		return nil, err
	}
	defer listener.Close()

	cfg.RedirectURL = listener.RedirectURL()
	authURL := AuthCodeURL(cfg, session)

	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	_, _ = fmt.Fprintf(out, "Open the following URL in your browser:\n%s\n", authURL)
	open := opts.OpenBrowser
	if open == nil {
		open = OpenBrowser
	}
	_ = open(authURL)
	_, _ = fmt.Fprintln(out, "Waiting for you to complete authentication in your browser...")

	code, err := listener.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return Exchange(ctx, cfg, session, code)
}
