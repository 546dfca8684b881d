package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCallbackTimeout bounds how long the listener waits for the browser
// redirect before giving up on the session.
const DefaultCallbackTimeout = 5 * time.Minute

const callbackPath = "/callback"

// ListenerOptions tune a single callback listener.
type ListenerOptions struct {
	// Timeout bounds the wait for the redirect. Zero means
	// DefaultCallbackTimeout; the wait is always finite.
	Timeout time.Duration
	// RetryOnMismatch keeps the listener alive after a callback whose state
	// does not match the session, allowing one further attempt. By default a
	// mismatch is terminal for the session.
	RetryOnMismatch bool
}

// Listener is a single-shot local HTTP endpoint that captures the
// authorization redirect for one session. Once a code has been captured the
// listener stops accepting connections before Wait returns, so a stale
// browser tab can never re-trigger an exchange.
type Listener struct {
	session *Session
	opts    ListenerOptions

	ln       net.Listener
	server   *http.Server
	codeCh   chan string
	errCh    chan error
	captured atomic.Bool
	rejected atomic.Bool
	closeMu  sync.Once
}

// NewListener prepares a listener for the session. Start must be called
// before Wait.
func NewListener(session *Session, opts ListenerOptions) *Listener {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultCallbackTimeout
	}
	return &Listener{
		session: session,
		opts:    opts,
		codeCh:  make(chan string, 1),
		errCh:   make(chan error, 1),
	}
}

// Start binds the session's port on localhost. A bind failure is a
// PortConflictError; the listener never silently falls back to another port.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", l.session.Port))
	if err != nil {
		return &PortConflictError{Port: l.session.Port, Err: err}
	}
	l.ln = ln
	l.session.Deadline = time.Now().Add(l.opts.Timeout)
	l.server = &http.Server{Handler: http.HandlerFunc(l.handle)}
	go func() {
		_ = l.server.Serve(ln)
	}()
	return nil
}

// RedirectURL returns the redirect URI registered for this listener. It is
// only valid after Start.
func (l *Listener) RedirectURL() string {
	return fmt.Sprintf("http://localhost:%d%s", l.Port(), callbackPath)
}

// Port returns the bound port. When the session requested port 0 this is the
// ephemeral port the OS picked.
func (l *Listener) Port() int {
	if l.ln != nil {
		return l.ln.Addr().(*net.TCPAddr).Port
	}
	return l.session.Port
}

// Wait blocks until a valid callback is captured, the configured timeout
// expires, the handshake is rejected, or ctx is cancelled. In every case the
// listener is fully closed before Wait returns, releasing the port.
func (l *Listener) Wait(ctx context.Context) (string, error) {
	defer l.Close()
	timer := time.NewTimer(time.Until(l.session.Deadline))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", &CallbackTimeoutError{Timeout: l.opts.Timeout}
	case err := <-l.errCh:
		return "", err
	case code := <-l.codeCh:
		return code, nil
	}
}

// Close shuts the listener down. It is idempotent and safe to call at any
// point after Start.
func (l *Listener) Close() {
	l.closeMu.Do(func() {
		if l.server != nil {
			_ = l.server.Close()
		}
	})
}

func (l *Listener) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != callbackPath {
		http.NotFound(w, r)
		return
	}
	if l.captured.Load() {
		writePage(w, http.StatusGone, "Login already completed", "This window can be closed.")
		return
	}
	query := r.URL.Query()
	if errCode := query.Get("error"); errCode != "" {
		desc := query.Get("error_description")
		l.fail(&AuthenticationError{Code: errCode, Description: desc})
		writePage(w, http.StatusBadRequest, "Authentication Failed", fmt.Sprintf("Error: %s\n%s", errCode, desc))
		return
	}
	if query.Get("state") != l.session.State {
		writePage(w, http.StatusBadRequest, "Authentication Failed", "The request could not be validated.")
		if l.opts.RetryOnMismatch && !l.rejected.Swap(true) {
			// One further attempt is allowed; keep listening.
			return
		}
		l.fail(&AuthenticationError{Code: "state_mismatch", Description: "callback state did not match this session"})
		return
	}
	code := query.Get("code")
	if code == "" {
		l.fail(&AuthenticationError{Code: "missing_code", Description: "callback carried no authorization code"})
		writePage(w, http.StatusBadRequest, "Authentication Failed", "No authorization code was returned.")
		return
	}
	if !l.captured.CompareAndSwap(false, true) {
		writePage(w, http.StatusGone, "Login already completed", "This window can be closed.")
		return
	}
	writePage(w, http.StatusOK, "Authentication Successful", "You can close this window and return to the terminal.")
	l.codeCh <- code
}

func (l *Listener) fail(err error) {
	select {
	case l.errCh <- err:
	default:
	}
}

func writePage(w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, "<html><body><h1>%s</h1><p>%s</p></body></html>", title, body)
}
