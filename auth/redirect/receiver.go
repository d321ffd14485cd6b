// Package redirect serves the OAuth redirect URI on loopback. Each request
// acts as a secondary browsing context: it forwards the code and state to the
// main context and holds the response until it is told to close.
package redirect

import (
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/go-phase-session/auth"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultCloseTimeout = 30 * time.Second

var ErrWindowClosed = errors.New("window closed")

// Receiver is an http.Handler for the OAuth redirect URI.
type Receiver struct {
	inbox        chan<- auth.Message
	origin       string
	closeTimeout time.Duration
	logger       zerolog.Logger
	nowTime      func() time.Time
}

// Option configures a Receiver.
type Option func(*Receiver)

func WithCloseTimeout(d time.Duration) Option {
	return func(r *Receiver) {
		r.closeTimeout = d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Receiver) {
		r.logger = logger
	}
}

// NewReceiver posts redirects to inbox as messages from origin.
func NewReceiver(inbox chan<- auth.Message, origin string, options ...Option) (*Receiver, error) {
	if inbox == nil {
		return nil, errors.New("[NewReceiver] inbox is required")
	}
	if origin == "" {
		return nil, errors.New("[NewReceiver] origin is required")
	}
	r := &Receiver{
		inbox:        inbox,
		origin:       origin,
		closeTimeout: defaultCloseTimeout,
		logger:       log.Logger,
		nowTime:      time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

func (r *Receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	code := query.Get("code")
	providerErr := query.Get("error")
	if code == "" && providerErr == "" {
		writePage(w, http.StatusBadRequest, "Missing authorization code.")
		return
	}
	if providerErr != "" {
		r.logger.Warn().Str("event", "oauth_redirect_error").Str("error", providerErr).Msg("provider returned an error")
		code = ""
	}

	port := newWindowPort(r.origin)
	defer port.shut()

	msg := auth.Message{
		Origin:     r.origin,
		Code:       code,
		State:      query.Get("state"),
		Error:      providerErr,
		Source:     port,
		ReceivedAt: r.nowTime(),
	}

	select {
	case r.inbox <- msg:
	case <-req.Context().Done():
		return
	}

	timer := time.NewTimer(r.closeTimeout)
	defer timer.Stop()

	status, text := http.StatusOK, "Login complete. You can close this window."
	if providerErr != "" {
		status, text = http.StatusBadRequest, "Authorization failed: "+providerErr+". You can close this window."
	}

	select {
	case <-port.closed:
		writePage(w, status, text)
	case <-timer.C:
		r.logger.Debug().Str("event", "oauth_redirect_timeout").Msg("no close received")
		if providerErr != "" {
			writePage(w, status, text)
			return
		}
		writePage(w, http.StatusOK, "Login is still in progress. You can close this window.")
	case <-req.Context().Done():
	}
}

// windowPort is the reply port of one redirect request. Posts after the
// request has finished fail with ErrWindowClosed.
type windowPort struct {
	origin string
	closed chan struct{}

	lock      sync.Mutex
	done      bool
	closeOnce sync.Once
}

func newWindowPort(origin string) *windowPort {
	return &windowPort{origin: origin, closed: make(chan struct{})}
}

func (p *windowPort) PostMessage(msg string, targetOrigin string) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.done {
		return ErrWindowClosed
	}
	// a mismatched target origin is dropped without error
	if targetOrigin != p.origin {
		return nil
	}
	if msg == auth.CloseMessage {
		p.closeOnce.Do(func() { close(p.closed) })
	}
	return nil
}

func (p *windowPort) shut() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.done = true
}

func writePage(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text + "\n"))
}
