package diag

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryReporter reports swallowed user-code errors and frame failures to
// Sentry. It is the production ErrorReporter; construct it with a DSN and
// install it with SetReporter. Hub-based and thread-safe, scoped down to
// the two things this module ever reports: a label and an error.
type SentryReporter struct {
	hub *sentry.Hub
}

// NewSentryReporter initializes a dedicated Sentry client/hub for dsn and
// wraps it as an ErrorReporter. An empty dsn is valid and yields a
// reporter that discards events (Sentry's own no-op transport), so a DSN
// stays optional for local development.
func NewSentryReporter(dsn string, opts ...SentryOption) (*SentryReporter, error) {
	clientOpts := sentry.ClientOptions{Dsn: dsn}
	for _, opt := range opts {
		opt(&clientOpts)
	}
	client, err := sentry.NewClient(clientOpts)
	if err != nil {
		return nil, err
	}
	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// SentryOption configures the underlying sentry.ClientOptions.
type SentryOption func(*sentry.ClientOptions)

// WithDebug toggles Sentry's own debug logging.
func WithDebug(debug bool) SentryOption {
	return func(o *sentry.ClientOptions) { o.Debug = debug }
}

// ReportError implements ErrorReporter.
func (r *SentryReporter) ReportError(label string, err error) {
	if r == nil || r.hub == nil || err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("label", label)
		r.hub.CaptureException(err)
	})
}

// Flush blocks until pending events are sent or timeout elapses.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	if r == nil || r.hub == nil || r.hub.Client() == nil {
		return true
	}
	return r.hub.Client().Flush(timeout)
}
