// Package telemetry wires Sentry error tracking.
//
// Usage in main.go:
//
//	telemetry.InitSentry(cfg.SentryDSN, "web", cfg.Environment, version)
//	defer telemetry.Flush()
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry initializes the Sentry SDK. An empty dsn leaves Sentry disabled, which is not an error.
func InitSentry(dsn, service, environment, release string) (bool, error) {
	if dsn == "" {
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
		Tags: map[string]string{
			"service": service,
		},
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			return scrubRequest(event)
		},
	})
	if err != nil {
		return false, fmt.Errorf("sentry.Init: %w", err)
	}
	return true, nil
}

// CaptureError sends err to Sentry with optional tags. Safe to call when Sentry is disabled.
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits briefly for buffered events before the process exits.
func Flush() {
	sentry.Flush(2 * time.Second)
}

// scrubRequest drops cookies and auth headers; the admin session token lives there.
func scrubRequest(event *sentry.Event) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}
	event.Request.Cookies = ""
	for key := range event.Request.Headers {
		switch key {
		case "Authorization", "Cookie":
			event.Request.Headers[key] = "[redacted]"
		}
	}
	return event
}
