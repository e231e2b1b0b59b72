package telemetry

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSentryDisabledWithoutDSN(t *testing.T) {
	enabled, err := InitSentry("", "web", "test", "dev")
	require.NoError(t, err)
	assert.False(t, enabled)

	// Must not panic with no client bound.
	CaptureError(errors.New("boom"), map[string]string{"op": "test"})
	CaptureError(nil, nil)
}

func TestScrubRequestRedactsSecrets(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{
		Cookies: "cinema_admin=token",
		Headers: map[string]string{
			"Authorization": "Bearer token",
			"Cookie":        "cinema_admin=token",
			"Accept":        "text/html",
		},
	}}

	got := scrubRequest(event)
	assert.Empty(t, got.Request.Cookies)
	assert.Equal(t, "[redacted]", got.Request.Headers["Authorization"])
	assert.Equal(t, "[redacted]", got.Request.Headers["Cookie"])
	assert.Equal(t, "text/html", got.Request.Headers["Accept"])

	assert.Nil(t, scrubRequest(nil))
}
