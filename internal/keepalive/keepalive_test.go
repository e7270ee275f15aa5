package keepalive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_RejectsMissingURL(t *testing.T) {
	w := New("", 240000, 10000)
	err := w.Validate()
	require.Error(t, err)
}

func TestValidate_RejectsIntervalBelowFloor(t *testing.T) {
	w := New("https://example.com", 1000, 10000)
	err := w.Validate()
	require.Error(t, err)
}

func TestValidate_RejectsTimeoutBelowFloor(t *testing.T) {
	w := New("https://example.com", 240000, 0)
	err := w.Validate()
	require.Error(t, err)
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	w := New("https://example.com", 240000, 10000)
	assert.NoError(t, w.Validate())
}

func TestRun_PingsUntilCancelled(t *testing.T) {
	hits := make(chan struct{}, 8)
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		hits <- struct{}{}
		rw.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	w := New(ts.URL, 60000, 1000)
	w.Interval = 10 * time.Millisecond
	require.NoError(t, w.Validate())

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	assert.GreaterOrEqual(t, len(hits), 2)
}

func TestRun_SwallowsDownstreamErrors(t *testing.T) {
	w := New("http://127.0.0.1:1", 60000, 1000)
	w.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()
	w.Run(ctx) // must return cleanly, not panic, despite an unreachable target
}
