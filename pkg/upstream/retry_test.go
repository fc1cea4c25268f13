package upstream

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stacklok/toolhive-bridge/pkg/config"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		want   outcome
	}{
		{http.StatusOK, outcomeSuccess},
		{http.StatusAccepted, outcomeSuccess},
		{http.StatusUnauthorized, outcomeAuthStale},
		{http.StatusTooManyRequests, outcomeRateLimited},
		{http.StatusRequestTimeout, outcomeTransient},
		{http.StatusBadGateway, outcomeTransient},
		{http.StatusServiceUnavailable, outcomeTransient},
		{http.StatusGatewayTimeout, outcomeTransient},
		{http.StatusNotFound, outcomeClientError},
		{http.StatusInternalServerError, outcomeServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classify(tc.status), tc.status)
	}
}

func TestOutcome_Retryable(t *testing.T) {
	t.Parallel()

	assert.True(t, outcomeAuthStale.retryable())
	assert.True(t, outcomeRateLimited.retryable())
	assert.True(t, outcomeTransient.retryable())
	assert.True(t, outcomeTransportError.retryable())
	assert.False(t, outcomeSuccess.retryable())
	assert.False(t, outcomeClientError.retryable())
	assert.False(t, outcomeServerError.retryable())
}

func TestParseRetryAfter_Seconds(t *testing.T) {
	t.Parallel()

	d, ok := parseRetryAfter("2")
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)
}

func TestParseRetryAfter_Zero(t *testing.T) {
	t.Parallel()

	d, ok := parseRetryAfter("0")
	assert.True(t, ok)
	assert.Equal(t, time.Duration(0), d)
}

func TestParseRetryAfter_HTTPDate(t *testing.T) {
	t.Parallel()

	future := time.Now().Add(10 * time.Second).UTC()
	d, ok := parseRetryAfter(future.Format(http.TimeFormat))
	assert.True(t, ok)
	assert.InDelta(t, 10*time.Second, d, float64(2*time.Second))
}

func TestParseRetryAfter_Invalid(t *testing.T) {
	t.Parallel()

	_, ok := parseRetryAfter("not-a-valid-value")
	assert.False(t, ok)
}

func TestParseRetryAfter_Empty(t *testing.T) {
	t.Parallel()

	_, ok := parseRetryAfter("")
	assert.False(t, ok)
}

func TestClampRetryAfter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5*time.Second, clampRetryAfter(10*time.Second, 5*time.Second))
	assert.Equal(t, 3*time.Second, clampRetryAfter(3*time.Second, 5*time.Second))
	assert.Equal(t, time.Duration(0), clampRetryAfter(-1*time.Second, 5*time.Second))
}

func TestBackoffSchedule_ClampsToMaxDelay(t *testing.T) {
	t.Parallel()

	s := newBackoffSchedule(config.RetryTuning{
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       250 * time.Millisecond,
		JitterFraction: 0,
	})

	for i := 0; i < 5; i++ {
		d := s.next()
		assert.LessOrEqual(t, d, 250*time.Millisecond)
	}
}
