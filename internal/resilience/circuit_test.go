package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/loja-api/internal/resilience"
)

func TestBreakerOpensAndRecovers(t *testing.T) {
	breaker := resilience.NewBreaker(2, 0.5, 50*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.True(t, breaker.Allow(ctx))
		breaker.Report(ctx, false)
	}
	require.False(t, breaker.Allow(ctx))
	require.Equal(t, resilience.Open, breaker.State())

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, resilience.HalfOpen, breaker.State())
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, true)
	require.Equal(t, resilience.Closed, breaker.State())
	require.True(t, breaker.Allow(ctx))
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, base},
		{1, base},
		{2, 2 * base},
		{3, 4 * base},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, resilience.Backoff(base, tc.attempt, 0))
	}

	for i := 0; i < 50; i++ {
		d := resilience.Backoff(base, 2, 0.2)
		require.InDelta(t, float64(2*base), float64(d), float64(2*base)*0.2)
	}
}

func TestBreakerAdmitsSingleProbe(t *testing.T) {
	breaker := resilience.NewBreaker(1, 0.5, 20*time.Millisecond)
	ctx := context.Background()

	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())

	require.Eventually(t, func() bool { return breaker.Allow(ctx) }, 200*time.Millisecond, 5*time.Millisecond)
	require.False(t, breaker.Allow(ctx), "a second caller must wait for the probe")

	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.False(t, breaker.Allow(ctx))
}

func TestBreakerStaysClosedBelowRatio(t *testing.T) {
	breaker := resilience.NewBreaker(4, 0.5, time.Minute)
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		breaker.Report(ctx, i%4 != 0)
	}
	require.Equal(t, resilience.Closed, breaker.State())
	require.Equal(t, "closed", breaker.State().String())
}
