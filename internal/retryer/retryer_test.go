package retryer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/merganser/internal/mergerr"
)

func initLogger(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))
}

// minInterval returns the smallest possible pause between two tries.
func minInterval(r *Retryer) time.Duration {
	return time.Duration(float64(r.backoffInitialInterval) * (1 - r.backoffRandomizationFactor))
}

func TestDefaultTimeout(t *testing.T) {
	initLogger(t)

	r := New()
	defer r.Stop()
	r.defTimeout = time.Second

	retryableErr := mergerr.NewRetryableAnytimeError(errors.New("operation failed"))

	err := r.Run(context.Background(), func(context.Context) error {
		return retryableErr
	}, nil)

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryAfterInThePast(t *testing.T) {
	initLogger(t)

	r := New()
	defer r.Stop()
	r.backoffInitialInterval = 100 * time.Millisecond

	const tries = 3
	var tryTimes []time.Time

	err := r.Run(context.Background(), func(context.Context) error {
		tryTimes = append(tryTimes, time.Now())
		if len(tryTimes) == tries {
			return nil
		}

		return mergerr.NewRetryableError(
			errors.New("operation failed"),
			time.Now().Add(-time.Hour),
		)
	}, nil)
	require.NoError(t, err)
	require.Len(t, tryTimes, tries)

	min := minInterval(r)
	for i := 1; i < len(tryTimes); i++ {
		interval := tryTimes[i].Sub(tryTimes[i-1])
		require.GreaterOrEqualf(
			t, interval, min,
			"interval between try %d and %d was %s, expecting >=%s",
			i-1, i, interval, min,
		)
	}
}

func TestBackoffInterval(t *testing.T) {
	initLogger(t)

	r := New()
	defer r.Stop()
	r.backoffInitialInterval = 100 * time.Millisecond

	const tries = 3
	var tryTimes []time.Time

	err := r.Run(context.Background(), func(context.Context) error {
		tryTimes = append(tryTimes, time.Now())
		if len(tryTimes) == tries {
			return nil
		}

		return mergerr.NewRetryableAnytimeError(errors.New("operation failed"))
	}, nil)
	require.NoError(t, err)
	require.Len(t, tryTimes, tries)

	min := minInterval(r)
	for i := 1; i < len(tryTimes); i++ {
		interval := tryTimes[i].Sub(tryTimes[i-1])
		require.GreaterOrEqualf(
			t, interval, min,
			"interval between try %d and %d was %s, expecting >=%s",
			i-1, i, interval, min,
		)
	}
}

func TestRetryAfterIsHonored(t *testing.T) {
	initLogger(t)

	r := New()
	defer r.Stop()
	r.backoffInitialInterval = time.Millisecond

	const after = 300 * time.Millisecond
	var tryTimes []time.Time

	err := r.Run(context.Background(), func(context.Context) error {
		tryTimes = append(tryTimes, time.Now())
		if len(tryTimes) == 2 {
			return nil
		}

		return mergerr.NewRetryableError(
			errors.New("operation failed"),
			time.Now().Add(after),
		)
	}, nil)
	require.NoError(t, err)
	require.Len(t, tryTimes, 2)

	interval := tryTimes[1].Sub(tryTimes[0])
	require.GreaterOrEqualf(
		t, interval, after/2,
		"2nd try ran %s after the first one, expecting >=%s",
		interval, after/2,
	)
}

func TestNonRetryableErrorIsReturned(t *testing.T) {
	initLogger(t)

	r := New()
	defer r.Stop()

	opErr := errors.New("operation failed permanently")

	var tryCnt int
	err := r.Run(context.Background(), func(context.Context) error {
		tryCnt++
		return opErr
	}, nil)

	require.ErrorIs(t, err, opErr)
	require.Equal(t, 1, tryCnt)
}

func TestStopCancelsRun(t *testing.T) {
	initLogger(t)

	r := New()
	r.backoffInitialInterval = time.Minute

	runTerminated := make(chan error, 1)
	firstTry := make(chan struct{})

	go func() {
		var once bool
		runTerminated <- r.Run(context.Background(), func(context.Context) error {
			if !once {
				once = true
				close(firstTry)
			}

			return mergerr.NewRetryableAnytimeError(errors.New("operation failed"))
		}, nil)
	}()

	<-firstTry
	r.Stop()
	// Stop() must be idempotent
	r.Stop()

	select {
	case err := <-runTerminated:
		require.ErrorIs(t, err, ErrStopped)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not terminate after the retryer was stopped")
	}
}
