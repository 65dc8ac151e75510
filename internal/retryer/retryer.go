// Package retryer runs operations repeatedly until they succeed, fail
// permanently or their context expires.
package retryer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cenkalti/backoff"

	"github.com/simplesurance/merganser/internal/logfields"
	"github.com/simplesurance/merganser/internal/mergerr"
)

// defTimeout bounds a Run() invocation when the passed context has no
// deadline.
const defTimeout = 20 * time.Minute

// ErrStopped is returned by Run when the Retryer was stopped while an
// operation was waiting for its next try.
var ErrStopped = errors.New("retryer terminated")

// Retryer executes a function repeatedly until it was successful or a cancel
// condition happened.
type Retryer struct {
	logger                     *zap.Logger
	defTimeout                 time.Duration
	backoffInitialInterval     time.Duration
	backoffRandomizationFactor float64
	shutdownChan               chan struct{}
}

func New() *Retryer {
	return &Retryer{
		logger:                     zap.L().Named("retryer"),
		defTimeout:                 defTimeout,
		backoffInitialInterval:     5 * time.Second,
		backoffRandomizationFactor: backoff.DefaultRandomizationFactor,
		shutdownChan:               make(chan struct{}),
	}
}

// Run executes fn until it succeeds, it returns an error that does not wrap
// mergerr.RetryableError, or the context is cancelled.
// When ctx carries no deadline, the Retryer default timeout applies.
func (r *Retryer) Run(ctx context.Context, fn func(context.Context) error, logF []zap.Field) error {
	var tryCnt uint

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancelFunc context.CancelFunc
		ctx, cancelFunc = context.WithTimeout(ctx, r.defTimeout)
		defer cancelFunc()
	}

	retryTimer := time.NewTimer(0)
	defer retryTimer.Stop()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.backoffInitialInterval
	bo.RandomizationFactor = r.backoffRandomizationFactor
	bo.MaxElapsedTime = 0

	for {
		tryCnt++
		logger := r.logger.With(append([]zap.Field{zap.Uint("try_count", tryCnt)}, logF...)...)

		select {
		case <-ctx.Done():
			logger.Debug(
				"operation cancelled",
				logfields.Event("operation_cancelled"),
			)

			return ctx.Err()

		case <-retryTimer.C:
			err := fn(ctx)
			if err != nil {
				var retryError *mergerr.RetryableError

				logger = logger.With(zap.Error(err))

				if errors.Is(err, context.Canceled) {
					logger.Debug(
						"operation cancelled",
						logfields.Event("operation_cancelled"),
					)

					return err
				}

				if errors.As(err, &retryError) {
					retryIn := bo.NextBackOff()
					if !retryError.After.IsZero() {
						if until := time.Until(retryError.After); until > retryIn {
							retryIn = until
						}
					}

					retryTimer.Reset(retryIn)
					retriesMetric.Inc()
					logger.Debug(
						"operation failed, retry scheduled",
						logfields.Event("operation_retry_scheduled"),
						zap.Duration("retry_in", retryIn),
						zap.Duration("age", bo.GetElapsedTime()),
					)

					continue
				}

				logger.Debug(
					"operation failed, not retryable",
					logfields.Event("operation_failed"),
				)

				return err
			}

			if tryCnt > 1 {
				logger.Debug(
					"operation succeeded after retrying",
					logfields.Event("operation_succeeded"),
					zap.Duration("age", bo.GetElapsedTime()),
				)
			}

			return nil

		case <-r.shutdownChan:
			logger.Info(
				"terminating, operation not executed",
				logfields.Event("operation_cancelled_retryer_terminated"),
			)

			return ErrStopped
		}
	}
}

// Stop notifies all Run() methods to terminate.
// It does not wait for their termination.
func (r *Retryer) Stop() {
	r.logger.Debug("retryer terminating", logfields.Event("retryer_terminating"))

	select {
	case <-r.shutdownChan:
		return // already closed
	default:
		close(r.shutdownChan)
	}
}
