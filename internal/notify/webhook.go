package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/logfields"
	"github.com/simplesurance/merganser/internal/mergerr"
)

// DefaultHTTPClientTimeout bounds a single webhook request.
const DefaultHTTPClientTimeout = time.Minute

// Retryer is an interface used for repeating webhook requests that fail
// with a temporary error.
type Retryer interface {
	Run(context.Context, func(context.Context) error, []zap.Field) error
}

// RequestError is returned when the webhook endpoint answered with an
// unexpected status code.
type RequestError struct {
	Status int
	Body   []byte
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("webhook request failed with status code: %d, response: %q", e.Status, string(e.Body))
}

// Webhook posts notifications as JSON to a fixed URL.
type Webhook struct {
	url     string
	client  *http.Client
	retryer Retryer
	logger  *zap.Logger
}

// NewWebhook returns a webhook notifier for the given URL.
// The HTTP client of the webhook uses a timeout of
// DefaultHTTPClientTimeout per request.
func NewWebhook(url string, retryer Retryer) *Webhook {
	return &Webhook{
		url: url,
		client: &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		},
		retryer: retryer,
		logger:  zap.L().Named("notify"),
	}
}

// Notify sends the notification to the configured URL.
// Connection errors and server side errors are retried until ctx is
// cancelled or the retryer gives up. Failures are logged, a lost
// notification does not interfere with merging.
func (w *Webhook) Notify(ctx context.Context, notification *Notification) {
	logFields := []zap.Field{
		logfields.Project(notification.Project),
		logfields.MergeRequest(notification.MergeRequest),
		zap.String("http_url", w.url),
	}
	logger := w.logger.With(logFields...)

	body, err := json.Marshal(notification)
	if err != nil {
		logger.Error(
			"marshaling notification failed",
			logfields.Event("notification_marshaling_failed"),
			zap.Error(err),
		)

		return
	}

	err = w.retryer.Run(ctx, func(ctx context.Context) error {
		return w.post(ctx, body)
	}, logFields)

	if err != nil {
		logger.Warn(
			"sending notification failed",
			logfields.Event("notification_sending_failed"),
			zap.Error(err),
		)

		return
	}

	logger.Debug(
		"notification sent",
		logfields.Event("notification_sent"),
	)
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return mergerr.NewRetryableAnytimeError(err)
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		respBody = nil
	}

	if resp.StatusCode >= 500 {
		return mergerr.NewRetryableAnytimeError(&RequestError{
			Status: resp.StatusCode,
			Body:   respBody,
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{
			Status: resp.StatusCode,
			Body:   respBody,
		}
	}

	return nil
}
