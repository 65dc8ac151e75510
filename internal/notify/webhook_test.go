package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/merganser/internal/mergerr"
	"github.com/simplesurance/merganser/internal/retryer"
)

var testNotification = Notification{
	Project:      "group/proj",
	ProjectID:    5,
	MergeRequest: 81,
	Title:        "Add frobnicator",
	SourceBranch: "feature",
	TargetBranch: "main",
	WebURL:       "https://gitlab.test/group/proj/-/merge_requests/81",
	Conclusion:   "merged",
}

func TestNotifySendsNotificationAsJSON(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	var received Notification
	var contentType string
	var method string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
	}))
	t.Cleanup(srv.Close)

	w := NewWebhook(srv.URL, retryer.New())
	w.Notify(context.Background(), &testNotification)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, testNotification, received)
}

func TestPostServerErrorsAreRetryable(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	w := NewWebhook(srv.URL, retryer.New())
	err := w.post(context.Background(), []byte("{}"))

	var retryErr *mergerr.RetryableError
	require.ErrorAs(t, err, &retryErr)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusServiceUnavailable, reqErr.Status)
}

func TestPostClientErrorsAreNotRetried(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such hook", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	w := NewWebhook(srv.URL, retryer.New())
	err := w.post(context.Background(), []byte("{}"))

	var retryErr *mergerr.RetryableError
	assert.False(t, errors.As(err, &retryErr))

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotFound, reqErr.Status)
}

func TestNotifyGivesUpOnClientErrors(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Error(w, "rejected", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	w := NewWebhook(srv.URL, retryer.New())
	w.Notify(context.Background(), &testNotification)

	assert.EqualValues(t, 1, atomic.LoadInt32(&requests))
}
