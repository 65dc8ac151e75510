package gitlabclt

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/logfields"
	"github.com/simplesurance/merganser/internal/mergerr"
)

func (clt *Client) wrapRetryableErrors(err error) error {
	var respErr *gitlab.ErrorResponse

	if !errors.As(err, &respErr) || respErr.Response == nil {
		return err
	}

	code := respErr.Response.StatusCode

	if code == http.StatusTooManyRequests {
		retryAfter := parseRetryAfterHeader(respErr.Response.Header)
		clt.logger.Info(
			"gitlab api request rate limit exceeded",
			logfields.Event("gitlab_api_rate_limit_exceeded"),
			zap.Duration("gitlab_api_retry_after", retryAfter),
		)

		if retryAfter > 0 {
			return mergerr.NewRetryableError(err, time.Now().Add(retryAfter))
		}

		return mergerr.NewRetryableAnytimeError(err)
	}

	if code >= 500 && code < 600 {
		return mergerr.NewRetryableAnytimeError(err)
	}

	return err
}

// parseRetryAfterHeader interprets the Retry-After response header.
// GitLab sends the value in seconds. 0 is returned when the header is
// missing or malformed.
func parseRetryAfterHeader(header http.Header) time.Duration {
	val := header.Get("Retry-After")
	if val == "" {
		return 0
	}

	secs, err := strconv.Atoi(val)
	if err != nil || secs < 0 {
		return 0
	}

	return time.Duration(secs) * time.Second
}

// HTTPStatus returns the status code of the GitLab API response that caused
// err.
// 0 is returned when err was not caused by an unsuccessful API response.
func HTTPStatus(err error) int {
	var respErr *gitlab.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode
	}

	return 0
}

// ErrorMessage returns the error description that GitLab sent in the body of
// an unsuccessful API response.
func ErrorMessage(err error) string {
	var respErr *gitlab.ErrorResponse
	if errors.As(err, &respErr) {
		return respErr.Message
	}

	return ""
}

func IsUnauthorized(err error) bool {
	return HTTPStatus(err) == http.StatusUnauthorized
}

func IsForbidden(err error) bool {
	return HTTPStatus(err) == http.StatusForbidden
}

func IsNotFound(err error) bool {
	return HTTPStatus(err) == http.StatusNotFound
}

func IsMethodNotAllowed(err error) bool {
	return HTTPStatus(err) == http.StatusMethodNotAllowed
}

func IsNotAcceptable(err error) bool {
	return HTTPStatus(err) == http.StatusNotAcceptable
}

func IsConflict(err error) bool {
	return HTTPStatus(err) == http.StatusConflict
}

func IsUnprocessable(err error) bool {
	return HTTPStatus(err) == http.StatusUnprocessableEntity
}
