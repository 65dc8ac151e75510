// Package gitlabclt provides a GitLab API client.
package gitlabclt

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "gitlab_client"

// apiPageSize is the number of elements that paginated API endpoints are
// asked to return per page.
const apiPageSize = 100

// Client is a GitLab API client.
// All methods return a mergerr.RetryableError when an operation failed
// temporarily and can be retried. This is e.g. the case when the API
// responded with a 5xx status code or the request rate limit was exhausted.
type Client struct {
	api    *gitlab.Client
	logger *zap.Logger

	rebasePollInterval time.Duration
	rebaseWaitTimeout  time.Duration

	mu      sync.Mutex
	version *Version
}

// New returns a client for the API of the GitLab installation served at
// gitlabURL.
func New(gitlabURL, apiToken string) (*Client, error) {
	api, err := gitlab.NewClient(
		apiToken,
		gitlab.WithBaseURL(gitlabURL),
		gitlab.WithHTTPClient(&http.Client{Timeout: DefaultHTTPClientTimeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab api client failed: %w", err)
	}

	return &Client{
		api:                api,
		logger:             zap.L().Named(loggerName),
		rebasePollInterval: time.Second,
		rebaseWaitTimeout:  30 * time.Second,
	}, nil
}

// CurrentUser returns the user that the API token belongs to.
func (clt *Client) CurrentUser(ctx context.Context) (*gitlab.User, error) {
	user, _, err := clt.api.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return user, nil
}

// User fetches the account with the given user id.
// The Email field of the result is only populated when the token user is an
// administrator.
func (clt *Client) User(ctx context.Context, userID int) (*gitlab.User, error) {
	user, _, err := clt.api.Users.GetUser(userID, gitlab.GetUsersOptions{}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return user, nil
}

// Version returns the version of the GitLab installation.
// The result of the first successful query is cached, subsequent calls
// return the cached version.
func (clt *Client) Version(ctx context.Context) (*Version, error) {
	clt.mu.Lock()
	defer clt.mu.Unlock()

	if clt.version != nil {
		return clt.version, nil
	}

	v, _, err := clt.api.Version.GetVersion(gitlab.WithContext(ctx))
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	version, err := ParseVersion(v.Version)
	if err != nil {
		return nil, fmt.Errorf("parsing gitlab version %q failed: %w", v.Version, err)
	}

	clt.version = version

	return version, nil
}
