package gitlabclt

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/xanzy/go-gitlab"

	"github.com/simplesurance/merganser/internal/logfields"
)

// ErrRebaseTimeout is returned when GitLab did not finish rebasing a merge
// request in time.
var ErrRebaseTimeout = errors.New("timed out waiting for gitlab to finish the rebase")

// RebaseFailedError is returned when GitLab could not rebase the source
// branch of a merge request onto its target branch.
type RebaseFailedError struct {
	Message string
}

func (e *RebaseFailedError) Error() string {
	return "gitlab failed to rebase the merge request: " + e.Message
}

// MergeRequest fetches the current state of a merge request.
func (clt *Client) MergeRequest(ctx context.Context, projectID, iid int) (*gitlab.MergeRequest, error) {
	mr, _, err := clt.api.MergeRequests.GetMergeRequest(
		projectID,
		iid,
		&gitlab.GetMergeRequestsOptions{IncludeRebaseInProgress: gitlab.Bool(true)},
		gitlab.WithContext(ctx),
	)
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return mr, nil
}

// OpenAssignedMergeRequests returns all open merge requests of a project
// that are assigned to the given user.
// The result is ordered by the orderBy field in ascending order.
func (clt *Client) OpenAssignedMergeRequests(ctx context.Context, projectID, userID int, orderBy string) ([]*gitlab.MergeRequest, error) {
	var result []*gitlab.MergeRequest

	options := gitlab.ListProjectMergeRequestsOptions{
		State:       gitlab.String("opened"),
		OrderBy:     gitlab.String(orderBy),
		Sort:        gitlab.String("asc"),
		ListOptions: gitlab.ListOptions{PerPage: apiPageSize},
	}

	for {
		mrs, resp, err := clt.api.MergeRequests.ListProjectMergeRequests(projectID, &options, gitlab.WithContext(ctx))
		if err != nil {
			return nil, clt.wrapRetryableErrors(err)
		}

		for _, mr := range mrs {
			if isAssignedTo(mr, userID) {
				result = append(result, mr)
			}
		}

		if resp.CurrentPage >= resp.TotalPages {
			break
		}
		options.Page = resp.NextPage
	}

	return result, nil
}

func isAssignedTo(mr *gitlab.MergeRequest, userID int) bool {
	for _, assignee := range mr.Assignees {
		if assignee != nil && assignee.ID == userID {
			return true
		}
	}

	return mr.Assignee != nil && mr.Assignee.ID == userID
}

// AssignedAt returns the time at which the merge request was last assigned
// to the user, taken from the system notes of the merge request.
// The zero time is returned when no assignment note exists.
func (clt *Client) AssignedAt(ctx context.Context, projectID, iid int, username string) (time.Time, error) {
	var assignedAt time.Time

	match := "assigned to @" + username

	options := gitlab.ListMergeRequestDiscussionsOptions{PerPage: apiPageSize}
	for {
		discussions, resp, err := clt.api.Discussions.ListMergeRequestDiscussions(projectID, iid, &options, gitlab.WithContext(ctx))
		if err != nil {
			return time.Time{}, clt.wrapRetryableErrors(err)
		}

		for _, discussion := range discussions {
			for _, note := range discussion.Notes {
				if note.CreatedAt == nil || !strings.Contains(note.Body, match) {
					continue
				}

				if note.CreatedAt.After(assignedAt) {
					assignedAt = *note.CreatedAt
				}
			}
		}

		if resp.CurrentPage >= resp.TotalPages {
			break
		}
		options.Page = resp.NextPage
	}

	return assignedAt, nil
}

// Comment posts a comment on the merge request.
func (clt *Client) Comment(ctx context.Context, projectID, iid int, message string) error {
	_, _, err := clt.api.Notes.CreateMergeRequestNote(
		projectID,
		iid,
		&gitlab.CreateMergeRequestNoteOptions{Body: &message},
		gitlab.WithContext(ctx),
	)

	return clt.wrapRetryableErrors(err)
}

// AssignMergeRequest changes the assignee of the merge request.
// Passing 0 as userID removes all assignees.
func (clt *Client) AssignMergeRequest(ctx context.Context, projectID, iid, userID int) error {
	_, _, err := clt.api.MergeRequests.UpdateMergeRequest(
		projectID,
		iid,
		&gitlab.UpdateMergeRequestOptions{AssigneeID: &userID},
		gitlab.WithContext(ctx),
	)

	return clt.wrapRetryableErrors(err)
}

// AcceptMROptions are the parameters for merging a merge request.
type AcceptMROptions struct {
	// SHA must be the head commit of the source branch, GitLab refuses
	// the merge when it differs.
	SHA                       string
	Squash                    bool
	RemoveSourceBranch        bool
	MergeWhenPipelineSucceeds bool
}

// AcceptMergeRequest merges the merge request.
func (clt *Client) AcceptMergeRequest(ctx context.Context, projectID, iid int, opts *AcceptMROptions) (*gitlab.MergeRequest, error) {
	mr, _, err := clt.api.MergeRequests.AcceptMergeRequest(
		projectID,
		iid,
		&gitlab.AcceptMergeRequestOptions{
			SHA:                       &opts.SHA,
			Squash:                    &opts.Squash,
			ShouldRemoveSourceBranch:  &opts.RemoveSourceBranch,
			MergeWhenPipelineSucceeds: &opts.MergeWhenPipelineSucceeds,
		},
		gitlab.WithContext(ctx),
	)
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return mr, nil
}

// MergeRequestCommits returns the commits of the merge request, newest
// first.
func (clt *Client) MergeRequestCommits(ctx context.Context, projectID, iid int) ([]*gitlab.Commit, error) {
	var result []*gitlab.Commit

	options := gitlab.GetMergeRequestCommitsOptions{PerPage: apiPageSize}
	for {
		commits, resp, err := clt.api.MergeRequests.GetMergeRequestCommits(projectID, iid, &options, gitlab.WithContext(ctx))
		if err != nil {
			return nil, clt.wrapRetryableErrors(err)
		}

		result = append(result, commits...)

		if resp.CurrentPage >= resp.TotalPages {
			break
		}
		options.Page = resp.NextPage
	}

	return result, nil
}

// RebaseMergeRequest makes GitLab rebase the source branch of the merge
// request onto its target branch and waits until the rebase finished.
// When a rebase is already running, no new one is started and the running
// one is awaited instead.
func (clt *Client) RebaseMergeRequest(ctx context.Context, projectID, iid int) error {
	mr, err := clt.MergeRequest(ctx, projectID, iid)
	if err != nil {
		return err
	}

	logger := clt.logger.With(
		logfields.ProjectID(projectID),
		logfields.MergeRequest(iid),
	)

	if mr.RebaseInProgress {
		logger.Debug(
			"a rebase is already running for the merge request",
			logfields.Event("gitlab_rebase_already_running"),
		)
	} else {
		_, err := clt.api.MergeRequests.RebaseMergeRequest(projectID, iid, gitlab.WithContext(ctx))
		if err != nil {
			return clt.wrapRetryableErrors(err)
		}
	}

	ticker := time.NewTicker(clt.rebasePollInterval)
	defer ticker.Stop()

	waitTimeout := time.After(clt.rebaseWaitTimeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-waitTimeout:
			return ErrRebaseTimeout

		case <-ticker.C:
			mr, err := clt.MergeRequest(ctx, projectID, iid)
			if err != nil {
				return err
			}

			if mr.RebaseInProgress {
				continue
			}

			if mr.MergeError != "" {
				return &RebaseFailedError{Message: mr.MergeError}
			}

			logger.Debug(
				"gitlab finished rebasing the merge request",
				logfields.Event("gitlab_rebase_finished"),
			)

			return nil
		}
	}
}
