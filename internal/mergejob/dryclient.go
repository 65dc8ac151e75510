package mergejob

import (
	"context"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/gitcmd"
	"github.com/simplesurance/merganser/internal/gitlabclt"
	"github.com/simplesurance/merganser/internal/logfields"
)

// DryGitlabClient wraps a GitlabClient and simulates all mutating
// operations. Reads are forwarded to the wrapped client, mutations are
// only logged.
type DryGitlabClient struct {
	GitlabClient
	logger *zap.Logger
}

func NewDryGitlabClient(clt GitlabClient) *DryGitlabClient {
	return &DryGitlabClient{
		GitlabClient: clt,
		logger:       zap.L().Named("dry_gitlab_client"),
	}
}

// dryRun reports if client or repo is a dry wrapper.
// Jobs check it where they would otherwise wait for remote state that
// only a real push can create, and continue with the current remote head
// instead.
func dryRun(client GitlabClient, repo Worktree) bool {
	type marker interface{ simulatesMutations() }

	if _, ok := client.(marker); ok {
		return true
	}

	_, ok := repo.(marker)

	return ok
}

func (c *DryGitlabClient) simulatesMutations() {}

func (c *DryGitlabClient) Comment(_ context.Context, projectID, iid int, message string) error {
	c.logger.Info(
		"simulated posting a comment",
		logfields.ProjectID(projectID),
		logfields.MergeRequest(iid),
		zap.String("comment", message),
	)

	return nil
}

func (c *DryGitlabClient) AssignMergeRequest(_ context.Context, projectID, iid, userID int) error {
	c.logger.Info(
		"simulated assigning the merge request",
		logfields.ProjectID(projectID),
		logfields.MergeRequest(iid),
		zap.Int("gitlab.assignee_id", userID),
	)

	return nil
}

// AcceptMergeRequest reports the merge request as merged without merging
// it, so that dry-run jobs conclude like real ones.
func (c *DryGitlabClient) AcceptMergeRequest(_ context.Context, projectID, iid int, opts *gitlabclt.AcceptMROptions) (*gitlab.MergeRequest, error) {
	c.logger.Info(
		"simulated accepting the merge request",
		logfields.ProjectID(projectID),
		logfields.MergeRequest(iid),
		logfields.Commit(opts.SHA),
	)

	return &gitlab.MergeRequest{
		IID:       iid,
		ProjectID: projectID,
		State:     "merged",
		SHA:       opts.SHA,
	}, nil
}

func (c *DryGitlabClient) RebaseMergeRequest(_ context.Context, projectID, iid int) error {
	c.logger.Info(
		"simulated rebasing the merge request",
		logfields.ProjectID(projectID),
		logfields.MergeRequest(iid),
	)

	return nil
}

func (c *DryGitlabClient) ApproveMergeRequest(_ context.Context, projectID, iid, asUserID int) error {
	c.logger.Info(
		"simulated approving the merge request",
		logfields.ProjectID(projectID),
		logfields.MergeRequest(iid),
		zap.Int("gitlab.approver_id", asUserID),
	)

	return nil
}

func (c *DryGitlabClient) TriggerPipeline(_ context.Context, projectID, iid int, ref string) error {
	c.logger.Info(
		"simulated triggering a pipeline",
		logfields.ProjectID(projectID),
		logfields.MergeRequest(iid),
		logfields.Branch(ref),
	)

	return nil
}

// DryWorktree wraps a Worktree and simulates the operations that modify
// the remote repository. Local operations run for real, rebase and
// trailer results are computed like in a regular run.
type DryWorktree struct {
	Worktree
	logger *zap.Logger
}

func NewDryWorktree(repo Worktree) *DryWorktree {
	return &DryWorktree{
		Worktree: repo,
		logger:   zap.L().Named("dry_worktree"),
	}
}

func (w *DryWorktree) simulatesMutations() {}

func (w *DryWorktree) Push(_ context.Context, branch string, _ *gitcmd.PushOptions) error {
	w.logger.Info("simulated pushing a branch", logfields.Branch(branch))
	return nil
}

func (w *DryWorktree) DeleteRemoteBranch(_ context.Context, branch string) error {
	w.logger.Info("simulated deleting a remote branch", logfields.Branch(branch))
	return nil
}
