package mergejob

import (
	"context"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/gitcmd"
	"github.com/simplesurance/merganser/internal/gitlabclt"
)

// GitlabClient is the platform API surface that jobs use.
type GitlabClient interface {
	MergeRequest(ctx context.Context, projectID, iid int) (*gitlab.MergeRequest, error)
	Project(ctx context.Context, projectID int) (*gitlab.Project, error)
	Branch(ctx context.Context, projectID int, name string) (*gitlab.Branch, error)
	User(ctx context.Context, userID int) (*gitlab.User, error)
	MergeRequestApprovals(ctx context.Context, projectID, iid int) (*gitlabclt.Approvals, error)
	MergeRequestCommits(ctx context.Context, projectID, iid int) ([]*gitlab.Commit, error)
	MergeRequestPipelines(ctx context.Context, projectID, iid int) ([]*gitlab.PipelineInfo, error)
	BranchPipelines(ctx context.Context, projectID int, branch string) ([]*gitlab.PipelineInfo, error)
	Comment(ctx context.Context, projectID, iid int, message string) error
	AssignMergeRequest(ctx context.Context, projectID, iid, userID int) error
	AcceptMergeRequest(ctx context.Context, projectID, iid int, opts *gitlabclt.AcceptMROptions) (*gitlab.MergeRequest, error)
	RebaseMergeRequest(ctx context.Context, projectID, iid int) error
	ApproveMergeRequest(ctx context.Context, projectID, iid, asUserID int) error
	TriggerPipeline(ctx context.Context, projectID, iid int, ref string) error
}

// Worktree is the local clone of the project that jobs rebase branches in
// and push from.
// Lock must be held around every sequence of operations that depends on
// the worktree state, jobs of all projects of a repository share one
// clone.
type Worktree interface {
	Lock()
	Unlock()
	Fetch(ctx context.Context) error
	FetchBranch(ctx context.Context, remoteURL, branch string) error
	SourceRemoteURL(sshURL, httpURL string) (string, error)
	CommitSHA(ctx context.Context, ref string) (string, error)
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
	CheckoutBranch(ctx context.Context, branch, startPoint string) error
	RemoveBranch(ctx context.Context, branch string) error
	Rebase(ctx context.Context, branch, startPoint, onto string) (string, error)
	FastForward(ctx context.Context, branch, ref string) error
	TagWithTrailer(ctx context.Context, branch, sinceSHA string, trailers []string) (string, error)
	Push(ctx context.Context, branch string, opts *gitcmd.PushOptions) error
	DeleteRemoteBranch(ctx context.Context, branch string) error
	Cleanup(ctx context.Context) error
}

// Retryer is an interface used for running GitlabClient methods repeatedly
// if they fail with a temporary error.
type Retryer interface {
	Run(context.Context, func(context.Context) error, []zap.Field) error
}
