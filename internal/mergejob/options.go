package mergejob

import (
	"regexp"
	"time"

	"github.com/simplesurance/merganser/internal/embargo"
)

const (
	// DefCITimeout is the default value for Options.CITimeout.
	DefCITimeout = 15 * time.Minute
	// DefBatchBranchPrefix is the default value for
	// Options.BatchBranchPrefix.
	DefBatchBranchPrefix = "batch/"
)

// Options configure how jobs merge.
// The zero value merges with the merge method of the project, without
// commit trailers and without waiting for approval resets.
type Options struct {
	// UseMergeStrategy merges with a platform-side merge commit even
	// when the project is configured for fast-forward merges.
	UseMergeStrategy bool
	// RebaseRemotely lets the platform rebase the source branch instead
	// of rebasing and force-pushing it locally. This keeps the bot
	// usable with tokens that can not push to the repositories.
	RebaseRemotely bool

	// AddTested, AddReviewers and AddPartOf enable the commit trailers
	// of the same name. They require rewriting the source branch and are
	// therefore incompatible with RebaseRemotely and with auto-squash.
	AddTested    bool
	AddReviewers bool
	AddPartOf    bool

	// ImpersonateApprovers restores approvals that the platform reset
	// after a push, by approving via sudo as each original approver.
	// Requires an administrator token.
	ImpersonateApprovers bool
	// ApprovalResetTimeout is how long to wait for the platform to reset
	// approvals after a push before they are restored. With the zero
	// value approvals are only restored when the reset is visible
	// immediately.
	ApprovalResetTimeout time.Duration

	// Embargo suspends merging during the configured time windows.
	Embargo *embargo.Embargo
	// EmbargoBranches suspends merging into matching target branches.
	EmbargoBranches *regexp.Regexp

	// CITimeout bounds how long jobs wait for a pipeline result,
	// DefCITimeout when zero.
	CITimeout time.Duration
	// RequireSuccessfulCI keeps waiting on skipped pipelines instead of
	// counting them as passed.
	RequireSuccessfulCI bool
	// GuaranteeFinalPipeline triggers a fresh pipeline for the merge
	// request head before merging, even when the project does not
	// require pipelines to pass.
	GuaranteeFinalPipeline bool

	// BatchBranchPrefix is prepended to the target branch name to form
	// the name of the ephemeral branch that batch jobs push,
	// DefBatchBranchPrefix when empty.
	BatchBranchPrefix string
}

// requestsTrailers returns true when at least one commit trailer is
// enabled.
func (o *Options) requestsTrailers() bool {
	return o.AddTested || o.AddReviewers || o.AddPartOf
}

func (o *Options) ciTimeout() time.Duration {
	if o.CITimeout > 0 {
		return o.CITimeout
	}

	return DefCITimeout
}

// batchBranch returns the name of the ephemeral branch for batches into
// the given target branch.
func (o *Options) batchBranch(targetBranch string) string {
	prefix := o.BatchBranchPrefix
	if prefix == "" {
		prefix = DefBatchBranchPrefix
	}

	return prefix + targetBranch
}
