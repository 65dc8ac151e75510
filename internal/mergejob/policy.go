package mergejob

import (
	"fmt"
	"time"

	"github.com/xanzy/go-gitlab"

	"github.com/simplesurance/merganser/internal/gitlabclt"
)

// draftReason is the rejection reason for merge requests that are marked
// as a draft. Its comment is rendered with a dedicated prefix.
const draftReason = "it is a draft"

// mrState bundles the platform state of a merge request that job
// decisions are based on. It is refetched when a job starts, jobs never
// decide on the snapshot that enqueued the merge request.
type mrState struct {
	MR        *gitlab.MergeRequest
	Project   *gitlab.Project
	Approvals *gitlabclt.Approvals
	// TargetBranch is nil when the branch could not be fetched, the
	// protection check is skipped then.
	TargetBranch *gitlab.Branch
	// BotAccessLevel is the access level of the bot user on the project,
	// 0 when the API response did not carry permission information.
	BotAccessLevel gitlab.AccessLevelValue
}

// validate decides if the merge request may be merged now.
// It returns nil when it may. Otherwise the returned outcome is either a
// rejection that must be reported on the merge request, a silent
// cancellation for merge requests that left the responsibility of the
// bot, or a requeue for merge embargos.
func validate(state *mrState, opts *Options, botUserID int, now time.Time) *Outcome {
	mr := state.MR

	if mr.State != "opened" {
		return Cancelled()
	}

	if mr.WorkInProgress {
		return RejectTerminal(draftReason)
	}

	if !isAssignee(mr, botUserID) {
		return Cancelled()
	}

	if mr.Author != nil && mr.Author.ID == botUserID {
		return RejectTerminal("it is authored by the bot user")
	}

	if !state.Approvals.Sufficient() {
		return RejectTerminal(fmt.Sprintf("it still needs %d approval(s)", state.Approvals.ApprovalsLeft))
	}

	if protectedTargetUnpushable(state) {
		return RejectTerminal(fmt.Sprintf("the target branch %s is protected", mr.TargetBranch))
	}

	if state.Project.OnlyAllowMergeIfAllDiscussionsAreResolved && !mr.BlockingDiscussionsResolved {
		return RejectTerminal("it has unresolved discussions")
	}

	if mr.Squash && opts.requestsTrailers() {
		return RejectTerminal("the auto-squash option would invalidate the commit trailers")
	}

	if mr.MergeStatus == "cannot_be_merged" {
		return RejectTerminal("the platform reports it cannot be merged")
	}

	if underEmbargo(opts, mr.TargetBranch, now) {
		return Requeue("merge embargo")
	}

	return nil
}

// isAssignee returns true when the user is one of the assignees of the
// merge request.
func isAssignee(mr *gitlab.MergeRequest, userID int) bool {
	for _, assignee := range mr.Assignees {
		if assignee != nil && assignee.ID == userID {
			return true
		}
	}

	return mr.Assignee != nil && mr.Assignee.ID == userID
}

// protectedTargetUnpushable reports if merging must be refused because
// the target branch is protected and the bot lacks the access level to
// push to it.
// When the protection state or the access level of the bot is unknown the
// merge is not refused, the accept call is the final authority.
func protectedTargetUnpushable(state *mrState) bool {
	branch := state.TargetBranch
	if branch == nil || !branch.Protected || branch.DevelopersCanPush {
		return false
	}

	return state.BotAccessLevel != 0 && state.BotAccessLevel < gitlab.MaintainerPermissions
}

// underEmbargo returns true when merging is suspended, either because now
// lies in an embargo time window or because the target branch matches the
// embargoed branches expression.
func underEmbargo(opts *Options, targetBranch string, now time.Time) bool {
	if opts.Embargo.Covers(now.UTC()) {
		return true
	}

	return opts.EmbargoBranches != nil && opts.EmbargoBranches.MatchString(targetBranch)
}
