// Package mergejob drives assigned merge requests to a final outcome,
// either one at a time or in batches that share a single CI run.
//
// A job refetches the platform state of its merge request, validates that
// merging is allowed, brings the source branch up to date with the target
// branch, waits for CI and accepts the merge, conditional on the exact
// commit it prepared. Every failure is mapped to an Outcome, rejections
// are reported on the merge request before the job returns.
package mergejob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/gitcmd"
	"github.com/simplesurance/merganser/internal/gitlabclt"
	"github.com/simplesurance/merganser/internal/logfields"
	"github.com/simplesurance/merganser/internal/mergerr"
	"github.com/simplesurance/merganser/internal/retryer"
)

const loggerName = "merge_job"

const (
	// apiRetryBudget bounds how long a single platform call is retried.
	apiRetryBudget = time.Minute

	// mergeStatusAttempts is the number of times the asynchronous merge
	// status of the platform is read before the job proceeds without a
	// settled status.
	mergeStatusAttempts = 3

	// maxMergeRefusals is the number of consecutive refusals of the
	// accept call after which a job gives up on the merge request.
	maxMergeRefusals = 3

	cleanupTimeout = 30 * time.Second
)

// Poll pacing, variables to let tests shorten the waits.
var (
	// waitRebasedTimeout bounds how long a job waits until the platform
	// shows a pushed or rebased commit as the merge request head.
	waitRebasedTimeout      = time.Minute
	waitRebasedPollInterval = 2 * time.Second

	ciPollInterval = 10 * time.Second

	// mergeStatusInterval paces the wait for the asynchronous merge
	// status of the platform to settle before the merge is accepted.
	mergeStatusInterval = 5 * time.Second

	confirmTimeout      = 2 * time.Minute
	confirmPollInterval = 5 * time.Second

	approvalPollInterval = 5 * time.Second
)

// Job merges a single merge request.
type Job struct {
	client  GitlabClient
	repo    Worktree
	retryer Retryer
	botUser *gitlab.User
	options *Options

	projectID int
	iid       int

	state     *mrState
	sourceURL *string

	logger    *zap.Logger
	logFields []zap.Field
}

// New returns a job that merges the merge request with the given iid.
func New(client GitlabClient, repo Worktree, retryer Retryer, botUser *gitlab.User, options *Options, projectID, iid int) *Job {
	logFields := []zap.Field{
		logfields.ProjectID(projectID),
		logfields.MergeRequest(iid),
	}

	return &Job{
		client:    client,
		repo:      repo,
		retryer:   retryer,
		botUser:   botUser,
		options:   options,
		projectID: projectID,
		iid:       iid,
		logger:    zap.L().Named(loggerName).With(logFields...),
		logFields: logFields,
	}
}

// Run executes the job and returns its outcome.
// When the outcome is a rejection, one comment was posted on the merge
// request and it was assigned back to its author before Run returns.
func (j *Job) Run(ctx context.Context) *Outcome {
	j.logger.Info("job started", logfields.Event("job_started"))

	return j.finish(ctx, j.execute(ctx))
}

// finish applies the side effects of the outcome and logs it.
func (j *Job) finish(ctx context.Context, outcome *Outcome) *Outcome {
	if outcome.Conclusion == ConclusionRejected {
		j.rejectTerminally(ctx, outcome.Reason)
	}

	j.logger.Info(
		"job finished",
		logfields.Event("job_finished"),
		zap.String("job_conclusion", string(outcome.Conclusion)),
		logfields.Reason(outcome.Reason),
		zap.Error(outcome.Err),
	)

	return outcome
}

func (j *Job) execute(ctx context.Context) *Outcome {
	if outcome := j.refreshState(ctx); outcome != nil {
		return outcome
	}

	if outcome := validate(j.state, j.options, j.botUser.ID, time.Now()); outcome != nil {
		return outcome
	}

	head, outcome := j.updateSourceBranch(ctx)
	if outcome != nil {
		return outcome
	}

	if head != j.state.MR.SHA && dryRun(j.client, j.repo) {
		j.logger.Info(
			"the branch update was simulated, continuing with the remote head",
			logfields.Event("job_dry_run_remote_head"),
			logfields.Commit(j.state.MR.SHA),
		)

		head = j.state.MR.SHA
	}

	if outcome := j.waitSourceAt(ctx, head); outcome != nil {
		return outcome
	}

	j.maybeReapprove(ctx)

	if j.options.GuaranteeFinalPipeline {
		if outcome := j.triggerPipeline(ctx); outcome != nil {
			return outcome
		}
	}

	if j.state.Project.OnlyAllowMergeIfPipelineSucceeds || j.options.GuaranteeFinalPipeline {
		fetch := func(ctx context.Context) ([]*gitlab.PipelineInfo, error) {
			return j.client.MergeRequestPipelines(ctx, j.projectID, j.iid)
		}

		if outcome := waitForPipeline(ctx, j.logger, j.options, j.apiCall, fetch, head); outcome != nil {
			return outcome
		}
	}

	accepted, outcome := j.merge(ctx, head, j.state.Project.OnlyAllowMergeIfPipelineSucceeds)
	if outcome != nil {
		return outcome
	}

	if accepted != nil && accepted.State == "merged" {
		j.verifySourceBranchRemoval(ctx, accepted)
		return Merged()
	}

	return j.confirm(ctx)
}

// refreshState refetches the merge request and the platform state
// surrounding it.
func (j *Job) refreshState(ctx context.Context) *Outcome {
	var (
		mr        *gitlab.MergeRequest
		project   *gitlab.Project
		approvals *gitlabclt.Approvals
	)

	err := j.apiCall(ctx, func(ctx context.Context) (err error) {
		mr, err = j.client.MergeRequest(ctx, j.projectID, j.iid)
		return err
	})
	if err != nil {
		return outcomeFromErr(err)
	}

	err = j.apiCall(ctx, func(ctx context.Context) (err error) {
		project, err = j.client.Project(ctx, j.projectID)
		return err
	})
	if err != nil {
		return outcomeFromErr(err)
	}

	err = j.apiCall(ctx, func(ctx context.Context) (err error) {
		approvals, err = j.client.MergeRequestApprovals(ctx, j.projectID, j.iid)
		return err
	})
	if err != nil {
		return outcomeFromErr(err)
	}

	state := mrState{
		MR:             mr,
		Project:        project,
		Approvals:      approvals,
		BotAccessLevel: botAccessLevel(project),
	}

	// The protection state of the target branch only gates a policy
	// check, the job proceeds without it when it can not be read.
	var branch *gitlab.Branch
	err = j.apiCall(ctx, func(ctx context.Context) (err error) {
		branch, err = j.client.Branch(ctx, j.projectID, mr.TargetBranch)
		return err
	})
	switch {
	case err == nil:
		state.TargetBranch = branch
	case errors.Is(err, context.Canceled):
		return outcomeFromErr(err)
	default:
		j.logger.Warn(
			"fetching the protection state of the target branch failed",
			logfields.Event("job_target_branch_fetch_failed"),
			logfields.TargetBranch(mr.TargetBranch),
			zap.Error(err),
		)
	}

	j.state = &state

	return nil
}

// botAccessLevel returns the access level of the token user on the
// project, 0 when the API response carries no permission information.
func botAccessLevel(project *gitlab.Project) gitlab.AccessLevelValue {
	var level gitlab.AccessLevelValue

	if project.Permissions == nil {
		return level
	}

	if access := project.Permissions.ProjectAccess; access != nil && access.AccessLevel > level {
		level = access.AccessLevel
	}

	if access := project.Permissions.GroupAccess; access != nil && access.AccessLevel > level {
		level = access.AccessLevel
	}

	return level
}

// updateSourceBranch brings the source branch up to date with the target
// branch according to the configured strategy and returns the head commit
// that must be merged.
func (j *Job) updateSourceBranch(ctx context.Context) (string, *Outcome) {
	if j.options.RebaseRemotely {
		return j.rebaseRemotely(ctx)
	}

	if j.mergeMethod() == gitlab.NoFastForwardMerge {
		return j.mergeCommitHead(ctx)
	}

	return j.rebaseAndPush(ctx)
}

// mergeMethod returns the merge method the job merges with.
func (j *Job) mergeMethod() gitlab.MergeMethodValue {
	if j.options.UseMergeStrategy {
		return gitlab.NoFastForwardMerge
	}

	if j.state.Project.MergeMethod == "" {
		return gitlab.NoFastForwardMerge
	}

	return j.state.Project.MergeMethod
}

// rebaseAndPush rebases the source branch onto the target branch tip,
// applies the enabled commit trailers and force-pushes the result back to
// the source branch, conditional on the branch not having moved since the
// merge request was fetched.
func (j *Job) rebaseAndPush(ctx context.Context) (string, *Outcome) {
	mr := j.state.MR

	sourceURL, outcome := j.sourceRemoteURL(ctx)
	if outcome != nil {
		return "", outcome
	}

	j.repo.Lock()
	defer j.repo.Unlock()
	defer j.cleanupWorktree()

	targetSHA, sourceRef, outcome := j.fetchBranches(ctx, sourceURL)
	if outcome != nil {
		return "", outcome
	}

	head, outcome := j.rebaseOnto(ctx, sourceRef, targetSHA)
	if outcome != nil {
		return "", outcome
	}

	if head == mr.SHA {
		// The branch is already in the wanted state, e.g. when the push
		// of an earlier run succeeded but the run was interrupted.
		j.logger.Debug(
			"source branch is already up to date, skipping the push",
			logfields.Event("job_push_skipped"),
			logfields.Commit(head),
		)

		return head, nil
	}

	err := j.repo.Push(ctx, mr.SourceBranch, &gitcmd.PushOptions{
		RemoteURL:         sourceURL,
		ExpectedRemoteSHA: mr.SHA,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", &Outcome{Conclusion: ConclusionCancelled, Err: err}
		}

		if errors.Is(err, gitcmd.ErrDirtyWorktree) {
			return "", j.gitTransientOutcome(err, "pushing the rebased source branch failed")
		}

		j.logger.Info(
			"pushing the rebased source branch failed",
			logfields.Event("job_push_failed"),
			logfields.SourceBranch(mr.SourceBranch),
			zap.Error(err),
		)

		return "", RejectTerminal("needs manual rebase")
	}

	j.logger.Info(
		"rebased source branch pushed",
		logfields.Event("job_branch_pushed"),
		logfields.SourceBranch(mr.SourceBranch),
		logfields.Commit(head),
	)

	return head, nil
}

// rebaseOnto rebases the source branch from sourceRef onto targetSHA and
// applies the enabled commit trailers. Must be called with the worktree
// lock held.
func (j *Job) rebaseOnto(ctx context.Context, sourceRef, targetSHA string) (string, *Outcome) {
	mr := j.state.MR

	head, err := j.repo.Rebase(ctx, mr.SourceBranch, sourceRef, targetSHA)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", &Outcome{Conclusion: ConclusionCancelled, Err: err}
		}

		j.logger.Info(
			"rebasing the source branch failed",
			logfields.Event("job_rebase_failed"),
			logfields.SourceBranch(mr.SourceBranch),
			zap.Error(err),
		)

		return "", RejectTerminal("needs manual rebase")
	}

	if head == targetSHA {
		return "", RejectTerminal("these changes already exist in branch " + mr.TargetBranch)
	}

	if j.options.requestsTrailers() {
		tagged, outcome := j.applyTrailers(ctx, mr.SourceBranch, targetSHA)
		if outcome != nil {
			return "", outcome
		}

		if tagged != "" {
			head = tagged
		}
	}

	return head, nil
}

// fetchBranches refreshes the origin refs, plus the source branch of the
// fork when the merge request comes from one, and resolves the target
// branch tip. Must be called with the worktree lock held.
func (j *Job) fetchBranches(ctx context.Context, sourceURL string) (targetSHA, sourceRef string, outcome *Outcome) {
	mr := j.state.MR

	if err := j.repo.Fetch(ctx); err != nil {
		return "", "", j.gitTransientOutcome(err, "fetching the repository failed")
	}

	sourceRef = "origin/" + mr.SourceBranch
	if sourceURL != "" {
		if err := j.repo.FetchBranch(ctx, sourceURL, mr.SourceBranch); err != nil {
			return "", "", j.gitTransientOutcome(err, "fetching the source branch of the fork failed")
		}

		sourceRef = "source/" + mr.SourceBranch
	}

	targetSHA, err := j.repo.CommitSHA(ctx, "origin/"+mr.TargetBranch)
	if err != nil {
		return "", "", j.gitTransientOutcome(err, "resolving the target branch tip failed")
	}

	return targetSHA, sourceRef, nil
}

// sourceRemoteURL returns the remote URL of the fork that the source
// branch lives in, an empty string for same-project merge requests.
// The result is cached for the lifetime of the job.
func (j *Job) sourceRemoteURL(ctx context.Context) (string, *Outcome) {
	if j.sourceURL != nil {
		return *j.sourceURL, nil
	}

	mr := j.state.MR
	if mr.SourceProjectID == 0 || mr.SourceProjectID == j.projectID {
		url := ""
		j.sourceURL = &url

		return url, nil
	}

	var project *gitlab.Project
	err := j.apiCall(ctx, func(ctx context.Context) (err error) {
		project, err = j.client.Project(ctx, mr.SourceProjectID)
		return err
	})
	if err != nil {
		return "", outcomeFromErr(err)
	}

	url, err := j.repo.SourceRemoteURL(project.SSHURLToRepo, project.HTTPURLToRepo)
	if err != nil {
		return "", &Outcome{Conclusion: ConclusionRequeued, Err: err}
	}

	j.sourceURL = &url

	return url, nil
}

// mergeCommitHead determines the head commit for a platform-side merge
// commit. It is the current merge request head.
// When the project requires pipelines to pass and the target branch moved
// since the source branch contained its tip, a platform-side rebase is
// requested first, so that the decisive pipeline runs on a head that
// includes the target branch.
func (j *Job) mergeCommitHead(ctx context.Context) (string, *Outcome) {
	mr := j.state.MR

	if !j.state.Project.OnlyAllowMergeIfPipelineSucceeds {
		return mr.SHA, nil
	}

	sourceURL, outcome := j.sourceRemoteURL(ctx)
	if outcome != nil {
		return "", outcome
	}

	upToDate, outcome := j.sourceContainsTargetTip(ctx, sourceURL)
	if outcome != nil {
		return "", outcome
	}

	if upToDate {
		return mr.SHA, nil
	}

	if outcome := j.platformRebase(ctx); outcome != nil {
		return "", outcome
	}

	refreshed, err := j.fetchMR(ctx)
	if err != nil {
		return "", outcomeFromErr(err)
	}
	j.state.MR = refreshed

	return refreshed.SHA, nil
}

// sourceContainsTargetTip reports if the target branch tip is an ancestor
// of the merge request head.
func (j *Job) sourceContainsTargetTip(ctx context.Context, sourceURL string) (bool, *Outcome) {
	mr := j.state.MR

	j.repo.Lock()
	defer j.repo.Unlock()

	if _, _, outcome := j.fetchBranches(ctx, sourceURL); outcome != nil {
		return false, outcome
	}

	contains, err := j.repo.IsAncestor(ctx, "origin/"+mr.TargetBranch, mr.SHA)
	if err != nil {
		return false, j.gitTransientOutcome(err, "checking if the source branch contains the target tip failed")
	}

	return contains, nil
}

// rebaseRemotely computes the expected post-rebase head locally, then
// lets the platform rebase the source branch. Nothing is pushed from the
// local worktree.
// The platform produces the same commits as the local rebase unless the
// branches moved in between, the later wait for the merge request to show
// the expected head catches that case.
func (j *Job) rebaseRemotely(ctx context.Context) (string, *Outcome) {
	sourceURL, outcome := j.sourceRemoteURL(ctx)
	if outcome != nil {
		return "", outcome
	}

	expected, outcome := j.localRebaseHead(ctx, sourceURL)
	if outcome != nil {
		return "", outcome
	}

	if expected == j.state.MR.SHA {
		// Already rebased, the platform rebase would be a no-op.
		return expected, nil
	}

	if outcome := j.platformRebase(ctx); outcome != nil {
		return "", outcome
	}

	return expected, nil
}

// localRebaseHead rebases the source branch in the local worktree to
// learn the head the platform-side rebase is expected to produce.
func (j *Job) localRebaseHead(ctx context.Context, sourceURL string) (string, *Outcome) {
	j.repo.Lock()
	defer j.repo.Unlock()
	defer j.cleanupWorktree()

	targetSHA, sourceRef, outcome := j.fetchBranches(ctx, sourceURL)
	if outcome != nil {
		return "", outcome
	}

	return j.rebaseOnto(ctx, sourceRef, targetSHA)
}

// platformRebase asks the platform to rebase the merge request onto its
// target branch and waits until the rebase finished.
func (j *Job) platformRebase(ctx context.Context) *Outcome {
	err := j.client.RebaseMergeRequest(ctx, j.projectID, j.iid)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return &Outcome{Conclusion: ConclusionCancelled, Err: err}
	}

	var rebaseErr *gitlabclt.RebaseFailedError
	if errors.As(err, &rebaseErr) {
		j.logger.Info(
			"the platform could not rebase the merge request",
			logfields.Event("job_platform_rebase_failed"),
			zap.Error(err),
		)

		return RejectTerminal("needs manual rebase")
	}

	return &Outcome{Conclusion: ConclusionRequeued, Err: err}
}

// waitSourceAt polls the merge request until the platform shows head as
// its current commit and no rebase is running anymore.
// Commits that were pushed by somebody else in the meantime make the head
// diverge permanently, the wait then times out and the job requeues
// instead of merging commits it has not prepared.
func (j *Job) waitSourceAt(ctx context.Context, head string) *Outcome {
	deadline := time.Now().Add(waitRebasedTimeout)

	for {
		mr, err := j.fetchMR(ctx)
		if err != nil {
			return outcomeFromErr(err)
		}

		if !isAssignee(mr, j.botUser.ID) {
			return j.cancelledUnassigned()
		}

		if mr.SHA == head && !mr.RebaseInProgress {
			j.state.MR = mr
			return nil
		}

		if time.Now().After(deadline) {
			j.logger.Info(
				"merge request did not reach the expected commit in time",
				logfields.Event("job_wait_rebased_timeout"),
				logfields.Commit(head),
			)

			return Requeue("the source branch did not reach the expected commit")
		}

		if outcome := sleepCtx(ctx, waitRebasedPollInterval); outcome != nil {
			return outcome
		}
	}
}

// maybeReapprove restores the approvals that the push reset.
// The platform resets approvals asynchronously, so the job first waits
// until the reset became visible or the approval reset timeout passed.
// Restoring requires an administrator token, each original approver is
// impersonated via sudo.
func (j *Job) maybeReapprove(ctx context.Context) {
	if !j.options.ImpersonateApprovers {
		return
	}

	original := j.state.Approvals
	if len(original.ApproverIDs) == 0 {
		return
	}

	deadline := time.Now().Add(j.options.ApprovalResetTimeout)

	for {
		approvals, err := j.fetchApprovals(ctx)
		if err != nil {
			j.logger.Warn(
				"checking the approvals after the push failed",
				logfields.Event("job_reapprove_failed"),
				zap.Error(err),
			)

			return
		}

		if !approvals.Sufficient() {
			break
		}

		if time.Now().After(deadline) {
			// The push did not reset the approvals.
			return
		}

		if sleepCtx(ctx, approvalPollInterval) != nil {
			return
		}
	}

	for _, approverID := range original.ApproverIDs {
		err := j.apiCall(ctx, func(ctx context.Context) error {
			return j.client.ApproveMergeRequest(ctx, j.projectID, j.iid, approverID)
		})
		if err != nil {
			j.logger.Warn(
				"restoring the approval of an approver failed",
				logfields.Event("job_reapprove_failed"),
				zap.Int("gitlab.approver_id", approverID),
				zap.Error(err),
			)
		}
	}

	j.logger.Info(
		"approvals restored after the push",
		logfields.Event("job_reapproved"),
		zap.Ints("gitlab.approver_ids", original.ApproverIDs),
	)
}

// triggerPipeline starts a fresh pipeline for the merge request.
func (j *Job) triggerPipeline(ctx context.Context) *Outcome {
	err := j.apiCall(ctx, func(ctx context.Context) error {
		return j.client.TriggerPipeline(ctx, j.projectID, j.iid, j.state.MR.SourceBranch)
	})
	if err != nil {
		return outcomeFromErr(err)
	}

	return nil
}

// merge accepts the merge request, conditional on head being its current
// commit.
// Refusals of the platform are classified by re-reading the merge
// request, after maxMergeRefusals consecutive refusals the job gives up.
// The accept call is never retried blindly, a request that failed with an
// ambiguous error may still have merged, the re-read detects that.
func (j *Job) merge(ctx context.Context, head string, mergeWhenPipelineSucceeds bool) (*gitlab.MergeRequest, *Outcome) {
	if outcome := j.resolveMergeStatus(ctx, head); outcome != nil {
		return nil, outcome
	}

	mr := j.state.MR

	for refusals := 1; ; refusals++ {
		accepted, err := j.client.AcceptMergeRequest(ctx, j.projectID, j.iid, &gitlabclt.AcceptMROptions{
			SHA:                       head,
			Squash:                    mr.Squash,
			RemoveSourceBranch:        mr.ForceRemoveSourceBranch,
			MergeWhenPipelineSucceeds: mergeWhenPipelineSucceeds,
		})
		if err == nil {
			j.logger.Info(
				"merge accepted",
				logfields.Event("job_merge_accepted"),
				logfields.Commit(head),
			)

			return accepted, nil
		}

		switch {
		case errors.Is(err, context.Canceled):
			return nil, &Outcome{Conclusion: ConclusionCancelled, Err: err}

		case gitlabclt.IsConflict(err):
			// The source branch moved between the push and the accept.
			j.logger.Info(
				"merge request changed while merging",
				logfields.Event("job_merge_conflict"),
				zap.Error(err),
			)

			return nil, Requeue("the merge request changed while merging")

		case gitlabclt.IsUnauthorized(err) || gitlabclt.IsForbidden(err):
			return nil, &Outcome{Conclusion: ConclusionRequeued, Err: err}

		case gitlabclt.IsMethodNotAllowed(err) || gitlabclt.IsNotAcceptable(err) || gitlabclt.IsUnprocessable(err):
			if outcome := j.classifyRefusal(ctx, refusals, err); outcome != nil {
				return nil, outcome
			}

		default:
			var retryable *mergerr.RetryableError
			if !errors.As(err, &retryable) && gitlabclt.HTTPStatus(err) != 0 {
				return nil, RejectTerminal("the platform rejected the merge: " + gitlabclt.ErrorMessage(err))
			}

			return nil, outcomeFromErr(err)
		}
	}
}

// resolveMergeStatus guards the accept call. It re-reads the merge
// request and waits a bounded time for the asynchronous merge status of
// the platform to settle. An unresolved status does not stop the job,
// the accept call is the final authority.
func (j *Job) resolveMergeStatus(ctx context.Context, head string) *Outcome {
	for attempt := 1; ; attempt++ {
		mr, err := j.fetchMR(ctx)
		if err != nil {
			return outcomeFromErr(err)
		}
		j.state.MR = mr

		switch {
		case !isAssignee(mr, j.botUser.ID):
			return j.cancelledUnassigned()

		case mr.State == "merged":
			// Somebody merged it in the meantime.
			return Merged()

		case mr.State == "closed":
			return RejectTerminal("merge vanished")

		case mr.WorkInProgress:
			return RejectTerminal(draftReason)

		case mr.SHA != head:
			j.logger.Info(
				"merge request head changed before merging",
				logfields.Event("job_head_changed"),
				logfields.Commit(mr.SHA),
			)

			return Requeue("the merge request changed while merging")

		case mr.MergeStatus == "cannot_be_merged":
			return RejectTerminal("the platform reports it cannot be merged")

		case mr.MergeStatus == "can_be_merged":
			return nil
		}

		if attempt >= mergeStatusAttempts {
			j.logger.Debug(
				"merge status did not settle, proceeding",
				logfields.Event("job_merge_status_unsettled"),
				zap.String("gitlab.merge_status", mr.MergeStatus),
			)

			return nil
		}

		if outcome := sleepCtx(ctx, mergeStatusInterval); outcome != nil {
			return outcome
		}
	}
}

// classifyRefusal handles a refusal of the accept call by re-reading the
// merge request. It returns nil when the accept should be attempted
// again.
func (j *Job) classifyRefusal(ctx context.Context, refusals int, refusalErr error) *Outcome {
	j.logger.Info(
		"the platform refused the merge",
		logfields.Event("job_merge_refused"),
		zap.Int("refusal_count", refusals),
		zap.Error(refusalErr),
	)

	mr, err := j.fetchMR(ctx)
	if err != nil {
		return outcomeFromErr(err)
	}
	j.state.MR = mr

	switch {
	case mr.State == "merged":
		// The refused request merged after all.
		return Merged()

	case mr.State == "closed":
		return RejectTerminal("merge vanished")

	case mr.WorkInProgress:
		return RejectTerminal(draftReason)

	case !isAssignee(mr, j.botUser.ID):
		return j.cancelledUnassigned()
	}

	if refusals >= maxMergeRefusals {
		return RejectTerminal(fmt.Sprintf("the platform refused the merge %d times in a row", refusals))
	}

	if outcome := sleepCtx(ctx, mergeStatusInterval); outcome != nil {
		return outcome
	}

	return nil
}

// confirm polls the merge request until the platform shows it as merged.
func (j *Job) confirm(ctx context.Context) *Outcome {
	deadline := time.Now().Add(confirmTimeout)

	for {
		mr, err := j.fetchMR(ctx)
		if err != nil {
			return outcomeFromErr(err)
		}
		j.state.MR = mr

		switch {
		case mr.State == "merged":
			j.verifySourceBranchRemoval(ctx, mr)
			return Merged()

		case mr.State == "closed":
			return RejectTerminal("merge vanished")

		case !isAssignee(mr, j.botUser.ID):
			return j.cancelledUnassigned()
		}

		if time.Now().After(deadline) {
			return Requeue("the platform did not finish the merge in time")
		}

		if outcome := sleepCtx(ctx, confirmPollInterval); outcome != nil {
			return outcome
		}
	}
}

// verifySourceBranchRemoval warns when the platform kept a source branch
// whose removal was requested on the merge request.
func (j *Job) verifySourceBranchRemoval(ctx context.Context, mr *gitlab.MergeRequest) {
	if !mr.ForceRemoveSourceBranch {
		return
	}

	projectID := mr.SourceProjectID
	if projectID == 0 {
		projectID = j.projectID
	}

	_, err := j.client.Branch(ctx, projectID, mr.SourceBranch)
	switch {
	case err == nil:
		j.logger.Warn(
			"the source branch still exists although its removal was requested",
			logfields.Event("job_source_branch_not_removed"),
			logfields.SourceBranch(mr.SourceBranch),
		)

	case gitlabclt.IsNotFound(err):

	default:
		j.logger.Debug("checking the removal of the source branch failed", zap.Error(err))
	}
}

// rejectTerminally posts the rejection comment and hands the merge
// request back to its author. Merge requests that were authored by the
// bot itself are only unassigned.
func (j *Job) rejectTerminally(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		// Shutdown won, the next run will reject again.
		return
	}

	mr := j.state.MR
	comment := rejectionComment(reason)

	err := j.apiCall(ctx, func(ctx context.Context) error {
		return j.client.Comment(ctx, j.projectID, j.iid, comment)
	})
	if err != nil {
		j.logger.Error(
			"posting the rejection comment failed",
			logfields.Event("job_comment_failed"),
			zap.Error(err),
		)
	}

	assigneeID := 0
	if mr.Author != nil && mr.Author.ID != j.botUser.ID {
		assigneeID = mr.Author.ID
	}

	err = j.apiCall(ctx, func(ctx context.Context) error {
		return j.client.AssignMergeRequest(ctx, j.projectID, j.iid, assigneeID)
	})
	if err != nil {
		j.logger.Error(
			"assigning the merge request back to its author failed",
			logfields.Event("job_assign_back_failed"),
			zap.Error(err),
		)
	}

	j.logger.Info(
		"merge request rejected",
		logfields.Event("job_rejected"),
		logfields.Reason(reason),
	)
}

// rejectionComment renders the comment that is posted for a terminal
// rejection.
func rejectionComment(reason string) string {
	if reason == draftReason {
		return "Sorry, I can't merge this: " + reason + "."
	}

	return "I couldn't merge this: " + reason + "."
}

func (j *Job) cancelledUnassigned() *Outcome {
	j.logger.Info(
		"merge request is not assigned to the bot anymore, aborting",
		logfields.Event("job_unassigned"),
	)

	return Cancelled()
}

// cleanupWorktree discards leftover state in the worktree. It runs with
// its own context so that the cleanup still happens when the job was
// cancelled.
func (j *Job) cleanupWorktree() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if err := j.repo.Cleanup(ctx); err != nil {
		j.logger.Warn(
			"cleaning up the worktree failed",
			logfields.Event("job_worktree_cleanup_failed"),
			zap.Error(err),
		)
	}
}

// apiCall runs fn through the retryer, bounded by the retry budget.
func (j *Job) apiCall(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, apiRetryBudget)
	defer cancel()

	return j.retryer.Run(ctx, fn, j.logFields)
}

// outcomeFromErr maps a failed platform call to an outcome.
// Cancellation ends the job silently. Everything else requeues the merge
// request, the project loop inspects Err and escalates authorization
// failures.
func outcomeFromErr(err error) *Outcome {
	if errors.Is(err, context.Canceled) || errors.Is(err, retryer.ErrStopped) {
		return &Outcome{Conclusion: ConclusionCancelled, Err: err}
	}

	outcome := &Outcome{Conclusion: ConclusionRequeued, Err: err}

	var retryable *mergerr.RetryableError
	if errors.As(err, &retryable) && !retryable.After.IsZero() {
		outcome.Delay = time.Until(retryable.After)
	}

	return outcome
}

// gitTransientOutcome requeues after a git failure that does not
// implicate the merge request itself.
func (j *Job) gitTransientOutcome(err error, msg string) *Outcome {
	if errors.Is(err, context.Canceled) {
		return &Outcome{Conclusion: ConclusionCancelled, Err: err}
	}

	j.logger.Warn(msg, logfields.Event("job_git_failure"), zap.Error(err))

	return &Outcome{Conclusion: ConclusionRequeued, Err: err}
}

func (j *Job) fetchMR(ctx context.Context) (*gitlab.MergeRequest, error) {
	var mr *gitlab.MergeRequest

	err := j.apiCall(ctx, func(ctx context.Context) (err error) {
		mr, err = j.client.MergeRequest(ctx, j.projectID, j.iid)
		return err
	})

	return mr, err
}

func (j *Job) fetchApprovals(ctx context.Context) (*gitlabclt.Approvals, error) {
	var approvals *gitlabclt.Approvals

	err := j.apiCall(ctx, func(ctx context.Context) (err error) {
		approvals, err = j.client.MergeRequestApprovals(ctx, j.projectID, j.iid)
		return err
	})

	return approvals, err
}

func (j *Job) fetchCommits(ctx context.Context) ([]*gitlab.Commit, error) {
	var commits []*gitlab.Commit

	err := j.apiCall(ctx, func(ctx context.Context) (err error) {
		commits, err = j.client.MergeRequestCommits(ctx, j.projectID, j.iid)
		return err
	})

	return commits, err
}

func (j *Job) fetchUser(ctx context.Context, userID int) (*gitlab.User, error) {
	var user *gitlab.User

	err := j.apiCall(ctx, func(ctx context.Context) (err error) {
		user, err = j.client.User(ctx, userID)
		return err
	})

	return user, err
}

// sleepCtx pauses for d, honoring cancellation.
func sleepCtx(ctx context.Context, d time.Duration) *Outcome {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return &Outcome{Conclusion: ConclusionCancelled, Err: ctx.Err()}
	case <-timer.C:
		return nil
	}
}
