package mergejob

import (
	"context"
	"errors"
	"time"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/gitcmd"
	"github.com/simplesurance/merganser/internal/logfields"
)

const batchLoggerName = "batch_job"

// BatchJob merges multiple merge requests that target the same branch
// with a single CI run.
//
// The candidates are rebased onto each other on an ephemeral batch
// branch, the combined result runs CI once and when it passes, every
// candidate is pushed and merged in order. A failing combined pipeline
// can not be attributed to one candidate, the batch is bisected instead,
// down to single jobs that report failures accurately.
type BatchJob struct {
	client  GitlabClient
	repo    Worktree
	retryer Retryer
	botUser *gitlab.User
	options *Options

	projectID    int
	targetBranch string
	branch       string

	jobs []*Job

	branchCreated bool
	branchPushed  bool

	logger    *zap.Logger
	logFields []zap.Field
}

// batchEntry is a candidate that was rebased onto the batch branch.
type batchEntry struct {
	job *Job
	// head is the rewritten head of the source branch of the candidate,
	// it contains all candidates before it in the batch.
	head string
}

// NewBatch returns a batch job for the merge requests with the given
// iids. All of them must target targetBranch, in iids order, the order
// decides which candidates survive a bisection.
func NewBatch(client GitlabClient, repo Worktree, retryer Retryer, botUser *gitlab.User, options *Options, projectID int, targetBranch string, iids []int) *BatchJob {
	jobs := make([]*Job, 0, len(iids))
	for _, iid := range iids {
		jobs = append(jobs, New(client, repo, retryer, botUser, options, projectID, iid))
	}

	logFields := []zap.Field{
		logfields.ProjectID(projectID),
		logfields.TargetBranch(targetBranch),
	}

	return &BatchJob{
		client:       client,
		repo:         repo,
		retryer:      retryer,
		botUser:      botUser,
		options:      options,
		projectID:    projectID,
		targetBranch: targetBranch,
		branch:       options.batchBranch(targetBranch),
		jobs:         jobs,
		logger:       zap.L().Named(batchLoggerName).With(logFields...),
		logFields:    logFields,
	}
}

// Run executes the batch and returns an outcome per merge request iid.
// Candidates that are rejected report on their merge request like single
// jobs do. Candidates that only fall out of the batch, e.g. because an
// earlier candidate spoiled the combined result, are requeued silently.
func (b *BatchJob) Run(ctx context.Context) map[int]*Outcome {
	b.logger.Info(
		"batch started",
		logfields.Event("batch_started"),
		zap.Int("batch_size", len(b.jobs)),
	)

	defer b.removeBatchBranch()

	outcomes := make(map[int]*Outcome, len(b.jobs))

	candidates := b.validateCandidates(ctx, outcomes)
	b.run(ctx, candidates, outcomes)

	// Candidates that fell through every path, e.g. on cancellation
	// while an earlier candidate was processed.
	for _, job := range b.jobs {
		if _, exist := outcomes[job.iid]; !exist {
			outcomes[job.iid] = Cancelled()
		}
	}

	b.logger.Info("batch finished", logfields.Event("batch_finished"))

	return outcomes
}

// validateCandidates refreshes and validates every candidate and returns
// the jobs that may be merged. The outcome of every other candidate is
// recorded.
// Resolving the fork URLs here keeps the later batch phases free of
// platform calls while the worktree lock is held.
func (b *BatchJob) validateCandidates(ctx context.Context, outcomes map[int]*Outcome) []*Job {
	candidates := make([]*Job, 0, len(b.jobs))

	for _, job := range b.jobs {
		if outcome := job.refreshState(ctx); outcome != nil {
			outcomes[job.iid] = job.finish(ctx, outcome)
			continue
		}

		if outcome := validate(job.state, b.options, b.botUser.ID, time.Now()); outcome != nil {
			outcomes[job.iid] = job.finish(ctx, outcome)
			continue
		}

		if job.state.MR.TargetBranch != b.targetBranch {
			// The target branch changed since the batch was assembled.
			outcomes[job.iid] = job.finish(ctx, Requeue("the target branch changed"))
			continue
		}

		if _, outcome := job.sourceRemoteURL(ctx); outcome != nil {
			outcomes[job.iid] = job.finish(ctx, outcome)
			continue
		}

		candidates = append(candidates, job)
	}

	return candidates
}

// run merges the given candidates, recursing with the leading half when
// the combined pipeline fails.
func (b *BatchJob) run(ctx context.Context, candidates []*Job, outcomes map[int]*Outcome) {
	switch len(candidates) {
	case 0:
		return
	case 1:
		// A batch of one gains nothing, the single job attributes
		// failures accurately.
		outcomes[candidates[0].iid] = candidates[0].Run(ctx)
		return
	}

	included, batchHead, failed := b.prepareBatchBranch(ctx, candidates, outcomes)
	if failed != nil {
		b.fillOutcomes(ctx, pendingJobs(candidates, outcomes), outcomes, failed)
		return
	}

	switch len(included) {
	case 0:
		return
	case 1:
		outcomes[included[0].job.iid] = included[0].job.Run(ctx)
		return
	}

	if failed := b.pushBatchBranch(ctx, batchHead); failed != nil {
		b.fillOutcomes(ctx, jobsOf(included), outcomes, failed)
		return
	}

	if dryRun(b.client, b.repo) {
		// The batch branch was never really pushed, no pipeline will
		// appear for it.
		b.logger.Info(
			"the batch push was simulated, skipping the combined pipeline",
			logfields.Event("batch_dry_run"),
		)
	} else {
		fetch := func(ctx context.Context) ([]*gitlab.PipelineInfo, error) {
			return b.client.BranchPipelines(ctx, b.projectID, b.branch)
		}

		wait := waitForPipeline(ctx, b.logger, b.options, b.apiCall, fetch, batchHead)
		if wait != nil {
			if wait.Conclusion == ConclusionRejected {
				b.bisect(ctx, included, outcomes)
				return
			}

			b.fillOutcomes(ctx, jobsOf(included), outcomes, wait)

			return
		}
	}

	b.acceptIncluded(ctx, included, outcomes)
}

// prepareBatchBranch builds the batch branch from the target branch tip
// and rebases every candidate onto it, in order. It returns the
// candidates that made it onto the branch and the combined head.
// Candidates whose rebase conflicts are rejected and excluded, the batch
// continues without them. failed is non-nil when the batch as a whole can
// not continue.
func (b *BatchJob) prepareBatchBranch(ctx context.Context, candidates []*Job, outcomes map[int]*Outcome) (included []*batchEntry, batchHead string, failed *Outcome) {
	b.repo.Lock()
	defer b.repo.Unlock()
	defer b.cleanupWorktree()

	if err := b.repo.Fetch(ctx); err != nil {
		return nil, "", b.transientOutcome(err, "fetching the repository failed")
	}

	// A stale batch branch of an interrupted earlier run must not
	// trip up the later push.
	if err := b.repo.DeleteRemoteBranch(ctx, b.branch); err != nil {
		b.logger.Debug("deleting the stale remote batch branch failed", zap.Error(err))
	}

	targetSHA, err := b.repo.CommitSHA(ctx, "origin/"+b.targetBranch)
	if err != nil {
		return nil, "", b.transientOutcome(err, "resolving the target branch tip failed")
	}

	if err := b.repo.CheckoutBranch(ctx, b.branch, targetSHA); err != nil {
		return nil, "", b.transientOutcome(err, "creating the batch branch failed")
	}
	b.branchCreated = true

	batchHead = targetSHA

	for _, job := range candidates {
		head, outcome := b.rebaseOntoBatch(ctx, job, batchHead)
		if outcome != nil {
			outcomes[job.iid] = job.finish(ctx, outcome)
			continue
		}

		if err := b.repo.FastForward(ctx, b.branch, head); err != nil {
			return included, "", b.transientOutcome(err, "advancing the batch branch failed")
		}

		batchHead = head
		included = append(included, &batchEntry{job: job, head: head})
	}

	return included, batchHead, nil
}

// rebaseOntoBatch rebases the source branch of the candidate onto the
// current batch head and applies the enabled commit trailers.
func (b *BatchJob) rebaseOntoBatch(ctx context.Context, job *Job, onto string) (string, *Outcome) {
	mr := job.state.MR

	sourceURL, outcome := job.sourceRemoteURL(ctx)
	if outcome != nil {
		return "", outcome
	}

	sourceRef := "origin/" + mr.SourceBranch
	if sourceURL != "" {
		if err := b.repo.FetchBranch(ctx, sourceURL, mr.SourceBranch); err != nil {
			return "", job.gitTransientOutcome(err, "fetching the source branch of the fork failed")
		}

		sourceRef = "source/" + mr.SourceBranch
	}

	return job.rebaseOnto(ctx, sourceRef, onto)
}

// pushBatchBranch publishes the batch branch, which triggers the combined
// pipeline.
func (b *BatchJob) pushBatchBranch(ctx context.Context, batchHead string) *Outcome {
	b.repo.Lock()
	defer b.repo.Unlock()

	if err := b.repo.Push(ctx, b.branch, nil); err != nil {
		return b.transientOutcome(err, "pushing the batch branch failed")
	}
	b.branchPushed = true

	b.logger.Info(
		"batch branch pushed",
		logfields.Event("batch_branch_pushed"),
		logfields.Branch(b.branch),
		logfields.Commit(batchHead),
	)

	return nil
}

// bisect retries the leading half of the batch after the combined
// pipeline failed. The trailing half is requeued, it is retried once the
// leading candidates merged or were rejected.
func (b *BatchJob) bisect(ctx context.Context, included []*batchEntry, outcomes map[int]*Outcome) {
	half := len(included) / 2

	b.logger.Info(
		"the combined pipeline failed, bisecting the batch",
		logfields.Event("batch_bisected"),
		zap.Int("batch_size", len(included)),
	)

	b.fillOutcomes(ctx, jobsOf(included[half:]), outcomes, Requeue("the batch pipeline failed, retrying with a smaller batch"))
	b.run(ctx, jobsOf(included[:half]), outcomes)
}

// acceptIncluded pushes and merges the candidates in batch order.
// When one of them fails, the combined result is not valid for the later
// candidates anymore, they are requeued.
func (b *BatchJob) acceptIncluded(ctx context.Context, included []*batchEntry, outcomes map[int]*Outcome) {
	for i, entry := range included {
		outcome := b.pushAndAccept(ctx, entry)
		outcomes[entry.job.iid] = entry.job.finish(ctx, outcome)

		if outcome.Conclusion != ConclusionMerged {
			b.fillOutcomes(ctx, jobsOf(included[i+1:]), outcomes, Requeue("an earlier merge request of the batch failed"))
			return
		}
	}
}

// pushAndAccept force-pushes the rewritten head to the source branch of
// the candidate and accepts the merge.
// The push skips CI, the commits were already tested on the batch branch.
func (b *BatchJob) pushAndAccept(ctx context.Context, entry *batchEntry) *Outcome {
	job := entry.job
	mr := job.state.MR

	sourceURL, outcome := job.sourceRemoteURL(ctx)
	if outcome != nil {
		return outcome
	}

	b.repo.Lock()
	err := b.repo.Push(ctx, mr.SourceBranch, &gitcmd.PushOptions{
		RemoteURL:         sourceURL,
		ExpectedRemoteSHA: mr.SHA,
		SkipCI:            true,
	})
	b.repo.Unlock()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return &Outcome{Conclusion: ConclusionCancelled, Err: err}
		}

		job.logger.Info(
			"pushing the batched source branch failed",
			logfields.Event("job_push_failed"),
			logfields.SourceBranch(mr.SourceBranch),
			zap.Error(err),
		)

		return &Outcome{Conclusion: ConclusionRequeued, Err: err}
	}

	head := entry.head
	if dryRun(b.client, b.repo) {
		job.logger.Info(
			"the push was simulated, continuing with the remote head",
			logfields.Event("job_dry_run_remote_head"),
			logfields.Commit(mr.SHA),
		)

		head = mr.SHA
	}

	if outcome := job.waitSourceAt(ctx, head); outcome != nil {
		return outcome
	}

	job.maybeReapprove(ctx)

	// Merging when the pipeline succeeds would wait forever, the push
	// skipped CI.
	accepted, outcome := job.merge(ctx, head, false)
	if outcome != nil {
		return outcome
	}

	if accepted != nil && accepted.State == "merged" {
		job.verifySourceBranchRemoval(ctx, accepted)
		return Merged()
	}

	return job.confirm(ctx)
}

// fillOutcomes records a copy of the template outcome for every job that
// has none yet. Only used with silent outcomes, requeues and
// cancellations.
func (b *BatchJob) fillOutcomes(ctx context.Context, jobs []*Job, outcomes map[int]*Outcome, template *Outcome) {
	for _, job := range jobs {
		if _, exist := outcomes[job.iid]; exist {
			continue
		}

		outcomes[job.iid] = job.finish(ctx, &Outcome{
			Conclusion: template.Conclusion,
			Reason:     template.Reason,
			Delay:      template.Delay,
			Err:        template.Err,
		})
	}
}

// removeBatchBranch deletes the ephemeral batch branch remotely and
// locally. It runs with its own context so the branch is also removed
// when the batch was cancelled.
func (b *BatchJob) removeBatchBranch() {
	if !b.branchCreated {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	b.repo.Lock()
	defer b.repo.Unlock()

	if b.branchPushed {
		if err := b.repo.DeleteRemoteBranch(ctx, b.branch); err != nil {
			b.logger.Warn(
				"deleting the remote batch branch failed",
				logfields.Event("batch_branch_removal_failed"),
				logfields.Branch(b.branch),
				zap.Error(err),
			)
		}
	}

	if err := b.repo.RemoveBranch(ctx, b.branch); err != nil {
		b.logger.Warn(
			"deleting the local batch branch failed",
			logfields.Event("batch_branch_removal_failed"),
			logfields.Branch(b.branch),
			zap.Error(err),
		)
	}
}

func (b *BatchJob) transientOutcome(err error, msg string) *Outcome {
	if errors.Is(err, context.Canceled) {
		return &Outcome{Conclusion: ConclusionCancelled, Err: err}
	}

	b.logger.Warn(msg, logfields.Event("batch_git_failure"), zap.Error(err))

	return &Outcome{Conclusion: ConclusionRequeued, Err: err}
}

func (b *BatchJob) cleanupWorktree() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if err := b.repo.Cleanup(ctx); err != nil {
		b.logger.Warn(
			"cleaning up the worktree failed",
			logfields.Event("batch_worktree_cleanup_failed"),
			zap.Error(err),
		)
	}
}

// apiCall runs fn through the retryer, bounded by the retry budget.
func (b *BatchJob) apiCall(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, apiRetryBudget)
	defer cancel()

	return b.retryer.Run(ctx, fn, b.logFields)
}

func jobsOf(entries []*batchEntry) []*Job {
	jobs := make([]*Job, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, entry.job)
	}

	return jobs
}

func pendingJobs(jobs []*Job, outcomes map[int]*Outcome) []*Job {
	pending := make([]*Job, 0, len(jobs))
	for _, job := range jobs {
		if _, exist := outcomes[job.iid]; !exist {
			pending = append(pending, job)
		}
	}

	return pending
}
