package merganser

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/gitlabclt"
	"github.com/simplesurance/merganser/internal/logfields"
	"github.com/simplesurance/merganser/internal/mergejob"
	"github.com/simplesurance/merganser/internal/merganser/orderedmap"
	"github.com/simplesurance/merganser/internal/merganser/routines"
	"github.com/simplesurance/merganser/internal/notify"
)

// listRetryBudget bounds how long one listing of the assigned merge
// requests is retried before the tick is given up.
const listRetryBudget = time.Minute

// orderByCreatedAt is the sort order requested from the platform when
// listing merge requests.
const orderByCreatedAt = "created_at"

// projectLoop merges the pending merge requests of one project.
//
// The loop periodically lists the open merge requests that are assigned
// to the bot and keeps them in a FIFO set. When no job is running, a job
// for the first merge request that is not cooling down is scheduled,
// either a single merge job or a batch job covering further pending merge
// requests with the same target branch.
//
// Merge requests whose job requeued them cool down before the next
// attempt, the pause doubles with every consecutive requeue.
type projectLoop struct {
	project project
	conf    *Config

	clt       GitlabClient
	worktrees WorktreeProvider
	retryer   Retryer
	notifier  Notifier
	botUser   *gitlab.User

	logger    *zap.Logger
	logFields []zap.Field
	metrics   *loopMetrics

	// pending contains the merge requests waiting to be merged, in the
	// order the loop first saw them.
	pending   *orderedmap.Map[int, *candidate]
	cooldowns *cooldownTable
	lock      sync.Mutex

	// assignedAtCache holds the resolved assignment time per merge
	// request. It is only accessed by the goroutine that runs the loop.
	assignedAtCache map[int]time.Time

	// jobPool runs the merge jobs. The pool has 1 goroutine to ensure
	// that only one job runs per project at a time.
	jobPool *routines.Pool
	// executing describes the currently running job, nil when no job
	// runs. Its cancelFunc aborts the job, it is used on shutdown.
	executing atomic.Value // stored type: *runningJob

	// fatal is set when the loop can not continue, e.g. because the
	// platform revoked access. The next tick terminates the loop with
	// this error.
	fatal atomic.Error

	// ticks counts the finished ticks, tests synchronize on it.
	ticks atomic.Uint64
}

// runningJob identifies the merge job that the worker goroutine currently
// runs.
type runningJob struct {
	iids       []int
	cancelFunc context.CancelFunc
}

func newProjectLoop(
	p project,
	conf *Config,
	clt GitlabClient,
	worktrees WorktreeProvider,
	retryer Retryer,
	notifier Notifier,
	botUser *gitlab.User,
	logger *zap.Logger,
) *projectLoop {
	if conf == nil {
		conf = &Config{}
	}

	logFields := []zap.Field{
		logfields.Project(p.path),
		logfields.ProjectID(p.id),
	}

	l := projectLoop{
		project:         p,
		conf:            conf,
		clt:             clt,
		worktrees:       worktrees,
		retryer:         retryer,
		notifier:        notifier,
		botUser:         botUser,
		logger:          logger.Named("loop").With(logFields...),
		logFields:       logFields,
		pending:         orderedmap.New[int, *candidate](),
		cooldowns:       newCooldownTable(conf.pollInterval()),
		assignedAtCache: map[int]time.Time{},
		jobPool:         routines.NewPool(1),
	}

	if lm, err := newLoopMetrics(p.path); err == nil {
		l.metrics = lm
	} else {
		l.logger.Warn(
			"could not create prometheus metrics",
			logfields.Event("creating_loop_metrics_failed"),
			zap.Error(err),
		)
	}

	return &l
}

func (l *projectLoop) getExecuting() *runningJob {
	v := l.executing.Load()
	if v == nil {
		return nil
	}

	return v.(*runningJob)
}

func (l *projectLoop) setExecuting(v *runningJob) {
	l.executing.Store(v)
}

// run polls the project until ctx is cancelled or the loop hits an error
// it can not recover from.
// A nil return means a clean shutdown, every error is fatal for this
// loop and is classified by the bot.
func (l *projectLoop) run(ctx context.Context) error {
	l.logger.Info(
		"project loop started",
		logfields.Event("project_loop_started"),
	)

	for {
		idle, err := l.tick(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}

		pause := l.conf.pollInterval()
		if idle {
			pause = l.conf.idleInterval()
		}

		if sleepCtx(ctx, pause) != nil {
			return nil
		}
	}
}

// tick refreshes the pending queue from the platform and schedules the
// next merge job when the worker is free.
// idle is true when no merge request is pending at all.
func (l *projectLoop) tick(ctx context.Context) (idle bool, err error) {
	defer l.ticks.Inc()

	if err := l.fatal.Load(); err != nil {
		return false, err
	}

	mrs, err := l.listAssigned(ctx)
	if err != nil {
		if gitlabclt.IsUnauthorized(err) || gitlabclt.IsForbidden(err) || gitlabclt.IsNotFound(err) {
			return false, err
		}

		l.logger.Warn(
			"listing assigned merge requests failed",
			logEventListingFailed,
			zap.Error(err),
		)

		return false, nil
	}

	candidates := l.filterCandidates(ctx, mrs)

	if l.conf.order() == OrderAssignedAt {
		l.sortByAssignment(ctx, candidates)
	}

	l.syncPending(candidates)

	if l.getExecuting() != nil {
		return false, nil
	}

	next := l.nextCandidates(time.Now())
	if len(next) == 0 {
		return l.pendingLen() == 0, nil
	}

	l.scheduleJob(ctx, next)

	return false, nil
}

// runOnce performs a single tick, running the merge job for it, when one
// is due, on the calling goroutine instead of the worker.
func (l *projectLoop) runOnce(ctx context.Context) error {
	mrs, err := l.listAssigned(ctx)
	if err != nil {
		return err
	}

	candidates := l.filterCandidates(ctx, mrs)

	if l.conf.order() == OrderAssignedAt {
		l.sortByAssignment(ctx, candidates)
	}

	l.syncPending(candidates)

	next := l.nextCandidates(time.Now())
	if len(next) == 0 {
		l.logger.Info(
			"nothing to merge",
			logfields.Event("project_loop_idle"),
		)

		return nil
	}

	l.runJob(ctx, next)

	return l.fatal.Load()
}

func (l *projectLoop) listAssigned(ctx context.Context) ([]*gitlab.MergeRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, listRetryBudget)
	defer cancel()

	var mrs []*gitlab.MergeRequest

	err := l.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		mrs, err = l.clt.OpenAssignedMergeRequests(ctx, l.project.id, l.botUser.ID, orderByCreatedAt)

		return err
	}, l.logFields)
	if err != nil {
		return nil, err
	}

	return mrs, nil
}

// filterCandidates drops the merge requests that the bot is not
// configured to merge. A merge request whose filter evaluation fails is
// skipped, not rejected.
func (l *projectLoop) filterCandidates(ctx context.Context, mrs []*gitlab.MergeRequest) []*candidate {
	result := make([]*candidate, 0, len(mrs))

	for _, mr := range mrs {
		logger := l.logger.With(logfields.MergeRequest(mr.IID))

		if re := l.conf.BranchRegexp; re != nil && !re.MatchString(mr.TargetBranch) {
			logger.Debug(
				"merge request skipped, target branch does not match",
				logEventCandidateSkipped,
				logfields.TargetBranch(mr.TargetBranch),
			)

			continue
		}

		if re := l.conf.SourceBranchRegexp; re != nil && !re.MatchString(mr.SourceBranch) {
			logger.Debug(
				"merge request skipped, source branch does not match",
				logEventCandidateSkipped,
				logfields.SourceBranch(mr.SourceBranch),
			)

			continue
		}

		match, err := l.conf.Filter.Match(ctx, mr)
		if err != nil {
			logger.Warn(
				"evaluating the merge request filter failed, merge request skipped",
				logEventCandidateSkipped,
				zap.Error(err),
			)

			continue
		}

		if !match {
			logger.Debug(
				"merge request skipped, filter query did not match",
				logEventCandidateSkipped,
			)

			continue
		}

		result = append(result, newCandidate(mr))
	}

	return result
}

// sortByAssignment orders the candidates by the time they were assigned
// to the bot, oldest first.
// The platform records assignments in the discussion notes, the lookup
// result is cached per merge request. When no assignment time can be
// resolved the creation time is used instead.
func (l *projectLoop) sortByAssignment(ctx context.Context, candidates []*candidate) {
	for _, c := range candidates {
		at, cached := l.assignedAtCache[c.iid]
		if !cached {
			at = l.resolveAssignedAt(ctx, c)
			l.assignedAtCache[c.iid] = at
		}

		c.assignedAt = at
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].assignedAt.Before(candidates[j].assignedAt)
	})
}

func (l *projectLoop) resolveAssignedAt(ctx context.Context, c *candidate) time.Time {
	ctx, cancel := context.WithTimeout(ctx, listRetryBudget)
	defer cancel()

	var at time.Time

	err := l.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		at, err = l.clt.AssignedAt(ctx, l.project.id, c.iid, l.botUser.Username)

		return err
	}, append([]zap.Field{logfields.MergeRequest(c.iid)}, l.logFields...))
	if err != nil {
		l.logger.Warn(
			"resolving the assignment time failed, using the creation time",
			append([]zap.Field{logfields.Event("resolving_assignment_time_failed"), zap.Error(err)}, c.logFields...)...,
		)

		return c.createdAt
	}

	if at.IsZero() {
		return c.createdAt
	}

	return at
}

// syncPending reconciles the pending queue with the listed merge
// requests. New merge requests join at the back of the queue, merge
// requests that are not assigned anymore leave it together with their
// cool-down state.
func (l *projectLoop) syncPending(listed []*candidate) {
	l.lock.Lock()
	defer l.lock.Unlock()

	keep := make(map[int]struct{}, len(listed))

	for _, c := range listed {
		keep[c.iid] = struct{}{}

		if _, added := l.pending.EnqueueIfNotExist(c.iid, c); added {
			l.logger.Info(
				"merge request enqueued",
				append([]zap.Field{logEventCandidateEnqueued}, c.logFields...)...,
			)
		}
	}

	for _, c := range l.pending.AsSlice() {
		if _, exist := keep[c.iid]; exist {
			continue
		}

		l.pending.Dequeue(c.iid)
		l.logger.Info(
			"merge request left the queue",
			append([]zap.Field{logEventCandidateDequeued}, c.logFields...)...,
		)
	}

	l.cooldowns.forget(keep)

	for iid := range l.assignedAtCache {
		if _, exist := keep[iid]; !exist {
			delete(l.assignedAtCache, iid)
		}
	}

	l.updateGauges()
}

// updateGauges records the pending and cooling counts, the caller must
// hold the lock.
func (l *projectLoop) updateGauges() {
	iids := make([]int, 0, l.pending.Len())
	l.pending.Foreach(func(c *candidate) bool {
		iids = append(iids, c.iid)
		return true
	})

	l.metrics.PendingSet(len(iids))
	l.metrics.CoolingSet(l.cooldowns.coolingCount(iids, time.Now()))
}

func (l *projectLoop) pendingLen() int {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.pending.Len()
}

// nextCandidates returns the merge requests the next job should process:
// the first pending one that is not cooling down and, when batching is
// enabled, the eligible ones behind it that share its target branch, in
// queue order.
func (l *projectLoop) nextCandidates(now time.Time) []*candidate {
	l.lock.Lock()
	defer l.lock.Unlock()

	limit := 1
	if l.conf.Batch {
		limit = l.conf.batchSize()
	}

	var result []*candidate

	l.pending.Foreach(func(c *candidate) bool {
		if l.cooldowns.coolingDown(c.iid, now) {
			return true
		}

		if len(result) > 0 && c.targetBranch != result[0].targetBranch {
			return true
		}

		result = append(result, c)

		return len(result) < limit
	})

	return result
}

// scheduleJob queues a merge job for the candidates on the worker
// goroutine.
func (l *projectLoop) scheduleJob(ctx context.Context, candidates []*candidate) {
	iids := candidateIIDs(candidates)

	l.jobPool.Queue(func() {
		ctx, cancelFunc := context.WithCancel(ctx)
		defer cancelFunc()

		l.setExecuting(&runningJob{iids: iids, cancelFunc: cancelFunc})
		l.runJob(ctx, candidates)
		l.setExecuting(nil)
	})

	l.logger.Debug(
		"merge job scheduled",
		logfields.Event("merge_job_scheduled"),
		zap.Ints("gitlab.merge_requests", iids),
	)
}

// runJob runs a single or batch merge job for the candidates and handles
// the outcomes.
func (l *projectLoop) runJob(ctx context.Context, candidates []*candidate) {
	start := time.Now()

	worktree, err := l.worktrees.Worktree(ctx, l.project.id, l.project.sshURL, l.project.httpURL)
	if err != nil {
		l.logger.Warn(
			"preparing the repository clone failed",
			logfields.Event("worktree_unavailable"),
			zap.Error(err),
		)

		l.lock.Lock()
		for _, c := range candidates {
			l.cooldowns.requeued(c.iid, 0)
		}
		l.updateGauges()
		l.lock.Unlock()

		return
	}

	if len(candidates) == 1 {
		c := candidates[0]
		job := mergejob.New(l.clt, worktree, l.retryer, l.botUser, l.conf.jobOptions(), l.project.id, c.iid)
		l.handleOutcome(ctx, c, job.Run(ctx))
		l.metrics.JobDurationObserve(time.Since(start))

		return
	}

	batch := mergejob.NewBatch(
		l.clt,
		worktree,
		l.retryer,
		l.botUser,
		l.conf.jobOptions(),
		l.project.id,
		candidates[0].targetBranch,
		candidateIIDs(candidates),
	)

	outcomes := batch.Run(ctx)
	for _, c := range candidates {
		if outcome := outcomes[c.iid]; outcome != nil {
			l.handleOutcome(ctx, c, outcome)
		}
	}

	l.metrics.JobDurationObserve(time.Since(start))
}

// handleOutcome updates the queue and the cool-down state of the merge
// request according to how its job ended and delivers the notification
// for terminal outcomes.
func (l *projectLoop) handleOutcome(ctx context.Context, c *candidate, outcome *mergejob.Outcome) {
	logger := l.logger.With(c.logFields...)

	metrics.ProcessedMRsInc()
	metrics.MergeResultInc(l.project.path, outcome.Conclusion)

	switch outcome.Conclusion {
	case mergejob.ConclusionMerged:
		l.dequeue(c.iid)
		logger.Info(
			"merge request merged",
			logEventCandidateDequeued,
		)
		l.notify(ctx, c, outcome)

	case mergejob.ConclusionRejected:
		l.dequeue(c.iid)
		logger.Info(
			"merge request rejected",
			logEventCandidateDequeued,
			logfields.Reason(outcome.Reason),
		)
		l.notify(ctx, c, outcome)

	case mergejob.ConclusionRequeued:
		l.lock.Lock()
		pause := l.cooldowns.requeued(c.iid, outcome.Delay)
		l.updateGauges()
		l.lock.Unlock()

		logger.Info(
			"merge request requeued",
			logfields.Event("merge_request_requeued"),
			logfields.Reason(outcome.Reason),
			zap.Duration("retry_in", pause),
			zap.Error(outcome.Err),
		)

		if outcome.Err != nil && gitlabclt.IsUnauthorized(outcome.Err) {
			l.fatal.Store(outcome.Err)
		}

	case mergejob.ConclusionCancelled:
		logger.Debug(
			"merge job cancelled",
			logfields.Event("merge_job_cancelled"),
		)
	}
}

func (l *projectLoop) dequeue(iid int) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.pending.Dequeue(iid)
	l.cooldowns.clear(iid)
	l.updateGauges()
}

func (l *projectLoop) notify(ctx context.Context, c *candidate, outcome *mergejob.Outcome) {
	if l.notifier == nil {
		return
	}

	l.notifier.Notify(ctx, &notify.Notification{
		Project:      l.project.path,
		ProjectID:    l.project.id,
		MergeRequest: c.iid,
		Title:        c.title,
		SourceBranch: c.sourceBranch,
		TargetBranch: c.targetBranch,
		WebURL:       c.webURL,
		Conclusion:   string(outcome.Conclusion),
		Reason:       outcome.Reason,
	})
}

// stop aborts the running merge job and waits for the worker goroutine to
// terminate. The loop must not tick anymore when stop is called.
func (l *projectLoop) stop() {
	l.logger.Debug("terminating")

	l.lock.Lock()
	for _, c := range l.pending.AsSlice() {
		l.pending.Dequeue(c.iid)
	}
	l.updateGauges()
	l.lock.Unlock()

	if running := l.getExecuting(); running != nil {
		running.cancelFunc()
	}

	l.logger.Debug("waiting for the merge job to terminate")
	l.jobPool.Wait()

	l.logger.Debug("terminated")
}

func candidateIIDs(candidates []*candidate) []int {
	result := make([]int, 0, len(candidates))

	for _, c := range candidates {
		result = append(result, c.iid)
	}

	return result
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
