package merganser

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/gitlabclt"
	"github.com/simplesurance/merganser/internal/logfields"
	"github.com/simplesurance/merganser/internal/mergejob"
)

const loggerName = "bot"

const (
	// DefPollInterval is the default pause between two polls of a
	// project with pending merge requests.
	DefPollInterval = 30 * time.Second
	// DefIdleInterval is the default pause between two polls of a
	// project without pending merge requests.
	DefIdleInterval = time.Minute
	// DefBatchSize is the default maximum number of merge requests per
	// batch job.
	DefBatchSize = 8
	// DefProjectRefreshInterval is the default pause between two
	// discoveries of the accessible projects.
	DefProjectRefreshInterval = 10 * time.Minute
)

// MergeOrder determines in which order the pending merge requests of a
// project are merged.
type MergeOrder string

const (
	// OrderCreatedAt merges merge requests in the order they were
	// created.
	OrderCreatedAt MergeOrder = "created_at"
	// OrderAssignedAt merges merge requests in the order they were
	// assigned to the bot.
	OrderAssignedAt MergeOrder = "assigned_at"
)

// Config are the settings of the bot.
// The zero value of an optional field selects its documented default.
type Config struct {
	// ProjectRegexp restricts which projects are merged in, matched
	// against the full project path. nil monitors every accessible
	// project.
	ProjectRegexp *regexp.Regexp
	// BranchRegexp restricts the target branches that are merged into,
	// nil allows all.
	BranchRegexp *regexp.Regexp
	// SourceBranchRegexp restricts the source branches that are merged,
	// nil allows all.
	SourceBranchRegexp *regexp.Regexp
	// Filter drops merge requests whose JSON representation does not
	// match a jq query, nil disables the filter.
	Filter *MRFilter
	// Order is the merge order, OrderCreatedAt when empty.
	Order MergeOrder

	// JobOptions configure the merge jobs.
	JobOptions *mergejob.Options

	// Batch merges multiple pending merge requests with the same target
	// branch together, testing their combined state with one pipeline.
	Batch bool
	// BatchSize limits how many merge requests one batch covers,
	// DefBatchSize when zero.
	BatchSize int

	// PollInterval is the pause between polls of a project with pending
	// merge requests, DefPollInterval when zero.
	PollInterval time.Duration
	// IdleInterval is the pause between polls of a project without
	// pending merge requests, DefIdleInterval when zero.
	IdleInterval time.Duration
	// ProjectRefreshInterval is the pause between discoveries of the
	// accessible projects, DefProjectRefreshInterval when zero.
	ProjectRefreshInterval time.Duration
}

func (c *Config) order() MergeOrder {
	if c.Order == "" {
		return OrderCreatedAt
	}

	return c.Order
}

func (c *Config) jobOptions() *mergejob.Options {
	if c.JobOptions == nil {
		return &mergejob.Options{}
	}

	return c.JobOptions
}

func (c *Config) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}

	return DefBatchSize
}

func (c *Config) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}

	return DefPollInterval
}

func (c *Config) idleInterval() time.Duration {
	if c.IdleInterval > 0 {
		return c.IdleInterval
	}

	return DefIdleInterval
}

func (c *Config) refreshInterval() time.Duration {
	if c.ProjectRefreshInterval > 0 {
		return c.ProjectRefreshInterval
	}

	return DefProjectRefreshInterval
}

// project identifies one project that the bot merges in.
type project struct {
	id      int
	path    string
	sshURL  string
	httpURL string
}

func newProject(p *gitlab.Project) project {
	return project{
		id:      p.ID,
		path:    p.PathWithNamespace,
		sshURL:  p.SSHURLToRepo,
		httpURL: p.HTTPURLToRepo,
	}
}

// Bot merges the merge requests that are assigned to its user.
// It discovers the accessible projects and runs one projectLoop per
// project. Failed loops are restarted, loops of projects the bot lost
// access to are disabled.
type Bot struct {
	clt       GitlabClient
	worktrees WorktreeProvider
	retryer   Retryer
	notifier  Notifier
	conf      *Config

	logger *zap.Logger

	botUser *gitlab.User

	loops    map[int]*loopHandle
	disabled map[int]struct{}
	lock     sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// loopHandle tracks the supervisor of one project.
// The loop field points to the current projectLoop instance of the
// project, it changes when the supervisor restarts the loop.
type loopHandle struct {
	project project
	loop    *projectLoop
	cancel  context.CancelFunc
}

// New returns a bot that is not running yet, call Start or RunOnce.
// notifier may be nil when no outcome notifications are wanted, a nil
// conf is treated like an empty one.
func New(clt GitlabClient, worktrees WorktreeProvider, retryer Retryer, notifier Notifier, conf *Config) *Bot {
	if conf == nil {
		conf = &Config{}
	}

	return &Bot{
		clt:       clt,
		worktrees: worktrees,
		retryer:   retryer,
		notifier:  notifier,
		conf:      conf,
		logger:    zap.L().Named(loggerName),
		loops:     map[int]*loopHandle{},
		disabled:  map[int]struct{}{},
	}
}

// Start connects to the platform, discovers the accessible projects and
// starts one loop per project.
// It returns an error when the platform is not reachable, the token is
// rejected or the configuration demands privileges that the bot user
// does not have. The loops run until Stop is called, ctx only covers the
// startup calls.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.setup(ctx); err != nil {
		return err
	}

	projects, err := b.listProjects(ctx)
	if err != nil {
		return fmt.Errorf("listing the accessible projects failed: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	b.startLoops(runCtx, projects)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		b.refreshProjects(runCtx)
	}()

	return nil
}

// Stop terminates all project loops and their running merge jobs and
// waits until they finished.
func (b *Bot) Stop() {
	b.logger.Debug("terminating")

	if b.cancel != nil {
		b.cancel()
	}
	b.retryer.Stop()

	b.wg.Wait()
	b.logger.Debug("terminated")
}

// RunOnce polls every accessible project a single time, sequentially,
// and runs the next due merge job of each. It returns after the last
// project was processed.
func (b *Bot) RunOnce(ctx context.Context) error {
	if err := b.setup(ctx); err != nil {
		return err
	}

	projects, err := b.listProjects(ctx)
	if err != nil {
		return fmt.Errorf("listing the accessible projects failed: %w", err)
	}

	var lastErr error

	for _, p := range projects {
		l := b.newLoop(p)
		err := l.runOnce(ctx)
		l.stop()

		if err != nil {
			b.logger.Warn(
				"processing the project failed",
				logfields.Event("project_run_failed"),
				logfields.Project(p.path),
				zap.Error(err),
			)
			lastErr = err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return lastErr
}

// setup resolves the bot user and validates that it can do what the
// configuration asks for.
func (b *Bot) setup(ctx context.Context) error {
	user, err := b.currentUser(ctx)
	if err != nil {
		return fmt.Errorf("resolving the bot user failed: %w", err)
	}
	b.botUser = user

	b.logger.Info(
		"authenticated",
		logfields.Event("bot_authenticated"),
		zap.String("gitlab.user", user.Username),
		zap.Int("gitlab.user_id", user.ID),
	)

	if version, err := b.clt.Version(ctx); err == nil {
		b.logger.Info(
			"platform version detected",
			logfields.Event("platform_version_detected"),
			zap.String("gitlab.version", version.String()),
		)
	} else {
		b.logger.Warn(
			"querying the platform version failed",
			logfields.Event("querying_platform_version_failed"),
			zap.Error(err),
		)
	}

	opts := b.conf.jobOptions()
	if opts.ImpersonateApprovers && !user.IsAdmin {
		return fmt.Errorf("impersonating approvers requires an administrator, user %q is none", user.Username)
	}
	if opts.AddReviewers && !user.IsAdmin {
		return fmt.Errorf("resolving reviewer addresses requires an administrator, user %q is none", user.Username)
	}

	return nil
}

func (b *Bot) currentUser(ctx context.Context) (*gitlab.User, error) {
	ctx, cancel := context.WithTimeout(ctx, listRetryBudget)
	defer cancel()

	var user *gitlab.User

	err := b.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		user, err = b.clt.CurrentUser(ctx)

		return err
	}, nil)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// listProjects returns the projects the bot merges in: every unarchived
// project with enabled merge requests that the bot user can write to and
// that matches the project filter.
func (b *Bot) listProjects(ctx context.Context) ([]project, error) {
	ctx, cancel := context.WithTimeout(ctx, listRetryBudget)
	defer cancel()

	var gitlabProjects []*gitlab.Project

	err := b.retryer.Run(ctx, func(ctx context.Context) error {
		var err error
		gitlabProjects, err = b.clt.BotProjects(ctx)

		return err
	}, nil)
	if err != nil {
		return nil, err
	}

	result := make([]project, 0, len(gitlabProjects))

	for _, p := range gitlabProjects {
		if re := b.conf.ProjectRegexp; re != nil && !re.MatchString(p.PathWithNamespace) {
			b.logger.Debug(
				"project skipped, does not match the project filter",
				logfields.Event("project_skipped"),
				logfields.Project(p.PathWithNamespace),
			)

			continue
		}

		result = append(result, newProject(p))
	}

	return result, nil
}

func (b *Bot) newLoop(p project) *projectLoop {
	return newProjectLoop(p, b.conf, b.clt, b.worktrees, b.retryer, b.notifier, b.botUser, b.logger)
}

// startLoops starts a supervised loop for every project that has none
// yet and was not disabled.
func (b *Bot) startLoops(ctx context.Context, projects []project) {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, p := range projects {
		if _, exist := b.loops[p.id]; exist {
			continue
		}
		if _, exist := b.disabled[p.id]; exist {
			continue
		}

		loopCtx, cancel := context.WithCancel(ctx)
		handle := &loopHandle{project: p, cancel: cancel}
		b.loops[p.id] = handle

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()

			b.superviseLoop(loopCtx, handle)
		}()
	}
}

// superviseLoop runs the loop of one project and restarts it with
// exponentially growing pauses when it fails.
// A loop that lost access to its project is disabled instead of
// restarted.
func (b *Bot) superviseLoop(ctx context.Context, handle *loopHandle) {
	defer b.removeLoop(handle.project.id)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	for {
		l := b.newLoop(handle.project)
		b.setLoop(handle, l)

		err := l.run(ctx)
		l.stop()

		if ctx.Err() != nil {
			return
		}

		if isAccessRevoked(err) {
			b.disableProject(handle.project, err)
			return
		}

		pause := bo.NextBackOff()
		b.logger.Warn(
			"project loop failed, restarting",
			logEventLoopRestarted,
			logfields.Project(handle.project.path),
			zap.Error(err),
			zap.Duration("restart_in", pause),
		)

		if sleepCtx(ctx, pause) != nil {
			return
		}
	}
}

func (b *Bot) setLoop(handle *loopHandle, l *projectLoop) {
	b.lock.Lock()
	defer b.lock.Unlock()

	handle.loop = l
}

func (b *Bot) removeLoop(projectID int) {
	b.lock.Lock()
	defer b.lock.Unlock()

	delete(b.loops, projectID)
}

// disableProject marks a project so that no loop is started for it
// anymore during this run.
func (b *Bot) disableProject(p project, err error) {
	b.lock.Lock()
	b.disabled[p.id] = struct{}{}
	b.lock.Unlock()

	b.logger.Warn(
		"lost access to the project, not retrying it anymore",
		logEventLoopDisabled,
		logfields.Project(p.path),
		zap.Error(err),
	)
}

func isAccessRevoked(err error) bool {
	return gitlabclt.IsUnauthorized(err) || gitlabclt.IsForbidden(err) || gitlabclt.IsNotFound(err)
}

// refreshProjects periodically rediscovers the accessible projects,
// starts loops for new ones and cancels the loops of projects that are
// not accessible anymore.
func (b *Bot) refreshProjects(ctx context.Context) {
	ticker := time.NewTicker(b.conf.refreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			projects, err := b.listProjects(ctx)
			if err != nil {
				b.logger.Warn(
					"refreshing the project list failed",
					logfields.Event("project_refresh_failed"),
					zap.Error(err),
				)

				continue
			}

			b.reconcileLoops(ctx, projects)
		}
	}
}

// reconcileLoops adapts the running loops to the given project list.
func (b *Bot) reconcileLoops(ctx context.Context, projects []project) {
	current := make(map[int]struct{}, len(projects))
	for _, p := range projects {
		current[p.id] = struct{}{}
	}

	var removed []*loopHandle

	b.lock.Lock()
	for id, handle := range b.loops {
		if _, exist := current[id]; !exist {
			removed = append(removed, handle)
		}
	}
	b.lock.Unlock()

	for _, handle := range removed {
		b.logger.Info(
			"project is not accessible anymore, stopping its loop",
			logfields.Event("project_loop_stopped"),
			logfields.Project(handle.project.path),
		)

		handle.cancel()
	}

	b.startLoops(ctx, projects)
}
