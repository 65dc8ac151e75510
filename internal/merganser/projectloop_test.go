package merganser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xanzy/go-gitlab"
	"go.uber.org/atomic"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/merganser/internal/gitlabclt"
	"github.com/simplesurance/merganser/internal/mergejob"
	jobmocks "github.com/simplesurance/merganser/internal/mergejob/mocks"
	"github.com/simplesurance/merganser/internal/merganser/mocks"
	"github.com/simplesurance/merganser/internal/notify"
	"github.com/simplesurance/merganser/internal/retryer"
)

const testProjectID = 7
const testProjectPath = "platform/playground"
const botUserID = 5917
const testAuthorID = 23

const targetBranchSHA = "40ff9a0932df907a03d6d6b732e701b1d24f62d1"

const condCheckInterval = 20 * time.Millisecond
const condWaitTimeout = 5 * time.Second

const draftComment = "Sorry, I can't merge this: it is a draft."

var testProject = project{
	id:      testProjectID,
	path:    testProjectPath,
	sshURL:  "git@gitlab.test:platform/playground.git",
	httpURL: "https://gitlab.test/platform/playground.git",
}

var testBotUser = &gitlab.User{
	ID:       botUserID,
	Username: "merganser",
	Name:     "Merganser Bot",
}

func mrSHA(iid int) string {
	return fmt.Sprintf("%040x", iid)
}

func makeMR(iid int, sourceBranch, targetBranch string) *gitlab.MergeRequest {
	createdAt := time.Date(2023, time.March, 3, 10, 0, 0, 0, time.UTC).
		Add(time.Duration(iid) * time.Minute)

	return &gitlab.MergeRequest{
		IID:          iid,
		ProjectID:    testProjectID,
		Title:        fmt.Sprintf("change %d", iid),
		State:        "opened",
		MergeStatus:  "can_be_merged",
		SourceBranch: sourceBranch,
		TargetBranch: targetBranch,
		SHA:          mrSHA(iid),
		WebURL:       fmt.Sprintf("https://gitlab.test/platform/playground/-/merge_requests/%d", iid),
		CreatedAt:    &createdAt,
		Author:       &gitlab.BasicUser{ID: testAuthorID},
		Assignees:    []*gitlab.BasicUser{{ID: botUserID}},
	}
}

// gitlabError builds the error that the platform client returns for an
// API response with the given status code.
func gitlabError(statusCode int, message string) error {
	return &gitlab.ErrorResponse{
		Message: message,
		Response: &http.Response{
			StatusCode: statusCode,
			Request: &http.Request{
				Method: http.MethodGet,
				URL:    &url.URL{Scheme: "https", Host: "gitlab.test", Path: "/api/v4/merge_requests"},
			},
		},
	}
}

// notifierStub records the notifications a loop delivers.
type notifierStub struct {
	lock sync.Mutex
	got  []*notify.Notification
}

func (n *notifierStub) Notify(_ context.Context, notification *notify.Notification) {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.got = append(n.got, notification)
}

func (n *notifierStub) notifications() []*notify.Notification {
	n.lock.Lock()
	defer n.lock.Unlock()

	return append([]*notify.Notification{}, n.got...)
}

func (l *projectLoop) pendingIIDs() []int {
	l.lock.Lock()
	defer l.lock.Unlock()

	var iids []int
	l.pending.Foreach(func(c *candidate) bool {
		iids = append(iids, c.iid)
		return true
	})

	return iids
}

func (l *projectLoop) coolingDownNow(iid int) bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.cooldowns.coolingDown(iid, time.Now())
}

func waitForNotifications(t *testing.T, notifier *notifierStub, wantedLen int) {
	t.Helper()

	require.Eventuallyf(
		t,
		func() bool { return len(notifier.notifications()) == wantedLen },
		condWaitTimeout,
		condCheckInterval,
		"notification count is: %d, expected: %d", len(notifier.notifications()), wantedLen,
	)
}

// loopFixture drives a project loop against mocked platform state.
// The mocks answer listing and read calls from the assigned field, tests
// mutate it to simulate state changes on the platform.
type loopFixture struct {
	clt       *mocks.MockGitlabClient
	worktrees *mocks.MockWorktreeProvider
	worktree  *jobmocks.MockWorktree
	notifier  *notifierStub

	lock     sync.Mutex
	assigned []*gitlab.MergeRequest
	listErr  error
	mrErr    error

	worktreeCalls atomic.Int32

	loop *projectLoop
}

func newLoopFixture(t *testing.T, conf *Config) *loopFixture {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)

	fix := loopFixture{
		clt:       mocks.NewMockGitlabClient(mockctrl),
		worktrees: mocks.NewMockWorktreeProvider(mockctrl),
		worktree:  jobmocks.NewMockWorktree(mockctrl),
		notifier:  &notifierStub{},
	}

	fix.clt.EXPECT().
		OpenAssignedMergeRequests(gomock.Any(), testProjectID, botUserID, "created_at").
		DoAndReturn(func(context.Context, int, int, string) ([]*gitlab.MergeRequest, error) {
			fix.lock.Lock()
			defer fix.lock.Unlock()

			if fix.listErr != nil {
				return nil, fix.listErr
			}

			mrs := make([]*gitlab.MergeRequest, 0, len(fix.assigned))
			for _, mr := range fix.assigned {
				copied := *mr
				mrs = append(mrs, &copied)
			}

			return mrs, nil
		}).
		AnyTimes()

	fix.clt.EXPECT().
		MergeRequest(gomock.Any(), testProjectID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, iid int) (*gitlab.MergeRequest, error) {
			fix.lock.Lock()
			defer fix.lock.Unlock()

			if fix.mrErr != nil {
				return nil, fix.mrErr
			}

			for _, mr := range fix.assigned {
				if mr.IID == iid {
					copied := *mr
					return &copied, nil
				}
			}

			return nil, gitlabError(http.StatusNotFound, "404 Not found")
		}).
		AnyTimes()

	fix.clt.EXPECT().
		Project(gomock.Any(), testProjectID).
		Return(&gitlab.Project{ID: testProjectID, MergeMethod: gitlab.FastForwardMerge}, nil).
		AnyTimes()

	fix.clt.EXPECT().
		MergeRequestApprovals(gomock.Any(), testProjectID, gomock.Any()).
		Return(&gitlabclt.Approvals{}, nil).
		AnyTimes()

	fix.clt.EXPECT().
		Branch(gomock.Any(), testProjectID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int, name string) (*gitlab.Branch, error) {
			return &gitlab.Branch{Name: name}, nil
		}).
		AnyTimes()

	fix.worktrees.EXPECT().
		Worktree(gomock.Any(), testProjectID, testProject.sshURL, testProject.httpURL).
		DoAndReturn(func(context.Context, int, string, string) (mergejob.Worktree, error) {
			fix.worktreeCalls.Inc()
			return fix.worktree, nil
		}).
		AnyTimes()

	fix.worktree.EXPECT().Lock().AnyTimes()
	fix.worktree.EXPECT().Unlock().AnyTimes()
	fix.worktree.EXPECT().Cleanup(gomock.Any()).Return(nil).AnyTimes()

	if conf == nil {
		conf = &Config{}
	}

	fix.loop = newProjectLoop(
		testProject,
		conf,
		fix.clt,
		fix.worktrees,
		retryer.New(),
		fix.notifier,
		testBotUser,
		zap.L(),
	)
	t.Cleanup(fix.loop.stop)

	return &fix
}

func (fix *loopFixture) setAssigned(mrs ...*gitlab.MergeRequest) {
	fix.lock.Lock()
	defer fix.lock.Unlock()

	fix.assigned = mrs
}

func (fix *loopFixture) setListErr(err error) {
	fix.lock.Lock()
	defer fix.lock.Unlock()

	fix.listErr = err
}

func (fix *loopFixture) setMRErr(err error) {
	fix.lock.Lock()
	defer fix.lock.Unlock()

	fix.mrErr = err
}

// expectRebaseUpToDate expects one refresh of the clone and a rebase of
// the source branch that results in the commit the merge request already
// points to, so that no push is needed.
func (fix *loopFixture) expectRebaseUpToDate(sourceBranch, targetBranch, head string) {
	fix.worktree.EXPECT().Fetch(gomock.Any()).Return(nil)
	fix.worktree.EXPECT().
		CommitSHA(gomock.Any(), "origin/"+targetBranch).
		Return(targetBranchSHA, nil)
	fix.worktree.EXPECT().
		Rebase(gomock.Any(), sourceBranch, "origin/"+sourceBranch, targetBranchSHA).
		Return(head, nil)
}

// expectAccept lets the accept call succeed like a synchronous platform
// merge, the stored merge request switches to the merged state.
func (fix *loopFixture) expectAccept(iid int) *gomock.Call {
	return fix.clt.EXPECT().
		AcceptMergeRequest(gomock.Any(), testProjectID, iid, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ int, _ *gitlabclt.AcceptMROptions) (*gitlab.MergeRequest, error) {
			fix.lock.Lock()
			defer fix.lock.Unlock()

			for _, mr := range fix.assigned {
				if mr.IID == iid {
					mr.State = "merged"
					copied := *mr
					return &copied, nil
				}
			}

			return nil, gitlabError(http.StatusNotFound, "404 Not found")
		})
}

// expectRejection expects exactly one rejection comment and that the
// merge request is assigned back to its author.
func (fix *loopFixture) expectRejection(iid int, comment string) {
	fix.clt.EXPECT().
		Comment(gomock.Any(), testProjectID, iid, comment).
		Return(nil)
	fix.clt.EXPECT().
		AssignMergeRequest(gomock.Any(), testProjectID, iid, testAuthorID).
		Return(nil)
}

func TestFilterSkipsNonMatchingBranches(t *testing.T) {
	conf := &Config{
		BranchRegexp:       regexp.MustCompile(`^main$`),
		SourceBranchRegexp: regexp.MustCompile(`^feature/`),
	}
	fix := newLoopFixture(t, conf)

	candidates := fix.loop.filterCandidates(context.Background(), []*gitlab.MergeRequest{
		makeMR(1, "feature/a", "main"),
		makeMR(2, "feature/b", "develop"),
		makeMR(3, "hotfix/c", "main"),
	})

	require.Len(t, candidates, 1)
	assert.Equal(t, 1, candidates[0].iid)
}

func TestFilterAppliesQuery(t *testing.T) {
	filter, err := NewMRFilter(`.labels | contains(["urgent"])`)
	require.NoError(t, err)

	fix := newLoopFixture(t, &Config{Filter: filter})

	urgent := makeMR(1, "feature/a", "main")
	urgent.Labels = gitlab.Labels{"urgent"}
	plain := makeMR(2, "feature/b", "main")

	candidates := fix.loop.filterCandidates(context.Background(), []*gitlab.MergeRequest{urgent, plain})

	require.Len(t, candidates, 1)
	assert.Equal(t, 1, candidates[0].iid)
}

func TestSyncPendingKeepsFirstSeenOrder(t *testing.T) {
	fix := newLoopFixture(t, nil)
	l := fix.loop

	l.syncPending([]*candidate{
		newCandidate(makeMR(1, "feature/a", "main")),
		newCandidate(makeMR(2, "feature/b", "main")),
	})
	assert.Equal(t, []int{1, 2}, l.pendingIIDs())

	// 3 is listed first on the next poll, it still joins at the back
	l.syncPending([]*candidate{
		newCandidate(makeMR(3, "feature/c", "main")),
		newCandidate(makeMR(1, "feature/a", "main")),
		newCandidate(makeMR(2, "feature/b", "main")),
	})
	assert.Equal(t, []int{1, 2, 3}, l.pendingIIDs())
}

func TestSyncPendingDropsVanishedMergeRequests(t *testing.T) {
	fix := newLoopFixture(t, nil)
	l := fix.loop

	l.syncPending([]*candidate{
		newCandidate(makeMR(1, "feature/a", "main")),
		newCandidate(makeMR(2, "feature/b", "main")),
		newCandidate(makeMR(3, "feature/c", "main")),
	})

	l.lock.Lock()
	l.cooldowns.requeued(2, 0)
	l.lock.Unlock()

	l.syncPending([]*candidate{
		newCandidate(makeMR(1, "feature/a", "main")),
		newCandidate(makeMR(3, "feature/c", "main")),
	})

	assert.Equal(t, []int{1, 3}, l.pendingIIDs())
	assert.False(t, l.coolingDownNow(2),
		"the cool-down state of an unassigned merge request must be forgotten")
}

func TestNextCandidatesSkipsCoolingMergeRequests(t *testing.T) {
	fix := newLoopFixture(t, nil)
	l := fix.loop

	l.syncPending([]*candidate{
		newCandidate(makeMR(1, "feature/a", "main")),
		newCandidate(makeMR(2, "feature/b", "main")),
	})

	l.lock.Lock()
	pause := l.cooldowns.requeued(1, 0)
	l.lock.Unlock()

	next := l.nextCandidates(time.Now())
	require.Len(t, next, 1)
	assert.Equal(t, 2, next[0].iid)

	// once the pause passed the merge request is due again, and it kept
	// its place at the front of the queue
	next = l.nextCandidates(time.Now().Add(pause + time.Second))
	require.Len(t, next, 1)
	assert.Equal(t, 1, next[0].iid)
}

func TestNextCandidatesBatchesSameTargetBranch(t *testing.T) {
	fix := newLoopFixture(t, &Config{Batch: true, BatchSize: 3})
	l := fix.loop

	l.syncPending([]*candidate{
		newCandidate(makeMR(1, "feature/a", "main")),
		newCandidate(makeMR(2, "feature/b", "main")),
		newCandidate(makeMR(3, "feature/c", "develop")),
		newCandidate(makeMR(4, "feature/d", "main")),
	})

	next := l.nextCandidates(time.Now())
	require.Len(t, next, 3)
	assert.Equal(t, []int{1, 2, 4}, candidateIIDs(next))

	// when the leading merge requests cool down, the batch is built for
	// the target branch of the first due one
	l.lock.Lock()
	l.cooldowns.requeued(1, 0)
	l.cooldowns.requeued(2, 0)
	l.lock.Unlock()

	next = l.nextCandidates(time.Now())
	require.Len(t, next, 1)
	assert.Equal(t, 3, next[0].iid)
}

func TestNextCandidatesHonorsBatchSize(t *testing.T) {
	fix := newLoopFixture(t, &Config{Batch: true, BatchSize: 2})
	l := fix.loop

	l.syncPending([]*candidate{
		newCandidate(makeMR(1, "feature/a", "main")),
		newCandidate(makeMR(2, "feature/b", "main")),
		newCandidate(makeMR(3, "feature/c", "main")),
	})

	next := l.nextCandidates(time.Now())
	assert.Equal(t, []int{1, 2}, candidateIIDs(next))
}

func TestNextCandidatesWithoutBatching(t *testing.T) {
	fix := newLoopFixture(t, nil)
	l := fix.loop

	l.syncPending([]*candidate{
		newCandidate(makeMR(1, "feature/a", "main")),
		newCandidate(makeMR(2, "feature/b", "main")),
	})

	next := l.nextCandidates(time.Now())
	require.Len(t, next, 1)
	assert.Equal(t, 1, next[0].iid)
}

func TestSortByAssignmentOrdersByAssignmentTime(t *testing.T) {
	fix := newLoopFixture(t, &Config{Order: OrderAssignedAt})
	l := fix.loop

	base := time.Date(2023, time.March, 6, 9, 0, 0, 0, time.UTC)

	fix.clt.EXPECT().
		AssignedAt(gomock.Any(), testProjectID, 1, testBotUser.Username).
		Return(base.Add(2*time.Hour), nil)
	fix.clt.EXPECT().
		AssignedAt(gomock.Any(), testProjectID, 2, testBotUser.Username).
		Return(base, nil)

	candidates := []*candidate{
		newCandidate(makeMR(1, "feature/a", "main")),
		newCandidate(makeMR(2, "feature/b", "main")),
	}

	l.sortByAssignment(context.Background(), candidates)
	assert.Equal(t, []int{2, 1}, candidateIIDs(candidates))

	// the resolved times are cached, sorting again must not query the
	// platform again
	candidates = []*candidate{
		newCandidate(makeMR(1, "feature/a", "main")),
		newCandidate(makeMR(2, "feature/b", "main")),
	}

	l.sortByAssignment(context.Background(), candidates)
	assert.Equal(t, []int{2, 1}, candidateIIDs(candidates))
}

func TestSortByAssignmentFallsBackToCreationTime(t *testing.T) {
	fix := newLoopFixture(t, &Config{Order: OrderAssignedAt})
	l := fix.loop

	fix.clt.EXPECT().
		AssignedAt(gomock.Any(), testProjectID, 1, testBotUser.Username).
		Return(time.Time{}, nil)
	fix.clt.EXPECT().
		AssignedAt(gomock.Any(), testProjectID, 2, testBotUser.Username).
		Return(time.Time{}, gitlabError(http.StatusInternalServerError, "500 Internal Server Error"))

	// 1 was created after 2, the creation time fallback must invert the
	// listing order
	first := makeMR(1, "feature/a", "main")
	createdLate := time.Date(2023, time.March, 6, 12, 0, 0, 0, time.UTC)
	first.CreatedAt = &createdLate

	second := makeMR(2, "feature/b", "main")
	createdEarly := time.Date(2023, time.March, 6, 8, 0, 0, 0, time.UTC)
	second.CreatedAt = &createdEarly

	candidates := []*candidate{newCandidate(first), newCandidate(second)}

	l.sortByAssignment(context.Background(), candidates)
	assert.Equal(t, []int{2, 1}, candidateIIDs(candidates))
}

func TestTickContinuesAfterTransientListError(t *testing.T) {
	fix := newLoopFixture(t, nil)

	fix.setListErr(gitlabError(http.StatusInternalServerError, "500 Internal Server Error"))

	idle, err := fix.loop.tick(context.Background())
	require.NoError(t, err)
	assert.False(t, idle)

	fix.setListErr(nil)

	idle, err = fix.loop.tick(context.Background())
	require.NoError(t, err)
	assert.True(t, idle, "a tick without pending merge requests must report idle")
}

func TestTickFailsWhenAccessIsRevoked(t *testing.T) {
	fix := newLoopFixture(t, nil)

	fix.setListErr(gitlabError(http.StatusForbidden, "403 Forbidden"))

	_, err := fix.loop.tick(context.Background())
	require.Error(t, err)
	assert.True(t, gitlabclt.IsForbidden(err))
}

func TestRunOnceMergesTheFirstPendingMergeRequest(t *testing.T) {
	fix := newLoopFixture(t, nil)

	fix.setAssigned(makeMR(1, "feature/a", "main"))
	fix.expectRebaseUpToDate("feature/a", "main", mrSHA(1))
	fix.expectAccept(1)

	err := fix.loop.runOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, fix.loop.pendingIIDs())

	notifications := fix.notifier.notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, "merged", notifications[0].Conclusion)
	assert.Equal(t, 1, notifications[0].MergeRequest)
	assert.Equal(t, testProjectPath, notifications[0].Project)
	assert.Equal(t, "change 1", notifications[0].Title)
}

func TestRunOnceRejectsDrafts(t *testing.T) {
	fix := newLoopFixture(t, nil)

	mr := makeMR(2, "feature/b", "main")
	mr.WorkInProgress = true
	fix.setAssigned(mr)
	fix.expectRejection(2, draftComment)

	err := fix.loop.runOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, fix.loop.pendingIIDs())

	notifications := fix.notifier.notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, "rejected", notifications[0].Conclusion)
	assert.Equal(t, "it is a draft", notifications[0].Reason)
}

func TestRunOnceKeepsCancelledMergeRequestsPending(t *testing.T) {
	fix := newLoopFixture(t, nil)

	// The merge request was closed after it was listed, the job aborts
	// silently and the next poll removes it from the queue.
	mr := makeMR(3, "feature/c", "main")
	mr.State = "closed"
	fix.setAssigned(mr)

	err := fix.loop.runOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{3}, fix.loop.pendingIIDs())
	assert.Empty(t, fix.notifier.notifications())
}

func TestRunOnceRequeuesEmbargoedMergeRequest(t *testing.T) {
	conf := &Config{
		JobOptions: &mergejob.Options{
			EmbargoBranches: regexp.MustCompile(`^main$`),
		},
	}
	fix := newLoopFixture(t, conf)

	fix.setAssigned(makeMR(4, "feature/d", "main"))

	err := fix.loop.runOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{4}, fix.loop.pendingIIDs())
	assert.True(t, fix.loop.coolingDownNow(4))
	assert.Empty(t, fix.notifier.notifications())
	require.EqualValues(t, 1, fix.worktreeCalls.Load())

	// while the merge request cools down no further job starts
	err = fix.loop.runOnce(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, fix.worktreeCalls.Load())
}

func TestRunOnceEscalatesAuthorizationFailures(t *testing.T) {
	fix := newLoopFixture(t, nil)

	fix.setAssigned(makeMR(5, "feature/e", "main"))
	fix.setMRErr(gitlabError(http.StatusUnauthorized, "401 Unauthorized"))

	err := fix.loop.runOnce(context.Background())
	require.Error(t, err)
	assert.True(t, gitlabclt.IsUnauthorized(err))
}

func TestBatchRejectsEveryDraftCandidate(t *testing.T) {
	fix := newLoopFixture(t, &Config{Batch: true})

	first := makeMR(6, "feature/f", "main")
	first.WorkInProgress = true
	second := makeMR(7, "feature/g", "main")
	second.WorkInProgress = true

	fix.setAssigned(first, second)
	fix.expectRejection(6, draftComment)
	fix.expectRejection(7, draftComment)

	err := fix.loop.runOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, fix.loop.pendingIIDs())

	notifications := fix.notifier.notifications()
	require.Len(t, notifications, 2)
	for _, notification := range notifications {
		assert.Equal(t, "rejected", notification.Conclusion)
	}
}

func TestTickRunsTheJobOnTheWorkerGoroutine(t *testing.T) {
	fix := newLoopFixture(t, nil)

	fix.setAssigned(makeMR(8, "feature/h", "main"))
	fix.expectRebaseUpToDate("feature/h", "main", mrSHA(8))
	fix.expectAccept(8)

	idle, err := fix.loop.tick(context.Background())
	require.NoError(t, err)
	assert.False(t, idle)

	waitForNotifications(t, fix.notifier, 1)
	assert.Equal(t, "merged", fix.notifier.notifications()[0].Conclusion)
	assert.Empty(t, fix.loop.pendingIIDs())
}

func TestStopAbortsTheRunningJob(t *testing.T) {
	fix := newLoopFixture(t, nil)

	fix.setAssigned(makeMR(9, "feature/i", "main"))

	var fetchStarted atomic.Bool
	fix.worktree.EXPECT().
		Fetch(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			fetchStarted.Store(true)
			<-ctx.Done()
			return ctx.Err()
		})

	_, err := fix.loop.tick(context.Background())
	require.NoError(t, err)

	require.Eventuallyf(
		t,
		fetchStarted.Load,
		condWaitTimeout,
		condCheckInterval,
		"the merge job did not reach the worktree fetch",
	)

	fix.loop.stop()

	assert.Nil(t, fix.loop.getExecuting())
	assert.Empty(t, fix.notifier.notifications())
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
