package merganser

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/merganser/internal/gitlabclt"
	"github.com/simplesurance/merganser/internal/mergejob"
	"github.com/simplesurance/merganser/internal/merganser/mocks"
	"github.com/simplesurance/merganser/internal/retryer"
)

func (b *Bot) loopCount() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return len(b.loops)
}

func (b *Bot) disabledCount() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return len(b.disabled)
}

func (b *Bot) runningLoops() []*projectLoop {
	b.lock.Lock()
	defer b.lock.Unlock()

	var loops []*projectLoop
	for _, handle := range b.loops {
		if handle.loop != nil {
			loops = append(loops, handle.loop)
		}
	}

	return loops
}

// waitForTickedLoops waits until the bot runs a loop per wanted project
// and every loop polled its project at least once.
func waitForTickedLoops(t *testing.T, b *Bot, wantedLen int) {
	t.Helper()

	require.Eventuallyf(
		t,
		func() bool {
			loops := b.runningLoops()
			if len(loops) != wantedLen {
				return false
			}

			for _, l := range loops {
				if l.ticks.Load() == 0 {
					return false
				}
			}

			return true
		},
		condWaitTimeout,
		condCheckInterval,
		"bot runs %d ticked loops, expected: %d", len(b.runningLoops()), wantedLen,
	)
}

type botFixture struct {
	clt       *mocks.MockGitlabClient
	worktrees *mocks.MockWorktreeProvider

	bot *Bot
}

func newBotFixture(t *testing.T, conf *Config) *botFixture {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)

	fix := botFixture{
		clt:       mocks.NewMockGitlabClient(mockctrl),
		worktrees: mocks.NewMockWorktreeProvider(mockctrl),
	}

	if conf == nil {
		conf = &Config{}
	}

	fix.bot = New(fix.clt, fix.worktrees, retryer.New(), nil, conf)
	t.Cleanup(fix.bot.Stop)

	return &fix
}

func (fix *botFixture) expectSetup() {
	fix.clt.EXPECT().
		CurrentUser(gomock.Any()).
		Return(&gitlab.User{ID: botUserID, Username: "merganser", Name: "Merganser Bot"}, nil)
	fix.clt.EXPECT().
		Version(gomock.Any()).
		Return(&gitlabclt.Version{Release: [3]int{15, 11, 2}, Edition: "ee"}, nil)
}

func (fix *botFixture) expectProjects(projects ...*gitlab.Project) {
	fix.clt.EXPECT().
		BotProjects(gomock.Any()).
		Return(projects, nil)
}

func testGitlabProject(id int, path string) *gitlab.Project {
	return &gitlab.Project{
		ID:                id,
		PathWithNamespace: path,
		SSHURLToRepo:      "git@gitlab.test:" + path + ".git",
		HTTPURLToRepo:     "https://gitlab.test/" + path + ".git",
	}
}

func TestStartFailsWhenTheTokenIsRejected(t *testing.T) {
	fix := newBotFixture(t, nil)

	fix.clt.EXPECT().
		CurrentUser(gomock.Any()).
		Return(nil, gitlabError(http.StatusUnauthorized, "401 Unauthorized"))

	err := fix.bot.Start(context.Background())
	require.Error(t, err)
	assert.True(t, gitlabclt.IsUnauthorized(err))
}

func TestStartRefusesImpersonationWithoutAdminPrivileges(t *testing.T) {
	conf := &Config{
		JobOptions: &mergejob.Options{ImpersonateApprovers: true},
	}
	fix := newBotFixture(t, conf)
	fix.expectSetup()

	err := fix.bot.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "administrator")
}

func TestStartRefusesReviewerResolutionWithoutAdminPrivileges(t *testing.T) {
	conf := &Config{
		JobOptions: &mergejob.Options{AddReviewers: true},
	}
	fix := newBotFixture(t, conf)
	fix.expectSetup()

	err := fix.bot.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "administrator")
}

func TestStartRunsOneLoopPerProject(t *testing.T) {
	fix := newBotFixture(t, nil)
	fix.expectSetup()
	fix.expectProjects(
		testGitlabProject(testProjectID, testProjectPath),
		testGitlabProject(8, "platform/other"),
	)

	fix.clt.EXPECT().
		OpenAssignedMergeRequests(gomock.Any(), gomock.Any(), botUserID, "created_at").
		Return(nil, nil).
		AnyTimes()

	err := fix.bot.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, fix.bot.loopCount())
	waitForTickedLoops(t, fix.bot, 2)

	fix.bot.Stop()
	assert.Equal(t, 0, fix.bot.loopCount())
}

func TestStartSkipsProjectsNotMatchingTheFilter(t *testing.T) {
	conf := &Config{
		ProjectRegexp: regexp.MustCompile(`^platform/playground$`),
	}
	fix := newBotFixture(t, conf)
	fix.expectSetup()
	fix.expectProjects(
		testGitlabProject(testProjectID, testProjectPath),
		testGitlabProject(8, "platform/other"),
	)

	fix.clt.EXPECT().
		OpenAssignedMergeRequests(gomock.Any(), testProjectID, botUserID, "created_at").
		Return(nil, nil).
		AnyTimes()

	err := fix.bot.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, fix.bot.loopCount())
	waitForTickedLoops(t, fix.bot, 1)

	fix.bot.Stop()
}

func TestLoopIsDisabledWhenAccessIsRevoked(t *testing.T) {
	fix := newBotFixture(t, nil)
	fix.expectSetup()
	fix.expectProjects(testGitlabProject(testProjectID, testProjectPath))

	fix.clt.EXPECT().
		OpenAssignedMergeRequests(gomock.Any(), testProjectID, botUserID, "created_at").
		Return(nil, gitlabError(http.StatusForbidden, "403 Forbidden")).
		AnyTimes()

	err := fix.bot.Start(context.Background())
	require.NoError(t, err)

	require.Eventuallyf(
		t,
		func() bool { return fix.bot.disabledCount() == 1 && fix.bot.loopCount() == 0 },
		condWaitTimeout,
		condCheckInterval,
		"the loop of the unaccessible project was not disabled",
	)

	// a disabled project stays disabled, rediscovering it must not
	// start a new loop
	fix.bot.startLoops(context.Background(), []project{testProject})
	assert.Equal(t, 0, fix.bot.loopCount())

	fix.bot.Stop()
}

func TestReconcileStopsLoopsOfVanishedProjects(t *testing.T) {
	fix := newBotFixture(t, nil)
	fix.expectSetup()
	fix.expectProjects(
		testGitlabProject(testProjectID, testProjectPath),
		testGitlabProject(8, "platform/other"),
	)

	fix.clt.EXPECT().
		OpenAssignedMergeRequests(gomock.Any(), gomock.Any(), botUserID, "created_at").
		Return(nil, nil).
		AnyTimes()

	err := fix.bot.Start(context.Background())
	require.NoError(t, err)
	waitForTickedLoops(t, fix.bot, 2)

	fix.bot.reconcileLoops(context.Background(), []project{testProject})

	require.Eventuallyf(
		t,
		func() bool { return fix.bot.loopCount() == 1 },
		condWaitTimeout,
		condCheckInterval,
		"the loop of the vanished project was not stopped, bot runs %d loops", fix.bot.loopCount(),
	)

	fix.bot.Stop()
}

func TestRunOncePollsEveryProjectOnce(t *testing.T) {
	fix := newBotFixture(t, nil)
	fix.expectSetup()
	fix.expectProjects(
		testGitlabProject(testProjectID, testProjectPath),
		testGitlabProject(8, "platform/other"),
	)

	fix.clt.EXPECT().
		OpenAssignedMergeRequests(gomock.Any(), testProjectID, botUserID, "created_at").
		Return(nil, nil)
	fix.clt.EXPECT().
		OpenAssignedMergeRequests(gomock.Any(), 8, botUserID, "created_at").
		Return(nil, nil)

	err := fix.bot.RunOnce(context.Background())
	require.NoError(t, err)
}

func TestRunOnceReportsListingFailures(t *testing.T) {
	fix := newBotFixture(t, nil)
	fix.expectSetup()
	fix.expectProjects(testGitlabProject(testProjectID, testProjectPath))

	fix.clt.EXPECT().
		OpenAssignedMergeRequests(gomock.Any(), testProjectID, botUserID, "created_at").
		Return(nil, gitlabError(http.StatusInternalServerError, "500 Internal Server Error"))

	err := fix.bot.RunOnce(context.Background())
	require.Error(t, err)
}
