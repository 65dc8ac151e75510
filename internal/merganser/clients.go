package merganser

import (
	"context"
	"time"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/gitlabclt"
	"github.com/simplesurance/merganser/internal/mergejob"
	"github.com/simplesurance/merganser/internal/notify"
)

// GitlabClient is the platform API surface of the bot.
// It extends the client interface of the jobs with the calls that discover
// the bot user, its projects and the merge requests waiting to be merged.
type GitlabClient interface {
	mergejob.GitlabClient

	CurrentUser(ctx context.Context) (*gitlab.User, error)
	Version(ctx context.Context) (*gitlabclt.Version, error)
	BotProjects(ctx context.Context) ([]*gitlab.Project, error)
	OpenAssignedMergeRequests(ctx context.Context, projectID, userID int, orderBy string) ([]*gitlab.MergeRequest, error)
	AssignedAt(ctx context.Context, projectID, iid int, username string) (time.Time, error)
}

// WorktreeProvider returns the local clone for a project, cloning the
// repository first when none exists yet.
type WorktreeProvider interface {
	Worktree(ctx context.Context, projectID int, sshURL, httpURL string) (mergejob.Worktree, error)
}

// Retryer is an interface used for running GitlabClient methods repeatedly
// if they fail with a temporary error.
type Retryer interface {
	Run(context.Context, func(context.Context) error, []zap.Field) error
	Stop()
}

// Notifier is informed about every merge request that the bot finished
// working on. Implementations must not block for long, notifications are
// sent from the worker goroutine of the project loop.
type Notifier interface {
	Notify(ctx context.Context, notification *notify.Notification)
}
