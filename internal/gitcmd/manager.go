package gitcmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/logfields"
)

// DefaultCommandTimeout is the default timeout per git command.
const DefaultCommandTimeout = 2 * time.Minute

// RepoManagerConfig configures a RepoManager.
type RepoManagerConfig struct {
	// RootDir is the directory under which project clones are created.
	RootDir string
	// SSHKeyFile is the path of the private key that git uses to
	// authenticate. When empty, HTTPSToken must be set.
	SSHKeyFile string
	// HTTPSToken enables cloning and pushing via HTTPS, authenticated
	// with the given API token.
	HTTPSToken string
	// ReferenceRepo is passed to git clone via --reference when set.
	ReferenceRepo string
	// UserName and UserEmail configure the committer identity of the
	// clones.
	UserName  string
	UserEmail string
	// CommandTimeout bounds a single git command, defaults to
	// DefaultCommandTimeout.
	CommandTimeout time.Duration
}

// RepoManager owns the local clones of project repositories.
// It maintains at most one clone per project and an exclusive lock that
// serializes worktree mutations across all clones.
type RepoManager struct {
	rootDir       string
	sshKeyFile    string
	httpsToken    string
	referenceRepo string
	userName      string
	userEmail     string
	cmdTimeout    time.Duration
	logger        *zap.Logger

	mu    sync.Mutex
	repos map[int]*Repo
}

func NewRepoManager(cfg *RepoManagerConfig) *RepoManager {
	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	return &RepoManager{
		rootDir:       cfg.RootDir,
		sshKeyFile:    cfg.SSHKeyFile,
		httpsToken:    cfg.HTTPSToken,
		referenceRepo: cfg.ReferenceRepo,
		userName:      cfg.UserName,
		userEmail:     cfg.UserEmail,
		cmdTimeout:    timeout,
		logger:        zap.L().Named(loggerName),
		repos:         map[int]*Repo{},
	}
}

// Repo returns the clone for the project, cloning the repository first
// when none exists yet. A clone whose remote URL does not match remoteURL
// anymore is removed and recreated.
// It must not be called while the lock of one of the managed repositories
// is held.
func (m *RepoManager) Repo(ctx context.Context, projectID int, sshURL, httpURL string) (*Repo, error) {
	remote, err := m.remoteURL(sshURL, httpURL)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if repo, exist := m.repos[projectID]; exist && repo.remoteURL == remote {
		return repo, nil
	}

	dir := filepath.Join(m.rootDir, strconv.Itoa(projectID))
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("removing stale clone directory failed: %w", err)
	}

	if err := m.clone(ctx, remote, dir); err != nil {
		return nil, err
	}

	repo := &Repo{
		projectID: projectID,
		dir:       dir,
		remoteURL: remote,
		mgr:       m,
	}
	m.repos[projectID] = repo

	m.logger.Debug(
		"repository cloned",
		logfields.Event("git_repository_cloned"),
		logfields.ProjectID(projectID),
		zap.String("git_clone_directory", dir),
	)

	return repo, nil
}

func (m *RepoManager) clone(ctx context.Context, remote, dir string) error {
	if err := os.MkdirAll(m.rootDir, 0o755); err != nil {
		return fmt.Errorf("creating clone root directory failed: %w", err)
	}

	// Initial clones move much more data than the other commands and
	// get a bigger share of the command timeout.
	ctx, cancel := context.WithTimeout(ctx, 10*m.cmdTimeout)
	defer cancel()

	args := []string{"clone", "--origin", "origin"}
	if m.referenceRepo != "" {
		args = append(args, "--reference", m.referenceRepo)
	}
	args = append(args, remote, dir)

	if _, err := runGit(ctx, m.logger, m.rootDir, m.gitEnv(), "", args...); err != nil {
		return err
	}

	if _, err := runGit(ctx, m.logger, dir, m.gitEnv(), "", "config", "user.name", m.userName); err != nil {
		return err
	}

	_, err := runGit(ctx, m.logger, dir, m.gitEnv(), "", "config", "user.email", m.userEmail)

	return err
}

// remoteURL returns the URL that the clone of a project pulls from and
// pushes to. When an HTTPS token is configured the token is embedded into
// the http URL, otherwise the ssh URL is used as-is.
func (m *RepoManager) remoteURL(sshURL, httpURL string) (string, error) {
	if m.httpsToken == "" {
		return sshURL, nil
	}

	u, err := url.Parse(httpURL)
	if err != nil {
		return "", fmt.Errorf("parsing repository http url failed: %w", err)
	}
	u.User = url.UserPassword("oauth2", m.httpsToken)

	return u.String(), nil
}

func (m *RepoManager) gitEnv() []string {
	env := append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	if m.sshKeyFile != "" {
		env = append(env, "GIT_SSH_COMMAND=ssh -o StrictHostKeyChecking=no -F /dev/null -o IdentitiesOnly=yes -i "+m.sshKeyFile)
	}

	return env
}
