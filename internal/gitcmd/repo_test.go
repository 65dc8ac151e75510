package gitcmd

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	out, err := cmd.CombinedOutput()
	require.NoErrorf(t, err, "git %v failed: %s", args, out)

	return strings.TrimSpace(string(out))
}

func commitFile(t *testing.T, dir, name, content, msg string) string {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	gitRun(t, dir, "add", name)
	gitRun(t, dir, "commit", "-m", msg)

	return gitRun(t, dir, "rev-parse", "HEAD")
}

type repoFixture struct {
	originDir string
	seedDir   string
	mgr       *RepoManager
	repo      *Repo
	// mainSHA is the first commit on the main branch.
	mainSHA string
}

// newRepoFixture creates a bare origin repository containing one commit
// on main, a seed clone for preparing further test commits and a managed
// clone of the origin.
func newRepoFixture(t *testing.T) *repoFixture {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not found in PATH")
	}

	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	root := t.TempDir()
	originDir := filepath.Join(root, "origin.git")
	seedDir := filepath.Join(root, "seed")

	gitRun(t, root, "init", "--bare", originDir)
	gitRun(t, originDir, "symbolic-ref", "HEAD", "refs/heads/main")

	gitRun(t, root, "clone", originDir, seedDir)
	gitRun(t, seedDir, "config", "user.name", "Seed User")
	gitRun(t, seedDir, "config", "user.email", "seed@example.com")
	gitRun(t, seedDir, "checkout", "-b", "main")

	mainSHA := commitFile(t, seedDir, "README.md", "hello\n", "initial commit")
	gitRun(t, seedDir, "push", "origin", "main")

	mgr := NewRepoManager(&RepoManagerConfig{
		RootDir:   filepath.Join(root, "clones"),
		UserName:  "merganser",
		UserEmail: "merganser@example.com",
	})

	repo, err := mgr.Repo(context.Background(), 1, originDir, "")
	require.NoError(t, err)

	return &repoFixture{
		originDir: originDir,
		seedDir:   seedDir,
		mgr:       mgr,
		repo:      repo,
		mainSHA:   mainSHA,
	}
}

// pushBranch creates branch at startPoint in the seed clone, commits the
// given file onto it and pushes it to origin. It returns the branch head.
func (f *repoFixture) pushBranch(t *testing.T, branch, startPoint, file, content string) string {
	t.Helper()

	gitRun(t, f.seedDir, "checkout", "-B", branch, startPoint)
	sha := commitFile(t, f.seedDir, file, content, "add "+file)
	gitRun(t, f.seedDir, "push", "origin", branch)

	return sha
}

func (f *repoFixture) originSHA(t *testing.T, branch string) string {
	t.Helper()
	return gitRun(t, f.originDir, "rev-parse", "refs/heads/"+branch)
}

func TestRepoIsReusedForSameRemote(t *testing.T) {
	fix := newRepoFixture(t)

	again, err := fix.mgr.Repo(context.Background(), 1, fix.originDir, "")
	require.NoError(t, err)
	assert.Same(t, fix.repo, again)
}

func TestRebaseAndPushWithLease(t *testing.T) {
	fix := newRepoFixture(t)
	ctx := context.Background()

	featureSHA := fix.pushBranch(t, "feature", fix.mainSHA, "feature.txt", "feature\n")
	gitRun(t, fix.seedDir, "checkout", "main")
	commitFile(t, fix.seedDir, "main.txt", "main\n", "advance main")
	gitRun(t, fix.seedDir, "push", "origin", "main")

	require.NoError(t, fix.repo.Fetch(ctx))

	targetSHA, err := fix.repo.CommitSHA(ctx, "origin/main")
	require.NoError(t, err)

	newSHA, err := fix.repo.Rebase(ctx, "feature", "origin/feature", targetSHA)
	require.NoError(t, err)
	assert.NotEqual(t, featureSHA, newSHA)

	onTip, err := fix.repo.IsAncestor(ctx, targetSHA, newSHA)
	require.NoError(t, err)
	assert.True(t, onTip, "rebased head does not contain the target tip")

	err = fix.repo.Push(ctx, "feature", &PushOptions{ExpectedRemoteSHA: featureSHA})
	require.NoError(t, err)
	assert.Equal(t, newSHA, fix.originSHA(t, "feature"))

	// Another writer moves the source branch, the recorded lease is
	// stale now.
	gitRun(t, fix.seedDir, "checkout", "feature")
	movedSHA := commitFile(t, fix.seedDir, "more.txt", "more\n", "add more.txt")
	gitRun(t, fix.seedDir, "push", "--force", "origin", "feature")

	err = fix.repo.Push(ctx, "feature", &PushOptions{ExpectedRemoteSHA: featureSHA})
	require.Error(t, err)

	var gitErr *GitError
	require.ErrorAs(t, err, &gitErr)
	assert.Equal(t, movedSHA, fix.originSHA(t, "feature"))
}

func TestRebaseConflictLeavesWorktreeClean(t *testing.T) {
	fix := newRepoFixture(t)
	ctx := context.Background()

	fix.pushBranch(t, "feature", fix.mainSHA, "shared.txt", "feature version\n")
	gitRun(t, fix.seedDir, "checkout", "main")
	commitFile(t, fix.seedDir, "shared.txt", "main version\n", "conflicting change")
	gitRun(t, fix.seedDir, "push", "origin", "main")

	require.NoError(t, fix.repo.Fetch(ctx))

	targetSHA, err := fix.repo.CommitSHA(ctx, "origin/main")
	require.NoError(t, err)

	_, err = fix.repo.Rebase(ctx, "feature", "origin/feature", targetSHA)
	require.Error(t, err)

	var gitErr *GitError
	require.ErrorAs(t, err, &gitErr)
	assert.NotEmpty(t, gitErr.Stderr)

	assert.Empty(t, gitRun(t, fix.repo.Dir(), "status", "--porcelain"))
}

func TestTagWithTrailerRewritesAndIsIdempotent(t *testing.T) {
	fix := newRepoFixture(t)
	ctx := context.Background()

	fix.pushBranch(t, "feature", fix.mainSHA, "one.txt", "one\n")
	commitFile(t, fix.seedDir, "two.txt", "two\n", "add two.txt")
	gitRun(t, fix.seedDir, "push", "origin", "feature")

	require.NoError(t, fix.repo.Fetch(ctx))
	require.NoError(t, fix.repo.CheckoutBranch(ctx, "feature", "origin/feature"))

	oldHead, err := fix.repo.CommitSHA(ctx, "feature")
	require.NoError(t, err)
	oldIdentity := gitRun(t, fix.repo.Dir(), "show", "-s", "--format=%an %ae %aI", oldHead)

	trailers := []string{
		"Reviewed-by: Jane Doe <jane@example.com>",
		"Part-of: <https://gitlab.example.com/g/p/merge_requests/7>",
	}

	newHead, err := fix.repo.TagWithTrailer(ctx, "feature", fix.mainSHA, trailers)
	require.NoError(t, err)
	assert.NotEqual(t, oldHead, newHead)

	msg := gitRun(t, fix.repo.Dir(), "show", "-s", "--format=%B", newHead)
	parentMsg := gitRun(t, fix.repo.Dir(), "show", "-s", "--format=%B", newHead+"^")
	for _, trailer := range trailers {
		assert.Contains(t, msg, trailer)
		assert.Contains(t, parentMsg, trailer)
	}

	assert.Equal(
		t, oldIdentity,
		gitRun(t, fix.repo.Dir(), "show", "-s", "--format=%an %ae %aI", newHead),
		"author identity of the rewritten commit changed",
	)

	sameHead, err := fix.repo.TagWithTrailer(ctx, "feature", fix.mainSHA, trailers)
	require.NoError(t, err)
	assert.Equal(t, newHead, sameHead, "rewriting already present trailers must not change the head")
}

func TestPushRefusesDirtyWorktree(t *testing.T) {
	fix := newRepoFixture(t)
	ctx := context.Background()

	require.NoError(t, fix.repo.Fetch(ctx))
	require.NoError(t, fix.repo.CheckoutBranch(ctx, "main", "origin/main"))

	err := os.WriteFile(filepath.Join(fix.repo.Dir(), "README.md"), []byte("changed\n"), 0o644)
	require.NoError(t, err)

	err = fix.repo.Push(ctx, "main", nil)
	require.ErrorIs(t, err, ErrDirtyWorktree)

	require.NoError(t, fix.repo.Cleanup(ctx))
	require.NoError(t, fix.repo.Push(ctx, "main", nil))
}

func TestFastForwardAndRemoteBranchRemoval(t *testing.T) {
	fix := newRepoFixture(t)
	ctx := context.Background()

	featureSHA := fix.pushBranch(t, "feature", fix.mainSHA, "feature.txt", "feature\n")

	require.NoError(t, fix.repo.Fetch(ctx))
	require.NoError(t, fix.repo.CheckoutBranch(ctx, "batch/main", fix.mainSHA))
	require.NoError(t, fix.repo.FastForward(ctx, "batch/main", featureSHA))

	sha, err := fix.repo.CommitSHA(ctx, "batch/main")
	require.NoError(t, err)
	assert.Equal(t, featureSHA, sha)

	require.NoError(t, fix.repo.Push(ctx, "batch/main", &PushOptions{Force: true}))
	assert.Equal(t, featureSHA, fix.originSHA(t, "batch/main"))

	require.NoError(t, fix.repo.DeleteRemoteBranch(ctx, "batch/main"))

	cmd := exec.Command("git", "rev-parse", "--verify", "refs/heads/batch/main")
	cmd.Dir = fix.originDir
	require.Error(t, cmd.Run(), "remote batch branch still exists after deletion")
}
