package gitcmd

import (
	"context"
	"errors"
	"fmt"
)

// Repo is the local clone of a project repository.
// Methods that mutate branches or push must only be called while the lock
// is held (Lock).
type Repo struct {
	projectID int
	dir       string
	remoteURL string
	mgr       *RepoManager
}

// PushOptions control how a branch is pushed.
type PushOptions struct {
	// RemoteURL pushes to the given URL instead of the origin remote.
	// Used for merge requests whose source branch lives in a fork.
	RemoteURL string
	// ExpectedRemoteSHA makes the push conditional on the remote branch
	// still pointing at the given commit (--force-with-lease).
	ExpectedRemoteSHA string
	// Force pushes unconditionally. Mutually exclusive with
	// ExpectedRemoteSHA.
	Force bool
	// SkipCI suppresses pipeline creation for the pushed commits.
	SkipCI bool
}

// Lock acquires the exclusive worktree lock that is shared between all
// repositories of the manager.
func (r *Repo) Lock() {
	r.mgr.mu.Lock()
}

func (r *Repo) Unlock() {
	r.mgr.mu.Unlock()
}

// Dir returns the directory of the clone.
func (r *Repo) Dir() string {
	return r.dir
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	return r.runEnv(ctx, nil, "", args...)
}

func (r *Repo) runEnv(ctx context.Context, extraEnv []string, stdin string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.mgr.cmdTimeout)
	defer cancel()

	return runGit(ctx, r.mgr.logger, r.dir, append(r.mgr.gitEnv(), extraEnv...), stdin, args...)
}

// Fetch updates the local origin refs from the remote and prunes refs
// that vanished remotely.
func (r *Repo) Fetch(ctx context.Context) error {
	_, err := r.run(ctx, "fetch", "--prune", "origin")
	return err
}

// FetchBranch updates refs/remotes/source/<branch> with the tip of branch
// at the given remote URL. It is used for merge requests whose source
// branch lives in a fork of the project.
func (r *Repo) FetchBranch(ctx context.Context, remoteURL, branch string) error {
	refspec := fmt.Sprintf("+refs/heads/%s:refs/remotes/source/%s", branch, branch)
	_, err := r.run(ctx, "fetch", "--no-tags", remoteURL, refspec)

	return err
}

// SourceRemoteURL returns the URL for fetching from and pushing to a fork
// of the project, with the credentials of the manager applied.
func (r *Repo) SourceRemoteURL(sshURL, httpURL string) (string, error) {
	return r.mgr.remoteURL(sshURL, httpURL)
}

// CommitSHA resolves ref to a commit SHA.
func (r *Repo) CommitSHA(ctx context.Context, ref string) (string, error) {
	return r.run(ctx, "rev-parse", ref+"^{commit}")
}

// IsAncestor returns true when ancestor is reachable from descendant.
func (r *Repo) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	_, err := r.run(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	if err == nil {
		return true, nil
	}

	var gitErr *GitError
	if errors.As(err, &gitErr) && gitErr.ExitCode == 1 {
		return false, nil
	}

	return false, err
}

// CheckoutBranch checks out branch, creating or resetting it to
// startPoint.
func (r *Repo) CheckoutBranch(ctx context.Context, branch, startPoint string) error {
	_, err := r.run(ctx, "checkout", "-B", branch, startPoint, "--")
	return err
}

// RemoveBranch deletes the local branch. The worktree is detached first
// so the currently checked out branch can be removed too.
func (r *Repo) RemoveBranch(ctx context.Context, branch string) error {
	if _, err := r.run(ctx, "checkout", "--detach"); err != nil {
		return err
	}

	_, err := r.run(ctx, "branch", "-D", branch)

	return err
}

// Rebase recreates branch at startPoint, usually its origin or source
// remote tip, and rebases it onto the given commit. It returns the new
// head SHA of the branch.
// When the rebase stops on conflicting changes it is aborted, the
// worktree is left clean and the *GitError of the rebase command is
// returned.
func (r *Repo) Rebase(ctx context.Context, branch, startPoint, onto string) (string, error) {
	if err := r.CheckoutBranch(ctx, branch, startPoint); err != nil {
		return "", err
	}

	if _, err := r.run(ctx, "rebase", onto); err != nil {
		_, _ = r.run(ctx, "rebase", "--abort")
		return "", err
	}

	return r.CommitSHA(ctx, "HEAD")
}

// FastForward fast-forwards branch to the given commit. The commit must
// be a descendant of the branch head.
func (r *Repo) FastForward(ctx context.Context, branch, to string) error {
	if _, err := r.run(ctx, "checkout", branch, "--"); err != nil {
		return err
	}

	_, err := r.run(ctx, "merge", "--ff-only", to)

	return err
}

// Push pushes branch to the same branch name on the remote.
// It refuses with ErrDirtyWorktree when the worktree carries uncommitted
// changes or untracked files. Without PushOptions.Force or
// PushOptions.ExpectedRemoteSHA the push is fast-forward-only.
func (r *Repo) Push(ctx context.Context, branch string, opts *PushOptions) error {
	if opts == nil {
		opts = &PushOptions{}
	}

	if err := r.ensureCleanWorktree(ctx); err != nil {
		return err
	}

	args := []string{"push"}

	switch {
	case opts.ExpectedRemoteSHA != "":
		args = append(args, fmt.Sprintf("--force-with-lease=%s:%s", branch, opts.ExpectedRemoteSHA))
	case opts.Force:
		args = append(args, "--force")
	}

	if opts.SkipCI {
		args = append(args, "-o", "ci.skip")
	}

	remote := opts.RemoteURL
	if remote == "" {
		remote = "origin"
	}
	args = append(args, remote, branch+":"+branch)

	_, err := r.run(ctx, args...)

	return err
}

// DeleteRemoteBranch deletes branch on the origin remote.
func (r *Repo) DeleteRemoteBranch(ctx context.Context, branch string) error {
	_, err := r.run(ctx, "push", "origin", ":"+branch)
	return err
}

// Cleanup aborts interrupted rebases or merges and discards all local
// modifications and untracked files.
func (r *Repo) Cleanup(ctx context.Context) error {
	// The aborts fail when no rebase or merge is in progress.
	_, _ = r.run(ctx, "rebase", "--abort")
	_, _ = r.run(ctx, "merge", "--abort")

	if _, err := r.run(ctx, "reset", "--hard"); err != nil {
		return err
	}

	_, err := r.run(ctx, "clean", "-fd")

	return err
}

func (r *Repo) ensureCleanWorktree(ctx context.Context) error {
	if _, err := r.run(ctx, "diff-index", "--quiet", "HEAD", "--"); err != nil {
		var gitErr *GitError
		if errors.As(err, &gitErr) && gitErr.ExitCode == 1 {
			return fmt.Errorf("%w: tracked files were modified", ErrDirtyWorktree)
		}

		return err
	}

	untracked, err := r.run(ctx, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return err
	}
	if untracked != "" {
		return fmt.Errorf("%w: %s", ErrDirtyWorktree, untracked)
	}

	return nil
}
