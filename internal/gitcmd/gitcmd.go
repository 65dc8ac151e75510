// Package gitcmd runs git commands on local clones of project
// repositories.
package gitcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/logfields"
)

const loggerName = "gitcmd"

// GitError is returned when a git command exits with a non-zero exit
// code. It carries the command arguments and the stderr output of the
// command.
type GitError struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *GitError) Error() string {
	msg := "git " + strings.Join(e.Args, " ") + ": " + e.Err.Error()
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

func (e *GitError) Unwrap() error {
	return e.Err
}

// ErrDirtyWorktree is returned by push operations when the worktree
// contains uncommitted changes or untracked files.
var ErrDirtyWorktree = errors.New("worktree contains uncommitted or untracked files")

// runGit runs a git command in dir and returns its trimmed stdout output.
// When the command fails and the context was canceled, the context error
// is returned, otherwise a *GitError.
func runGit(ctx context.Context, logger *zap.Logger, dir string, env []string, stdin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = env

	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug(
		"running git command",
		logfields.Event("git_command_running"),
		zap.Strings("git_args", args),
	)

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", fmt.Errorf("git %s: %w", args[0], context.Canceled)
		}

		gitErr := GitError{
			Args:     args,
			Stderr:   strings.TrimSpace(stderr.String()),
			ExitCode: -1,
			Err:      err,
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			gitErr.ExitCode = exitErr.ExitCode()
		}

		return "", &gitErr
	}

	return strings.TrimSpace(stdout.String()), nil
}
