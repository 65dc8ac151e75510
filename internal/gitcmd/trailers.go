package gitcmd

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var trailerLineRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*: .+$`)

// TagWithTrailer rewrites the commits of branch made since startSHA so
// that every commit message contains the given trailer lines, for example
// "Reviewed-by: Jane Doe <jane@example.com>".
// It returns the new head SHA of the branch. Author and committer
// identities and dates of the rewritten commits are preserved. When all
// messages already carry the trailers nothing is rewritten and the head
// SHA is unchanged.
func (r *Repo) TagWithTrailer(ctx context.Context, branch, startSHA string, trailers []string) (string, error) {
	if len(trailers) == 0 {
		return r.CommitSHA(ctx, branch)
	}

	out, err := r.run(ctx, "rev-list", "--reverse", startSHA+".."+branch)
	if err != nil {
		return "", err
	}

	shas := strings.Fields(out)
	if len(shas) == 0 {
		return r.CommitSHA(ctx, branch)
	}

	type commit struct {
		sha     string
		parents []string
		env     []string
		message string
	}

	commits := make([]commit, 0, len(shas))
	changed := false

	for _, sha := range shas {
		raw, err := r.run(ctx, "show", "-s", "--format=%P%x00%an%x00%ae%x00%aI%x00%cn%x00%ce%x00%cI%x00%B", sha)
		if err != nil {
			return "", err
		}

		parts := strings.SplitN(raw, "\x00", 8)
		if len(parts) != 8 {
			return "", fmt.Errorf("unexpected git show output for commit %s: %q", sha, raw)
		}

		parents := strings.Fields(parts[0])
		if len(parents) > 1 {
			return "", fmt.Errorf("commit %s is a merge commit, refusing to rewrite its message", sha)
		}

		msg := addTrailers(parts[7], trailers)
		if msg != parts[7]+"\n" {
			changed = true
		}

		commits = append(commits, commit{
			sha:     sha,
			parents: parents,
			env: []string{
				"GIT_AUTHOR_NAME=" + parts[1],
				"GIT_AUTHOR_EMAIL=" + parts[2],
				"GIT_AUTHOR_DATE=" + parts[3],
				"GIT_COMMITTER_NAME=" + parts[4],
				"GIT_COMMITTER_EMAIL=" + parts[5],
				"GIT_COMMITTER_DATE=" + parts[6],
			},
			message: msg,
		})
	}

	if !changed {
		return r.CommitSHA(ctx, branch)
	}

	var newHead string
	for _, c := range commits {
		tree, err := r.run(ctx, "rev-parse", c.sha+"^{tree}")
		if err != nil {
			return "", err
		}

		args := []string{"commit-tree", tree}

		parent := newHead
		if parent == "" && len(c.parents) == 1 {
			parent = c.parents[0]
		}
		if parent != "" {
			args = append(args, "-p", parent)
		}

		newHead, err = r.runEnv(ctx, c.env, c.message, args...)
		if err != nil {
			return "", err
		}
	}

	if err := r.CheckoutBranch(ctx, branch, newHead); err != nil {
		return "", err
	}

	return newHead, nil
}

// addTrailers returns message with all given trailer lines present in its
// trailer block. Existing trailer lines keep their position, missing ones
// are appended in sorted order. The result is newline terminated.
func addTrailers(message string, trailers []string) string {
	msg := strings.TrimRight(message, "\n")

	var lines []string
	if msg != "" {
		lines = strings.Split(msg, "\n")
	}

	start := trailerBlockStart(lines)

	existing := map[string]struct{}{}
	if start >= 0 {
		for _, line := range lines[start:] {
			existing[strings.TrimSpace(line)] = struct{}{}
		}
	}

	var missing []string
	for _, trailer := range trailers {
		trailer = strings.TrimSpace(trailer)
		if trailer == "" {
			continue
		}
		if _, exist := existing[trailer]; exist {
			continue
		}

		existing[trailer] = struct{}{}
		missing = append(missing, trailer)
	}

	if len(missing) == 0 {
		return msg + "\n"
	}

	sort.Strings(missing)

	if start >= 0 {
		return strings.Join(append(lines, missing...), "\n") + "\n"
	}

	if msg == "" {
		return strings.Join(missing, "\n") + "\n"
	}

	return msg + "\n\n" + strings.Join(missing, "\n") + "\n"
}

// trailerBlockStart returns the index of the first line of the trailing
// trailer block of a commit message, or -1 when the message has none.
// A trailer block is a final paragraph, separated from the preceding text
// by a blank line, in which every line is a trailer.
func trailerBlockStart(lines []string) int {
	end := len(lines)

	i := end
	for i > 0 && lines[i-1] != "" && trailerLineRE.MatchString(lines[i-1]) {
		i--
	}

	if i == end || i == 0 {
		return -1
	}

	if lines[i-1] != "" {
		return -1
	}

	return i
}
