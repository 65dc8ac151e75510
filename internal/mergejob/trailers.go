package mergejob

import (
	"context"
	"errors"
	"fmt"
)

// applyTrailers rewrites the commits of the rebased source branch with
// the enabled trailers and returns the new branch head.
// sinceSHA is the commit the branch was rebased onto, only commits after
// it are rewritten. The returned sha is empty when no trailer was
// applied.
//
// Reviewed-by and Part-of are added to every commit of the merge request.
// Tested-by documents that the head passed CI and is therefore only added
// to the head commit, and only when the project requires pipelines to
// pass.
func (j *Job) applyTrailers(ctx context.Context, branch, sinceSHA string) (string, *Outcome) {
	var head string

	tag := func(since string, trailers []string) *Outcome {
		sha, err := j.repo.TagWithTrailer(ctx, branch, since, trailers)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return &Outcome{Conclusion: ConclusionCancelled, Err: err}
			}

			return j.gitTransientOutcome(err, "adding commit trailers failed")
		}

		head = sha

		return nil
	}

	if j.options.AddReviewers {
		reviewedBy, outcome := j.composeReviewedBy(ctx)
		if outcome != nil {
			return "", outcome
		}

		if outcome := tag(sinceSHA, reviewedBy); outcome != nil {
			return "", outcome
		}
	}

	if j.options.AddTested && j.state.Project.OnlyAllowMergeIfPipelineSucceeds {
		testedBy := fmt.Sprintf("Tested-by: %s <%s>", j.botUser.Name, j.state.MR.WebURL)

		if outcome := tag(branch+"~1", []string{testedBy}); outcome != nil {
			return "", outcome
		}
	}

	if j.options.AddPartOf {
		partOf := fmt.Sprintf("Part-of: <%s>", j.state.MR.WebURL)

		if outcome := tag(sinceSHA, []string{partOf}); outcome != nil {
			return "", outcome
		}
	}

	return head, nil
}

// composeReviewedBy returns one "Reviewed-by: Name <email>" trailer per
// approver of the merge request.
// The merge request is rejected when an approver has no public email
// address, and when its only approver also authored commits of the merge
// request, a review by the own author documents nothing.
func (j *Job) composeReviewedBy(ctx context.Context) ([]string, *Outcome) {
	commits, err := j.fetchCommits(ctx)
	if err != nil {
		return nil, outcomeFromErr(err)
	}

	authorEmails := make(map[string]struct{}, len(commits))
	for _, commit := range commits {
		authorEmails[commit.AuthorEmail] = struct{}{}
	}

	approverIDs := j.state.Approvals.ApproverIDs
	trailers := make([]string, 0, len(approverIDs))
	selfReviewed := false

	for _, approverID := range approverIDs {
		user, err := j.fetchUser(ctx, approverID)
		if err != nil {
			return nil, outcomeFromErr(err)
		}

		if user.Email == "" {
			return nil, RejectTerminal(fmt.Sprintf("the approver %s has no public email address", user.Username))
		}

		if _, isAuthor := authorEmails[user.Email]; isAuthor {
			selfReviewed = true
		}

		trailers = append(trailers, fmt.Sprintf("Reviewed-by: %s <%s>", user.Name, user.Email))
	}

	if selfReviewed && len(trailers) <= 1 {
		return nil, RejectTerminal("the commits need at least one independent reviewer")
	}

	return trailers, nil
}
