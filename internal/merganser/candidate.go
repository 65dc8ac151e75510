package merganser

import (
	"time"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/logfields"
)

// candidate is one open merge request that is assigned to the bot and
// waits in the pending queue of a project loop.
type candidate struct {
	iid          int
	title        string
	sourceBranch string
	targetBranch string
	webURL       string
	createdAt    time.Time
	// assignedAt is when the merge request was assigned to the bot.
	// It is only resolved when merge requests are ordered by assignment
	// time, the zero value otherwise.
	assignedAt time.Time
	// enqueuedSince is when the loop first saw the merge request.
	enqueuedSince time.Time

	logFields []zap.Field
}

func newCandidate(mr *gitlab.MergeRequest) *candidate {
	c := candidate{
		iid:           mr.IID,
		title:         mr.Title,
		sourceBranch:  mr.SourceBranch,
		targetBranch:  mr.TargetBranch,
		webURL:        mr.WebURL,
		enqueuedSince: time.Now(),
	}

	if mr.CreatedAt != nil {
		c.createdAt = *mr.CreatedAt
	}

	c.logFields = []zap.Field{
		logfields.MergeRequest(c.iid),
		logfields.SourceBranch(c.sourceBranch),
		logfields.TargetBranch(c.targetBranch),
	}

	return &c
}
