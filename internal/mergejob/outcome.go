package mergejob

import "time"

// Conclusion classifies how a job ended.
type Conclusion string

const (
	// ConclusionMerged is reported when the merge request was merged.
	ConclusionMerged Conclusion = "merged"
	// ConclusionRejected is reported when the merge request can not be
	// merged without human help. It was commented and handed back to its
	// author.
	ConclusionRejected Conclusion = "rejected"
	// ConclusionRequeued is reported when a temporary condition stopped
	// the job. The merge request stays pending and is retried later.
	ConclusionRequeued Conclusion = "requeued"
	// ConclusionCancelled is reported when the job aborted without any
	// feedback on the merge request, e.g. on shutdown or because the
	// merge request was unassigned from the bot while the job ran.
	ConclusionCancelled Conclusion = "cancelled"
)

// Outcome is the final result of a job for one merge request.
// It is the only information that crosses the boundary between jobs and
// the project loop.
type Outcome struct {
	Conclusion Conclusion
	// Reason describes why the merge request was not merged. For
	// rejections it is the text that was posted as a comment.
	Reason string
	// Delay is the minimum pause before the merge request should be
	// retried. Zero lets the caller choose.
	Delay time.Duration
	// Err is the error that caused a requeue or cancellation, nil
	// otherwise.
	Err error
}

func Merged() *Outcome {
	return &Outcome{Conclusion: ConclusionMerged}
}

func RejectTerminal(reason string) *Outcome {
	return &Outcome{Conclusion: ConclusionRejected, Reason: reason}
}

func Requeue(reason string) *Outcome {
	return &Outcome{Conclusion: ConclusionRequeued, Reason: reason}
}

func Cancelled() *Outcome {
	return &Outcome{Conclusion: ConclusionCancelled}
}
