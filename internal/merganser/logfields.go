package merganser

import (
	"github.com/simplesurance/merganser/internal/logfields"
)

var (
	logEventCandidateEnqueued = logfields.Event("merge_request_enqueued")
	logEventCandidateDequeued = logfields.Event("merge_request_dequeued")
	logEventCandidateSkipped  = logfields.Event("merge_request_skipped")
	logEventListingFailed     = logfields.Event("listing_merge_requests_failed")
	logEventLoopDisabled      = logfields.Event("project_loop_disabled")
	logEventLoopRestarted     = logfields.Event("project_loop_restarted")
)
