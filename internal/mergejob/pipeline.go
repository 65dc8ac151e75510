package mergejob

import (
	"context"
	"time"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/logfields"
)

// pipelineFetcher lists the pipelines a commit could have run in, newest
// first.
type pipelineFetcher func(context.Context) ([]*gitlab.PipelineInfo, error)

// apiCallFunc runs a platform call with retries, see Job.apiCall.
type apiCallFunc func(context.Context, func(context.Context) error) error

// waitForPipeline polls until the newest pipeline for head reached a
// decisive status.
// Success returns nil, so does a skipped pipeline unless a successful one
// is required. Failed and canceled pipelines reject the merge request.
// All other statuses, including a head without any pipeline yet, keep the
// wait going until the CI timeout requeues.
func waitForPipeline(ctx context.Context, logger *zap.Logger, opts *Options, call apiCallFunc, fetch pipelineFetcher, head string) *Outcome {
	deadline := time.Now().Add(opts.ciTimeout())
	lastStatus := "-"

	for {
		var pipelines []*gitlab.PipelineInfo
		err := call(ctx, func(ctx context.Context) (err error) {
			pipelines, err = fetch(ctx)
			return err
		})
		if err != nil {
			return outcomeFromErr(err)
		}

		pipeline := newestPipelineFor(pipelines, head)

		status := ""
		if pipeline != nil {
			status = pipeline.Status
		}

		switch status {
		case "success":
			logger.Info(
				"CI passed",
				logfields.Event("job_ci_passed"),
				logfields.Pipeline(pipeline.ID),
				logfields.Commit(head),
			)

			return nil

		case "skipped":
			if !opts.RequireSuccessfulCI {
				logger.Info(
					"CI was skipped, counting it as passed",
					logfields.Event("job_ci_skipped"),
					logfields.Pipeline(pipeline.ID),
				)

				return nil
			}

		case "failed", "canceled":
			logger.Info(
				"CI failed",
				logfields.Event("job_ci_failed"),
				logfields.Pipeline(pipeline.ID),
				logfields.Commit(head),
			)

			return RejectTerminal("CI failed: " + pipeline.WebURL)

		case "", "created", "pending", "running", "manual":

		default:
			logger.Warn(
				"pipeline reports an unexpected status, waiting",
				logfields.Event("job_ci_status_unexpected"),
				logfields.Pipeline(pipeline.ID),
				zap.String("gitlab.pipeline_status", status),
			)
		}

		if status != lastStatus {
			logger.Info(
				"waiting for CI",
				logfields.Event("job_ci_waiting"),
				logfields.Commit(head),
				zap.String("gitlab.pipeline_status", status),
			)

			lastStatus = status
		}

		if time.Now().After(deadline) {
			logger.Info(
				"giving up waiting for CI",
				logfields.Event("job_ci_timeout"),
				logfields.Commit(head),
			)

			return Requeue("CI did not finish in time")
		}

		if outcome := sleepCtx(ctx, ciPollInterval); outcome != nil {
			return outcome
		}
	}
}

// newestPipelineFor returns the newest pipeline that ran for the commit,
// nil when there is none. The platform lists pipelines newest first.
func newestPipelineFor(pipelines []*gitlab.PipelineInfo, sha string) *gitlab.PipelineInfo {
	for _, pipeline := range pipelines {
		if pipeline.SHA == sha {
			return pipeline
		}
	}

	return nil
}
