package gitlabclt

import (
	"context"
	"net/http"
	"strings"

	"github.com/xanzy/go-gitlab"
	"go.uber.org/zap"

	"github.com/simplesurance/merganser/internal/logfields"
)

// noJobsErrMsg is sent by GitLab when a merge request pipeline is triggered
// on a project whose CI config does not define merge request jobs.
const noJobsErrMsg = "No stages / jobs for this pipeline."

// MergeRequestPipelines returns the pipelines that ran for the merge
// request, newest first.
func (clt *Client) MergeRequestPipelines(ctx context.Context, projectID, iid int) ([]*gitlab.PipelineInfo, error) {
	pipelines, _, err := clt.api.MergeRequests.ListMergeRequestPipelines(projectID, iid, gitlab.WithContext(ctx))
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return pipelines, nil
}

// BranchPipelines returns the pipelines that ran for commits of the given
// branch, newest first.
func (clt *Client) BranchPipelines(ctx context.Context, projectID int, branch string) ([]*gitlab.PipelineInfo, error) {
	pipelines, _, err := clt.api.Pipelines.ListProjectPipelines(
		projectID,
		&gitlab.ListProjectPipelinesOptions{
			Ref:         &branch,
			ListOptions: gitlab.ListOptions{PerPage: apiPageSize},
		},
		gitlab.WithContext(ctx),
	)
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return pipelines, nil
}

// TriggerPipeline starts a new pipeline for the head of the merge request.
// A merge request pipeline is started when the project defines jobs for
// them, otherwise a branch pipeline for the source branch is started.
func (clt *Client) TriggerPipeline(ctx context.Context, projectID, iid int, sourceBranch string) error {
	logger := clt.logger.With(
		logfields.ProjectID(projectID),
		logfields.MergeRequest(iid),
		logfields.SourceBranch(sourceBranch),
	)

	pipeline, _, err := clt.api.MergeRequests.CreateMergeRequestPipeline(projectID, iid, gitlab.WithContext(ctx))
	if err == nil {
		logger.Debug(
			"merge request pipeline started",
			logfields.Event("gitlab_pipeline_started"),
			logfields.Pipeline(pipeline.ID),
		)

		return nil
	}

	if HTTPStatus(err) != http.StatusBadRequest || !strings.Contains(ErrorMessage(err), noJobsErrMsg) {
		return clt.wrapRetryableErrors(err)
	}

	logger.Info(
		"project defines no merge request pipeline jobs, starting a branch pipeline instead",
		logfields.Event("gitlab_branch_pipeline_fallback"),
		zap.Error(err),
	)

	branchPipeline, _, err := clt.api.Pipelines.CreatePipeline(
		projectID,
		&gitlab.CreatePipelineOptions{Ref: &sourceBranch},
		gitlab.WithContext(ctx),
	)
	if err != nil {
		return clt.wrapRetryableErrors(err)
	}

	logger.Debug(
		"branch pipeline started",
		logfields.Event("gitlab_pipeline_started"),
		logfields.Pipeline(branchPipeline.ID),
	)

	return nil
}
