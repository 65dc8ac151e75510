package gitlabclt

import (
	"context"

	"github.com/xanzy/go-gitlab"
)

// Project fetches a project by its id.
func (clt *Client) Project(ctx context.Context, projectID int) (*gitlab.Project, error) {
	project, _, err := clt.api.Projects.GetProject(projectID, &gitlab.GetProjectOptions{}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return project, nil
}

// BotProjects returns all unarchived projects with enabled merge requests
// that the token user is a member of with at least developer access.
func (clt *Client) BotProjects(ctx context.Context) ([]*gitlab.Project, error) {
	var result []*gitlab.Project

	options := gitlab.ListProjectsOptions{
		Membership:               gitlab.Bool(true),
		Archived:                 gitlab.Bool(false),
		WithMergeRequestsEnabled: gitlab.Bool(true),
		MinAccessLevel:           gitlab.AccessLevel(gitlab.DeveloperPermissions),
		ListOptions:              gitlab.ListOptions{PerPage: apiPageSize},
	}

	for {
		projects, resp, err := clt.api.Projects.ListProjects(&options, gitlab.WithContext(ctx))
		if err != nil {
			return nil, clt.wrapRetryableErrors(err)
		}

		result = append(result, projects...)

		if resp.CurrentPage >= resp.TotalPages {
			break
		}
		options.Page = resp.NextPage
	}

	return result, nil
}

// Branch fetches a repository branch by its name.
func (clt *Client) Branch(ctx context.Context, projectID int, name string) (*gitlab.Branch, error) {
	branch, _, err := clt.api.Branches.GetBranch(projectID, name, gitlab.WithContext(ctx))
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return branch, nil
}
