package gitlabclt

import (
	"context"

	"github.com/xanzy/go-gitlab"
)

// Approvals describes the approval state of a merge request.
type Approvals struct {
	// ApprovalsLeft is the number of approvals that are still missing
	// before the merge request may be merged.
	ApprovalsLeft     int
	ApproverIDs       []int
	ApproverUsernames []string
}

// Sufficient returns true when no more approvals are required.
func (a *Approvals) Sufficient() bool {
	return a.ApprovalsLeft == 0
}

// MergeRequestApprovals fetches the approval state of a merge request.
// On GitLab installations without approval support an empty state that
// requires no further approvals is returned.
func (clt *Client) MergeRequestApprovals(ctx context.Context, projectID, iid int) (*Approvals, error) {
	version, err := clt.Version(ctx)
	if err != nil {
		return nil, err
	}

	// approvals are part of the community edition since release 13.2
	if !version.IsEE() && !version.AtLeast(13, 2, 0) {
		return &Approvals{}, nil
	}

	approvals, _, err := clt.api.MergeRequestApprovals.GetConfiguration(projectID, iid, gitlab.WithContext(ctx))
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	result := Approvals{ApprovalsLeft: approvals.ApprovalsLeft}
	for _, approver := range approvals.ApprovedBy {
		if approver.User == nil {
			continue
		}

		result.ApproverIDs = append(result.ApproverIDs, approver.User.ID)
		result.ApproverUsernames = append(result.ApproverUsernames, approver.User.Username)
	}

	return &result, nil
}

// ApproveMergeRequest approves the merge request as the user with the given
// id.
// Impersonating another user requires an administrator API token.
func (clt *Client) ApproveMergeRequest(ctx context.Context, projectID, iid, asUserID int) error {
	_, _, err := clt.api.MergeRequestApprovals.ApproveMergeRequest(
		projectID,
		iid,
		&gitlab.ApproveMergeRequestOptions{},
		gitlab.WithContext(ctx),
		gitlab.WithSudo(asUserID),
	)

	return clt.wrapRetryableErrors(err)
}
