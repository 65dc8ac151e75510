// Package notify delivers the outcome of finished merge jobs to an
// external endpoint.
package notify

// Notification describes how work on one merge request ended.
// It is serialized to JSON and sent as body of the webhook request.
type Notification struct {
	Project      string `json:"project"`
	ProjectID    int    `json:"project_id"`
	MergeRequest int    `json:"merge_request_iid"`
	Title        string `json:"title"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	WebURL       string `json:"web_url"`
	Conclusion   string `json:"conclusion"`
	Reason       string `json:"reason,omitempty"`
}
