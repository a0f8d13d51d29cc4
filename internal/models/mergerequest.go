package models

// Merge request states as reported by the hosting API.
const (
	MergeRequestOpened = "opened"
	MergeRequestClosed = "closed"
	MergeRequestMerged = "merged"
)

// MergeRequest is a review request: a proposal to merge SourceBranch of
// SourceProjectID into TargetBranch of TargetProjectID.
type MergeRequest struct {
	ID              int    `json:"id"`
	IID             int    `json:"iid"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	State           string `json:"state"`
	SourceBranch    string `json:"source_branch"`
	TargetBranch    string `json:"target_branch"`
	SourceProjectID int    `json:"source_project_id"`
	TargetProjectID int    `json:"target_project_id"`
	WebURL          string `json:"web_url"`
	Author          User   `json:"author"`
}

// IsOpen reports whether the merge request is still open.
func (mr *MergeRequest) IsOpen() bool {
	return mr.State == MergeRequestOpened
}

// FromFork reports whether the source branch lives in a different project.
func (mr *MergeRequest) FromFork() bool {
	return mr.SourceProjectID != mr.TargetProjectID
}
