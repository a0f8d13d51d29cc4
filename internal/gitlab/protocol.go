// Package gitlab defines the request types and client for the GitLab REST API.
package gitlab

// ListMergeRequestsOptions filters the merge requests of a project.
// Empty fields are not sent.
type ListMergeRequestsOptions struct {
	State        string
	SourceBranch string
	TargetBranch string
}

// CreateMergeRequestOptions is the body of a merge request creation.
type CreateMergeRequestOptions struct {
	SourceBranch       string `json:"source_branch"`
	TargetBranch       string `json:"target_branch"`
	Title              string `json:"title"`
	Description        string `json:"description,omitempty"`
	TargetProjectID    int    `json:"target_project_id,omitempty"`
	AllowCollaboration bool   `json:"allow_collaboration"`
	RemoveSourceBranch bool   `json:"remove_source_branch"`
}

// Snippet visibility levels.
const (
	VisibilityPublic   = "public"
	VisibilityInternal = "internal"
	VisibilityPrivate  = "private"
)

// CreateSnippetOptions is the body of a personal snippet creation.
type CreateSnippetOptions struct {
	Title      string        `json:"title"`
	Visibility string        `json:"visibility"`
	Files      []SnippetFile `json:"files"`
}

// SnippetFile is one file of a snippet.
type SnippetFile struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// errorResponse is the error body returned by the API. Message is either a
// string or an object mapping field names to lists of problems.
type errorResponse struct {
	Message any    `json:"message"`
	Error   string `json:"error"`
}

// timeTrackingOptions is the body of the estimate and spent time endpoints.
type timeTrackingOptions struct {
	Duration string `json:"duration"`
}
