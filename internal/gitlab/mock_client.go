package gitlab

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/kilupskalvis/git-lab/internal/models"
)

// MockClient is an in-memory implementation of Client for testing.
type MockClient struct {
	// User is returned by CurrentUser.
	User *models.User
	// Projects stores projects by id.
	Projects map[int]*models.RemoteProject
	// ForkCreates is stored in Projects when ForkProject succeeds.
	ForkCreates *models.RemoteProject
	// ForkResponse, if set, is returned by ForkProject instead of
	// ForkCreates, to simulate a stale creation response.
	ForkResponse *models.RemoteProject
	// MergeRequests stores all merge requests; created ones are appended.
	MergeRequests []*models.MergeRequest
	// Created records the options of every CreateMergeRequest call.
	Created []*CreateMergeRequestOptions
	// Uploaded records uploaded file names and contents.
	Uploaded map[string]string
	// Snippets records created snippets.
	Snippets []*CreateSnippetOptions
	// Issues stores issues of all projects.
	Issues []*models.Issue
	// Calls records every call in order, e.g. "ForkProject 1".
	Calls []string
	// Errs makes the named method fail, e.g. Errs["CurrentUser"].
	Errs map[string]error
}

// NewMockClient creates a MockClient authenticated as user.
func NewMockClient(user *models.User) *MockClient {
	return &MockClient{
		User:     user,
		Projects: make(map[int]*models.RemoteProject),
		Uploaded: make(map[string]string),
		Errs:     make(map[string]error),
	}
}

// AddProject adds a project to the mock instance.
func (m *MockClient) AddProject(p *models.RemoteProject) {
	m.Projects[p.ID] = p
}

func (m *MockClient) record(format string, args ...any) {
	m.Calls = append(m.Calls, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return &APIError{Status: http.StatusNotFound, Message: "404 " + what + " Not Found"}
}

// CurrentUser returns User.
func (m *MockClient) CurrentUser(ctx context.Context) (*models.User, error) {
	m.record("CurrentUser")
	if err := m.Errs["CurrentUser"]; err != nil {
		return nil, err
	}
	if m.User == nil {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: "401 Unauthorized"}
	}
	return m.User, nil
}

// ProjectByPath finds a project by PathWithNamespace.
func (m *MockClient) ProjectByPath(ctx context.Context, pathID string) (*models.RemoteProject, error) {
	m.record("ProjectByPath %s", pathID)
	if err := m.Errs["ProjectByPath"]; err != nil {
		return nil, err
	}
	for _, p := range m.Projects {
		if p.PathWithNamespace == pathID {
			return p, nil
		}
	}
	return nil, notFound("Project")
}

// ProjectByID finds a project by id.
func (m *MockClient) ProjectByID(ctx context.Context, id int) (*models.RemoteProject, error) {
	m.record("ProjectByID %d", id)
	if err := m.Errs["ProjectByID"]; err != nil {
		return nil, err
	}
	p, ok := m.Projects[id]
	if !ok {
		return nil, notFound("Project")
	}
	return p, nil
}

// ForkProject stores ForkCreates and returns ForkResponse or ForkCreates.
func (m *MockClient) ForkProject(ctx context.Context, id int) (*models.RemoteProject, error) {
	m.record("ForkProject %d", id)
	if err := m.Errs["ForkProject"]; err != nil {
		return nil, err
	}
	if _, ok := m.Projects[id]; !ok {
		return nil, notFound("Project")
	}
	if m.ForkCreates == nil {
		return nil, fmt.Errorf("mock: no fork configured")
	}
	m.Projects[m.ForkCreates.ID] = m.ForkCreates
	if m.ForkResponse != nil {
		return m.ForkResponse, nil
	}
	return m.ForkCreates, nil
}

// ListMergeRequests filters MergeRequests targeting projectID.
func (m *MockClient) ListMergeRequests(ctx context.Context, projectID int, opts *ListMergeRequestsOptions) ([]*models.MergeRequest, error) {
	m.record("ListMergeRequests %d", projectID)
	if err := m.Errs["ListMergeRequests"]; err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &ListMergeRequestsOptions{}
	}
	var out []*models.MergeRequest
	for _, mr := range m.MergeRequests {
		switch {
		case mr.TargetProjectID != projectID:
		case opts.State != "" && mr.State != opts.State:
		case opts.SourceBranch != "" && mr.SourceBranch != opts.SourceBranch:
		case opts.TargetBranch != "" && mr.TargetBranch != opts.TargetBranch:
		default:
			out = append(out, mr)
		}
	}
	return out, nil
}

// MergeRequest finds merge request iid targeting projectID.
func (m *MockClient) MergeRequest(ctx context.Context, projectID, iid int) (*models.MergeRequest, error) {
	m.record("MergeRequest %d %d", projectID, iid)
	if err := m.Errs["MergeRequest"]; err != nil {
		return nil, err
	}
	for _, mr := range m.MergeRequests {
		if mr.TargetProjectID == projectID && mr.IID == iid {
			return mr, nil
		}
	}
	return nil, notFound("Merge Request")
}

// CreateMergeRequest appends a new open merge request.
func (m *MockClient) CreateMergeRequest(ctx context.Context, projectID int, opts *CreateMergeRequestOptions) (*models.MergeRequest, error) {
	m.record("CreateMergeRequest %d", projectID)
	if err := m.Errs["CreateMergeRequest"]; err != nil {
		return nil, err
	}
	target := opts.TargetProjectID
	if target == 0 {
		target = projectID
	}
	targetProject, ok := m.Projects[target]
	if !ok {
		return nil, notFound("Project")
	}

	m.Created = append(m.Created, opts)
	iid := len(m.MergeRequests) + 1
	mr := &models.MergeRequest{
		ID:              1000 + iid,
		IID:             iid,
		Title:           opts.Title,
		Description:     opts.Description,
		State:           models.MergeRequestOpened,
		SourceBranch:    opts.SourceBranch,
		TargetBranch:    opts.TargetBranch,
		SourceProjectID: projectID,
		TargetProjectID: target,
		WebURL:          fmt.Sprintf("%s/-/merge_requests/%d", targetProject.WebURL, iid),
	}
	if m.User != nil {
		mr.Author = *m.User
	}
	m.MergeRequests = append(m.MergeRequests, mr)
	return mr, nil
}

// UploadFile records the upload and returns a URL under /uploads.
func (m *MockClient) UploadFile(ctx context.Context, projectID int, filename string, r io.Reader) (*models.Upload, error) {
	m.record("UploadFile %d %s", projectID, filename)
	if err := m.Errs["UploadFile"]; err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.Uploaded[filename] = string(data)
	u := path.Join("/uploads", fmt.Sprintf("%032d", len(m.Uploaded)), filename)
	return &models.Upload{
		Alt:      filename,
		URL:      u,
		FullPath: fmt.Sprintf("/-/project/%d%s", projectID, u),
		Markdown: fmt.Sprintf("![%s](%s)", filename, u),
	}, nil
}

// CreateSnippet records the snippet.
func (m *MockClient) CreateSnippet(ctx context.Context, opts *CreateSnippetOptions) (*models.Snippet, error) {
	m.record("CreateSnippet")
	if err := m.Errs["CreateSnippet"]; err != nil {
		return nil, err
	}
	m.Snippets = append(m.Snippets, opts)
	id := len(m.Snippets)
	s := &models.Snippet{
		ID:     id,
		Title:  opts.Title,
		WebURL: fmt.Sprintf("https://gitlab.example.com/-/snippets/%d", id),
		RawURL: fmt.Sprintf("https://gitlab.example.com/-/snippets/%d/raw", id),
	}
	if len(opts.Files) > 0 {
		s.FileName = opts.Files[0].FilePath
	}
	return s, nil
}

// AddIssue adds an issue to the mock instance.
func (m *MockClient) AddIssue(issue *models.Issue) {
	m.Issues = append(m.Issues, issue)
}

func (m *MockClient) findIssue(projectID, iid int) (*models.Issue, error) {
	for _, issue := range m.Issues {
		if issue.ProjectID == projectID && issue.IID == iid {
			return issue, nil
		}
	}
	return nil, notFound("Issue")
}

// Issue finds issue iid of projectID.
func (m *MockClient) Issue(ctx context.Context, projectID, iid int) (*models.Issue, error) {
	m.record("Issue %d %d", projectID, iid)
	if err := m.Errs["Issue"]; err != nil {
		return nil, err
	}
	return m.findIssue(projectID, iid)
}

// SetTimeEstimate replaces the estimate of the issue.
func (m *MockClient) SetTimeEstimate(ctx context.Context, projectID, iid int, duration string) (*models.TimeStats, error) {
	m.record("SetTimeEstimate %d %d %s", projectID, iid, duration)
	return m.updateTime(projectID, iid, "SetTimeEstimate", func(t *models.TimeStats) {
		t.TimeEstimate = mockSeconds(duration)
	})
}

// AddSpentTime adds duration to the time spent on the issue.
func (m *MockClient) AddSpentTime(ctx context.Context, projectID, iid int, duration string) (*models.TimeStats, error) {
	m.record("AddSpentTime %d %d %s", projectID, iid, duration)
	return m.updateTime(projectID, iid, "AddSpentTime", func(t *models.TimeStats) {
		t.TotalTimeSpent += mockSeconds(duration)
	})
}

// ResetTimeEstimate clears the estimate of the issue.
func (m *MockClient) ResetTimeEstimate(ctx context.Context, projectID, iid int) (*models.TimeStats, error) {
	m.record("ResetTimeEstimate %d %d", projectID, iid)
	return m.updateTime(projectID, iid, "ResetTimeEstimate", func(t *models.TimeStats) {
		t.TimeEstimate = 0
	})
}

// ResetSpentTime clears the time spent on the issue.
func (m *MockClient) ResetSpentTime(ctx context.Context, projectID, iid int) (*models.TimeStats, error) {
	m.record("ResetSpentTime %d %d", projectID, iid)
	return m.updateTime(projectID, iid, "ResetSpentTime", func(t *models.TimeStats) {
		t.TotalTimeSpent = 0
	})
}

func (m *MockClient) updateTime(projectID, iid int, method string, update func(*models.TimeStats)) (*models.TimeStats, error) {
	if err := m.Errs[method]; err != nil {
		return nil, err
	}
	issue, err := m.findIssue(projectID, iid)
	if err != nil {
		return nil, err
	}
	t := &issue.TimeStats
	update(t)
	t.HumanTimeEstimate = mockHuman(t.TimeEstimate)
	t.HumanTotalTimeSpent = mockHuman(t.TotalTimeSpent)
	stats := *t
	return &stats, nil
}

// Time units as the server counts them by default: a month is four
// weeks, a week five days and a day eight hours.
var mockUnits = []struct {
	suffix  string
	seconds int
}{
	{"mo", 4 * 5 * 8 * 3600},
	{"w", 5 * 8 * 3600},
	{"d", 8 * 3600},
	{"h", 3600},
	{"m", 60},
}

// mockSeconds converts a duration like "1w2d30m" to seconds. Malformed
// input counts as zero.
func mockSeconds(duration string) int {
	total, n := 0, 0
	for i := 0; i < len(duration); i++ {
		c := duration[i]
		if c >= '0' && c <= '9' {
			n = n*10 + int(c-'0')
			continue
		}
		for _, u := range mockUnits {
			if strings.HasPrefix(duration[i:], u.suffix) {
				total += n * u.seconds
				i += len(u.suffix) - 1
				break
			}
		}
		n = 0
	}
	return total
}

// mockHuman renders seconds the way the server does, e.g. "1w 2d 30m".
// Zero renders as "".
func mockHuman(seconds int) string {
	var parts []string
	for _, u := range mockUnits {
		if seconds >= u.seconds {
			parts = append(parts, fmt.Sprintf("%d%s", seconds/u.seconds, u.suffix))
			seconds %= u.seconds
		}
	}
	return strings.Join(parts, " ")
}
