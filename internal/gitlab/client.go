package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kilupskalvis/git-lab/internal/models"
)

// DefaultTimeout bounds every API request.
const DefaultTimeout = 60 * time.Second

// Client defines the subset of the GitLab API this tool uses.
type Client interface {
	CurrentUser(ctx context.Context) (*models.User, error)

	// ProjectByPath looks a project up by its unescaped path id,
	// e.g. "group/project".
	ProjectByPath(ctx context.Context, pathID string) (*models.RemoteProject, error)
	ProjectByID(ctx context.Context, id int) (*models.RemoteProject, error)
	ForkProject(ctx context.Context, id int) (*models.RemoteProject, error)

	ListMergeRequests(ctx context.Context, projectID int, opts *ListMergeRequestsOptions) ([]*models.MergeRequest, error)
	MergeRequest(ctx context.Context, projectID, iid int) (*models.MergeRequest, error)
	CreateMergeRequest(ctx context.Context, projectID int, opts *CreateMergeRequestOptions) (*models.MergeRequest, error)

	UploadFile(ctx context.Context, projectID int, filename string, r io.Reader) (*models.Upload, error)
	CreateSnippet(ctx context.Context, opts *CreateSnippetOptions) (*models.Snippet, error)

	Issue(ctx context.Context, projectID, iid int) (*models.Issue, error)
	// Durations use the server's notation, e.g. "1w2d4h".
	SetTimeEstimate(ctx context.Context, projectID, iid int, duration string) (*models.TimeStats, error)
	AddSpentTime(ctx context.Context, projectID, iid int, duration string) (*models.TimeStats, error)
	ResetTimeEstimate(ctx context.Context, projectID, iid int) (*models.TimeStats, error)
	ResetSpentTime(ctx context.Context, projectID, iid int) (*models.TimeStats, error)
}

// HTTPClient implements Client over the REST v4 API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the instance at baseURL,
// e.g. "https://gitlab.com", authenticating with a personal access token.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// BaseURL returns the instance address the client talks to.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) apiURL(path string, query url.Values) string {
	u := c.baseURL + "/api/v4" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// projectPath returns the API path of a project. Path ids are escaped here,
// so "group/sub/project" is sent as "group%2Fsub%2Fproject".
func projectPath(pathID string) string {
	return "/projects/" + url.PathEscape(pathID)
}

func projectIDPath(id int) string {
	return "/projects/" + strconv.Itoa(id)
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	slog.Debug("gitlab", "method", method, "path", req.URL.EscapedPath(), "status", resp.StatusCode, "elapsed", time.Since(start))

	return resp, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, url string, reqBody, respBody any) error {
	var body io.Reader
	headers := map[string]string{}

	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		headers["Content-Type"] = "application/json"
	}

	resp, err := c.do(ctx, method, url, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// CurrentUser returns the user owning the token.
func (c *HTTPClient) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/user", nil), nil, &user); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &user, nil
}

// ProjectByPath returns the project at pathID.
func (c *HTTPClient) ProjectByPath(ctx context.Context, pathID string) (*models.RemoteProject, error) {
	var p models.RemoteProject
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL(projectPath(pathID), nil), nil, &p); err != nil {
		return nil, fmt.Errorf("get project %s: %w", pathID, err)
	}
	return &p, nil
}

// ProjectByID returns the project with the given numeric id.
func (c *HTTPClient) ProjectByID(ctx context.Context, id int) (*models.RemoteProject, error) {
	var p models.RemoteProject
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL(projectIDPath(id), nil), nil, &p); err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return &p, nil
}

// ForkProject forks the project into the user's namespace. The returned
// record may be incomplete while the fork is being created.
func (c *HTTPClient) ForkProject(ctx context.Context, id int) (*models.RemoteProject, error) {
	var p models.RemoteProject
	if err := c.doJSON(ctx, http.MethodPost, c.apiURL(projectIDPath(id)+"/fork", nil), nil, &p); err != nil {
		return nil, fmt.Errorf("fork project %d: %w", id, err)
	}
	return &p, nil
}

// ListMergeRequests returns the merge requests targeting the project.
func (c *HTTPClient) ListMergeRequests(ctx context.Context, projectID int, opts *ListMergeRequestsOptions) ([]*models.MergeRequest, error) {
	query := url.Values{}
	query.Set("per_page", "100")
	if opts != nil {
		if opts.State != "" {
			query.Set("state", opts.State)
		}
		if opts.SourceBranch != "" {
			query.Set("source_branch", opts.SourceBranch)
		}
		if opts.TargetBranch != "" {
			query.Set("target_branch", opts.TargetBranch)
		}
	}

	var mrs []*models.MergeRequest
	u := c.apiURL(projectIDPath(projectID)+"/merge_requests", query)
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &mrs); err != nil {
		return nil, fmt.Errorf("list merge requests of project %d: %w", projectID, err)
	}
	return mrs, nil
}

// MergeRequest returns merge request iid of the project.
func (c *HTTPClient) MergeRequest(ctx context.Context, projectID, iid int) (*models.MergeRequest, error) {
	var mr models.MergeRequest
	u := c.apiURL(projectIDPath(projectID)+"/merge_requests/"+strconv.Itoa(iid), nil)
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &mr); err != nil {
		return nil, fmt.Errorf("get merge request !%d: %w", iid, err)
	}
	return &mr, nil
}

// CreateMergeRequest opens a merge request from a branch of projectID.
func (c *HTTPClient) CreateMergeRequest(ctx context.Context, projectID int, opts *CreateMergeRequestOptions) (*models.MergeRequest, error) {
	var mr models.MergeRequest
	u := c.apiURL(projectIDPath(projectID)+"/merge_requests", nil)
	if err := c.doJSON(ctx, http.MethodPost, u, opts, &mr); err != nil {
		return nil, fmt.Errorf("create merge request: %w", err)
	}
	return &mr, nil
}

// UploadFile attaches a file to the project so markdown can reference it.
func (c *HTTPClient) UploadFile(ctx context.Context, projectID int, filename string, r io.Reader) (*models.Upload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}

	headers := map[string]string{"Content-Type": mw.FormDataContentType()}
	resp, err := c.do(ctx, http.MethodPost, c.apiURL(projectIDPath(projectID)+"/uploads", nil), &buf, headers)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("upload %s: %w", filename, decodeError(resp))
	}

	var upload models.Upload
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &upload, nil
}

// CreateSnippet creates a personal snippet.
func (c *HTTPClient) CreateSnippet(ctx context.Context, opts *CreateSnippetOptions) (*models.Snippet, error) {
	var s models.Snippet
	if err := c.doJSON(ctx, http.MethodPost, c.apiURL("/snippets", nil), opts, &s); err != nil {
		return nil, fmt.Errorf("create snippet: %w", err)
	}
	return &s, nil
}

func issuePath(projectID, iid int) string {
	return projectIDPath(projectID) + "/issues/" + strconv.Itoa(iid)
}

// Issue returns issue iid of the project, with its time tracking.
func (c *HTTPClient) Issue(ctx context.Context, projectID, iid int) (*models.Issue, error) {
	var issue models.Issue
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL(issuePath(projectID, iid), nil), nil, &issue); err != nil {
		return nil, fmt.Errorf("get issue #%d: %w", iid, err)
	}
	return &issue, nil
}

// timeStats posts to one of the time tracking endpoints of an issue.
func (c *HTTPClient) timeStats(ctx context.Context, projectID, iid int, endpoint string, body any) (*models.TimeStats, error) {
	var stats models.TimeStats
	u := c.apiURL(issuePath(projectID, iid)+"/"+endpoint, nil)
	if err := c.doJSON(ctx, http.MethodPost, u, body, &stats); err != nil {
		return nil, fmt.Errorf("%s of issue #%d: %w", strings.ReplaceAll(endpoint, "_", " "), iid, err)
	}
	return &stats, nil
}

// SetTimeEstimate replaces the estimate of an issue.
func (c *HTTPClient) SetTimeEstimate(ctx context.Context, projectID, iid int, duration string) (*models.TimeStats, error) {
	return c.timeStats(ctx, projectID, iid, "time_estimate", &timeTrackingOptions{Duration: duration})
}

// AddSpentTime adds a time entry to an issue.
func (c *HTTPClient) AddSpentTime(ctx context.Context, projectID, iid int, duration string) (*models.TimeStats, error) {
	return c.timeStats(ctx, projectID, iid, "add_spent_time", &timeTrackingOptions{Duration: duration})
}

// ResetTimeEstimate clears the estimate of an issue.
func (c *HTTPClient) ResetTimeEstimate(ctx context.Context, projectID, iid int) (*models.TimeStats, error) {
	return c.timeStats(ctx, projectID, iid, "reset_time_estimate", nil)
}

// ResetSpentTime removes all time entries of an issue.
func (c *HTTPClient) ResetSpentTime(ctx context.Context, projectID, iid int) (*models.TimeStats, error) {
	return c.timeStats(ctx, projectID, iid, "reset_spent_time", nil)
}
