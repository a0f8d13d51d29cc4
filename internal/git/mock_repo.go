package git

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kilupskalvis/git-lab/internal/models"
)

// MockRepo is an in-memory stand-in for Repo used in tests.
type MockRepo struct {
	// RemoteURLMap stores remote name -> URLs.
	RemoteURLMap map[string][]string
	// ServerBranches stores, per remote URL, the branches a fetch brings in.
	ServerBranches map[string][]string
	// Fetched stores remote-tracking refs created by Fetch.
	Fetched map[string]bool
	// LocalBranches stores branch name -> local branch.
	LocalBranches map[string]*models.Branch
	// Current is the checked out branch ("" for detached HEAD).
	Current string
	// Staged makes HasStagedChanges report staged changes.
	Staged bool
	// Subject and Body make up the HEAD commit message.
	Subject string
	Body    string
	// Pushed records "remote refspec" for every push.
	Pushed []string
	// Calls records every mutating call in order, e.g. "checkout main".
	Calls []string
	// Errs makes the named method fail, e.g. Errs["Commit"].
	Errs map[string]error
}

// NewMockRepo creates a MockRepo with a "main" branch checked out.
func NewMockRepo() *MockRepo {
	return &MockRepo{
		RemoteURLMap:   map[string][]string{},
		ServerBranches: map[string][]string{},
		Fetched:        map[string]bool{},
		LocalBranches:  map[string]*models.Branch{"main": {Name: "main"}},
		Current:        "main",
		Errs:           map[string]error{},
	}
}

func (m *MockRepo) record(format string, args ...any) {
	m.Calls = append(m.Calls, fmt.Sprintf(format, args...))
}

// AddBranch adds a local branch without checking it out.
func (m *MockRepo) AddBranch(name string) {
	m.LocalBranches[name] = &models.Branch{Name: name}
}

// GitDir returns a fixed path.
func (m *MockRepo) GitDir(ctx context.Context) (string, error) {
	return "/mock/.git", m.Errs["GitDir"]
}

// Remotes lists remotes sorted by name.
func (m *MockRepo) Remotes(ctx context.Context) ([]*models.Remote, error) {
	if err := m.Errs["Remotes"]; err != nil {
		return nil, err
	}
	var remotes []*models.Remote
	for name, urls := range m.RemoteURLMap {
		r := &models.Remote{Name: name}
		if len(urls) > 0 {
			r.URL = urls[0]
		}
		remotes = append(remotes, r)
	}
	sort.Slice(remotes, func(i, j int) bool { return remotes[i].Name < remotes[j].Name })
	return remotes, nil
}

// HasRemote reports whether the remote exists.
func (m *MockRepo) HasRemote(ctx context.Context, name string) (bool, error) {
	_, ok := m.RemoteURLMap[name]
	return ok, m.Errs["HasRemote"]
}

// RemoteURLs returns the URLs of a remote.
func (m *MockRepo) RemoteURLs(ctx context.Context, name string) ([]string, error) {
	if err := m.Errs["RemoteURLs"]; err != nil {
		return nil, err
	}
	return m.RemoteURLMap[name], nil
}

// AddRemote adds a remote, failing if it exists.
func (m *MockRepo) AddRemote(ctx context.Context, name, url string) error {
	if err := m.Errs["AddRemote"]; err != nil {
		return err
	}
	if _, ok := m.RemoteURLMap[name]; ok {
		return fmt.Errorf("remote %s already exists", name)
	}
	m.record("remote add %s %s", name, url)
	m.RemoteURLMap[name] = []string{url}
	return nil
}

// SetRemoteURL replaces the URL of a remote.
func (m *MockRepo) SetRemoteURL(ctx context.Context, name, url string) error {
	if err := m.Errs["SetRemoteURL"]; err != nil {
		return err
	}
	if _, ok := m.RemoteURLMap[name]; !ok {
		return fmt.Errorf("no such remote '%s'", name)
	}
	m.record("remote set-url %s %s", name, url)
	m.RemoteURLMap[name] = []string{url}
	return nil
}

// RemoveRemote removes a remote.
func (m *MockRepo) RemoveRemote(ctx context.Context, name string) error {
	if _, ok := m.RemoteURLMap[name]; !ok {
		return fmt.Errorf("no such remote '%s'", name)
	}
	m.record("remote remove %s", name)
	delete(m.RemoteURLMap, name)
	return nil
}

// Fetch creates remote-tracking refs for the branches served at the
// remote's URL.
func (m *MockRepo) Fetch(ctx context.Context, remote, branch string) (string, error) {
	if err := m.Errs["Fetch"]; err != nil {
		return "", err
	}
	urls, ok := m.RemoteURLMap[remote]
	if !ok || len(urls) == 0 {
		return "", fmt.Errorf("'%s' does not appear to be a git repository", remote)
	}
	m.record("fetch %s", remote)
	for _, b := range m.ServerBranches[urls[0]] {
		m.Fetched[models.RemoteBranchRef(remote, b)] = true
	}
	ref := models.RemoteBranchRef(remote, branch)
	if !m.Fetched[ref] {
		return "", fmt.Errorf("branch '%s' not found on remote '%s'", branch, remote)
	}
	return ref, nil
}

// RefExists reports whether a local or fetched ref exists.
func (m *MockRepo) RefExists(ctx context.Context, ref string) (bool, error) {
	if name, ok := strings.CutPrefix(ref, "refs/heads/"); ok {
		_, exists := m.LocalBranches[name]
		return exists, nil
	}
	return m.Fetched[ref], nil
}

// Push records the push and creates the remote-tracking ref.
func (m *MockRepo) Push(ctx context.Context, remote, refspec string, force bool) error {
	if err := m.Errs["Push"]; err != nil {
		return err
	}
	if _, ok := m.RemoteURLMap[remote]; !ok {
		return fmt.Errorf("'%s' does not appear to be a git repository", remote)
	}
	branch := refspec
	if branch == "HEAD" {
		branch = m.Current
	}
	m.record("push %s %s force=%t", remote, refspec, force)
	m.Pushed = append(m.Pushed, remote+" "+refspec)
	m.Fetched[models.RemoteBranchRef(remote, branch)] = true
	return nil
}

// SetUpstream sets the upstream of a local branch.
func (m *MockRepo) SetUpstream(ctx context.Context, branch, upstream string) error {
	if err := m.Errs["SetUpstream"]; err != nil {
		return err
	}
	b, ok := m.LocalBranches[branch]
	if !ok {
		return fmt.Errorf("branch '%s' does not exist", branch)
	}
	if !m.Fetched["refs/remotes/"+upstream] {
		return fmt.Errorf("the requested upstream branch '%s' does not exist", upstream)
	}
	m.record("set-upstream %s %s", branch, upstream)
	b.Upstream = upstream
	return nil
}

// CurrentBranch returns the checked out branch.
func (m *MockRepo) CurrentBranch(ctx context.Context) (string, error) {
	return m.Current, m.Errs["CurrentBranch"]
}

// Branches lists local branches sorted by name.
func (m *MockRepo) Branches(ctx context.Context) ([]*models.Branch, error) {
	var branches []*models.Branch
	for _, b := range m.LocalBranches {
		cp := *b
		cp.Current = b.Name == m.Current
		branches = append(branches, &cp)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

// BranchExists reports whether a local branch exists.
func (m *MockRepo) BranchExists(ctx context.Context, name string) (bool, error) {
	_, ok := m.LocalBranches[name]
	return ok, m.Errs["BranchExists"]
}

// CreateBranch creates a local branch.
func (m *MockRepo) CreateBranch(ctx context.Context, name, startPoint string) error {
	if err := m.Errs["CreateBranch"]; err != nil {
		return err
	}
	if _, ok := m.LocalBranches[name]; ok {
		return fmt.Errorf("a branch named '%s' already exists", name)
	}
	m.record("branch %s %s", name, startPoint)
	m.LocalBranches[name] = &models.Branch{Name: name}
	return nil
}

// Checkout switches to a local branch.
func (m *MockRepo) Checkout(ctx context.Context, name string) error {
	if err := m.Errs["Checkout"]; err != nil {
		return err
	}
	if _, ok := m.LocalBranches[name]; !ok {
		return fmt.Errorf("pathspec '%s' did not match any file(s) known to git", name)
	}
	m.record("checkout %s", name)
	m.Current = name
	return nil
}

// ResetBranch moves an existing branch; like git it refuses the checked
// out branch.
func (m *MockRepo) ResetBranch(ctx context.Context, name, startPoint string) error {
	if err := m.Errs["ResetBranch"]; err != nil {
		return err
	}
	if _, ok := m.LocalBranches[name]; !ok {
		return fmt.Errorf("branch '%s' not found", name)
	}
	if name == m.Current {
		return fmt.Errorf("cannot force update the current branch")
	}
	m.record("branch -f %s %s", name, startPoint)
	m.LocalBranches[name] = &models.Branch{Name: name}
	return nil
}

// HasStagedChanges reports Staged.
func (m *MockRepo) HasStagedChanges(ctx context.Context) (bool, error) {
	return m.Staged, m.Errs["HasStagedChanges"]
}

// HeadMessage returns Subject and Body.
func (m *MockRepo) HeadMessage(ctx context.Context) (string, string, error) {
	return m.Subject, m.Body, m.Errs["HeadMessage"]
}

// Commit clears the staged state.
func (m *MockRepo) Commit(ctx context.Context) error {
	if err := m.Errs["Commit"]; err != nil {
		return err
	}
	m.record("commit")
	m.Staged = false
	return nil
}

// ConfigValue returns "" for every key.
func (m *MockRepo) ConfigValue(ctx context.Context, key string) (string, error) {
	return "", nil
}
