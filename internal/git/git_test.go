package git

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gitTest struct {
	server string // upstream repo root
	client string // working tree under test
	repo   *Repo
}

func trun(t *testing.T, dir string, cmdline ...string) string {
	t.Helper()
	cmd := exec.Command(cmdline[0], cmdline[1:]...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("in %s/, ran %s: %v\n%s", filepath.Base(dir), cmdline, err, out)
	}
	return string(out)
}

func write(t *testing.T, file, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(file, []byte(data), 0644))
}

func initRepo(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	trun(t, dir, "git", "init", "-q", "-b", "main", ".")
	trun(t, dir, "git", "config", "user.name", "gopher")
	trun(t, dir, "git", "config", "user.email", "gopher@example.com")
	trun(t, dir, "git", "config", "commit.gpgsign", "false")
}

func newGitTest(t *testing.T) *gitTest {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	tmp := t.TempDir()
	server := filepath.Join(tmp, "server")
	initRepo(t, server)
	write(t, filepath.Join(server, "file"), "this is main")
	trun(t, server, "git", "add", "file")
	trun(t, server, "git", "commit", "-q", "-m", "on main")
	trun(t, server, "git", "checkout", "-q", "-b", "feature")
	write(t, filepath.Join(server, "file.feature"), "this is feature")
	trun(t, server, "git", "add", "file.feature")
	trun(t, server, "git", "commit", "-q", "-m", "on feature")
	trun(t, server, "git", "checkout", "-q", "main")

	client := filepath.Join(tmp, "client")
	initRepo(t, client)
	write(t, filepath.Join(client, "file"), "this is main")
	trun(t, client, "git", "add", "file")
	trun(t, client, "git", "commit", "-q", "-m", "Add file", "-m", "Longer description.")

	repo, err := Open(context.Background(), client)
	require.NoError(t, err)
	repo.Stdout = &bytes.Buffer{}
	repo.Stderr = &bytes.Buffer{}

	return &gitTest{server: server, client: client, repo: repo}
}

func TestOpen_NotRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CEILING_DIRECTORIES", os.TempDir())

	_, err := Open(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestOpen_Subdirectory(t *testing.T) {
	gt := newGitTest(t)
	sub := filepath.Join(gt.client, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))

	repo, err := Open(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, gt.repo.Dir, repo.Dir)

	gitDir, err := repo.GitDir(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(gt.repo.Dir, ".git"), gitDir)
}

func TestOpen_LinkedWorktree(t *testing.T) {
	gt := newGitTest(t)
	ctx := context.Background()
	require.NoError(t, gt.repo.AddRemote(ctx, "origin", "https://gitlab.com/group/project.git"))
	wt := filepath.Join(filepath.Dir(gt.client), "wt")
	trun(t, gt.client, "git", "worktree", "add", "-q", "-b", "topic", wt)

	repo, err := Open(ctx, wt)
	require.NoError(t, err)

	current, err := repo.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "topic", current)

	ok, err := repo.HasRemote(ctx, "origin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.BranchExists(ctx, "main")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefExists(t *testing.T) {
	gt := newGitTest(t)
	ctx := context.Background()

	for ref, want := range map[string]bool{
		"HEAD":              true,
		"refs/heads/main":   true,
		"refs/heads/other":  false,
		"refs/remotes/a/b":  false,
		"refs/tags/missing": false,
	} {
		ok, err := gt.repo.RefExists(ctx, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, want, ok, ref)
	}

	trun(t, gt.client, "git", "branch", "other")
	ok, err := gt.repo.BranchExists(ctx, "other")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemotes(t *testing.T) {
	gt := newGitTest(t)
	ctx := context.Background()

	ok, err := gt.repo.HasRemote(ctx, "origin")
	require.NoError(t, err)
	assert.False(t, ok)

	urls, err := gt.repo.RemoteURLs(ctx, "origin")
	require.NoError(t, err)
	assert.Empty(t, urls)

	require.NoError(t, gt.repo.AddRemote(ctx, "origin", "https://gitlab.com/group/project.git"))
	require.NoError(t, gt.repo.AddRemote(ctx, "fork", "git@gitlab.com:me/project.git"))
	assert.Error(t, gt.repo.AddRemote(ctx, "fork", "git@gitlab.com:me/other.git"))

	require.NoError(t, gt.repo.SetRemoteURL(ctx, "fork", "ssh://git@gitlab.com/me/project.git"))

	remotes, err := gt.repo.Remotes(ctx)
	require.NoError(t, err)
	require.Len(t, remotes, 2)
	assert.Equal(t, "fork", remotes[0].Name)
	assert.Equal(t, "ssh://git@gitlab.com/me/project.git", remotes[0].URL)
	assert.Equal(t, "origin", remotes[1].Name)

	urls, err = gt.repo.RemoteURLs(ctx, "origin")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://gitlab.com/group/project.git"}, urls)

	require.NoError(t, gt.repo.RemoveRemote(ctx, "fork"))
	ok, err = gt.repo.HasRemote(ctx, "fork")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetch(t *testing.T) {
	gt := newGitTest(t)
	ctx := context.Background()
	require.NoError(t, gt.repo.AddRemote(ctx, "alice", gt.server))

	ref, err := gt.repo.Fetch(ctx, "alice", "feature")
	require.NoError(t, err)
	assert.Equal(t, "refs/remotes/alice/feature", ref)

	ok, err := gt.repo.RefExists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = gt.repo.Fetch(ctx, "alice", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "branch 'missing' not found on remote 'alice'")
}

func TestBranchLifecycle(t *testing.T) {
	gt := newGitTest(t)
	ctx := context.Background()
	require.NoError(t, gt.repo.AddRemote(ctx, "alice", gt.server))
	ref, err := gt.repo.Fetch(ctx, "alice", "feature")
	require.NoError(t, err)

	current, err := gt.repo.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", current)

	require.NoError(t, gt.repo.CreateBranch(ctx, "feature", ref))
	ok, err := gt.repo.BranchExists(ctx, "feature")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, gt.repo.Checkout(ctx, "feature"))
	require.NoError(t, gt.repo.SetUpstream(ctx, "feature", "alice/feature"))

	branches, err := gt.repo.Branches(ctx)
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "feature", branches[0].Name)
	assert.Equal(t, "alice/feature", branches[0].Upstream)
	assert.True(t, branches[0].Current)
	assert.Equal(t, "main", branches[1].Name)
	assert.False(t, branches[1].Current)

	// git refuses to move the checked out branch
	assert.Error(t, gt.repo.ResetBranch(ctx, "feature", "main"))

	require.NoError(t, gt.repo.Checkout(ctx, "main"))
	require.NoError(t, gt.repo.ResetBranch(ctx, "feature", "main"))
	assert.Equal(t,
		trun(t, gt.client, "git", "rev-parse", "main"),
		trun(t, gt.client, "git", "rev-parse", "feature"))
}

func TestCurrentBranch_Detached(t *testing.T) {
	gt := newGitTest(t)
	trun(t, gt.client, "git", "checkout", "-q", "--detach")

	current, err := gt.repo.CurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, current)
}

func TestStagedChangesAndHeadMessage(t *testing.T) {
	gt := newGitTest(t)
	ctx := context.Background()

	staged, err := gt.repo.HasStagedChanges(ctx)
	require.NoError(t, err)
	assert.False(t, staged)

	write(t, filepath.Join(gt.client, "file"), "changed")
	staged, err = gt.repo.HasStagedChanges(ctx)
	require.NoError(t, err)
	assert.False(t, staged, "unstaged edits do not count")

	trun(t, gt.client, "git", "add", "file")
	staged, err = gt.repo.HasStagedChanges(ctx)
	require.NoError(t, err)
	assert.True(t, staged)

	subject, body, err := gt.repo.HeadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Add file", subject)
	assert.Equal(t, "Longer description.", body)
}

func TestPush(t *testing.T) {
	gt := newGitTest(t)
	ctx := context.Background()

	bare := filepath.Join(filepath.Dir(gt.client), "bare.git")
	trun(t, filepath.Dir(gt.client), "git", "init", "-q", "--bare", bare)
	require.NoError(t, gt.repo.AddRemote(ctx, "origin", bare))

	require.NoError(t, gt.repo.Push(ctx, "origin", "HEAD", true))
	assert.Contains(t, trun(t, bare, "git", "branch"), "main")

	require.NoError(t, gt.repo.SetUpstream(ctx, "main", "origin/main"))
}

func TestConfigValue(t *testing.T) {
	gt := newGitTest(t)
	ctx := context.Background()

	v, err := gt.repo.ConfigValue(ctx, "gitlab.unset-key")
	require.NoError(t, err)
	assert.Empty(t, v)

	v, err = gt.repo.ConfigValue(ctx, "user.name")
	require.NoError(t, err)
	assert.Equal(t, "gopher", v)
}

func TestExecError(t *testing.T) {
	gt := newGitTest(t)

	err := gt.repo.Checkout(context.Background(), "does-not-exist")
	require.Error(t, err)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, []string{"checkout", "does-not-exist"}, execErr.Args)
	assert.Contains(t, err.Error(), "git checkout does-not-exist")
}
