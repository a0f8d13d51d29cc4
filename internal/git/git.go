// Package git works with a local working tree. Commands that change the
// repository or talk to remotes run the git binary, so the user's hooks,
// editor, credential helpers and ssh setup apply. Lookups of refs and
// remotes read the repository directly through go-git.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/kilupskalvis/git-lab/internal/models"
)

// ErrNotRepository is returned by Open outside of a git working tree.
var ErrNotRepository = errors.New("current directory is not a git repository")

// ExecError is returned when a git command exits unsuccessfully.
type ExecError struct {
	Args   []string
	Err    error
	Stderr string
}

func (e *ExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString("git ")
	b.WriteString(strings.Join(e.Args, " "))
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error { return e.Err }

// exitCode returns the exit status of a failed command, or -1.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Repo is a local git working tree.
type Repo struct {
	// Path to the git executable.
	gitPath string
	// store reads refs and config without spawning git.
	store *gogit.Repository

	// Dir is the top level directory of the working tree.
	Dir string

	// Stdin, Stdout and Stderr are attached to interactive commands
	// such as commit. They default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Open returns the repository containing dir.
func Open(ctx context.Context, dir string) (*Repo, error) {
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("no 'git' program on path: %w", err)
	}

	r := &Repo{gitPath: p, Dir: dir, Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	top, err := r.output(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, ErrNotRepository
	}
	r.Dir = top

	r.store, err = gogit.PlainOpenWithOptions(top, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", top, err)
	}
	return r, nil
}

// output runs a git command and returns its trimmed standard output.
// Omit the 'git' part of the command.
func (r *Repo) output(ctx context.Context, args ...string) (string, error) {
	slog.Debug("git", "args", args, "dir", r.Dir)

	cmd := exec.CommandContext(ctx, r.gitPath, args...)
	cmd.Dir = r.Dir
	cmd.Env = os.Environ()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return "", &ExecError{Args: args, Err: err, Stderr: stderr.String()}
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

// interactive runs a git command attached to the repo's terminal streams.
func (r *Repo) interactive(ctx context.Context, args ...string) error {
	slog.Debug("git", "args", args, "dir", r.Dir, "interactive", true)

	cmd := exec.CommandContext(ctx, r.gitPath, args...)
	cmd.Dir = r.Dir
	cmd.Env = os.Environ()
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Run(); err != nil {
		return &ExecError{Args: args, Err: err}
	}
	return nil
}

// check runs a command whose exit status 1 means "no" rather than failure,
// like "git diff --quiet" or "git show-ref --quiet".
func (r *Repo) check(ctx context.Context, args ...string) (bool, error) {
	_, err := r.output(ctx, args...)
	if err == nil {
		return true, nil
	}
	if exitCode(err) == 1 {
		return false, nil
	}
	return false, err
}

// GitDir returns the absolute path of the .git directory.
func (r *Repo) GitDir(ctx context.Context) (string, error) {
	return r.output(ctx, "rev-parse", "--absolute-git-dir")
}

// ConfigValue returns a git config value, or "" if it is unset.
func (r *Repo) ConfigValue(ctx context.Context, key string) (string, error) {
	out, err := r.output(ctx, "config", "--get", key)
	if err != nil {
		if exitCode(err) == 1 {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// Remotes lists the configured remotes with their first URL.
func (r *Repo) Remotes(ctx context.Context) ([]*models.Remote, error) {
	names, err := r.remoteNames()
	if err != nil {
		return nil, err
	}

	var remotes []*models.Remote
	for _, name := range names {
		urls, err := r.RemoteURLs(ctx, name)
		if err != nil {
			return nil, err
		}
		remote := &models.Remote{Name: name}
		if len(urls) > 0 {
			remote.URL = urls[0]
		}
		remotes = append(remotes, remote)
	}
	return remotes, nil
}

// HasRemote reports whether a remote called name exists.
func (r *Repo) HasRemote(ctx context.Context, name string) (bool, error) {
	names, err := r.remoteNames()
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// remoteNames returns the configured remote names in sorted order.
func (r *Repo) remoteNames() ([]string, error) {
	cfg, err := r.store.Config()
	if err != nil {
		return nil, fmt.Errorf("read repository config: %w", err)
	}
	names := make([]string, 0, len(cfg.Remotes))
	for name := range cfg.Remotes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// RemoteURLs returns all URLs of a remote. A missing remote yields no URLs.
// git resolves them so url.<base>.insteadOf rewrites apply.
func (r *Repo) RemoteURLs(ctx context.Context, name string) ([]string, error) {
	ok, err := r.HasRemote(ctx, name)
	if err != nil || !ok {
		return nil, err
	}
	out, err := r.output(ctx, "remote", "get-url", "--all", name)
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// AddRemote adds a new remote.
func (r *Repo) AddRemote(ctx context.Context, name, url string) error {
	_, err := r.output(ctx, "remote", "add", name, url)
	return err
}

// SetRemoteURL changes the URL of an existing remote.
func (r *Repo) SetRemoteURL(ctx context.Context, name, url string) error {
	_, err := r.output(ctx, "remote", "set-url", name, url)
	return err
}

// RemoveRemote removes a remote and its remote-tracking branches.
func (r *Repo) RemoveRemote(ctx context.Context, name string) error {
	_, err := r.output(ctx, "remote", "remove", name)
	return err
}

// Fetch fetches all refs of remote and returns the remote-tracking ref
// of branch, which must exist after the fetch.
func (r *Repo) Fetch(ctx context.Context, remote, branch string) (string, error) {
	if _, err := r.output(ctx, "fetch", remote); err != nil {
		return "", err
	}
	ref := models.RemoteBranchRef(remote, branch)
	ok, err := r.RefExists(ctx, ref)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("branch '%s' not found on remote '%s'", branch, remote)
	}
	return ref, nil
}

// RefExists reports whether the full ref name, e.g. "refs/heads/main",
// exists. Symbolic refs must resolve.
func (r *Repo) RefExists(ctx context.Context, ref string) (bool, error) {
	_, err := r.store.Reference(plumbing.ReferenceName(ref), true)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return false, nil
	}
	return false, fmt.Errorf("resolve %s: %w", ref, err)
}

// Push pushes refspec to remote.
func (r *Repo) Push(ctx context.Context, remote, refspec string, force bool) error {
	args := []string{"push"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, remote, refspec)
	return r.interactive(ctx, args...)
}

// SetUpstream makes branch track upstream, e.g. "origin/main".
func (r *Repo) SetUpstream(ctx context.Context, branch, upstream string) error {
	_, err := r.output(ctx, "branch", "--set-upstream-to="+upstream, branch)
	return err
}

// CurrentBranch returns the checked out branch, or "" on a detached HEAD.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	head, err := r.store.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference {
		return "", nil
	}
	return head.Target().Short(), nil
}

// Branches lists local branches.
func (r *Repo) Branches(ctx context.Context) ([]*models.Branch, error) {
	out, err := r.output(ctx, "for-each-ref",
		"--format=%(refname:short)%00%(upstream:short)%00%(HEAD)", "refs/heads")
	if err != nil {
		return nil, err
	}

	var branches []*models.Branch
	for _, line := range lines(out) {
		fields := strings.Split(line, "\x00")
		if len(fields) != 3 {
			continue
		}
		branches = append(branches, &models.Branch{
			Name:     fields[0],
			Upstream: fields[1],
			Current:  fields[2] == "*",
		})
	}
	return branches, nil
}

// BranchExists reports whether a local branch called name exists.
func (r *Repo) BranchExists(ctx context.Context, name string) (bool, error) {
	return r.RefExists(ctx, "refs/heads/"+name)
}

// CreateBranch creates branch name at startPoint without checking it out.
func (r *Repo) CreateBranch(ctx context.Context, name, startPoint string) error {
	_, err := r.output(ctx, "branch", "--no-track", name, startPoint)
	return err
}

// Checkout switches the working tree to branch name.
func (r *Repo) Checkout(ctx context.Context, name string) error {
	_, err := r.output(ctx, "checkout", name)
	return err
}

// ResetBranch moves the existing branch name to startPoint in one step,
// dropping commits only it had. git refuses this for the checked out branch.
func (r *Repo) ResetBranch(ctx context.Context, name, startPoint string) error {
	_, err := r.output(ctx, "branch", "--force", "--no-track", name, startPoint)
	return err
}

// HasStagedChanges reports whether the index differs from HEAD.
func (r *Repo) HasStagedChanges(ctx context.Context) (bool, error) {
	same, err := r.check(ctx, "diff", "--cached", "--quiet")
	return !same, err
}

// HeadMessage returns the subject and body of the HEAD commit.
func (r *Repo) HeadMessage(ctx context.Context) (subject, body string, err error) {
	out, err := r.output(ctx, "log", "-1", "--format=%s%x00%b")
	if err != nil {
		return "", "", err
	}
	subject, body, _ = strings.Cut(out, "\x00")
	return subject, strings.TrimSpace(body), nil
}

// Commit runs "git commit" interactively so the user's editor and hooks run.
func (r *Repo) Commit(ctx context.Context) error {
	return r.interactive(ctx, "commit")
}

func lines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
