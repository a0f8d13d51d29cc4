package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kilupskalvis/git-lab/internal/config"
	"github.com/kilupskalvis/git-lab/internal/gitlab"
	"github.com/kilupskalvis/git-lab/internal/models"
)

// Prompter asks the user for decisions and text.
type Prompter interface {
	// Confirm asks a yes/no question.
	Confirm(question string) (bool, error)
	// Describe lets the user edit a title and description, starting from
	// the given defaults. An empty title means the user gave up.
	Describe(title, description string) (string, string, error)
}

// ReviewOptions configures a ReviewRequestSync.
type ReviewOptions struct {
	Workflow config.Workflow
	// WorkBranchPrefix is the branch prefix the instance reserves for
	// branches pushed to upstream projects, e.g. "work/". Empty if none.
	WorkBranchPrefix string
	// Dir resolves relative image paths in descriptions.
	Dir string
}

// MergeRequestOptions configures CreateMergeRequest.
type MergeRequestOptions struct {
	// TargetBranch defaults to the upstream project's default branch.
	TargetBranch string
}

// MergeRequestResult is the outcome of CreateMergeRequest.
type MergeRequestResult struct {
	MergeRequest *models.MergeRequest
	// Existing is set when an open merge request was found instead of
	// creating one.
	Existing bool
	// Warnings lists problems that did not stop the creation.
	Warnings []string
}

// ReviewRequestSync pushes the current branch and ensures a merge request
// exists for it.
type ReviewRequestSync struct {
	session *Session
	forks   *ForkManager
	prompt  Prompter
	opts    ReviewOptions
}

// NewReviewRequestSync creates a ReviewRequestSync.
func NewReviewRequestSync(s *Session, forks *ForkManager, prompt Prompter, opts ReviewOptions) *ReviewRequestSync {
	if opts.Workflow == "" {
		opts.Workflow = config.WorkflowFork
	}
	return &ReviewRequestSync{session: s, forks: forks, prompt: prompt, opts: opts}
}

// Check returns a warning when the current branch ignores the instance's
// naming convention for branches pushed upstream. It never fails the
// operation.
func (r *ReviewRequestSync) Check(ctx context.Context) (string, error) {
	if r.opts.Workflow != config.WorkflowWorkBranch || r.opts.WorkBranchPrefix == "" {
		return "", nil
	}
	branch, err := r.activeBranch(ctx, "check")
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(branch, r.opts.WorkBranchPrefix) {
		return "", nil
	}
	return fmt.Sprintf("branch '%s' does not start with '%s'; %s expects branches pushed to %s to be named %s<name>",
		branch, r.opts.WorkBranchPrefix, r.session.Host, r.session.Project.PathWithNamespace, r.opts.WorkBranchPrefix), nil
}

// Commit offers to commit staged changes. It reports whether a commit was
// made; declining is not an error.
func (r *ReviewRequestSync) Commit(ctx context.Context) (bool, error) {
	const op Op = "commit"
	repo := r.session.Repo

	staged, err := repo.HasStagedChanges(ctx)
	if err != nil {
		return false, E(op, Git, err)
	}
	if !staged {
		return false, nil
	}

	ok, err := r.prompt.Confirm("There are staged changes. Do you want to commit them?")
	if err != nil {
		return false, E(op, err)
	}
	if !ok {
		return false, nil
	}
	if err := repo.Commit(ctx); err != nil {
		return false, E(op, Git, fmt.Errorf("%w: %v", ErrCommitFailed, err))
	}
	return true, nil
}

// Push force-pushes the current branch to the fork or to origin, depending
// on the workflow, and makes the branch track the pushed ref. It returns
// the upstream name, e.g. "fork/feature".
func (r *ReviewRequestSync) Push(ctx context.Context) (string, error) {
	const op Op = "push"
	repo := r.session.Repo

	branch, err := r.activeBranch(ctx, op)
	if err != nil {
		return "", err
	}

	remote, refspec := OriginRemote, "HEAD"
	if r.opts.Workflow == config.WorkflowFork {
		if _, err := r.forks.Fork(ctx); err != nil {
			return "", err
		}
		remote, refspec = ForkRemote, branch
	}

	if err := repo.Push(ctx, remote, refspec, true); err != nil {
		return "", E(op, Git, err)
	}
	upstream := models.UpstreamName(remote, branch)
	if err := repo.SetUpstream(ctx, branch, upstream); err != nil {
		return "", E(op, Git, err)
	}
	return upstream, nil
}

// CreateMergeRequest opens a merge request for the current branch unless
// an open one already exists for the same branches.
func (r *ReviewRequestSync) CreateMergeRequest(ctx context.Context, opts MergeRequestOptions) (*MergeRequestResult, error) {
	const op Op = "merge request"
	repo, client, upstream := r.session.Repo, r.session.Client, r.session.Project

	branch, err := r.activeBranch(ctx, op)
	if err != nil {
		return nil, err
	}
	target := opts.TargetBranch
	if target == "" {
		target = upstream.DefaultBranch
	}
	if target == "" {
		return nil, E(op, Configuration, fmt.Errorf("project %s has no default branch, pass a target branch", upstream.PathWithNamespace))
	}

	source := upstream
	if r.opts.Workflow == config.WorkflowFork {
		fork, err := r.forks.Fork(ctx)
		if err != nil {
			return nil, err
		}
		source = fork.Project
	}

	existing, err := r.findOpen(ctx, source.ID, branch, target)
	if err != nil {
		return nil, E(op, apiKind(err), err)
	}
	if existing != nil {
		return &MergeRequestResult{MergeRequest: existing, Existing: true}, nil
	}

	subject, body, err := repo.HeadMessage(ctx)
	if err != nil {
		return nil, E(op, Git, err)
	}
	title, description, err := r.prompt.Describe(subject, body)
	if err != nil {
		return nil, E(op, err)
	}
	if strings.TrimSpace(title) == "" {
		return nil, E(op, Declined, fmt.Errorf("%w: empty title", ErrDeclined))
	}

	description, warnings, err := r.uploadImages(ctx, description)
	if err != nil {
		return nil, E(op, apiKind(err), err)
	}

	mr, err := client.CreateMergeRequest(ctx, source.ID, &gitlab.CreateMergeRequestOptions{
		SourceBranch:       branch,
		TargetBranch:       target,
		Title:              strings.TrimSpace(title),
		Description:        description,
		TargetProjectID:    upstream.ID,
		AllowCollaboration: true,
		RemoveSourceBranch: true,
	})
	if err != nil {
		return nil, E(op, apiKind(err), err)
	}
	return &MergeRequestResult{MergeRequest: mr, Warnings: warnings}, nil
}

// findOpen returns the open merge request from branch of sourceID into
// target of the upstream project, if any.
func (r *ReviewRequestSync) findOpen(ctx context.Context, sourceID int, branch, target string) (*models.MergeRequest, error) {
	mrs, err := r.session.Client.ListMergeRequests(ctx, r.session.Project.ID, &gitlab.ListMergeRequestsOptions{
		State:        models.MergeRequestOpened,
		SourceBranch: branch,
		TargetBranch: target,
	})
	if err != nil {
		return nil, err
	}
	// The API does not filter by source project, and another user may
	// have a branch of the same name in their fork.
	for _, mr := range mrs {
		if mr.SourceProjectID == sourceID && mr.IsOpen() {
			return mr, nil
		}
	}
	return nil, nil
}

// imageRE matches ![alt](target) and ![alt](target "title").
var imageRE = regexp.MustCompile(`!\[([^\]]*)\]\(\s*([^)\s]+)(\s+(?:"[^"]*"|'[^']*'))?\s*\)`)

// uploadImages uploads images referenced by local path in a markdown
// description and points the references at the uploaded copies.
func (r *ReviewRequestSync) uploadImages(ctx context.Context, description string) (string, []string, error) {
	var warnings []string
	uploaded := map[string]string{}

	for _, m := range imageRE.FindAllStringSubmatch(description, -1) {
		target := m[2]
		if _, done := uploaded[target]; done || isRemoteReference(target) {
			continue
		}

		path := target
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.opts.Dir, path)
		}
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			warnings = append(warnings, fmt.Sprintf("image %s does not exist, leaving the reference unchanged", target))
			uploaded[target] = ""
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("open image: %w", err)
		}

		up, err := r.session.Client.UploadFile(ctx, r.session.Project.ID, filepath.Base(path), f)
		f.Close()
		if err != nil {
			return "", nil, err
		}
		slog.Debug("uploaded image", "path", path, "url", up.URL)
		uploaded[target] = up.URL
	}

	rewritten := imageRE.ReplaceAllStringFunc(description, func(s string) string {
		m := imageRE.FindStringSubmatch(s)
		if url := uploaded[m[2]]; url != "" {
			return "![" + m[1] + "](" + url + m[3] + ")"
		}
		return s
	})
	return rewritten, warnings, nil
}

// isRemoteReference reports whether an image target is a URL rather than
// a local path.
func isRemoteReference(target string) bool {
	return schemeRE.MatchString(target) ||
		strings.HasPrefix(target, "/uploads/") ||
		strings.HasPrefix(target, "data:")
}

func (r *ReviewRequestSync) activeBranch(ctx context.Context, op Op) (string, error) {
	branch, err := r.session.Repo.CurrentBranch(ctx)
	if err != nil {
		return "", E(op, Git, err)
	}
	if branch == "" {
		return "", E(op, State, "HEAD is detached, check out a branch first")
	}
	return branch, nil
}
