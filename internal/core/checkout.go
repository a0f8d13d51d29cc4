package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kilupskalvis/git-lab/internal/gitlab"
	"github.com/kilupskalvis/git-lab/internal/models"
)

// CheckoutState is a step of checking out a merge request.
type CheckoutState string

const (
	StateStart          CheckoutState = "start"
	StateRemoteResolved CheckoutState = "remote-resolved"
	StateRemoteFetched  CheckoutState = "remote-fetched"
	StateBranchFresh    CheckoutState = "branch-fresh"
	StateBranchConflict CheckoutState = "branch-conflict"
	StateOverwritten    CheckoutState = "overwritten"
	StateDeclined       CheckoutState = "declined"
	StateCheckedOut     CheckoutState = "checked-out"
	StateAborted        CheckoutState = "aborted"
)

// fallbackBranches are switched to, in order, before deleting the
// checked out branch.
var fallbackBranches = []string{"main", "master"}

// CheckoutResult describes a merge request checkout.
type CheckoutResult struct {
	MergeRequest *models.MergeRequest
	// Remote is the local remote the branch was fetched from.
	Remote string
	// Branch is the local branch, named after the source branch.
	Branch string
	// Upstream is the remote-tracking branch Branch follows.
	Upstream string
	// Trace lists the states passed through, in order.
	Trace []CheckoutState
}

func (r *CheckoutResult) enter(s CheckoutState) {
	slog.Debug("checkout", "state", s)
	r.Trace = append(r.Trace, s)
}

// State returns the last state reached.
func (r *CheckoutResult) State() CheckoutState {
	if len(r.Trace) == 0 {
		return ""
	}
	return r.Trace[len(r.Trace)-1]
}

// CheckoutReconciler materializes the source branch of a merge request as
// a local branch.
type CheckoutReconciler struct {
	session *Session
	prompt  Prompter
}

// NewCheckoutReconciler creates a CheckoutReconciler.
func NewCheckoutReconciler(s *Session, prompt Prompter) *CheckoutReconciler {
	return &CheckoutReconciler{session: s, prompt: prompt}
}

// Checkout fetches merge request iid of the upstream project and checks out
// its source branch. An existing local branch of the same name is only
// replaced after confirmation. The result is returned even on failure so
// callers can see how far the checkout got.
func (c *CheckoutReconciler) Checkout(ctx context.Context, iid int) (*CheckoutResult, error) {
	const op Op = "checkout"
	repo, client, upstream := c.session.Repo, c.session.Client, c.session.Project

	res := &CheckoutResult{}
	res.enter(StateStart)

	abort := func(err error) (*CheckoutResult, error) {
		res.enter(StateAborted)
		return res, err
	}

	mr, err := client.MergeRequest(ctx, upstream.ID, iid)
	if err != nil {
		if gitlab.IsNotFound(err) {
			return abort(E(op, NotFound, fmt.Errorf("merge request !%d not found in %s", iid, upstream.PathWithNamespace)))
		}
		return abort(E(op, apiKind(err), err))
	}
	res.MergeRequest = mr
	res.Branch = mr.SourceBranch

	remote, err := c.resolveRemote(ctx, mr)
	if err != nil {
		return abort(E(op, KindOf(err), err))
	}
	res.Remote = remote
	res.enter(StateRemoteResolved)

	ref, err := repo.Fetch(ctx, remote, mr.SourceBranch)
	if err != nil {
		return abort(E(op, Git, err))
	}
	res.enter(StateRemoteFetched)

	exists, err := repo.BranchExists(ctx, mr.SourceBranch)
	if err != nil {
		return abort(E(op, Git, err))
	}
	if !exists {
		res.enter(StateBranchFresh)
		if err := repo.CreateBranch(ctx, mr.SourceBranch, ref); err != nil {
			return abort(E(op, Git, err))
		}
	} else {
		res.enter(StateBranchConflict)
		ok, err := c.prompt.Confirm(fmt.Sprintf("Branch '%s' already exists locally. Do you want to overwrite it?", mr.SourceBranch))
		if err != nil {
			return abort(E(op, err))
		}
		if !ok {
			res.enter(StateDeclined)
			return abort(E(op, Declined, fmt.Errorf("%w: branch '%s' was left unchanged", ErrDeclined, mr.SourceBranch)))
		}
		if err := c.displace(ctx, mr.SourceBranch); err != nil {
			return abort(E(op, KindOf(err), err))
		}
		// The branch is replaced in one step so a failure leaves it intact.
		if err := repo.ResetBranch(ctx, mr.SourceBranch, ref); err != nil {
			return abort(E(op, Git, err))
		}
		res.enter(StateOverwritten)
	}

	if err := repo.Checkout(ctx, mr.SourceBranch); err != nil {
		return abort(E(op, Git, err))
	}
	res.Upstream = models.UpstreamName(remote, mr.SourceBranch)
	if err := repo.SetUpstream(ctx, mr.SourceBranch, res.Upstream); err != nil {
		return abort(E(op, Git, err))
	}
	res.enter(StateCheckedOut)
	return res, nil
}

// resolveRemote returns the local remote serving the merge request's source
// project, registering one named after the author for forks.
func (c *CheckoutReconciler) resolveRemote(ctx context.Context, mr *models.MergeRequest) (string, error) {
	if mr.SourceProjectID == c.session.Project.ID {
		return OriginRemote, nil
	}

	source, err := c.session.Client.ProjectByID(ctx, mr.SourceProjectID)
	if err != nil {
		if gitlab.IsNotFound(err) {
			return "", E(NotFound, fmt.Errorf("source project of !%d no longer exists", mr.IID))
		}
		return "", E(apiKind(err), err)
	}

	name := ContributorRemoteName(mr.Author.Username)
	for _, candidate := range []string{name, "user-" + name} {
		urls, err := c.session.Repo.RemoteURLs(ctx, candidate)
		if err != nil {
			return "", E(Git, err)
		}
		if len(urls) > 0 && !c.serves(urls[0], source) {
			slog.Debug("remote belongs to another project", "remote", candidate, "url", urls[0])
			continue
		}
		if err := setRemote(ctx, c.session.Repo, candidate, source.HTTPURLToRepo); err != nil {
			return "", E(Git, err)
		}
		return candidate, nil
	}
	return "", E(Conflict, fmt.Errorf("remotes '%s' and 'user-%s' already point at other projects than %s", name, name, source.PathWithNamespace))
}

// serves reports whether a remote URL points at project p on the session's
// instance, over any protocol.
func (c *CheckoutReconciler) serves(url string, p *models.RemoteProject) bool {
	host, err := Hostname(url)
	if err != nil || host != c.session.Host {
		return false
	}
	path, err := ProjectPathID(url)
	return err == nil && strings.EqualFold(path, p.PathWithNamespace)
}

// displace switches away from branch if it is checked out, since git
// refuses to move the current branch.
func (c *CheckoutReconciler) displace(ctx context.Context, branch string) error {
	repo := c.session.Repo
	current, err := repo.CurrentBranch(ctx)
	if err != nil {
		return E(Git, err)
	}
	if current != branch {
		return nil
	}

	for _, name := range fallbackBranches {
		if name == branch {
			continue
		}
		ok, err := repo.BranchExists(ctx, name)
		if err != nil {
			return E(Git, err)
		}
		if ok {
			if err := repo.Checkout(ctx, name); err != nil {
				return E(Git, err)
			}
			return nil
		}
	}
	return E(State, fmt.Errorf("cannot replace the checked out branch '%s': %w", branch, ErrNoFallbackBranch))
}

// ContributorRemoteName derives the name of the remote holding a
// contributor's fork from their username.
func ContributorRemoteName(username string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, username)
	name = strings.Trim(name, "-")
	switch name {
	case "":
		return "contributor"
	case OriginRemote, ForkRemote:
		return "user-" + name
	}
	return name
}
