// Package core reconciles a local git working tree with projects, forks and
// merge requests on a GitLab instance.
package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kilupskalvis/git-lab/internal/config"
	"github.com/kilupskalvis/git-lab/internal/gitlab"
	"github.com/kilupskalvis/git-lab/internal/models"
)

// OriginRemote is the remote naming the upstream project.
const OriginRemote = "origin"

// LocalRepo is the local git working tree.
type LocalRepo interface {
	GitDir(ctx context.Context) (string, error)
	ConfigValue(ctx context.Context, key string) (string, error)

	Remotes(ctx context.Context) ([]*models.Remote, error)
	HasRemote(ctx context.Context, name string) (bool, error)
	RemoteURLs(ctx context.Context, name string) ([]string, error)
	AddRemote(ctx context.Context, name, url string) error
	SetRemoteURL(ctx context.Context, name, url string) error

	Fetch(ctx context.Context, remote, branch string) (string, error)
	RefExists(ctx context.Context, ref string) (bool, error)
	Push(ctx context.Context, remote, refspec string, force bool) error
	SetUpstream(ctx context.Context, branch, upstream string) error

	CurrentBranch(ctx context.Context) (string, error)
	Branches(ctx context.Context) ([]*models.Branch, error)
	BranchExists(ctx context.Context, name string) (bool, error)
	CreateBranch(ctx context.Context, name, startPoint string) error
	Checkout(ctx context.Context, name string) error
	ResetBranch(ctx context.Context, name, startPoint string) error

	HasStagedChanges(ctx context.Context) (bool, error)
	HeadMessage(ctx context.Context) (subject, body string, err error)
	Commit(ctx context.Context) error
}

// CredentialSource looks up the stored credential of a host.
type CredentialSource interface {
	Credential(host string) (config.Credential, bool)
}

// Dialer builds an API client for an instance.
type Dialer func(baseURL, token string) gitlab.Client

// DialHTTP is the Dialer used outside of tests.
func DialHTTP(baseURL, token string) gitlab.Client {
	return gitlab.NewHTTPClient(baseURL, token)
}

// Session is an authenticated connection to the instance hosting the
// origin remote. It lives for a single invocation.
type Session struct {
	Client  gitlab.Client
	Repo    LocalRepo
	BaseURL string
	Host    string

	// User owns the token.
	User *models.User
	// Project is the upstream project origin points at.
	Project *models.RemoteProject
}

// TokenPageURL is where users create personal access tokens on an instance.
func TokenPageURL(baseURL string) string {
	return baseURL + "/-/user_settings/personal_access_tokens"
}

// Connect authenticates against the instance hosting the origin remote and
// resolves the upstream project.
func Connect(ctx context.Context, repo LocalRepo, creds CredentialSource, dial Dialer) (*Session, error) {
	const op Op = "connect"

	urls, err := repo.RemoteURLs(ctx, OriginRemote)
	if err != nil {
		return nil, E(op, Git, err)
	}
	if len(urls) == 0 {
		return nil, E(op, Configuration, fmt.Errorf("%w: add one with 'git remote add origin <url>'", ErrNoOrigin))
	}
	origin := urls[0]

	base, err := InstanceBaseURL(origin)
	if err != nil {
		return nil, E(op, Configuration, err)
	}
	host, err := Hostname(origin)
	if err != nil {
		return nil, E(op, Configuration, err)
	}

	cred, ok := creds.Credential(host)
	if !ok {
		return nil, E(op, Configuration, fmt.Errorf(
			"%w for %s; create a token at %s and run 'git lab login --host %s --token <token>'",
			ErrMissingCredential, host, TokenPageURL(base), host))
	}
	token, err := cred.Resolve(ctx)
	if err != nil {
		return nil, E(op, Configuration, fmt.Errorf("credentials for %s: %w", host, err))
	}

	client := dial(base, token)
	user, err := client.CurrentUser(ctx)
	if err != nil {
		if gitlab.IsUnauthorized(err) {
			return nil, E(op, Authentication, fmt.Errorf("%s rejected the token; create a new one at %s: %w", host, TokenPageURL(base), err))
		}
		return nil, E(op, apiKind(err), err)
	}

	pathID, err := ProjectPathID(origin)
	if err != nil {
		return nil, E(op, Configuration, err)
	}
	project, err := client.ProjectByPath(ctx, pathID)
	if err != nil {
		if gitlab.IsNotFound(err) {
			return nil, E(op, NotFound, fmt.Errorf("project %s not found on %s; the repository may have moved, check 'git remote get-url origin'", pathID, base))
		}
		return nil, E(op, apiKind(err), err)
	}

	slog.Debug("connected", "base", base, "user", user.Username, "project", project.PathWithNamespace, "id", project.ID)
	return &Session{
		Client:  client,
		Repo:    repo,
		BaseURL: base,
		Host:    host,
		User:    user,
		Project: project,
	}, nil
}

// apiKind classifies an API error.
func apiKind(err error) Kind {
	switch {
	case gitlab.IsNotFound(err):
		return NotFound
	case gitlab.IsUnauthorized(err):
		return Authentication
	case gitlab.IsConflict(err):
		return Conflict
	}
	return Other
}
