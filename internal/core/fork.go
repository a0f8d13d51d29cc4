package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kilupskalvis/git-lab/internal/gitlab"
	"github.com/kilupskalvis/git-lab/internal/models"
)

// ForkRemote is the local remote pointing at the user's fork.
const ForkRemote = "fork"

// ForkStatus tells how a fork was obtained.
type ForkStatus int

const (
	// ForkAdopted means the existing "fork" remote already pointed at a fork.
	ForkAdopted ForkStatus = iota + 1
	// ForkCreated means a new fork was created on the server.
	ForkCreated
	// ForkRecovered means the fork existed on the server but not locally.
	ForkRecovered
)

func (s ForkStatus) String() string {
	switch s {
	case ForkAdopted:
		return "adopted"
	case ForkCreated:
		return "created"
	case ForkRecovered:
		return "recovered"
	}
	return "unknown"
}

// ForkManager ensures the user has a fork of the upstream project and a
// local remote pointing at it.
type ForkManager struct {
	session *Session
	record   *models.ForkRecord
	status   ForkStatus
	warnings []string
}

// NewForkManager creates a ForkManager for a session.
func NewForkManager(s *Session) *ForkManager {
	return &ForkManager{session: s}
}

// Status reports how the last Fork call obtained the fork.
func (m *ForkManager) Status() ForkStatus {
	return m.status
}

// Warnings lists problems with the adopted fork that did not stop Fork.
func (m *ForkManager) Warnings() []string {
	return m.warnings
}

// Fork returns the user's fork of the upstream project, creating it if
// needed. Repeated calls return the same record.
func (m *ForkManager) Fork(ctx context.Context) (*models.ForkRecord, error) {
	const op Op = "fork"
	if m.record != nil {
		return m.record, nil
	}

	repo, client := m.session.Repo, m.session.Client
	upstream := m.session.Project

	urls, err := repo.RemoteURLs(ctx, ForkRemote)
	if err != nil {
		return nil, E(op, Git, err)
	}
	if len(urls) > 0 {
		p, err := m.lookup(ctx, urls[0])
		if err != nil {
			return nil, E(op, apiKind(err), err)
		}
		if p != nil {
			return m.remember(urls[0], p, ForkAdopted), nil
		}
	}

	created, err := client.ForkProject(ctx, upstream.ID)
	if err == nil {
		// The creation response can describe a project that is still being
		// imported, so only the id is trusted.
		p, err := client.ProjectByID(ctx, created.ID)
		if err != nil {
			return nil, E(op, apiKind(err), fmt.Errorf("load new fork: %w", err))
		}
		url, err := m.register(ctx, p)
		if err != nil {
			return nil, E(op, Git, err)
		}
		return m.remember(url, p, ForkCreated), nil
	}
	if !gitlab.IsConflict(err) {
		return nil, E(op, apiKind(err), err)
	}

	expected := strings.TrimRight(m.session.User.WebURL, "/") + "/" + upstream.Path
	slog.Debug("fork already exists", "expected", expected)
	pathID, err := ProjectPathID(expected)
	if err != nil {
		return nil, E(op, Configuration, err)
	}
	p, err := client.ProjectByPath(ctx, pathID)
	if err != nil {
		if gitlab.IsNotFound(err) {
			return nil, E(op, Conflict, fmt.Errorf("a fork of %s already exists, but not at %s", upstream.PathWithNamespace, expected))
		}
		return nil, E(op, apiKind(err), err)
	}
	url, err := m.register(ctx, p)
	if err != nil {
		return nil, E(op, Git, err)
	}
	return m.remember(url, p, ForkRecovered), nil
}

// lookup resolves the project behind an existing fork remote. A nil
// project means the remote is unusable and a fork has to be created.
func (m *ForkManager) lookup(ctx context.Context, url string) (*models.RemoteProject, error) {
	pathID, err := ProjectPathID(url)
	if err != nil {
		slog.Debug("ignoring fork remote", "url", url, "error", err)
		return nil, nil
	}
	p, err := m.session.Client.ProjectByPath(ctx, pathID)
	if gitlab.IsNotFound(err) {
		slog.Debug("fork remote points at a missing project", "path", pathID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !p.IsForkOf(m.session.Project.ID) {
		m.warnings = append(m.warnings, fmt.Sprintf(
			"remote '%s' points at %s, which is not a fork of %s; merge requests from it will be rejected",
			ForkRemote, p.PathWithNamespace, m.session.Project.PathWithNamespace))
	}
	return p, nil
}

// register points the fork remote at the project's ssh clone URL.
func (m *ForkManager) register(ctx context.Context, p *models.RemoteProject) (string, error) {
	url := p.SSHURLToRepo
	if url == "" {
		url = SSHFromHTTP(p.HTTPURLToRepo)
	}
	if url == "" {
		return "", fmt.Errorf("fork %s has no clone URL", p.PathWithNamespace)
	}
	if err := setRemote(ctx, m.session.Repo, ForkRemote, url); err != nil {
		return "", err
	}
	return url, nil
}

func (m *ForkManager) remember(url string, p *models.RemoteProject, status ForkStatus) *models.ForkRecord {
	m.record = &models.ForkRecord{RemoteName: ForkRemote, URL: url, Project: p}
	m.status = status
	slog.Debug("fork", "status", status, "url", url, "id", p.ID)
	return m.record
}

// setRemote adds a remote, or changes its URL if it already exists.
func setRemote(ctx context.Context, repo LocalRepo, name, url string) error {
	exists, err := repo.HasRemote(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return repo.SetRemoteURL(ctx, name, url)
	}
	return repo.AddRemote(ctx, name, url)
}
