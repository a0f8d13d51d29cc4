package core

import (
	"errors"
	"testing"

	"github.com/kilupskalvis/git-lab/internal/config"
	"github.com/kilupskalvis/git-lab/internal/git"
	"github.com/kilupskalvis/git-lab/internal/gitlab"
	"github.com/kilupskalvis/git-lab/internal/models"
)

const (
	upstreamSSH  = "git@invent.kde.org:network/kaidan.git"
	upstreamHTTP = "https://invent.kde.org/network/kaidan.git"
	forkSSH      = "git@invent.kde.org:alice/kaidan.git"
	forkHTTP     = "https://invent.kde.org/alice/kaidan.git"
	bobHTTP      = "https://invent.kde.org/bob/kaidan.git"
)

func alice() *models.User {
	return &models.User{ID: 10, Username: "alice", Name: "Alice", WebURL: "https://invent.kde.org/alice"}
}

func upstreamProject() *models.RemoteProject {
	return &models.RemoteProject{
		ID:                1,
		Name:              "Kaidan",
		Path:              "kaidan",
		PathWithNamespace: "network/kaidan",
		SSHURLToRepo:      upstreamSSH,
		HTTPURLToRepo:     upstreamHTTP,
		WebURL:            "https://invent.kde.org/network/kaidan",
		DefaultBranch:     "master",
	}
}

func aliceFork() *models.RemoteProject {
	return &models.RemoteProject{
		ID:                2,
		Name:              "Kaidan",
		Path:              "kaidan",
		PathWithNamespace: "alice/kaidan",
		SSHURLToRepo:      forkSSH,
		HTTPURLToRepo:     forkHTTP,
		WebURL:            "https://invent.kde.org/alice/kaidan",
		DefaultBranch:     "master",
		ForkedFrom:        &models.ProjectRef{ID: 1},
	}
}

func bobFork() *models.RemoteProject {
	return &models.RemoteProject{
		ID:                3,
		Path:              "kaidan",
		PathWithNamespace: "bob/kaidan",
		SSHURLToRepo:      "git@invent.kde.org:bob/kaidan.git",
		HTTPURLToRepo:     bobHTTP,
		ForkedFrom:        &models.ProjectRef{ID: 1},
	}
}

type fixture struct {
	repo    *git.MockRepo
	client  *gitlab.MockClient
	prompt  *fakePrompt
	session *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := git.NewMockRepo()
	repo.RemoteURLMap[OriginRemote] = []string{upstreamSSH}

	client := gitlab.NewMockClient(alice())
	client.AddProject(upstreamProject())

	return &fixture{
		repo:   repo,
		client: client,
		prompt: &fakePrompt{},
		session: &Session{
			Client:  client,
			Repo:    repo,
			BaseURL: "https://invent.kde.org",
			Host:    "invent.kde.org",
			User:    client.User,
			Project: client.Projects[1],
		},
	}
}

// onBranch creates branch and checks it out without recording calls.
func (f *fixture) onBranch(name string) {
	f.repo.AddBranch(name)
	f.repo.Current = name
}

func (f *fixture) calledClient(call string) int {
	n := 0
	for _, c := range f.client.Calls {
		if c == call {
			n++
		}
	}
	return n
}

// indexOf returns the position of call in calls, or -1.
func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}

type fakePrompt struct {
	// answers are returned by Confirm in order.
	answers []bool
	asked   []string

	title       string
	description string

	// defaults passed to Describe.
	gotTitle       string
	gotDescription string
	described      int
}

func (p *fakePrompt) Confirm(question string) (bool, error) {
	p.asked = append(p.asked, question)
	if len(p.answers) == 0 {
		return false, errors.New("unexpected prompt: " + question)
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func (p *fakePrompt) Describe(title, description string) (string, string, error) {
	p.described++
	p.gotTitle, p.gotDescription = title, description
	return p.title, p.description, nil
}

type staticCredentials map[string]config.Credential

func (s staticCredentials) Credential(host string) (config.Credential, bool) {
	c, ok := s[host]
	return c, ok
}
