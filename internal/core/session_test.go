package core

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/git-lab/internal/config"
	"github.com/kilupskalvis/git-lab/internal/gitlab"
)

func recordingDialer(client gitlab.Client, base, token *string) Dialer {
	return func(b, t string) gitlab.Client {
		*base, *token = b, t
		return client
	}
}

func TestConnect(t *testing.T) {
	f := newFixture(t)
	var base, token string

	s, err := Connect(context.Background(), f.repo,
		staticCredentials{"invent.kde.org": config.TokenCredential("glpat-1")},
		recordingDialer(f.client, &base, &token))
	require.NoError(t, err)

	assert.Equal(t, "https://invent.kde.org", base)
	assert.Equal(t, "glpat-1", token)
	assert.Equal(t, "https://invent.kde.org", s.BaseURL)
	assert.Equal(t, "invent.kde.org", s.Host)
	assert.Equal(t, "alice", s.User.Username)
	assert.Equal(t, 1, s.Project.ID)
	assert.Equal(t, []string{"CurrentUser", "ProjectByPath network/kaidan"}, f.client.Calls)
}

func TestConnect_CommandCredential(t *testing.T) {
	f := newFixture(t)
	var base, token string

	_, err := Connect(context.Background(), f.repo,
		staticCredentials{"invent.kde.org": config.CommandCredential("echo from-store")},
		recordingDialer(f.client, &base, &token))
	require.NoError(t, err)
	assert.Equal(t, "from-store", token)
}

func TestConnect_HTTPOriginKeepsSchemeAndPort(t *testing.T) {
	f := newFixture(t)
	f.repo.RemoteURLMap[OriginRemote] = []string{"http://gitlab.local:8080/network/kaidan.git"}
	var base, token string

	s, err := Connect(context.Background(), f.repo,
		staticCredentials{"gitlab.local": config.TokenCredential("t")},
		recordingDialer(f.client, &base, &token))
	require.NoError(t, err)
	assert.Equal(t, "http://gitlab.local:8080", base)
	assert.Equal(t, "gitlab.local", s.Host)
}

func TestConnect_MixedCaseHost(t *testing.T) {
	f := newFixture(t)
	f.repo.RemoteURLMap[OriginRemote] = []string{"git@Invent.KDE.org:network/kaidan.git"}
	var base, token string

	s, err := Connect(context.Background(), f.repo,
		staticCredentials{"invent.kde.org": config.TokenCredential("glpat-1")},
		recordingDialer(f.client, &base, &token))
	require.NoError(t, err)
	assert.Equal(t, "https://invent.kde.org", base)
	assert.Equal(t, "invent.kde.org", s.Host)
	assert.Equal(t, "glpat-1", token)
}

func TestConnect_Failures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *fixture)
		creds    staticCredentials
		wantKind Kind
		wantIs   error
		wantMsg  string
	}{
		{
			name:     "no origin",
			setup:    func(f *fixture) { delete(f.repo.RemoteURLMap, OriginRemote) },
			wantKind: Configuration,
			wantIs:   ErrNoOrigin,
		},
		{
			name:     "unparsable origin",
			setup:    func(f *fixture) { f.repo.RemoteURLMap[OriginRemote] = []string{"/srv/git/kaidan"} },
			wantKind: Configuration,
			wantIs:   ErrInvalidURL,
		},
		{
			name:     "missing credential",
			creds:    staticCredentials{},
			wantKind: Configuration,
			wantIs:   ErrMissingCredential,
			wantMsg:  "git lab login --host invent.kde.org --token <token>",
		},
		{
			name:     "failing credential command",
			creds:    staticCredentials{"invent.kde.org": config.CommandCredential("exit 1")},
			wantKind: Configuration,
			wantMsg:  "token command",
		},
		{
			name:     "rejected token",
			setup:    func(f *fixture) { f.client.User = nil },
			wantKind: Authentication,
			wantMsg:  "https://invent.kde.org/-/user_settings/personal_access_tokens",
		},
		{
			name: "forbidden",
			setup: func(f *fixture) {
				f.client.Errs["CurrentUser"] = &gitlab.APIError{Status: http.StatusForbidden, Message: "403 Forbidden"}
			},
			wantKind: Authentication,
		},
		{
			name:     "project moved",
			setup:    func(f *fixture) { f.client.Projects[1].PathWithNamespace = "network/kaidan-old" },
			wantKind: NotFound,
			wantMsg:  "may have moved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			creds := tt.creds
			if creds == nil {
				creds = staticCredentials{"invent.kde.org": config.TokenCredential("t")}
			}

			s, err := Connect(context.Background(), f.repo, creds, func(string, string) gitlab.Client { return f.client })
			require.Error(t, err)
			assert.Nil(t, s)
			assert.Equal(t, tt.wantKind, KindOf(err))
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}
