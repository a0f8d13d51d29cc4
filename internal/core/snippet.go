package core

import (
	"context"
	"fmt"
	"io"

	"github.com/kilupskalvis/git-lab/internal/gitlab"
	"github.com/kilupskalvis/git-lab/internal/models"
)

// DefaultSnippetTitle is used when no title is given.
const DefaultSnippetTitle = "Empty title"

// CreateSnippet publishes the content of r as a public snippet.
func CreateSnippet(ctx context.Context, s *Session, title, fileName string, r io.Reader) (*models.Snippet, error) {
	const op Op = "snippet"

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, E(op, fmt.Errorf("read %s: %w", fileName, err))
	}
	if title == "" {
		title = DefaultSnippetTitle
	}

	snippet, err := s.Client.CreateSnippet(ctx, &gitlab.CreateSnippetOptions{
		Title:      title,
		Visibility: gitlab.VisibilityPublic,
		Files:      []gitlab.SnippetFile{{FilePath: fileName, Content: string(content)}},
	})
	if err != nil {
		return nil, E(op, apiKind(err), err)
	}
	return snippet, nil
}
