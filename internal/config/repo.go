package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// RepoConfigFile is the per-repository settings file inside the git dir.
const RepoConfigFile = "git-lab.toml"

// Workflow is the contribution model of a repository.
type Workflow string

const (
	// WorkflowFork pushes to a fork and opens merge requests from there.
	WorkflowFork Workflow = "fork"
	// WorkflowWorkBranch pushes branches directly to the upstream project.
	WorkflowWorkBranch Workflow = "workbranch"
)

// RepoConfig holds settings for one local repository.
type RepoConfig struct {
	Workflow Workflow `toml:"workflow"`
	path     string
}

// LoadRepo loads the settings stored in gitDir. A missing file yields the
// fork workflow.
func LoadRepo(gitDir string) (*RepoConfig, error) {
	path := filepath.Join(gitDir, RepoConfigFile)
	rc := &RepoConfig{Workflow: WorkflowFork, path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return rc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read repository config: %w", err)
	}

	if err := toml.Unmarshal(data, rc); err != nil {
		return nil, fmt.Errorf("failed to parse repository config %s: %w", path, err)
	}

	switch rc.Workflow {
	case "":
		rc.Workflow = WorkflowFork
	case WorkflowFork, WorkflowWorkBranch:
	default:
		return nil, fmt.Errorf("repository config %s: unknown workflow %q", path, rc.Workflow)
	}
	return rc, nil
}

// Save writes the repository settings.
func (rc *RepoConfig) Save() error {
	data, err := toml.Marshal(rc)
	if err != nil {
		return fmt.Errorf("failed to marshal repository config: %w", err)
	}
	return os.WriteFile(rc.path, data, 0644)
}

// SetWorkflow changes the workflow of the repository.
func (rc *RepoConfig) SetWorkflow(w Workflow) {
	rc.Workflow = w
}
