// Package cli implements the command-line interface for git-lab.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/git-lab/internal/config"
	"github.com/kilupskalvis/git-lab/internal/core"
	"github.com/kilupskalvis/git-lab/internal/git"
	"github.com/kilupskalvis/git-lab/internal/prompt"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config     *config.Config
	Repo       *git.Repo
	RepoConfig *config.RepoConfig
	Prompt     *prompt.Terminal
	// Session is nil unless the command talks to the instance.
	Session *core.Session
}

// initContext opens the repository in the working directory and loads the
// global and repository configuration.
func initContext(ctx context.Context) (*cmdContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, core.E(core.Configuration, err)
	}

	repo, err := git.Open(ctx, ".")
	if err != nil {
		return nil, core.E(core.Git, err)
	}

	gitDir, err := repo.GitDir(ctx)
	if err != nil {
		return nil, core.E(core.Git, err)
	}
	rc, err := config.LoadRepo(gitDir)
	if err != nil {
		return nil, core.E(core.Configuration, err)
	}

	return &cmdContext{
		Config:     cfg,
		Repo:       repo,
		RepoConfig: rc,
		Prompt:     prompt.NewTerminal(prompt.ResolveEditor(ctx, repo)),
	}, nil
}

// initSession is initContext plus a connection to the instance hosting
// origin.
func initSession(ctx context.Context) (*cmdContext, error) {
	c, err := initContext(ctx)
	if err != nil {
		return nil, err
	}

	s, err := core.Connect(ctx, c.Repo, c.Config, core.DialHTTP)
	if err != nil {
		return nil, err
	}
	c.Session = s
	return c, nil
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "git-lab",
	Short: "GitLab review workflows for git",
	Long: `git-lab brings GitLab merge requests to the command line. It forks
projects, pushes branches and opens merge requests, and checks out
merge requests from other contributors.

Installed on the PATH, it runs as "git lab".`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(cmd.ErrOrStderr(), verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Trace git commands and API requests")

	rootCmd.AddCommand(mrCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(forkCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(rewriteRemoteCmd)
	rootCmd.AddCommand(featureCmd)
	rootCmd.AddCommand(snippetCmd)
	rootCmd.AddCommand(issueCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// workingDir is where relative paths given by the user are resolved.
func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// parseNumber reads a merge request number, with or without the "!" prefix.
func parseNumber(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(arg, "!"))
	if err != nil || n <= 0 {
		return 0, core.E(core.Configuration, fmt.Sprintf("invalid merge request number %q", arg))
	}
	return n, nil
}
