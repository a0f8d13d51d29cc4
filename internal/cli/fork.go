package cli

import (
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/git-lab/internal/core"
)

var forkCmd = &cobra.Command{
	Use:   "fork",
	Short: "Create a fork of the project and add it as a remote",
	Long: `Make sure you have a fork of the project origin points at, and a
remote named "fork" pointing at it. An existing fork is reused.`,
	Args: cobra.NoArgs,
	RunE: runFork,
}

func runFork(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := initSession(ctx)
	if err != nil {
		return err
	}

	m := core.NewForkManager(c.Session)
	fork, err := m.Fork(ctx)
	if err != nil {
		return err
	}

	for _, w := range m.Warnings() {
		printWarning(cmd, "%s", w)
	}

	switch m.Status() {
	case core.ForkCreated:
		printInfo(cmd, "Created fork %s", fork.Project.WebURL)
	case core.ForkRecovered:
		printInfo(cmd, "Found existing fork %s", fork.Project.WebURL)
	default:
		printInfo(cmd, "Remote %q already points at your fork %s", fork.RemoteName, fork.Project.WebURL)
		return nil
	}
	printInfo(cmd, "Added remote %q: %s", fork.RemoteName, fork.URL)
	return nil
}
