package cli

import (
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/git-lab/internal/config"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow (--fork | --workbranch)",
	Short: "Choose how merge requests are submitted from this repository",
	Long: `Choose where "git lab mr" pushes branches in this repository.

  --fork         push to your fork of the project (default)
  --workbranch   push to the project itself, for users with write access`,
	Args: cobra.NoArgs,
	RunE: runWorkflow,
}

var (
	workflowFork       bool
	workflowWorkBranch bool
)

func init() {
	workflowCmd.Flags().BoolVar(&workflowFork, "fork", false, "Push to a fork")
	workflowCmd.Flags().BoolVar(&workflowWorkBranch, "workbranch", false, "Push to the upstream project")
	workflowCmd.MarkFlagsMutuallyExclusive("fork", "workbranch")
	workflowCmd.MarkFlagsOneRequired("fork", "workbranch")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	c, err := initContext(cmd.Context())
	if err != nil {
		return err
	}

	w := config.WorkflowFork
	if workflowWorkBranch {
		w = config.WorkflowWorkBranch
	}
	c.RepoConfig.SetWorkflow(w)
	if err := c.RepoConfig.Save(); err != nil {
		return err
	}

	printInfo(cmd, "Using the %s workflow", w)
	return nil
}
