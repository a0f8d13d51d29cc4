package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/git-lab/internal/core"
)

var featureCmd = &cobra.Command{
	Use:   "feature [name] [start]",
	Short: "List, create or switch feature branches",
	Long: `Without arguments, list local branches.

With a name, switch to that branch, creating it first if it does not
exist. New branches start from start, or from the upstream default branch
when it is not given.

Examples:
  git lab feature                     # List branches
  git lab feature dark-mode           # Create or switch to dark-mode
  git lab feature hotfix v1.2         # Create hotfix from tag v1.2`,
	Args: cobra.MaximumNArgs(2),
	RunE: runFeature,
}

func runFeature(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := initContext(ctx)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		branches, err := c.Repo.Branches(ctx)
		if err != nil {
			return core.E(core.Git, err)
		}
		green := color.New(color.FgGreen)
		for _, b := range branches {
			if b.Current {
				green.Fprintf(cmd.OutOrStdout(), "* %s\n", b.Name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", b.Name)
			}
		}
		return nil
	}

	var start string
	if len(args) == 2 {
		start = args[1]
	}
	res, err := core.SwitchFeature(ctx, c.Repo, args[0], start)
	if err != nil {
		return err
	}

	if res.Created {
		printInfo(cmd, "Switched to a new branch '%s' from %s", res.Branch, res.StartPoint)
	} else {
		printInfo(cmd, "Switched to branch '%s'", res.Branch)
	}
	return nil
}
