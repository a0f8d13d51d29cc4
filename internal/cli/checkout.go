package cli

import (
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/git-lab/internal/core"
)

var checkoutCmd = &cobra.Command{
	Use:     "checkout <number>",
	Aliases: []string{"patch"},
	Short:   "Check out the branch of a merge request",
	Long: `Fetch the source branch of a merge request and check it out locally.

Branches from other contributors are fetched through a remote named after
the author. If a local branch with the same name exists you are asked
before it is replaced.

Examples:
  git lab checkout 42
  git lab checkout !42`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckout,
}

func runCheckout(cmd *cobra.Command, args []string) error {
	iid, err := parseNumber(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := initSession(ctx)
	if err != nil {
		return err
	}

	res, err := core.NewCheckoutReconciler(c.Session, c.Prompt).Checkout(ctx, iid)
	if err != nil {
		return err
	}

	printInfo(cmd, "Checked out !%d %q", res.MergeRequest.IID, res.MergeRequest.Title)
	printInfo(cmd, "Branch '%s' tracks '%s'", res.Branch, res.Upstream)
	return nil
}
