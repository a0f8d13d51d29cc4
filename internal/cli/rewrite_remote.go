package cli

import (
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/git-lab/internal/core"
)

var rewriteRemoteCmd = &cobra.Command{
	Use:   "rewrite-remote <remote>",
	Short: "Switch a remote to its SSH address",
	Long: `Rewrite the address of a remote cloned over https to the matching
SSH address, so pushing uses your SSH key.`,
	Args: cobra.ExactArgs(1),
	RunE: runRewriteRemote,
}

func runRewriteRemote(cmd *cobra.Command, args []string) error {
	c, err := initContext(cmd.Context())
	if err != nil {
		return err
	}

	url, err := core.RewriteRemote(cmd.Context(), c.Repo, args[0])
	if err != nil {
		return err
	}
	printInfo(cmd, "Remote %q now points at %s", args[0], url)
	return nil
}
