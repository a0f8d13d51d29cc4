package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for git-lab.

To load completions:

Bash:
  $ source <(git-lab completion bash)

Zsh:
  $ git-lab completion zsh > "${fpath[1]}/_git-lab"

Fish:
  $ git-lab completion fish > ~/.config/fish/completions/git-lab.fish
`,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletionV2(out, true)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			default:
				return rootCmd.GenFishCompletion(out, true)
			}
		},
	})
}
