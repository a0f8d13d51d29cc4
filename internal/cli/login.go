package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/git-lab/internal/config"
	"github.com/kilupskalvis/git-lab/internal/core"
)

var loginCmd = &cobra.Command{
	Use:   "login --host <host> (--token <token> | --command <command>)",
	Short: "Store the credential for an instance",
	Long: `Store the personal access token used for an instance.

The token can be given directly, or as a command printing it, so it can
be kept in a password manager.

Examples:
  git lab login --host invent.kde.org --token glpat-xxxx
  git lab login --host gitlab.com --command "pass show gitlab"`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var (
	loginHost    string
	loginToken   string
	loginCommand string
)

func init() {
	loginCmd.Flags().StringVar(&loginHost, "host", "", "Hostname of the instance")
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Personal access token")
	loginCmd.Flags().StringVar(&loginCommand, "command", "", "Command printing the token")
	loginCmd.MarkFlagRequired("host")
	loginCmd.MarkFlagsMutuallyExclusive("token", "command")
	loginCmd.MarkFlagsOneRequired("token", "command")
}

func runLogin(cmd *cobra.Command, args []string) error {
	host, err := hostname(loginHost)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return core.E(core.Configuration, err)
	}
	if loginToken != "" {
		cfg.SetToken(host, loginToken)
	} else {
		cfg.SetCommand(host, loginCommand)
	}
	if err := cfg.Save(); err != nil {
		return core.E(core.Configuration, err)
	}

	printInfo(cmd, "Saved credential for %s to %s", host, cfg.Path())
	return nil
}

// hostname accepts a bare host name or the address of the instance.
func hostname(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if !strings.Contains(arg, "://") {
		arg = strings.TrimSuffix(arg, "/")
		if arg == "" || strings.ContainsAny(arg, "/@:") {
			return "", core.E(core.Configuration, fmt.Errorf("%w: %q", core.ErrInvalidURL, arg))
		}
		return strings.ToLower(arg), nil
	}
	host, err := core.Hostname(arg)
	if err != nil {
		return "", core.E(core.Configuration, err)
	}
	return strings.ToLower(host), nil
}
