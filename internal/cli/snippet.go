package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/git-lab/internal/core"
)

var snippetCmd = &cobra.Command{
	Use:     "snippet [file]",
	Aliases: []string{"paste"},
	Short:   "Publish a file or standard input as a snippet",
	Long: `Publish a file as a public snippet on the instance origin points at.
Without a file, standard input is read.

Examples:
  git lab snippet main.go
  dmesg | git lab snippet --title "boot log"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSnippet,
}

var snippetTitle string

// stdinFileName names snippets read from standard input.
const stdinFileName = "stdin.txt"

func init() {
	snippetCmd.Flags().StringVarP(&snippetTitle, "title", "t", core.DefaultSnippetTitle, "Snippet title")
}

func runSnippet(cmd *cobra.Command, args []string) error {
	var (
		r    io.Reader = cmd.InOrStdin()
		name           = stdinFileName
	)
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return core.E(core.Op("snippet"), fmt.Errorf("open %s: %w", args[0], err))
		}
		defer f.Close()
		r, name = f, filepath.Base(args[0])
	}

	ctx := cmd.Context()
	c, err := initSession(ctx)
	if err != nil {
		return err
	}

	s, err := core.CreateSnippet(ctx, c.Session, snippetTitle, name, r)
	if err != nil {
		return err
	}
	printInfo(cmd, "Created snippet %s", s.WebURL)
	if s.RawURL != "" {
		printInfo(cmd, "Raw content: %s", s.RawURL)
	}
	return nil
}
