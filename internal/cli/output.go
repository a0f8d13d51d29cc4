package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	infoPrefix    = color.New(color.Bold)
	warningPrefix = color.New(color.Bold, color.FgYellow)
	errorPrefix   = color.New(color.Bold, color.FgRed)
)

// printInfo reports progress on standard output.
func printInfo(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", infoPrefix.Sprint("Info:"), fmt.Sprintf(format, args...))
}

// printWarning reports a problem that does not stop the command.
func printWarning(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", warningPrefix.Sprint("Warning:"), fmt.Sprintf(format, args...))
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errorPrefix.Sprint("Error:"), err)
}
