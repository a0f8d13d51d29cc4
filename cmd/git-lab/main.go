// Command git-lab works with GitLab merge requests from a git checkout.
// Installed on the PATH it runs as "git lab".
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kilupskalvis/git-lab/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
