package cli

import (
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/git-lab/internal/core"
)

var mrCmd = &cobra.Command{
	Use:     "mr",
	Aliases: []string{"diff"},
	Short:   "Push the current branch and open a merge request",
	Long: `Push the current branch and open a merge request for it.

With the fork workflow (the default) the branch is pushed to your fork,
which is created first if needed. With the workbranch workflow it is
pushed to the upstream project itself.

Staged changes are committed first. The title and description are taken
from the last commit and can be edited before the merge request is
created. Local images referenced from the description are uploaded.

Examples:
  git lab mr                          # Merge into the default branch
  git lab mr --target-branch stable   # Merge into another branch`,
	Args: cobra.NoArgs,
	RunE: runMR,
}

var mrTargetBranch string

func init() {
	mrCmd.Flags().StringVar(&mrTargetBranch, "target-branch", "", "Branch to merge into (default: the project's default branch)")
}

func runMR(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := initSession(ctx)
	if err != nil {
		return err
	}

	forks := core.NewForkManager(c.Session)
	sync := core.NewReviewRequestSync(c.Session, forks, c.Prompt, core.ReviewOptions{
		Workflow:         c.RepoConfig.Workflow,
		WorkBranchPrefix: c.Config.WorkBranchPrefix(c.Session.Host),
		Dir:              workingDir(),
	})

	warning, err := sync.Check(ctx)
	if err != nil {
		return err
	}
	if warning != "" {
		printWarning(cmd, "%s", warning)
	}

	committed, err := sync.Commit(ctx)
	if err != nil {
		return err
	}
	if committed {
		printInfo(cmd, "Committed staged changes")
	}

	upstream, err := sync.Push(ctx)
	if err != nil {
		return err
	}
	for _, w := range forks.Warnings() {
		printWarning(cmd, "%s", w)
	}
	switch forks.Status() {
	case core.ForkCreated:
		printInfo(cmd, "Created a fork of %s", c.Session.Project.PathWithNamespace)
	case core.ForkRecovered:
		printInfo(cmd, "Found your fork of %s on the server and added the %q remote", c.Session.Project.PathWithNamespace, core.ForkRemote)
	}
	printInfo(cmd, "Pushed to %s", upstream)

	res, err := sync.CreateMergeRequest(ctx, core.MergeRequestOptions{TargetBranch: mrTargetBranch})
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		printWarning(cmd, "%s", w)
	}

	mr := res.MergeRequest
	if res.Existing {
		printInfo(cmd, "Merge request !%d already exists and now has your changes: %s", mr.IID, mr.WebURL)
	} else {
		printInfo(cmd, "Created merge request !%d: %s", mr.IID, mr.WebURL)
	}
	return nil
}
