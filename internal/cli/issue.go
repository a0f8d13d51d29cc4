package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/git-lab/internal/core"
	"github.com/kilupskalvis/git-lab/internal/models"
)

var issueCmd = &cobra.Command{
	Use:   "issue <number> <estimate|spend>",
	Short: "Show or change the time tracking of an issue",
	Long: `Show or change the time estimate or the time spent on an issue of the
upstream project.

Times are written with the units mo, w, d, h and m in that order, for ex.
1w2d or 4h30m.

Examples:
  git lab issue 12 estimate               # Show the estimate
  git lab issue 12 estimate --update 2d   # Set the estimate
  git lab issue 12 spend --update 1h30m   # Add a time entry
  git lab issue 12 spend --reset          # Remove all time entries`,
	Args: cobra.ExactArgs(2),
	RunE: runIssue,
}

var (
	issueUpdate string
	issueReset  bool
)

var (
	overdueColor = color.New(color.FgRed)
	onTimeColor  = color.New(color.FgGreen)
)

func init() {
	issueCmd.Flags().StringVar(&issueUpdate, "update", "", "Set the estimate, or add a time entry when spending")
	issueCmd.Flags().BoolVar(&issueReset, "reset", false, "Clear the estimate, or all time spent")
	issueCmd.MarkFlagsMutuallyExclusive("update", "reset")
}

func runIssue(cmd *cobra.Command, args []string) error {
	iid, err := parseIssueNumber(args[0])
	if err != nil {
		return err
	}
	kind, err := core.ParseTimeKind(args[1])
	if err != nil {
		return err
	}
	opts := core.IssueTimeOptions{Update: issueUpdate, Reset: issueReset}
	if err := opts.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := initSession(ctx)
	if err != nil {
		return err
	}

	res, err := core.TrackIssueTime(ctx, c.Session, iid, kind, opts)
	if err != nil {
		return err
	}

	issue := res.Issue
	switch {
	case !res.Changed:
		fmt.Fprintln(cmd.OutOrStdout(), describeTime(issue, kind))
	case kind == core.TimeEstimate && opts.Reset:
		printInfo(cmd, "Reset the time estimate of #%d", issue.IID)
	case kind == core.TimeEstimate:
		printInfo(cmd, "Set the estimate of #%d to %s", issue.IID, issue.TimeStats.Estimate())
	case opts.Reset:
		printInfo(cmd, "Reset the time spent on #%d", issue.IID)
	default:
		printInfo(cmd, "Added a time entry of %s to #%d, %s spent in total", opts.Update, issue.IID, issue.TimeStats.Spent())
	}
	return nil
}

// describeTime renders one line about the time tracking of issue. The time
// spent is red once it has reached the estimate.
func describeTime(issue *models.Issue, kind core.TimeKind) string {
	stats := issue.TimeStats
	spentColor := onTimeColor
	if stats.Overdue() {
		spentColor = overdueColor
	}
	spent := spentColor.Sprint(stats.Spent())
	title := infoPrefix.Sprint(issue.Title)

	if kind == core.TimeEstimate {
		return fmt.Sprintf("%s is estimated at %s (spent: %s)", title, stats.Estimate(), spent)
	}
	return fmt.Sprintf("%s has %s tracked (estimated: %s)", title, spent, stats.Estimate())
}

// parseIssueNumber reads an issue number, with or without the "#" prefix.
func parseIssueNumber(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil || n <= 0 {
		return 0, core.E(core.Configuration, fmt.Sprintf("invalid issue number %q", arg))
	}
	return n, nil
}
