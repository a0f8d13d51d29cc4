package core

import (
	"context"
	"fmt"
	"regexp"

	"github.com/kilupskalvis/git-lab/internal/gitlab"
	"github.com/kilupskalvis/git-lab/internal/models"
)

// TimeKind selects which figure of an issue's time tracking to work on.
type TimeKind string

const (
	TimeEstimate TimeKind = "estimate"
	TimeSpent    TimeKind = "spend"
)

// ParseTimeKind accepts "estimate" or "spend".
func ParseTimeKind(s string) (TimeKind, error) {
	switch k := TimeKind(s); k {
	case TimeEstimate, TimeSpent:
		return k, nil
	}
	return "", E(Configuration, fmt.Errorf("%q is not a time tracking action, use estimate or spend", s))
}

// durationRE matches the server's duration notation, units in descending
// order: 1mo2w4d10h2m.
var durationRE = regexp.MustCompile(`^(\d+mo)?(\d+w)?(\d+d)?(\d+h)?(\d+m)?$`)

// ValidDuration reports whether s is a non-empty duration like "2w4d10h".
func ValidDuration(s string) bool {
	return s != "" && durationRE.MatchString(s)
}

// IssueTimeOptions changes the time tracking of an issue. With neither
// field set the current figures are only read.
type IssueTimeOptions struct {
	// Update sets the estimate, or adds a time entry when spending.
	Update string
	// Reset clears the estimate or all time spent.
	Reset bool
}

// Validate rejects combined or malformed options before anything is sent.
func (o IssueTimeOptions) Validate() error {
	switch {
	case o.Update != "" && o.Reset:
		return E(Configuration, "update and reset cannot be combined")
	case o.Update != "" && !ValidDuration(o.Update):
		return E(Configuration, fmt.Errorf("%w %q, use e.g. 1w2d4h30m", ErrInvalidDuration, o.Update))
	}
	return nil
}

// IssueTime is the outcome of TrackIssueTime. Issue carries the time
// tracking as it is after the change.
type IssueTime struct {
	Issue   *models.Issue
	Changed bool
}

// TrackIssueTime reads or changes the estimate or spent time of issue iid
// of the upstream project.
func TrackIssueTime(ctx context.Context, s *Session, iid int, kind TimeKind, opts IssueTimeOptions) (*IssueTime, error) {
	const op Op = "issue"

	if _, err := ParseTimeKind(string(kind)); err != nil {
		return nil, E(op, err)
	}
	if err := opts.Validate(); err != nil {
		return nil, E(op, err)
	}

	pid := s.Project.ID
	issue, err := s.Client.Issue(ctx, pid, iid)
	if err != nil {
		if gitlab.IsNotFound(err) {
			return nil, E(op, NotFound, fmt.Errorf("issue #%d not found in %s", iid, s.Project.PathWithNamespace))
		}
		return nil, E(op, apiKind(err), err)
	}
	if opts.Update == "" && !opts.Reset {
		return &IssueTime{Issue: issue}, nil
	}

	var stats *models.TimeStats
	switch {
	case kind == TimeEstimate && opts.Reset:
		stats, err = s.Client.ResetTimeEstimate(ctx, pid, iid)
	case kind == TimeEstimate:
		stats, err = s.Client.SetTimeEstimate(ctx, pid, iid, opts.Update)
	case opts.Reset:
		stats, err = s.Client.ResetSpentTime(ctx, pid, iid)
	default:
		stats, err = s.Client.AddSpentTime(ctx, pid, iid, opts.Update)
	}
	if err != nil {
		return nil, E(op, apiKind(err), err)
	}
	issue.TimeStats = *stats
	return &IssueTime{Issue: issue, Changed: true}, nil
}
