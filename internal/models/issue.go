package models

// Issue is a project issue. Only the fields this tool reads are decoded.
type Issue struct {
	ID        int       `json:"id"`
	IID       int       `json:"iid"`
	ProjectID int       `json:"project_id"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	WebURL    string    `json:"web_url"`
	TimeStats TimeStats `json:"time_stats"`
}

// TimeStats is the time tracking of an issue. Durations are in seconds; the
// human forms are rendered by the server, e.g. "1w 2d 3h".
type TimeStats struct {
	TimeEstimate        int    `json:"time_estimate"`
	TotalTimeSpent      int    `json:"total_time_spent"`
	HumanTimeEstimate   string `json:"human_time_estimate"`
	HumanTotalTimeSpent string `json:"human_total_time_spent"`
}

// Overdue reports whether time was tracked and it has reached the estimate.
func (t TimeStats) Overdue() bool {
	return t.TotalTimeSpent > 0 && t.TotalTimeSpent >= t.TimeEstimate
}

// Estimate returns the human estimate, "0h" when none is set.
func (t TimeStats) Estimate() string {
	if t.HumanTimeEstimate == "" {
		return "0h"
	}
	return t.HumanTimeEstimate
}

// Spent returns the human time spent, "0h" when none is tracked.
func (t TimeStats) Spent() string {
	if t.HumanTotalTimeSpent == "" {
		return "0h"
	}
	return t.HumanTotalTimeSpent
}
