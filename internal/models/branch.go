package models

// Branch is a local branch, optionally tracking an upstream.
type Branch struct {
	Name     string `json:"name"`
	Upstream string `json:"upstream,omitempty"` // "origin/main", empty if none
	Current  bool   `json:"current"`
}
