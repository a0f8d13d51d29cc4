package models

// Remote is a remote configured in the local git repository.
type Remote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RemoteBranchRef returns the remote-tracking ref for branch on remote,
// e.g. "refs/remotes/origin/main".
func RemoteBranchRef(remoteName, branchName string) string {
	return "refs/remotes/" + remoteName + "/" + branchName
}

// UpstreamName returns the short upstream name used by
// "git branch --set-upstream-to", e.g. "origin/main".
func UpstreamName(remoteName, branchName string) string {
	return remoteName + "/" + branchName
}
