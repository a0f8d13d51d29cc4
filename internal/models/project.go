package models

// RemoteProject is a project on the hosting instance.
// Only the fields this tool reads are decoded.
type RemoteProject struct {
	ID                int         `json:"id"`
	Name              string      `json:"name"`
	Path              string      `json:"path"`
	PathWithNamespace string      `json:"path_with_namespace"`
	SSHURLToRepo      string      `json:"ssh_url_to_repo"`
	HTTPURLToRepo     string      `json:"http_url_to_repo"`
	WebURL            string      `json:"web_url"`
	DefaultBranch     string      `json:"default_branch"`
	ForkedFrom        *ProjectRef `json:"forked_from_project,omitempty"`
}

// ProjectRef identifies another project.
type ProjectRef struct {
	ID int `json:"id"`
}

// IsForkOf reports whether p was forked from the project with the given id.
func (p *RemoteProject) IsForkOf(id int) bool {
	return p.ForkedFrom != nil && p.ForkedFrom.ID == id
}

// ForkRecord ties the local "fork" remote to the RemoteProject it points at.
type ForkRecord struct {
	RemoteName string
	URL        string
	Project    *RemoteProject
}
