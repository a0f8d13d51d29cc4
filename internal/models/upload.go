package models

// Upload is a file attached to a project, referenced from markdown.
type Upload struct {
	Alt      string `json:"alt"`
	URL      string `json:"url"`
	FullPath string `json:"full_path"`
	Markdown string `json:"markdown"`
}

// Snippet is a pasted file hosted on the instance.
type Snippet struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	FileName string `json:"file_name"`
	WebURL   string `json:"web_url"`
	RawURL   string `json:"raw_url"`
}
