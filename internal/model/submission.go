package model

// SubmittedLink is one badge link reported by a worker.
type SubmittedLink struct {
	// To is the href of the anchor wrapping the badge.
	To string `json:"to"`

	// Image is the absolute URL of the badge image.
	Image string `json:"image"`

	// ImageHash is the content hash of the badge image.
	ImageHash string `json:"image_hash"`
}

// Submission is the result of one scrape as reported by a worker.
type Submission struct {
	// OrigURL is the URL the worker was handed.
	OrigURL string `json:"orig_url"`

	// ResultURL is the URL the worker ended up on after following redirects.
	ResultURL string `json:"result_url"`

	// Success is false when the page could not be fetched.
	Success bool `json:"success"`

	// Links is nil when the scrape failed.
	Links []SubmittedLink `json:"links"`
}

// Redirected reports whether the worker landed on a different URL.
func (s Submission) Redirected() bool {
	return s.OrigURL != s.ResultURL
}
