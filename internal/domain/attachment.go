package domain

import "strings"

// Attachment is an uploaded object that messages can reference.
type Attachment struct {
	Ref         string `json:"ref"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// IsHostedRef reports whether ref points at an externally hosted object
// rather than a key in attachment storage.
func IsHostedRef(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
