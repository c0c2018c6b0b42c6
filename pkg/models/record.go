package models

// MediaRecord is the normalized, internal form of one catalog entry
// used by the cache, merge and export layers.
//
// All raw listing-API records are mapped into this structure first,
// then everything downstream works from this representation.
type MediaRecord struct {
	PrimaryID     string       `json:"primary_id,omitempty"`     // id assigned by the remote system; absent for derived records
	ContentID     string       `json:"content_id,omitempty"`     // UUID extracted from the payload URL
	CanonicalURL  string       `json:"canonical_url"`            // normalized absolute URL to the payload
	AlternateURLs []string     `json:"alternate_urls,omitempty"` // higher/lower quality variants
	CreatedAt     int64        `json:"created_at"`               // epoch milliseconds
	GroupKey      string       `json:"group_key,omitempty"`      // parent logical subject, groups generated variants
	Quality       QualityHints `json:"quality,omitempty"`
	ThumbURL      string       `json:"thumb_url,omitempty"`
}

// QualityHints carries partially populated resolution metadata, used
// opportunistically when merging duplicate records.
type QualityHints struct {
	Label  string `json:"label,omitempty"` // named resolution, e.g. "720p"
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Empty reports whether no hint field is populated.
func (q QualityHints) Empty() bool {
	return q.Label == "" && q.Width == 0 && q.Height == 0
}

// FallbackID returns the best available identifier for naming:
// the primary id when present, otherwise the URL-derived content id.
func (r MediaRecord) FallbackID() string {
	if r.PrimaryID != "" {
		return r.PrimaryID
	}
	return r.ContentID
}
