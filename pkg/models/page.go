package models

// Page is one ordered batch of records as fetched from the listing
// API: the cursor that produced it plus the cursor that would produce
// the next page (nil when the category is exhausted).
type Page struct {
	Category   string        `json:"category"`
	Number     int           `json:"page"`
	Records    []MediaRecord `json:"records"`
	Cursor     *string       `json:"cursor,omitempty"`
	NextCursor *string       `json:"next_cursor,omitempty"`
}
