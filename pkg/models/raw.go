package models

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawRecord is the loose shape the listing API actually returns.
// Every field is optional; Normalize applies the fallback chains and
// produces the typed MediaRecord.
type RawRecord struct {
	ID         string          `json:"id,omitempty"`
	PostID     string          `json:"post_id,omitempty"`
	URL        string          `json:"url,omitempty"`
	VideoURL   string          `json:"video_url,omitempty"`
	ImageURL   string          `json:"image_url,omitempty"`
	HighResURL string          `json:"high_res_url,omitempty"`
	ThumbURL   string          `json:"thumb_url,omitempty"`
	CreatedAt  json.RawMessage `json:"created_at,omitempty"` // epoch seconds, epoch millis, or ISO string
	ParentID   string          `json:"parent_id,omitempty"`
	Resolution string          `json:"resolution,omitempty"` // named label, e.g. "720p"
	Width      int             `json:"width,omitempty"`
	Height     int             `json:"height,omitempty"`
}

// uuidPattern matches a candidate UUID embedded anywhere in a URL path.
var uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// Normalize maps a raw record into a MediaRecord. It returns false
// when the record carries no usable payload URL at all.
func (r RawRecord) Normalize() (MediaRecord, bool) {
	canonical := firstNonEmpty(r.URL, r.VideoURL, r.HighResURL, r.ImageURL)
	if canonical == "" {
		return MediaRecord{}, false
	}

	var alternates []string
	for _, u := range []string{r.VideoURL, r.HighResURL, r.ImageURL} {
		if u != "" && u != canonical {
			alternates = appendIfMissing(alternates, u)
		}
	}

	primary := firstNonEmpty(r.ID, r.PostID)

	return MediaRecord{
		PrimaryID:     primary,
		ContentID:     ExtractContentID(canonical),
		CanonicalURL:  canonical,
		AlternateURLs: alternates,
		CreatedAt:     NormalizeTimestamp(r.CreatedAt),
		GroupKey:      r.ParentID,
		Quality: QualityHints{
			Label:  r.Resolution,
			Width:  r.Width,
			Height: r.Height,
		},
		ThumbURL: r.ThumbURL,
	}, true
}

// ExtractContentID pulls a UUID out of the payload URL path. The
// remote names generated payloads after a stable content UUID, so the
// same content re-issued under a new wrapper id still yields the same
// content id.
func ExtractContentID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	m := uuidPattern.FindString(u.Path)
	if m == "" {
		return ""
	}
	id, err := uuid.Parse(m)
	if err != nil {
		return ""
	}
	return id.String()
}

// NormalizeTimestamp accepts the heterogeneous created_at encodings
// the API emits (epoch seconds, epoch millis, ISO-8601 string) and
// normalizes to epoch milliseconds. Unparseable input yields 0.
func NormalizeTimestamp(raw json.RawMessage) int64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0
	}

	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0
		}
		// numeric string first, then ISO
		if n, err := strconv.ParseFloat(str, 64); err == nil {
			return epochToMillis(n)
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, str); err == nil {
				return t.UnixMilli()
			}
		}
		return 0
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return epochToMillis(n)
	}
	return 0
}

// epochToMillis disambiguates seconds vs milliseconds by magnitude:
// anything before ~2001-09 in millis is assumed to be seconds.
func epochToMillis(n float64) int64 {
	if n <= 0 {
		return 0
	}
	if n < 1e12 {
		return int64(n * 1000)
	}
	return int64(n)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func appendIfMissing(slice []string, v string) []string {
	for _, x := range slice {
		if x == v {
			return slice
		}
	}
	return append(slice, v)
}
