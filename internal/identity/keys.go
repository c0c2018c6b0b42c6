package identity

import (
	"net/url"
	"strings"

	"mediavault/pkg/models"
)

// Key prefixes. A record exposes 1-3 keys; two records are the same
// logical item iff their key sets intersect.
const (
	postPrefix    = "post:"
	contentPrefix = "content:"
	urlPrefix     = "url:"
)

// Keys returns the identity key set for a record.
func Keys(r models.MediaRecord) []string {
	var keys []string
	if r.PrimaryID != "" {
		keys = append(keys, postPrefix+r.PrimaryID)
	}
	if r.ContentID != "" {
		keys = append(keys, contentPrefix+r.ContentID)
	}
	if u := normalizeURLKey(r.CanonicalURL); u != "" {
		keys = append(keys, urlPrefix+u)
	}
	return keys
}

// Collide reports whether the two records share at least one identity key.
func Collide(a, b models.MediaRecord) bool {
	set := make(map[string]struct{})
	for _, k := range Keys(a) {
		set[k] = struct{}{}
	}
	for _, k := range Keys(b) {
		if _, ok := set[k]; ok {
			return true
		}
	}
	return false
}

// normalizeURLKey strips the query and fragment so that signed or
// time-limited variants of the same payload URL compare equal.
func normalizeURLKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
