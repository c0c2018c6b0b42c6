package export

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediavault/pkg/models"
)

// Archives: <category>-<epochMillis>[-part-<n>].zip
// Entries:  <primaryId-or-fallback>.<ext>, ext sniffed from the URL or
// defaulted per category.

var extPattern = regexp.MustCompile(`^[a-z0-9]{1,5}$`)

func ArchiveName(category string, startedAt time.Time, part, parts int) string {
	base := fmt.Sprintf("%s-%d", category, startedAt.UnixMilli())
	if parts > 1 {
		base += fmt.Sprintf("-part-%d", part+1)
	}
	return base + ".zip"
}

func EntryName(rec models.MediaRecord, category string) string {
	id := rec.FallbackID()
	if id == "" {
		// derived record with no usable id; name it after its URL
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(rec.CanonicalURL)).String()
	}
	return id + "." + entryExt(rec.CanonicalURL, category)
}

func entryExt(rawURL, category string) string {
	if u, err := url.Parse(rawURL); err == nil {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
		if extPattern.MatchString(ext) {
			return ext
		}
	}
	if category == "videos" {
		return "mp4"
	}
	return "jpg"
}
