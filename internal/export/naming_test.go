package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mediavault/pkg/models"
)

func TestArchiveName(t *testing.T) {
	started := time.UnixMilli(1714557600000)

	assert.Equal(t, "videos-1714557600000.zip", ArchiveName("videos", started, 0, 1))
	assert.Equal(t, "videos-1714557600000-part-1.zip", ArchiveName("videos", started, 0, 3))
	assert.Equal(t, "videos-1714557600000-part-3.zip", ArchiveName("videos", started, 2, 3))
}

func TestEntryName(t *testing.T) {
	rec := models.MediaRecord{
		PrimaryID:    "post-1",
		CanonicalURL: "https://cdn.example.com/v/file.webm?sig=abc",
	}
	assert.Equal(t, "post-1.webm", EntryName(rec, "videos"))

	// extension defaults per category when the URL has none
	rec.CanonicalURL = "https://cdn.example.com/v/stream"
	assert.Equal(t, "post-1.mp4", EntryName(rec, "videos"))
	assert.Equal(t, "post-1.jpg", EntryName(rec, "images"))

	// id-less records get a stable URL-derived name
	anon := models.MediaRecord{CanonicalURL: "https://cdn.example.com/v/file.mp4"}
	first := EntryName(anon, "videos")
	assert.Equal(t, first, EntryName(anon, "videos"))
	assert.NotEqual(t, "post-1.mp4", first)
}
