package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault/pkg/models"
)

func playableRecord() models.MediaRecord {
	return models.MediaRecord{
		PrimaryID:    "post-1",
		ContentID:    "11111111-2222-3333-4444-555555555555",
		CanonicalURL: "https://cdn.example.com/v/11111111-2222-3333-4444-555555555555/generated_video.mp4",
		CreatedAt:    1000,
		GroupKey:     "parent-1",
	}
}

func wrapperRecord() models.MediaRecord {
	return models.MediaRecord{
		PrimaryID:    "post-1",
		CanonicalURL: "https://app.example.com/view/post-1",
		CreatedAt:    2000,
		ThumbURL:     "https://cdn.example.com/t/1.jpg",
	}
}

func TestResolveNilExisting(t *testing.T) {
	in := playableRecord()
	out := Resolve(nil, in)
	assert.Equal(t, in, out)
}

func TestResolvePrefersPlayableURL(t *testing.T) {
	a := playableRecord() // playable, older
	b := wrapperRecord()  // not playable, newer

	ab := Resolve(&a, b)
	ba := Resolve(&b, a)

	// outcome symmetry: the playable URL wins regardless of call order
	assert.Equal(t, a.CanonicalURL, ab.CanonicalURL)
	assert.Equal(t, a.CanonicalURL, ba.CanonicalURL)
}

func TestResolveIdempotent(t *testing.T) {
	a := playableRecord()
	b := wrapperRecord()

	once := Resolve(&a, b)
	twice := Resolve(&once, b)
	require.Equal(t, once, twice)
}

func TestResolvePrefersLaterCreatedAt(t *testing.T) {
	a := playableRecord()
	b := playableRecord()
	b.PrimaryID = "post-1b"
	b.CreatedAt = 5000
	b.CanonicalURL = "https://cdn.example.com/v/11111111-2222-3333-4444-555555555555/reissue.mp4"

	out := Resolve(&a, b)
	assert.Equal(t, int64(5000), out.CreatedAt)
	assert.Equal(t, b.CanonicalURL, out.CanonicalURL)
	// the losing canonical URL survives as an alternate
	assert.Contains(t, out.AlternateURLs, a.CanonicalURL)
}

func TestResolveBackfillsMissingFields(t *testing.T) {
	a := playableRecord()
	a.GroupKey = ""
	a.ThumbURL = ""
	b := wrapperRecord()
	b.GroupKey = "parent-9"

	out := Resolve(&a, b)
	assert.Equal(t, "parent-9", out.GroupKey)
	assert.Equal(t, b.ThumbURL, out.ThumbURL)
}

func TestResolveKeepsHigherResolutionHints(t *testing.T) {
	tests := []struct {
		name     string
		a, b     models.QualityHints
		expected models.QualityHints
	}{
		{
			name:     "label beats lower label",
			a:        models.QualityHints{Label: "720p"},
			b:        models.QualityHints{Label: "1080p"},
			expected: models.QualityHints{Label: "1080p"},
		},
		{
			name:     "pixel dimensions compared by max side",
			a:        models.QualityHints{Width: 640, Height: 360},
			b:        models.QualityHints{Width: 720, Height: 1280},
			expected: models.QualityHints{Width: 720, Height: 1280},
		},
		{
			name:     "empty hints backfilled",
			a:        models.QualityHints{},
			b:        models.QualityHints{Label: "480p"},
			expected: models.QualityHints{Label: "480p"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := playableRecord()
			a.Quality = tc.a
			b := playableRecord()
			b.Quality = tc.b
			b.CreatedAt = a.CreatedAt // same preference rank

			out := Resolve(&a, b)
			assert.Equal(t, tc.expected, out.Quality)
		})
	}
}

func TestCollideViaContentIDDespiteConflictingPrimaryIDs(t *testing.T) {
	a := models.MediaRecord{
		PrimaryID:    "post-1",
		ContentID:    "abcdabcd-1234-5678-9abc-def012345678",
		CanonicalURL: "https://cdn.example.com/v/abcdabcd-1234-5678-9abc-def012345678/generated_video.mp4",
	}
	b := models.MediaRecord{
		PrimaryID:    "post-2",
		ContentID:    "abcdabcd-1234-5678-9abc-def012345678",
		CanonicalURL: "https://cdn.example.com/v/abcdabcd-1234-5678-9abc-def012345678/generated_video.mp4?sig=xyz",
	}

	// upstream re-issued the same content under a new wrapper id
	require.True(t, Collide(a, b))

	out := Resolve(&a, b)
	assert.Equal(t, "abcdabcd-1234-5678-9abc-def012345678", out.ContentID)
}

func TestCollideURLIgnoresQuery(t *testing.T) {
	a := models.MediaRecord{CanonicalURL: "https://cdn.example.com/x/file.mp4?token=1"}
	b := models.MediaRecord{CanonicalURL: "https://cdn.example.com/x/file.mp4?token=2"}
	assert.True(t, Collide(a, b))
}

func TestNoCollision(t *testing.T) {
	a := models.MediaRecord{PrimaryID: "p1", CanonicalURL: "https://cdn.example.com/a.mp4"}
	b := models.MediaRecord{PrimaryID: "p2", CanonicalURL: "https://cdn.example.com/b.mp4"}
	assert.False(t, Collide(a, b))
}

func TestPlayable(t *testing.T) {
	assert.True(t, Playable("https://cdn.example.com/v/file.mp4"))
	assert.True(t, Playable("https://cdn.example.com/v/file.MP4?sig=1"))
	assert.True(t, Playable("https://cdn.example.com/i/pic.jpeg"))
	assert.False(t, Playable("https://app.example.com/view/post-1"))
}
