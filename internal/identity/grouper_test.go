package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault/pkg/models"
)

func TestGrouperTransitiveMerge(t *testing.T) {
	// A shares a primary id with B; B shares a URL with C.
	// All three must collapse into a single canonical record.
	a := models.MediaRecord{
		PrimaryID:    "post-1",
		CanonicalURL: "https://cdn.example.com/a.mp4",
		CreatedAt:    1,
	}
	b := models.MediaRecord{
		PrimaryID:    "post-1",
		CanonicalURL: "https://cdn.example.com/shared.mp4",
		CreatedAt:    2,
	}
	c := models.MediaRecord{
		PrimaryID:    "post-2",
		CanonicalURL: "https://cdn.example.com/shared.mp4?sig=1",
		CreatedAt:    3,
	}

	g := NewGrouper()
	g.Add(a)
	g.Add(b)
	g.Add(c)

	out := g.Canonical()
	require.Len(t, out, 1)
	assert.Equal(t, int64(3), out[0].CreatedAt)
}

func TestGrouperKeepsDistinctRecords(t *testing.T) {
	a := models.MediaRecord{PrimaryID: "post-1", CanonicalURL: "https://cdn.example.com/a.mp4"}
	b := models.MediaRecord{PrimaryID: "post-2", CanonicalURL: "https://cdn.example.com/b.mp4"}

	out := Dedup([]models.MediaRecord{a, b})
	assert.Len(t, out, 2)
}

func TestGrouperKeylessRecordsStaySingletons(t *testing.T) {
	out := Dedup([]models.MediaRecord{{}, {}})
	assert.Len(t, out, 2)
}

func TestGrouperOrderIndependentGroupCount(t *testing.T) {
	recs := []models.MediaRecord{
		{PrimaryID: "post-1", CanonicalURL: "https://cdn.example.com/a.mp4"},
		{PrimaryID: "post-2", CanonicalURL: "https://cdn.example.com/a.mp4?v=2"},
		{PrimaryID: "post-3", CanonicalURL: "https://cdn.example.com/c.mp4"},
	}

	forward := Dedup(recs)
	reversed := Dedup([]models.MediaRecord{recs[2], recs[1], recs[0]})
	assert.Len(t, forward, 2)
	assert.Len(t, reversed, 2)
}

func TestSortByCreatedAt(t *testing.T) {
	recs := []models.MediaRecord{
		{PrimaryID: "b", CreatedAt: 200},
		{PrimaryID: "a", CreatedAt: 100},
		{PrimaryID: "c", CreatedAt: 300},
	}

	asc := append([]models.MediaRecord(nil), recs...)
	SortByCreatedAt(asc, false)
	assert.Equal(t, []int64{100, 200, 300}, createdAts(asc))

	desc := append([]models.MediaRecord(nil), recs...)
	SortByCreatedAt(desc, true)
	assert.Equal(t, []int64{300, 200, 100}, createdAts(desc))
}

func createdAts(recs []models.MediaRecord) []int64 {
	out := make([]int64, len(recs))
	for i, r := range recs {
		out[i] = r.CreatedAt
	}
	return out
}
