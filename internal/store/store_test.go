package store

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault/pkg/database"
	"mediavault/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// an in-memory database exists per connection
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestExportedIndexRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	keys := []string{"post:p1", "url:https://cdn.example.com/p1.mp4"}
	require.NoError(t, s.MarkExported(ctx, "videos", keys))

	// any single matching key counts as exported
	got, err := s.IsExported(ctx, []string{"post:p1"})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = s.IsExported(ctx, []string{"post:other", "url:https://cdn.example.com/p1.mp4"})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = s.IsExported(ctx, []string{"post:other"})
	require.NoError(t, err)
	assert.False(t, got)

	got, err = s.IsExported(ctx, nil)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestMarkExportedUpsertsAndCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkExported(ctx, "videos", []string{"post:p1", "post:p2"}))
	require.NoError(t, s.MarkExported(ctx, "videos", []string{"post:p2", "post:p3"}))
	require.NoError(t, s.MarkExported(ctx, "images", []string{"post:i1"}))

	n, err := s.ExportedCount(ctx, "videos")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.ClearExported(ctx, "videos"))
	n, err = s.ExportedCount(ctx, "videos")
	require.NoError(t, err)
	assert.Zero(t, n)

	// other categories are untouched
	n, err = s.ExportedCount(ctx, "images")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func cursorPtr(s string) *string { return &s }

func TestPageCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	page := models.Page{
		Category: "videos",
		Number:   2,
		Records: []models.MediaRecord{
			{PrimaryID: "p1", CanonicalURL: "https://cdn.example.com/p1.mp4", CreatedAt: 100},
			{PrimaryID: "p2", CanonicalURL: "https://cdn.example.com/p2.mp4", CreatedAt: 200},
		},
		Cursor:     cursorPtr("c2"),
		NextCursor: cursorPtr("c3"),
	}
	require.NoError(t, s.SavePage(ctx, page))

	loaded, err := s.LoadPages(ctx, "videos")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, page.Number, loaded[0].Number)
	assert.Equal(t, page.Records, loaded[0].Records)
	require.NotNil(t, loaded[0].Cursor)
	assert.Equal(t, "c2", *loaded[0].Cursor)
	require.NotNil(t, loaded[0].NextCursor)
	assert.Equal(t, "c3", *loaded[0].NextCursor)
}

func TestSavePageOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	page := models.Page{Category: "videos", Number: 0, Cursor: nil, NextCursor: cursorPtr("c1")}
	require.NoError(t, s.SavePage(ctx, page))

	page.Records = []models.MediaRecord{{PrimaryID: "p1", CanonicalURL: "https://cdn.example.com/p1.mp4"}}
	page.NextCursor = nil
	require.NoError(t, s.SavePage(ctx, page))

	loaded, err := s.LoadPages(ctx, "videos")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Len(t, loaded[0].Records, 1)
	assert.Nil(t, loaded[0].Cursor)
	assert.Nil(t, loaded[0].NextCursor)
}

func TestDeletePagesExcept(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for p := 0; p < 5; p++ {
		require.NoError(t, s.SavePage(ctx, models.Page{Category: "videos", Number: p}))
	}
	require.NoError(t, s.SavePage(ctx, models.Page{Category: "images", Number: 0}))

	require.NoError(t, s.DeletePagesExcept(ctx, "videos", []int{2, 3}))

	loaded, err := s.LoadPages(ctx, "videos")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 2, loaded[0].Number)
	assert.Equal(t, 3, loaded[1].Number)

	// empty keep list clears the category
	require.NoError(t, s.DeletePagesExcept(ctx, "videos", nil))
	loaded, err = s.LoadPages(ctx, "videos")
	require.NoError(t, err)
	assert.Empty(t, loaded)

	loaded, err = s.LoadPages(ctx, "images")
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestScopeMarker(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	marker, err := s.ScopeMarker(ctx)
	require.NoError(t, err)
	assert.Empty(t, marker)

	require.NoError(t, s.SetScopeMarker(ctx, "user-1"))
	marker, err = s.ScopeMarker(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", marker)

	require.NoError(t, s.SetScopeMarker(ctx, "user-2"))
	marker, err = s.ScopeMarker(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-2", marker)
}
