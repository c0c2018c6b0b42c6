package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediavault/internal/catalog"
	"mediavault/internal/export"
	"mediavault/pkg/models"
	"mediavault/pkg/utils"
)

type stubClient struct {
	pages [][]models.RawRecord
}

func (s *stubClient) FetchPage(_ context.Context, _ string, cursor *string) ([]models.RawRecord, *string, error) {
	idx := 0
	if cursor != nil {
		if _, err := fmt.Sscanf(*cursor, "p%d", &idx); err != nil {
			return nil, nil, fmt.Errorf("bad cursor %q", *cursor)
		}
	}
	if idx >= len(s.pages) {
		return nil, nil, fmt.Errorf("no page %d", idx)
	}
	var next *string
	if idx < len(s.pages)-1 {
		n := fmt.Sprintf("p%d", idx+1)
		next = &n
	}
	return s.pages[idx], next, nil
}

func testRouter(t *testing.T) (*gin.Engine, *catalog.Category) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat := catalog.NewCategory(context.Background(), "videos", &stubClient{
		pages: [][]models.RawRecord{{
			{ID: "r1", URL: "https://cdn.example.com/r1.mp4"},
			{ID: "r2", URL: "https://cdn.example.com/r2.mp4"},
		}},
	}, nil)

	h := NewHandler(map[string]*catalog.Category{"videos": cat}, nil,
		export.NewManager(), nil, nil, nil, utils.Config{})

	r := gin.New()
	h.RegisterRoutes(r)
	return r, cat
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func TestReadPage(t *testing.T) {
	r, _ := testRouter(t)

	w, body := doJSON(t, r, http.MethodGet, "/catalog/videos?page=0", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "videos", body["category"])
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, true, body["exhausted"])
	assert.Len(t, body["items"], 2)
}

func TestReadPageUnknownCategory(t *testing.T) {
	r, _ := testRouter(t)

	w, body := doJSON(t, r, http.MethodGet, "/catalog/music?page=0", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, body["error"], "unknown category")
}

func TestPageCountRoute(t *testing.T) {
	r, _ := testRouter(t)

	w, body := doJSON(t, r, http.MethodGet, "/catalog/videos/pages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["page_count"])
}

func TestPurge(t *testing.T) {
	r, cat := testRouter(t)

	_, _ = doJSON(t, r, http.MethodGet, "/catalog/videos?page=0", "")
	require.Equal(t, 2, cat.Total())

	w, _ := doJSON(t, r, http.MethodPost, "/catalog/videos/purge", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, cat.Total())
}

func TestStartExportValidation(t *testing.T) {
	r, _ := testRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/export", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/export", `{"category":"music","count":5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/export", `{"category":"videos","count":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportJobNotFound(t *testing.T) {
	r, _ := testRouter(t)

	w, _ := doJSON(t, r, http.MethodGet, "/export/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/export/nope/cancel", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 3, parseInt("3", 0))
	assert.Equal(t, 0, parseInt("", 0))
	assert.Equal(t, 0, parseInt("-1", 0))
	assert.Equal(t, 0, parseInt("abc", 0))
}
