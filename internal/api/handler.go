package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mediavault/internal/catalog"
	"mediavault/internal/export"
	"mediavault/internal/store"
	"mediavault/pkg/utils"
)

// Handler exposes the catalog cache and export pipeline over HTTP.
type Handler struct {
	Categories map[string]*catalog.Category
	Store      *store.Store
	Manager    *export.Manager
	Fetcher    export.Fetcher
	Sink       export.Sink
	Events     export.Emitter
	Config     utils.Config
}

func NewHandler(categories map[string]*catalog.Category, st *store.Store, manager *export.Manager,
	fetcher export.Fetcher, sink export.Sink, events export.Emitter, cfg utils.Config) *Handler {
	return &Handler{
		Categories: categories,
		Store:      st,
		Manager:    manager,
		Fetcher:    fetcher,
		Sink:       sink,
		Events:     events,
		Config:     cfg,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/catalog/:category", h.readPage)
	r.GET("/catalog/:category/pages", h.pageCount)
	r.POST("/catalog/:category/purge", h.purge)
	r.POST("/export", h.startExport)
	r.GET("/export/:id", h.exportStatus)
	r.POST("/export/:id/cancel", h.cancelExport)
}

func (h *Handler) category(c *gin.Context) (*catalog.Category, bool) {
	name := strings.TrimSpace(c.Param("category"))
	cat, ok := h.Categories[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown category"})
		return nil, false
	}
	return cat, true
}

func (h *Handler) readPage(c *gin.Context) {
	cat, ok := h.category(c)
	if !ok {
		return
	}

	page := parseInt(c.Query("page"), 0)
	descending := strings.EqualFold(c.Query("order"), "desc")

	if err := cat.EnsurePage(c.Request.Context(), page); err != nil {
		if errors.Is(err, catalog.ErrFetchInFlight) {
			c.JSON(http.StatusConflict, gin.H{"error": "fetch already in flight, retry shortly"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "page fetch failed"})
		return
	}

	items := cat.ReadPage(page, descending)
	c.JSON(http.StatusOK, gin.H{
		"category":   cat.Name(),
		"page":       page,
		"page_count": cat.PageCount(),
		"total":      cat.Total(),
		"exhausted":  cat.Exhausted(),
		"items":      items,
	})
}

func (h *Handler) pageCount(c *gin.Context) {
	cat, ok := h.category(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"category":   cat.Name(),
		"page_count": cat.PageCount(),
		"exhausted":  cat.Exhausted(),
	})
}

func (h *Handler) purge(c *gin.Context) {
	cat, ok := h.category(c)
	if !ok {
		return
	}
	if err := cat.Reset(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "purge failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "purged", "category": cat.Name()})
}

type exportReq struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Fast     *bool  `json:"fast,omitempty"`
	Prompt   bool   `json:"prompt,omitempty"`
}

func (h *Handler) startExport(c *gin.Context) {
	var req exportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	cat, ok := h.Categories[strings.TrimSpace(req.Category)]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}
	if req.Count <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be > 0"})
		return
	}

	fast := h.Config.FastMode
	if req.Fast != nil {
		fast = *req.Fast
	}

	pipeline := export.NewPipeline(cat, h.Store, h.Fetcher, h.Sink, h.Events, export.Options{
		Category:     cat.Name(),
		TargetCount:  req.Count,
		FastMode:     fast,
		Concurrency:  h.Config.Concurrency,
		FetchTimeout: h.Config.FetchTimeout,
		DeliveryWait: h.Config.DeliveryWait,
		Prompt:       req.Prompt,
	})

	// jobs outlive the HTTP request
	job, err := h.Manager.Start(context.Background(), pipeline)
	if err != nil {
		if errors.Is(err, export.ErrExportInFlight) {
			c.JSON(http.StatusConflict, gin.H{"error": "an export is already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "start failed"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "started_at": time.Now().UTC()})
}

func (h *Handler) exportStatus(c *gin.Context) {
	job, ok := h.Manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, job.Status())
}

func (h *Handler) cancelExport(c *gin.Context) {
	if !h.Manager.Cancel(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancel requested"})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
