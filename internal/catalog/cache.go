package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"mediavault/internal/identity"
	"mediavault/pkg/models"
)

// ErrFetchInFlight is returned when EnsurePage is called while another
// EnsurePage on the same category is still outstanding. The caller is
// expected to re-request after the in-flight one resolves.
var ErrFetchInFlight = errors.New("catalog: page fetch already in flight")

// windowRadius pages on each side of the target stay cached.
const windowRadius = 1

// PageStore persists window pages across restarts. May be nil.
type PageStore interface {
	SavePage(ctx context.Context, page models.Page) error
	LoadPages(ctx context.Context, category string) ([]models.Page, error)
	DeletePagesExcept(ctx context.Context, category string, keep []int) error
	ClearPages(ctx context.Context, category string) error
}

// Category owns the pagination state for one category ("videos",
// "images"). Instances are fully independent; the only state shared
// between categories is the persistent store.
type Category struct {
	name   string
	client Client
	pages  PageStore

	mu        sync.Mutex
	fetching  bool // single-flight latch
	cursors   map[int]*string
	window    map[int][]models.MediaRecord
	seen      map[string]struct{}
	total     int
	highest   int
	fetched   bool
	exhausted bool
	current   int
}

// NewCategory builds a category cache, restoring any pages the store
// kept from a previous run.
func NewCategory(ctx context.Context, name string, client Client, pages PageStore) *Category {
	c := &Category{
		name:    name,
		client:  client,
		pages:   pages,
		cursors: map[int]*string{0: nil},
		window:  make(map[int][]models.MediaRecord),
		seen:    make(map[string]struct{}),
	}
	if pages != nil {
		c.restore(ctx)
	}
	return c
}

func (c *Category) Name() string { return c.name }

// EnsurePage makes the requested page available in the window. If the
// page is cached this is a no-op. Otherwise the cursor chain is walked
// forward, fetching and ingesting pages sequentially, until the target
// is fetched or the category is exhausted. Only one walk may be in
// flight per category.
func (c *Category) EnsurePage(ctx context.Context, target int) error {
	if target < 0 {
		return fmt.Errorf("catalog: negative page %d", target)
	}

	c.mu.Lock()
	if _, ok := c.window[target]; ok {
		c.current = target
		c.mu.Unlock()
		return nil
	}
	if c.fetching {
		c.mu.Unlock()
		return ErrFetchInFlight
	}
	c.fetching = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.fetching = false
		c.mu.Unlock()
	}()

	for {
		c.mu.Lock()
		if _, ok := c.window[target]; ok {
			c.mu.Unlock()
			break
		}
		if c.exhausted {
			if _, known := c.cursors[target]; !known {
				// target is past the end of the catalog
				c.mu.Unlock()
				break
			}
		}
		page := target
		if _, known := c.cursors[page]; !known {
			page = c.maxKnownBelowLocked(target)
		}
		cursor := c.cursors[page]
		c.mu.Unlock()

		records, next, err := c.client.FetchPage(ctx, c.name, cursor)
		if err != nil {
			// nothing was applied for this page: ingest is all-or-nothing
			return fmt.Errorf("catalog: fetch page %d: %w", page, err)
		}

		c.ingest(page, records, cursor, next)
	}

	c.mu.Lock()
	c.current = target
	evictTarget := target
	if evictTarget > c.highest {
		evictTarget = c.highest
	}
	c.evictLocked(evictTarget)
	keep, saved := c.snapshotWindowLocked()
	c.mu.Unlock()

	c.persist(ctx, keep, saved)
	return nil
}

// ingest applies one fetched page in a single locked step so partial
// updates can never interleave with readers.
func (c *Category) ingest(page int, raws []models.RawRecord, cursor, next *string) {
	normalized := make([]models.MediaRecord, 0, len(raws))
	for _, raw := range raws {
		if rec, ok := raw.Normalize(); ok {
			normalized = append(normalized, rec)
		}
	}
	canonical := identity.Dedup(normalized)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.window[page]; ok {
		// page was re-fetched only to recover its next cursor; keep
		// the retained records as they are
		c.recordNextCursorLocked(page, cursor, next)
		return
	}

	kept := make([]models.MediaRecord, 0, len(canonical))
	for _, rec := range canonical {
		keys := identity.Keys(rec)
		if len(keys) == 0 {
			continue
		}
		fresh := false
		for _, k := range keys {
			if _, ok := c.seen[k]; !ok {
				fresh = true
				break
			}
		}
		if !fresh {
			// every key already retained from an earlier page
			continue
		}
		for _, k := range keys {
			c.seen[k] = struct{}{}
		}
		kept = append(kept, rec)
	}

	c.window[page] = kept
	c.total += len(kept)
	if page > c.highest {
		c.highest = page
	}
	c.fetched = true

	c.recordNextCursorLocked(page, cursor, next)
}

func (c *Category) recordNextCursorLocked(page int, cursor, next *string) {
	switch {
	case next == nil:
		c.exhausted = true
	case cursor != nil && *next == *cursor:
		// the API is not supposed to repeat a cursor; treat it as the
		// end of the catalog but keep it visible for monitoring
		log.Printf("[catalog] %s: repeated cursor at page %d, treating as exhausted", c.name, page)
		c.exhausted = true
	default:
		if _, known := c.cursors[page+1]; !known {
			c.cursors[page+1] = next
		}
	}
}

// evictLocked drops every cached page outside [target-1, target+1] and
// rebuilds the seen index from the survivors, so a record evicted here
// can be legitimately re-ingested by a later fetch.
func (c *Category) evictLocked(target int) {
	for p := range c.window {
		if p < target-windowRadius || p > target+windowRadius {
			delete(c.window, p)
		}
	}
	c.seen = make(map[string]struct{})
	for _, recs := range c.window {
		for _, rec := range recs {
			for _, k := range identity.Keys(rec) {
				c.seen[k] = struct{}{}
			}
		}
	}
}

// PageCount reports how many pages navigation may offer: one more than
// confirmed while the catalog is not exhausted.
func (c *Category) PageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fetched {
		return 1
	}
	if c.exhausted {
		return c.highest + 1
	}
	return c.highest + 2
}

// ReadPage returns the cached records for a page, re-deduplicated at
// read time and sorted by CreatedAt.
func (c *Category) ReadPage(page int, descending bool) []models.MediaRecord {
	c.mu.Lock()
	recs := append([]models.MediaRecord(nil), c.window[page]...)
	c.mu.Unlock()

	out := identity.Dedup(recs)
	identity.SortByCreatedAt(out, descending)
	return out
}

// ReadAll returns every record currently in the window, deduplicated
// and sorted.
func (c *Category) ReadAll(descending bool) []models.MediaRecord {
	c.mu.Lock()
	var recs []models.MediaRecord
	for _, page := range c.windowPagesLocked() {
		recs = append(recs, c.window[page]...)
	}
	c.mu.Unlock()

	out := identity.Dedup(recs)
	identity.SortByCreatedAt(out, descending)
	return out
}

// CurrentPage is the page most recently requested via EnsurePage.
func (c *Category) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Total is the running count of records kept since the last reset.
func (c *Category) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func (c *Category) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exhausted
}

// Reset clears the cursor chain, window, seen index and counters.
// Triggered on user-scope change or an explicit purge.
func (c *Category) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.cursors = map[int]*string{0: nil}
	c.window = make(map[int][]models.MediaRecord)
	c.seen = make(map[string]struct{})
	c.total = 0
	c.highest = 0
	c.fetched = false
	c.exhausted = false
	c.current = 0
	c.mu.Unlock()

	if c.pages != nil {
		if err := c.pages.ClearPages(ctx, c.name); err != nil {
			return fmt.Errorf("catalog: clear stored pages: %w", err)
		}
	}
	return nil
}

func (c *Category) maxKnownBelowLocked(target int) int {
	best := 0
	for p := range c.cursors {
		if p <= target && p > best {
			best = p
		}
	}
	return best
}

func (c *Category) windowPagesLocked() []int {
	pages := make([]int, 0, len(c.window))
	for p := range c.window {
		pages = append(pages, p)
	}
	// small slice, insertion sort is plenty
	for i := 1; i < len(pages); i++ {
		for j := i; j > 0 && pages[j] < pages[j-1]; j-- {
			pages[j], pages[j-1] = pages[j-1], pages[j]
		}
	}
	return pages
}

func (c *Category) snapshotWindowLocked() ([]int, []models.Page) {
	keep := c.windowPagesLocked()
	saved := make([]models.Page, 0, len(keep))
	for _, p := range keep {
		page := models.Page{
			Category: c.name,
			Number:   p,
			Records:  append([]models.MediaRecord(nil), c.window[p]...),
			Cursor:   c.cursors[p],
		}
		if next, ok := c.cursors[p+1]; ok {
			page.NextCursor = next
		}
		saved = append(saved, page)
	}
	return keep, saved
}

func (c *Category) persist(ctx context.Context, keep []int, saved []models.Page) {
	if c.pages == nil {
		return
	}
	for _, page := range saved {
		if err := c.pages.SavePage(ctx, page); err != nil {
			log.Printf("[catalog] %s: save page %d: %v", c.name, page.Number, err)
		}
	}
	if err := c.pages.DeletePagesExcept(ctx, c.name, keep); err != nil {
		log.Printf("[catalog] %s: prune stored pages: %v", c.name, err)
	}
}

func (c *Category) restore(ctx context.Context) {
	stored, err := c.pages.LoadPages(ctx, c.name)
	if err != nil {
		log.Printf("[catalog] %s: restore pages: %v", c.name, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	last := -1
	lastHadNext := true
	for _, page := range stored {
		c.window[page.Number] = page.Records
		for _, rec := range page.Records {
			for _, k := range identity.Keys(rec) {
				c.seen[k] = struct{}{}
			}
		}
		if page.Number == 0 || page.Cursor != nil {
			c.cursors[page.Number] = page.Cursor
		}
		if page.NextCursor != nil {
			c.cursors[page.Number+1] = page.NextCursor
		}
		if page.Number > c.highest {
			c.highest = page.Number
		}
		if page.Number > last {
			last = page.Number
			lastHadNext = page.NextCursor != nil
		}
		c.total += len(page.Records)
		c.fetched = true
	}
	// every stored page was fetched, so a missing next cursor on the
	// highest one means the catalog ended there
	if last >= 0 && !lastHadNext {
		c.exhausted = true
	}
}
