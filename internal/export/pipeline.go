package export

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mediavault/internal/archive"
	"mediavault/internal/catalog"
	"mediavault/internal/identity"
	"mediavault/internal/progress"
	"mediavault/pkg/models"
)

// ExportedIndex is the persistent already-exported identity index.
type ExportedIndex interface {
	IsExported(ctx context.Context, keys []string) (bool, error)
	MarkExported(ctx context.Context, category string, keys []string) error
}

// Emitter receives progress events. *progress.Hub satisfies it; tests
// inject a recorder.
type Emitter interface {
	BroadcastJSON(v any)
}

// Options configures one pipeline invocation.
type Options struct {
	Category     string
	TargetCount  int
	FastMode     bool
	Concurrency  int // worker hint, clamped to [2,8] and the batch size
	FetchTimeout time.Duration
	DeliveryWait time.Duration
	Prompt       bool // ask the sink to prompt for a location
	JobID        string
}

// Pipeline walks the category cache for fresh candidates, fetches
// their payloads with bounded concurrency and retry, archives each
// batch and marks items exported only on confirmed delivery.
type Pipeline struct {
	cat     *catalog.Category
	index   ExportedIndex
	fetcher Fetcher
	sink    Sink
	events  Emitter
	opts    Options
}

func NewPipeline(cat *catalog.Category, index ExportedIndex, fetcher Fetcher, sink Sink, events Emitter, opts Options) *Pipeline {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.DeliveryWait <= 0 {
		opts.DeliveryWait = 20 * time.Second
	}
	return &Pipeline{
		cat:     cat,
		index:   index,
		fetcher: fetcher,
		sink:    sink,
		events:  events,
		opts:    opts,
	}
}

type fetched struct {
	rec  models.MediaRecord
	data []byte
}

// Run executes the pipeline to completion, stop or failure. The
// returned report is valid in every case; the error is non-nil only
// for pipeline-fatal conditions.
func (p *Pipeline) Run(ctx context.Context, tok *CancelToken) (*models.ExportReport, error) {
	report := &models.ExportReport{
		Outcome:   models.ExportCompleted,
		StartedAt: time.Now(),
	}
	defer func() { report.FinishedAt = time.Now() }()

	candidates, skipped, err := p.selectCandidates(ctx, tok)
	report.SkippedDuplicates = skipped
	if err != nil {
		report.Outcome = models.ExportFailed
		p.emit(progress.EventFailed, 0, 0, report, err.Error())
		return report, err
	}

	if tok.Cancelled() {
		report.Outcome = models.ExportStopped
		p.emit(progress.EventStopped, 0, 0, report, "stopped by user")
		return report, nil
	}

	if len(candidates) == 0 {
		// nothing fresh; skipped items can be offered for re-export
		report.ReExportOffered = skipped > 0
		p.emit(progress.EventDone, 0, 0, report, "no fresh items")
		return report, nil
	}

	batches := splitBatches(candidates, batchSize(len(candidates), p.opts.FastMode))

	for i, batch := range batches {
		if tok.Cancelled() || ctx.Err() != nil {
			report.Outcome = models.ExportStopped
			p.emit(progress.EventStopped, i, len(batches), report, "stopped by user")
			return report, nil
		}

		blobs, failed := p.fetchBatch(ctx, tok, batch)
		report.FailedItems = append(report.FailedItems, failed...)
		if len(blobs) == 0 {
			p.emit(progress.EventProgress, i+1, len(batches), report, "batch produced no payloads")
			continue
		}

		entries := make([]archive.Entry, 0, len(blobs))
		for _, b := range blobs {
			entries = append(entries, archive.Entry{
				Name:     EntryName(b.rec, p.opts.Category),
				Data:     b.data,
				Modified: time.UnixMilli(b.rec.CreatedAt),
			})
		}

		data, err := archive.Build(entries)
		if err != nil {
			report.Outcome = models.ExportFailed
			p.emit(progress.EventFailed, i, len(batches), report, err.Error())
			return report, fmt.Errorf("export: build archive: %w", err)
		}

		name := ArchiveName(p.opts.Category, report.StartedAt, i, len(batches))
		sinkID, err := p.sink.Deliver(ctx, name, data, p.opts.Prompt)
		if err != nil {
			// partial delivery is indistinguishable from corruption to
			// the user: offer a retry of the whole invocation
			report.Outcome = models.ExportFailed
			report.RetryOffered = true
			p.emit(progress.EventFailed, i, len(batches), report, err.Error())
			return report, fmt.Errorf("export: deliver %s: %w", name, err)
		}

		state, err := p.sink.Wait(ctx, sinkID, p.opts.DeliveryWait)
		switch {
		case err == nil && state == SinkComplete:
			keys := make([]string, 0, len(blobs)*3)
			for _, b := range blobs {
				keys = append(keys, identity.Keys(b.rec)...)
			}
			if err := p.index.MarkExported(ctx, p.opts.Category, keys); err != nil {
				return report, fmt.Errorf("export: mark exported: %w", err)
			}
			report.Exported += len(blobs)
			report.Archives = append(report.Archives, models.ArchiveRef{
				Name:    name,
				Entries: len(entries),
				Bytes:   len(data),
				SinkID:  sinkID,
			})
			p.emit(progress.EventArchive, i+1, len(batches), report, name)
		case err == nil && (state == SinkCancelled || state == SinkInterrupted):
			report.Outcome = models.ExportFailed
			report.RetryOffered = true
			p.emit(progress.EventFailed, i, len(batches), report, "delivery "+string(state))
			return report, fmt.Errorf("export: delivery of %s %s", name, state)
		default:
			// timed out or still pending: unknown, not a confirmed
			// success and not a failure either; items stay unmarked
			report.DeliveryUnknown++
			log.Printf("[export] %s: delivery of %s unconfirmed", p.opts.Category, name)
			p.emit(progress.EventProgress, i+1, len(batches), report, "delivery unconfirmed: "+name)
		}
	}

	p.emit(progress.EventDone, len(batches), len(batches), report, "")
	return report, nil
}

// selectCandidates walks pages forward from the category's current
// page collecting records absent from the exported index, until the
// target count is reached or the category is exhausted. Listing
// errors here are pipeline-fatal.
func (p *Pipeline) selectCandidates(ctx context.Context, tok *CancelToken) ([]models.MediaRecord, int, error) {
	var fresh []models.MediaRecord
	skipped := 0
	local := make(map[string]struct{})

	for page := p.cat.CurrentPage(); ; page++ {
		if tok.Cancelled() || ctx.Err() != nil {
			return fresh, skipped, nil
		}
		if err := p.cat.EnsurePage(ctx, page); err != nil {
			return nil, skipped, fmt.Errorf("export: select candidates: %w", err)
		}

		for _, rec := range p.cat.ReadPage(page, false) {
			keys := identity.Keys(rec)
			if len(keys) == 0 {
				continue
			}
			if anyIn(local, keys) {
				continue
			}
			for _, k := range keys {
				local[k] = struct{}{}
			}

			exported, err := p.index.IsExported(ctx, keys)
			if err != nil {
				return nil, skipped, fmt.Errorf("export: exported lookup: %w", err)
			}
			if exported {
				skipped++
				continue
			}

			fresh = append(fresh, rec)
			if len(fresh) >= p.opts.TargetCount {
				return fresh, skipped, nil
			}
		}

		if p.cat.Exhausted() && page+1 >= p.cat.PageCount() {
			return fresh, skipped, nil
		}
	}
}

// fetchBatch drains one batch through the worker pool. Workers race
// for queue items; a failed item is re-enqueued up to maxItemRetries
// before counting as permanently failed. Once the token is cancelled
// no new item is started, but in-flight fetches finish.
func (p *Pipeline) fetchBatch(ctx context.Context, tok *CancelToken, batch []models.MediaRecord) ([]fetched, []string) {
	type workItem struct {
		rec      models.MediaRecord
		attempts int
	}

	var (
		qmu     sync.Mutex
		queue   = make([]*workItem, 0, len(batch))
		results []fetched
		failed  []string
	)
	for _, rec := range batch {
		queue = append(queue, &workItem{rec: rec})
	}

	pop := func() *workItem {
		qmu.Lock()
		defer qmu.Unlock()
		if len(queue) == 0 {
			return nil
		}
		it := queue[0]
		queue = queue[1:]
		return it
	}
	push := func(it *workItem) {
		qmu.Lock()
		queue = append(queue, it)
		qmu.Unlock()
	}

	var g errgroup.Group
	for w := 0; w < clampWorkers(p.opts.Concurrency, len(batch)); w++ {
		g.Go(func() error {
			for {
				if tok.Cancelled() || ctx.Err() != nil {
					return nil
				}
				it := pop()
				if it == nil {
					return nil
				}

				data, err := p.fetchItem(ctx, it.rec)
				if err != nil {
					it.attempts++
					if it.attempts <= maxItemRetries {
						push(it)
						continue
					}
					qmu.Lock()
					failed = append(failed, it.rec.FallbackID())
					qmu.Unlock()
					log.Printf("[export] %s: giving up on %s: %v", p.opts.Category, it.rec.FallbackID(), err)
					continue
				}

				qmu.Lock()
				results = append(results, fetched{rec: it.rec, data: data})
				qmu.Unlock()
			}
		})
	}
	_ = g.Wait()

	return results, failed
}

// fetchItem tries the canonical URL first, then each alternate.
func (p *Pipeline) fetchItem(ctx context.Context, rec models.MediaRecord) ([]byte, error) {
	urls := append([]string{rec.CanonicalURL}, rec.AlternateURLs...)
	var errs []string
	for _, u := range urls {
		if u == "" {
			continue
		}
		data, err := p.fetcher.Fetch(ctx, u, p.opts.FetchTimeout)
		if err == nil {
			return data, nil
		}
		errs = append(errs, err.Error())
	}
	return nil, fmt.Errorf("all urls failed: %s", strings.Join(errs, "; "))
}

func (p *Pipeline) emit(eventType string, batch, batches int, report *models.ExportReport, message string) {
	if p.events == nil {
		return
	}
	p.events.BroadcastJSON(progress.ExportEvent{
		Type:      eventType,
		JobID:     p.opts.JobID,
		Category:  p.opts.Category,
		Batch:     batch,
		Batches:   batches,
		Delivered: report.Exported,
		Failed:    len(report.FailedItems),
		Archive:   lastArchive(report),
		Message:   message,
		At:        time.Now(),
	})
}

func lastArchive(report *models.ExportReport) string {
	if len(report.Archives) == 0 {
		return ""
	}
	return report.Archives[len(report.Archives)-1].Name
}

func anyIn(set map[string]struct{}, keys []string) bool {
	for _, k := range keys {
		if _, ok := set[k]; ok {
			return true
		}
	}
	return false
}
