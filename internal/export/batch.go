package export

import "mediavault/pkg/models"

// Batch sizing balances archive-build latency against memory: more
// candidates mean smaller batches, and disabling fast mode halves the
// size again.
const (
	batchSizeDefault = 20
	batchSizeMedium  = 12
	batchSizeSmall   = 8

	mediumThreshold = 100
	largeThreshold  = 250
)

// Worker pool bounds. The pool never exceeds the batch size.
const (
	minWorkers     = 2
	maxWorkers     = 8
	maxItemRetries = 2
)

func batchSize(total int, fastMode bool) int {
	size := batchSizeDefault
	switch {
	case total > largeThreshold:
		size = batchSizeSmall
	case total > mediumThreshold:
		size = batchSizeMedium
	}
	if !fastMode {
		size /= 2
	}
	if size < 1 {
		size = 1
	}
	return size
}

func splitBatches(items []models.MediaRecord, size int) [][]models.MediaRecord {
	if size < 1 {
		size = 1
	}
	var out [][]models.MediaRecord
	for len(items) > 0 {
		n := size
		if n > len(items) {
			n = len(items)
		}
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}

func clampWorkers(hint, batch int) int {
	w := hint
	if w < minWorkers {
		w = minWorkers
	}
	if w > maxWorkers {
		w = maxWorkers
	}
	if w > batch {
		w = batch
	}
	if w < 1 {
		w = 1
	}
	return w
}
