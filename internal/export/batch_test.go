package export

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"mediavault/pkg/models"
)

func TestBatchSize(t *testing.T) {
	tests := []struct {
		total    int
		fastMode bool
		expected int
	}{
		{50, true, 20},
		{100, true, 20},
		{101, true, 12},
		{250, true, 12},
		{251, true, 8},
		{50, false, 10},
		{150, false, 6},
		{300, false, 4},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("total=%d fast=%v", tc.total, tc.fastMode), func(t *testing.T) {
			assert.Equal(t, tc.expected, batchSize(tc.total, tc.fastMode))
		})
	}
}

func TestSplitBatches(t *testing.T) {
	items := make([]models.MediaRecord, 25)
	for i := range items {
		items[i].PrimaryID = fmt.Sprintf("r%d", i)
	}

	batches := splitBatches(items, 10)
	assert.Len(t, batches, 3)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 10)
	assert.Len(t, batches[2], 5)

	// order is preserved across the split
	assert.Equal(t, "r0", batches[0][0].PrimaryID)
	assert.Equal(t, "r24", batches[2][4].PrimaryID)

	assert.Empty(t, splitBatches(nil, 10))
}

func TestClampWorkers(t *testing.T) {
	assert.Equal(t, 2, clampWorkers(0, 10))  // floor
	assert.Equal(t, 5, clampWorkers(5, 10))  // hint honored
	assert.Equal(t, 8, clampWorkers(20, 10)) // ceiling
	assert.Equal(t, 3, clampWorkers(5, 3))   // never more workers than items
	assert.Equal(t, 1, clampWorkers(4, 1))
}
