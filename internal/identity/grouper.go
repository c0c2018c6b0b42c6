package identity

import (
	"fmt"
	"sort"

	"mediavault/pkg/models"
)

// Grouper folds a batch of records into canonical groups: records
// sharing any identity key, transitively, end up in one group. It is
// a disjoint-set over identity keys with path compression; expected
// cardinalities are small (one page at a time) but the structure
// keeps the transitive behavior testable on its own.
type Grouper struct {
	parent map[string]string
	recs   []models.MediaRecord
	keyOf  []string // representative key per record, parallel to recs
	anon   int
}

func NewGrouper() *Grouper {
	return &Grouper{parent: make(map[string]string)}
}

// Add registers a record and unions all of its identity keys.
// Records with no derivable key get a synthetic one so they survive
// grouping as singletons.
func (g *Grouper) Add(rec models.MediaRecord) {
	keys := Keys(rec)
	if len(keys) == 0 {
		g.anon++
		keys = []string{fmt.Sprintf("anon:%d", g.anon)}
	}
	for _, k := range keys {
		if _, ok := g.parent[k]; !ok {
			g.parent[k] = k
		}
	}
	for _, k := range keys[1:] {
		g.union(keys[0], k)
	}
	g.recs = append(g.recs, rec)
	g.keyOf = append(g.keyOf, keys[0])
}

// Canonical resolves every group down to one merged record. Groups
// come back in first-seen order; within a group records are folded in
// insertion order through Resolve.
func (g *Grouper) Canonical() []models.MediaRecord {
	merged := make(map[string]models.MediaRecord)
	var order []string

	for i, rec := range g.recs {
		root := g.find(g.keyOf[i])
		if cur, ok := merged[root]; ok {
			merged[root] = Resolve(&cur, rec)
		} else {
			merged[root] = Resolve(nil, rec)
			order = append(order, root)
		}
	}

	out := make([]models.MediaRecord, 0, len(order))
	for _, root := range order {
		out = append(out, merged[root])
	}
	return out
}

// Dedup is a convenience over a one-shot grouper.
func Dedup(records []models.MediaRecord) []models.MediaRecord {
	g := NewGrouper()
	for _, r := range records {
		g.Add(r)
	}
	return g.Canonical()
}

// SortByCreatedAt orders records by normalized timestamp. Ties keep a
// stable order by fallback id so output does not flap between reads.
func SortByCreatedAt(records []models.MediaRecord, descending bool) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.CreatedAt != b.CreatedAt {
			if descending {
				return a.CreatedAt > b.CreatedAt
			}
			return a.CreatedAt < b.CreatedAt
		}
		return a.FallbackID() < b.FallbackID()
	})
}

func (g *Grouper) find(k string) string {
	root := k
	for g.parent[root] != root {
		root = g.parent[root]
	}
	// path compression
	for g.parent[k] != root {
		g.parent[k], k = root, g.parent[k]
	}
	return root
}

func (g *Grouper) union(a, b string) {
	ra, rb := g.find(a), g.find(b)
	if ra != rb {
		g.parent[rb] = ra
	}
}
