package domain

import (
	"sort"
	"time"
)

type dedupKey struct {
	id string
	ts time.Time
}

// Merge concatenates any number of canonical datasets, drops exact duplicates
// on (id, timestamp) keeping the first occurrence, and returns the result
// ordered by timestamp descending. Merging a dataset with itself is idempotent
// up to ordering; merging only empty datasets returns an empty slice.
//
// The dedup key is deliberately the pair, not the id alone: the same physical
// event reported with drifted timestamps survives as separate records.
func Merge(datasets ...[]HazardRecord) []HazardRecord {
	total := 0
	for _, d := range datasets {
		total += len(d)
	}

	merged := make([]HazardRecord, 0, total)
	seen := make(map[dedupKey]bool, total)

	for _, d := range datasets {
		for _, r := range d {
			key := dedupKey{id: r.ID, ts: r.Timestamp}
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	return merged
}
