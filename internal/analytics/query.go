package analytics

import (
	"strings"
	"time"
)

// Filter selects a slice of the enriched dataset. Nil and empty fields match
// everything; type and severity matching is case-insensitive, region matching
// is exact.
type Filter struct {
	Start      *time.Time
	End        *time.Time
	Regions    []string
	Types      []string
	Severities []string
}

func (f Filter) matches(r *Record) bool {
	if f.Start != nil || f.End != nil {
		if r.Timestamp.IsZero() {
			return false
		}
		if f.Start != nil && r.Timestamp.Before(*f.Start) {
			return false
		}
		if f.End != nil && r.Timestamp.After(*f.End) {
			return false
		}
	}
	if len(f.Regions) > 0 && !containsExact(f.Regions, r.Region) {
		return false
	}
	if len(f.Types) > 0 && !containsFold(f.Types, r.Type) {
		return false
	}
	if len(f.Severities) > 0 && !containsFold(f.Severities, r.Severity) {
		return false
	}
	return true
}

func containsExact(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

// Apply returns the records matching the filter, preserving input order.
func (f Filter) Apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for i := range records {
		if f.matches(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// TimeRange describes the temporal extent of a dataset. Days is the elapsed
// span between the first and last event truncated to whole days, so two
// events on the same day span zero days.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// Summary is a dataset overview: totals, extent, and per-dimension counts.
type Summary struct {
	TotalEvents   int            `json:"total_events"`
	TimeRange     *TimeRange     `json:"time_range,omitempty"`
	ByType        map[string]int `json:"by_type"`
	BySeverity    map[string]int `json:"by_severity"`
	ByRegion      map[string]int `json:"by_region"`
	ByContinent   map[string]int `json:"by_continent"`
	BySource      map[string]int `json:"by_source"`
	Cardinalities map[string]int `json:"dimension_cardinalities"`
}

// Summarize computes the overview of an enriched dataset. TimeRange is nil
// when no record carries a timestamp.
func Summarize(records []Record) Summary {
	s := Summary{
		TotalEvents: len(records),
		ByType:      make(map[string]int),
		BySeverity:  make(map[string]int),
		ByRegion:    make(map[string]int),
		ByContinent: make(map[string]int),
		BySource:    make(map[string]int),
	}

	dates := make(map[string]bool)
	grids := make(map[string]bool)
	var first, last time.Time

	for i := range records {
		r := &records[i]
		s.ByType[r.Type]++
		s.BySeverity[r.Severity]++
		s.ByRegion[r.Region]++
		s.ByContinent[r.Continent]++
		s.BySource[r.Source]++
		grids[r.GeoGrid] = true

		if r.Timestamp.IsZero() {
			continue
		}
		dates[r.Date] = true
		if first.IsZero() || r.Timestamp.Before(first) {
			first = r.Timestamp
		}
		if last.IsZero() || r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}

	if !first.IsZero() {
		s.TimeRange = &TimeRange{
			Start: first,
			End:   last,
			Days:  int(last.Sub(first).Hours() / 24),
		}
	}

	s.Cardinalities = map[string]int{
		"dates":      len(dates),
		"regions":    len(s.ByRegion),
		"types":      len(s.ByType),
		"severities": len(s.BySeverity),
		"geo_grids":  len(grids),
	}

	return s
}
