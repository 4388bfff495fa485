// Package analytics derives temporal, geographic, and severity dimensions
// from canonical hazard records and answers pivot, trend, and risk queries
// over the enriched dataset.
package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/hazard-analytics-service/internal/domain"
)

// Record is a hazard record with derived analysis dimensions attached.
// Records with a missing timestamp keep zero time features and an empty Date
// so they can be excluded from time-based queries without being dropped.
type Record struct {
	domain.HazardRecord

	Year      int    `json:"year"`
	Quarter   int    `json:"quarter"`
	Month     int    `json:"month"`
	Week      int    `json:"week"`
	Day       int    `json:"day"`
	Hour      int    `json:"hour"`
	Date      string `json:"date"`
	YearMonth string `json:"yearMonth"`

	Region    string `json:"region"`
	Continent string `json:"continent"`
	LatBin    int    `json:"latBin"`
	LngBin    int    `json:"lngBin"`
	GeoGrid   string `json:"geoGrid"`

	SeverityLevel float64 `json:"severityLevel"`
}

// severityLevels maps severity labels to their ordinal used by trend and risk
// scoring. Unrecognized labels score zero.
var severityLevels = map[string]float64{
	domain.SeverityLow:      1,
	domain.SeverityMedium:   2,
	domain.SeverityHigh:     3,
	domain.SeverityCritical: 4,
}

// regionBox is an inclusive lat/lng bounding box.
type regionBox struct {
	name           string
	latMin, latMax float64
	lngMin, lngMax float64
}

// Region boxes overlap; the first match wins, so the order is part of the
// classification.
var regionBoxes = []regionBox{
	{"Asia-Pacific", -10, 60, 60, 180},
	{"North America", 15, 75, -170, -50},
	{"Europe", 35, 70, -10, 60},
	{"South America", -60, 15, -85, -30},
	{"Africa", -35, 40, -20, 55},
}

var continentBoxes = []regionBox{
	{"Asia", -10, 80, 25, 180},
	{"North America", 15, 75, -170, -50},
	{"Europe", 35, 70, -10, 60},
	{"South America", -60, 15, -85, -30},
	{"Africa", -35, 40, -20, 55},
	{"Oceania", -50, -10, 110, 180},
}

func (b regionBox) contains(lat, lng float64) bool {
	return lat >= b.latMin && lat <= b.latMax && lng >= b.lngMin && lng <= b.lngMax
}

// ClassifyRegion maps coordinates to a coarse analysis region. Coordinates
// outside every box fall into "Other".
func ClassifyRegion(lat, lng float64) string {
	for _, box := range regionBoxes {
		if box.contains(lat, lng) {
			return box.name
		}
	}
	return "Other"
}

// ClassifyContinent maps coordinates to a continent, defaulting to
// "Antarctica" for anything unmatched.
func ClassifyContinent(lat, lng float64) string {
	for _, box := range continentBoxes {
		if box.contains(lat, lng) {
			return box.name
		}
	}
	return "Antarctica"
}

// Enrich derives the analysis dimensions for every record. The input is not
// modified.
func Enrich(records []domain.HazardRecord) []Record {
	enriched := make([]Record, 0, len(records))
	for _, r := range records {
		enriched = append(enriched, enrichOne(r))
	}
	return enriched
}

func enrichOne(r domain.HazardRecord) Record {
	if r.Type == "" {
		r.Type = domain.TypeUnknown
	}
	if r.Severity == "" {
		r.Severity = "unknown"
	}

	e := Record{HazardRecord: r}

	if !r.Timestamp.IsZero() {
		ts := r.Timestamp.UTC()
		e.Year = ts.Year()
		e.Quarter = (int(ts.Month())-1)/3 + 1
		e.Month = int(ts.Month())
		_, e.Week = ts.ISOWeek()
		e.Day = ts.Day()
		e.Hour = ts.Hour()
		e.Date = ts.Format("2006-01-02")
		e.YearMonth = ts.Format("2006-01")
	}

	e.Region = ClassifyRegion(r.Latitude, r.Longitude)
	e.Continent = ClassifyContinent(r.Latitude, r.Longitude)
	e.LatBin = int(math.Floor(r.Latitude/10) * 10)
	e.LngBin = int(math.Floor(r.Longitude/10) * 10)
	e.GeoGrid = fmt.Sprintf("(%d, %d)", e.LatBin, e.LngBin)
	e.SeverityLevel = severityLevels[r.Severity]

	return e
}

// maxTimestamp returns the latest timestamp in the dataset, ignoring records
// without one.
func maxTimestamp(records []Record) (time.Time, bool) {
	var max time.Time
	found := false
	for i := range records {
		ts := records[i].Timestamp
		if ts.IsZero() {
			continue
		}
		if !found || ts.After(max) {
			max = ts
			found = true
		}
	}
	return max, found
}

// finite replaces NaN and infinities with zero so every reported value is
// JSON-encodable.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
