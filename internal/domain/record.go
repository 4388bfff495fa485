package domain

import "time"

// Canonical hazard types. Adapters normalize provider categories into this
// uppercase vocabulary; anything else passes through and is flagged by the
// quality monitor rather than rejected.
const (
	TypeEarthquake = "EARTHQUAKE"
	TypeWildfire   = "WILDFIRE"
	TypeFlood      = "FLOOD"
	TypeVolcano    = "VOLCANO"
	TypeCyclone    = "CYCLONE"
	TypeStorm      = "STORM"
	TypeUnknown    = "UNKNOWN"
)

// Provider tags for the supported upstream feeds.
const (
	SourceUSGS  = "USGS"
	SourceNASA  = "NASA"
	SourceGDACS = "GDACS"
)

// Severity labels, ordered low to critical.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// KnownTypes is the closed hazard-type vocabulary used for consistency checks.
var KnownTypes = map[string]bool{
	TypeEarthquake: true,
	TypeWildfire:   true,
	TypeFlood:      true,
	TypeVolcano:    true,
	TypeCyclone:    true,
	TypeStorm:      true,
}

// KnownSources is the closed provider vocabulary.
var KnownSources = map[string]bool{
	SourceUSGS:  true,
	SourceNASA:  true,
	SourceGDACS: true,
}

// KnownSeverities is the closed severity vocabulary.
var KnownSeverities = map[string]bool{
	SeverityLow:      true,
	SeverityMedium:   true,
	SeverityHigh:     true,
	SeverityCritical: true,
}

// HazardRecord is the unified representation every provider feed is mapped
// into. Records are created once by an adapter and never mutated in place;
// enrichment and scoring operate on derived copies.
type HazardRecord struct {
	ID                string    `json:"id"`
	Type              string    `json:"type"`
	Source            string    `json:"source"`
	Timestamp         time.Time `json:"timestamp"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	Magnitude         float64   `json:"magnitude"`
	Severity          string    `json:"severity"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	PopulationExposed float64   `json:"populationExposed"`
	Confidence        float64   `json:"confidence"`
}

// severityThresholds holds the per-type magnitude cutoffs. A cutoff of zero is
// inert: an all-zero row classifies every magnitude as "low".
type severityThresholds struct {
	Low      float64
	Medium   float64
	High     float64
	Critical float64
}

// Magnitude semantics differ per type: Richter-style magnitude for
// earthquakes, burned acreage for wildfires. Flood has no usable magnitude in
// any feed, so its row is all-zero and floods always classify "low".
var severityTable = map[string]severityThresholds{
	TypeEarthquake: {Low: 3.0, Medium: 5.0, High: 6.5, Critical: 7.5},
	TypeWildfire:   {Low: 100, Medium: 1000, High: 5000, Critical: 10000},
	TypeFlood:      {},
}

// ClassifySeverity derives the severity label from hazard type and magnitude.
// Unknown types use an all-zero threshold table and therefore always yield
// "low". Classification is monotonic in magnitude for a fixed type.
func ClassifySeverity(hazardType string, magnitude float64) string {
	t := severityTable[hazardType]

	switch {
	case t.Critical > 0 && magnitude >= t.Critical:
		return SeverityCritical
	case t.High > 0 && magnitude >= t.High:
		return SeverityHigh
	case t.Medium > 0 && magnitude >= t.Medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
