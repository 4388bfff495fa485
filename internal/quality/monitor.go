// Package quality scores canonical hazard datasets across five independent
// dimensions: completeness, accuracy, consistency, timeliness, and validity.
package quality

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/hazard-analytics-service/internal/domain"
)

// Dimension weights for the overall score.
const (
	weightCompleteness = 0.25
	weightAccuracy     = 0.25
	weightConsistency  = 0.20
	weightTimeliness   = 0.15
	weightValidity     = 0.15
)

// Per-dimension pass thresholds.
const (
	thresholdCompleteness = 0.90
	thresholdAccuracy     = 0.95
	thresholdConsistency  = 0.98
	thresholdTimeliness   = 0.85
	thresholdValidity     = 0.95
)

// Overall status cutoffs.
const (
	overallPass    = 0.85
	overallWarning = 0.70
)

const (
	StatusPass    = "pass"
	StatusWarning = "warning"
	StatusFail    = "fail"
)

// defaultMaxHistory bounds the process-wide report history.
const defaultMaxHistory = 100

// requiredFields must be present on every record for a dataset to be
// considered complete.
var requiredFields = []string{"id", "type", "timestamp", "latitude", "longitude"}

// DimensionResult holds the outcome of a single dimension check. The count
// fields are populated only by the dimensions that compute them.
type DimensionResult struct {
	Score  float64 `json:"score"`
	Status string  `json:"status"`

	FieldCompleteness  map[string]float64 `json:"field_completeness,omitempty"`
	MissingFields      []string           `json:"missing_fields,omitempty"`
	OutOfRangeCount    int                `json:"out_of_range_count,omitempty"`
	TotalChecks        int                `json:"total_checks,omitempty"`
	InconsistencyCount int                `json:"inconsistency_count,omitempty"`
	DuplicateCount     int                `json:"duplicate_count,omitempty"`
	AgeDistribution    map[string]int     `json:"age_distribution,omitempty"`
	FutureTimestamps   int                `json:"future_timestamps,omitempty"`
	InvalidCount       int                `json:"invalid_count,omitempty"`

	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Dimensions groups the five dimension results of one assessment.
type Dimensions struct {
	Completeness DimensionResult `json:"completeness"`
	Accuracy     DimensionResult `json:"accuracy"`
	Consistency  DimensionResult `json:"consistency"`
	Timeliness   DimensionResult `json:"timeliness"`
	Validity     DimensionResult `json:"validity"`
}

// Report is the immutable result of one dataset assessment. Dimensions is nil
// for the dedicated empty-dataset report.
type Report struct {
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Timestamp       time.Time   `json:"timestamp"`
	RecordCount     int         `json:"record_count"`
	OverallScore    float64     `json:"overall_score"`
	OverallStatus   string      `json:"overall_status"`
	Dimensions      *Dimensions `json:"dimensions,omitempty"`
	Issues          []string    `json:"issues"`
	Recommendations []string    `json:"recommendations"`
}

// Monitor assesses datasets and keeps a bounded process-wide report history.
// The history is the only shared mutable state; it serializes its own
// read-modify-write, so concurrent Assess calls on different datasets are safe.
type Monitor struct {
	logger     *slog.Logger
	maxHistory int

	mu      sync.Mutex
	history []Report
}

// NewMonitor creates a Monitor with the default history bound.
func NewMonitor(logger *slog.Logger) *Monitor {
	return &Monitor{logger: logger, maxHistory: defaultMaxHistory}
}

// Assess scores a dataset across all five dimensions and appends the report
// to the history. An empty dataset yields a dedicated fail report instead of
// an error.
func (m *Monitor) Assess(records []domain.HazardRecord, source string) Report {
	if len(records) == 0 {
		report := emptyReport(source)
		m.append(report)
		return report
	}

	dims := Dimensions{
		Completeness: checkCompleteness(records),
		Accuracy:     checkAccuracy(records),
		Consistency:  checkConsistency(records),
		Timeliness:   checkTimeliness(records),
		Validity:     checkValidity(records),
	}

	overall := dims.Completeness.Score*weightCompleteness +
		dims.Accuracy.Score*weightAccuracy +
		dims.Consistency.Score*weightConsistency +
		dims.Timeliness.Score*weightTimeliness +
		dims.Validity.Score*weightValidity

	var issues, recommendations []string
	for _, d := range []DimensionResult{dims.Completeness, dims.Accuracy, dims.Consistency, dims.Timeliness, dims.Validity} {
		issues = append(issues, d.Issues...)
		recommendations = append(recommendations, d.Recommendations...)
	}

	report := Report{
		ID:              uuid.NewString(),
		Source:          source,
		Timestamp:       domain.Now().UTC(),
		RecordCount:     len(records),
		OverallScore:    round4(overall),
		OverallStatus:   overallStatus(overall),
		Dimensions:      &dims,
		Issues:          issues,
		Recommendations: recommendations,
	}

	m.logger.Info("quality assessment complete",
		"source", source,
		"records", len(records),
		"overall_score", report.OverallScore,
		"overall_status", report.OverallStatus,
	)

	m.append(report)
	return report
}

// History returns up to limit of the most recent reports, oldest first.
func (m *Monitor) History(limit int) []Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	out := make([]Report, limit)
	copy(out, m.history[len(m.history)-limit:])
	return out
}

// Reset clears the report history.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
}

func (m *Monitor) append(report Report) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, report)
	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}
}

func emptyReport(source string) Report {
	return Report{
		ID:              uuid.NewString(),
		Source:          source,
		Timestamp:       domain.Now().UTC(),
		OverallScore:    0,
		OverallStatus:   StatusFail,
		Issues:          []string{"No data to assess"},
		Recommendations: []string{"Ensure data is being collected properly"},
	}
}

func overallStatus(score float64) string {
	switch {
	case score >= overallPass:
		return StatusPass
	case score >= overallWarning:
		return StatusWarning
	default:
		return StatusFail
	}
}

func dimensionStatus(score, threshold float64) string {
	if score >= threshold {
		return StatusPass
	}
	return StatusFail
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// column pairs a schema column name with its presence predicate. Free-text
// columns (title, description) treat the empty string as a present value;
// identifier and enum columns do not.
type column struct {
	name    string
	present func(r *domain.HazardRecord) bool
}

var schemaColumns = []column{
	{"id", func(r *domain.HazardRecord) bool { return r.ID != "" }},
	{"type", func(r *domain.HazardRecord) bool { return r.Type != "" }},
	{"source", func(r *domain.HazardRecord) bool { return r.Source != "" }},
	{"timestamp", func(r *domain.HazardRecord) bool { return !r.Timestamp.IsZero() }},
	{"latitude", func(r *domain.HazardRecord) bool { return !math.IsNaN(r.Latitude) }},
	{"longitude", func(r *domain.HazardRecord) bool { return !math.IsNaN(r.Longitude) }},
	{"magnitude", func(r *domain.HazardRecord) bool { return !math.IsNaN(r.Magnitude) }},
	{"severity", func(r *domain.HazardRecord) bool { return r.Severity != "" }},
	{"title", func(r *domain.HazardRecord) bool { return true }},
	{"description", func(r *domain.HazardRecord) bool { return true }},
	{"populationExposed", func(r *domain.HazardRecord) bool { return !math.IsNaN(r.PopulationExposed) }},
	{"confidence", func(r *domain.HazardRecord) bool { return !math.IsNaN(r.Confidence) }},
}

var requiredSet = func() map[string]bool {
	s := make(map[string]bool, len(requiredFields))
	for _, f := range requiredFields {
		s[f] = true
	}
	return s
}()

// checkCompleteness averages the present fraction of every schema column and
// flags required fields that are entirely absent or partially missing.
func checkCompleteness(records []domain.HazardRecord) DimensionResult {
	var issues, recommendations, missingFields []string
	fieldCompleteness := make(map[string]float64, len(schemaColumns))

	total := 0.0
	for _, col := range schemaColumns {
		present := 0
		for i := range records {
			if col.present(&records[i]) {
				present++
			}
		}
		frac := float64(present) / float64(len(records))
		fieldCompleteness[col.name] = round4(frac)
		total += frac

		if !requiredSet[col.name] || present == len(records) {
			continue
		}
		if present == 0 {
			missingFields = append(missingFields, col.name)
			issues = append(issues, fmt.Sprintf("Required field '%s' is entirely missing", col.name))
			recommendations = append(recommendations, fmt.Sprintf("Add missing field: %s", col.name))
		} else {
			issues = append(issues, fmt.Sprintf("Required field '%s' has %d missing values", col.name, len(records)-present))
			recommendations = append(recommendations, fmt.Sprintf("Fill missing values in '%s' field", col.name))
		}
	}

	score := total / float64(len(schemaColumns))
	return DimensionResult{
		Score:             round4(score),
		Status:            dimensionStatus(score, thresholdCompleteness),
		FieldCompleteness: fieldCompleteness,
		MissingFields:     missingFields,
		Issues:            issues,
		Recommendations:   recommendations,
	}
}

// rangeConstraint bounds a numeric column.
type rangeConstraint struct {
	name     string
	min, max float64
	value    func(r *domain.HazardRecord) float64
}

var rangeConstraints = []rangeConstraint{
	{"latitude", -90, 90, func(r *domain.HazardRecord) float64 { return r.Latitude }},
	{"longitude", -180, 180, func(r *domain.HazardRecord) float64 { return r.Longitude }},
	{"magnitude", 0, 10, func(r *domain.HazardRecord) float64 { return r.Magnitude }},
	{"populationExposed", 0, math.Inf(1), func(r *domain.HazardRecord) float64 { return r.PopulationExposed }},
	{"confidence", 0, 1, func(r *domain.HazardRecord) float64 { return r.Confidence }},
}

// checkAccuracy measures the fraction of range-constrained values inside
// their fixed bounds. Records at exactly (0, 0) are suspect coordinates and
// count as out of range.
func checkAccuracy(records []domain.HazardRecord) DimensionResult {
	var issues, recommendations []string
	outOfRange, totalChecks := 0, 0

	for _, c := range rangeConstraints {
		fieldOut := 0
		for i := range records {
			v := c.value(&records[i])
			if math.IsNaN(v) {
				continue
			}
			totalChecks++
			if v < c.min || v > c.max {
				fieldOut++
			}
		}
		outOfRange += fieldOut
		if fieldOut > 0 {
			issues = append(issues, fmt.Sprintf("Field '%s' has %d values out of range [%g, %g]", c.name, fieldOut, c.min, c.max))
			recommendations = append(recommendations, fmt.Sprintf("Validate and correct out-of-range values in '%s'", c.name))
		}
	}

	zeroCoords := 0
	for i := range records {
		if records[i].Latitude == 0 && records[i].Longitude == 0 {
			zeroCoords++
		}
	}
	if zeroCoords > 0 {
		issues = append(issues, fmt.Sprintf("%d records have invalid coordinates (0, 0)", zeroCoords))
		recommendations = append(recommendations, "Update records with valid geographic coordinates")
		outOfRange += zeroCoords
		totalChecks += len(records)
	}

	score := 1.0
	if totalChecks > 0 {
		score = 1 - float64(outOfRange)/float64(totalChecks)
	}

	return DimensionResult{
		Score:           round4(score),
		Status:          dimensionStatus(score, thresholdAccuracy),
		OutOfRangeCount: outOfRange,
		TotalChecks:     totalChecks,
		Issues:          issues,
		Recommendations: recommendations,
	}
}

// checkConsistency counts duplicate ids and values outside the closed
// type/source/severity vocabularies.
func checkConsistency(records []domain.HazardRecord) DimensionResult {
	var issues, recommendations []string
	inconsistencies := 0

	seen := make(map[string]bool, len(records))
	duplicates := 0
	for i := range records {
		if seen[records[i].ID] {
			duplicates++
		}
		seen[records[i].ID] = true
	}
	if duplicates > 0 {
		issues = append(issues, fmt.Sprintf("Found %d duplicate IDs", duplicates))
		recommendations = append(recommendations, "Remove or merge duplicate records")
		inconsistencies += duplicates
	}

	unknownTypes := countUnknown(records, func(r *domain.HazardRecord) string { return r.Type }, domain.KnownTypes)
	if unknownTypes.count > 0 {
		issues = append(issues, "Found unknown hazard types: "+unknownTypes.names())
		recommendations = append(recommendations, "Standardize hazard type naming")
		inconsistencies += unknownTypes.count
	}

	unknownSources := countUnknown(records, func(r *domain.HazardRecord) string { return r.Source }, domain.KnownSources)
	if unknownSources.count > 0 {
		issues = append(issues, "Found unknown data sources: "+unknownSources.names())
		recommendations = append(recommendations, "Verify and standardize data source names")
		inconsistencies += unknownSources.count
	}

	unknownSeverities := countUnknown(records, func(r *domain.HazardRecord) string { return r.Severity }, domain.KnownSeverities)
	if unknownSeverities.count > 0 {
		issues = append(issues, "Found invalid severity levels: "+unknownSeverities.names())
		recommendations = append(recommendations, "Recalculate severity levels using standard thresholds")
		inconsistencies += unknownSeverities.count
	}

	// A record can carry several inconsistencies, so the raw ratio may
	// exceed one; the score floors at zero.
	score := math.Max(0, 1-float64(inconsistencies)/float64(len(records)))

	return DimensionResult{
		Score:              round4(score),
		Status:             dimensionStatus(score, thresholdConsistency),
		InconsistencyCount: inconsistencies,
		DuplicateCount:     duplicates,
		Issues:             issues,
		Recommendations:    recommendations,
	}
}

type unknownValues struct {
	count  int
	values map[string]bool
}

func (u unknownValues) names() string {
	names := make([]string, 0, len(u.values))
	for v := range u.values {
		names = append(names, v)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func countUnknown(records []domain.HazardRecord, value func(r *domain.HazardRecord) string, known map[string]bool) unknownValues {
	u := unknownValues{values: make(map[string]bool)}
	for i := range records {
		v := value(&records[i])
		if known[v] {
			continue
		}
		u.count++
		u.values[v] = true
	}
	return u
}

// Timeliness age buckets and weights.
const (
	ageRecent = 24 * time.Hour
	ageWeek   = 7 * 24 * time.Hour
	ageMonth  = 30 * 24 * time.Hour
)

// checkTimeliness scores the age distribution of the dataset against the
// current clock: ≤24h weighs 1.0, ≤7d 0.9, ≤30d 0.7, older 0.5. Records with
// a missing timestamp contribute zero weight. Future-dated records are
// flagged but penalized only by their (recent) age bucket.
func checkTimeliness(records []domain.HazardRecord) DimensionResult {
	var issues, recommendations []string

	withTimestamp := 0
	for i := range records {
		if !records[i].Timestamp.IsZero() {
			withTimestamp++
		}
	}
	if withTimestamp == 0 {
		return DimensionResult{
			Score:           0,
			Status:          StatusFail,
			Issues:          []string{"Timestamp field is missing or empty"},
			Recommendations: []string{"Add valid timestamp data"},
		}
	}

	now := domain.Now()
	var recent, week, month, old, future int
	weighted := 0.0

	for i := range records {
		ts := records[i].Timestamp
		if ts.IsZero() {
			continue
		}
		if ts.After(now) {
			future++
		}
		switch age := now.Sub(ts); {
		case age <= ageRecent:
			recent++
			weighted += 1.0
		case age <= ageWeek:
			week++
			weighted += 0.9
		case age <= ageMonth:
			month++
			weighted += 0.7
		default:
			old++
			weighted += 0.5
		}
	}

	score := weighted / float64(len(records))

	if future > 0 {
		issues = append(issues, fmt.Sprintf("%d records have future timestamps", future))
		recommendations = append(recommendations, "Correct records with future timestamps")
	}
	if old > 0 {
		issues = append(issues, fmt.Sprintf("%d records are older than 30 days", old))
		recommendations = append(recommendations, "Update or archive outdated records")
	}

	return DimensionResult{
		Score:  round4(score),
		Status: dimensionStatus(score, thresholdTimeliness),
		AgeDistribution: map[string]int{
			"recent_1day":   recent,
			"recent_7days":  week,
			"recent_30days": month,
			"older_30days":  old,
		},
		FutureTimestamps: future,
		Issues:           issues,
		Recommendations:  recommendations,
	}
}

// Business-rule bounds for the validity dimension.
const (
	lowConfidenceCutoff  = 0.5
	criticalMagnitudeMin = 5.0
	maxPlausiblePop      = 100_000_000
)

// checkValidity applies business rules: low-confidence records, critical
// severity with implausibly low magnitude, and unrealistic population
// exposure.
func checkValidity(records []domain.HazardRecord) DimensionResult {
	var issues, recommendations []string
	invalid, totalChecks := 0, 0

	lowConfidence := 0
	for i := range records {
		totalChecks++
		if records[i].Confidence < lowConfidenceCutoff {
			lowConfidence++
		}
	}
	if lowConfidence > 0 {
		invalid += lowConfidence
		issues = append(issues, fmt.Sprintf("%d records have low confidence (<%g)", lowConfidence, lowConfidenceCutoff))
		recommendations = append(recommendations, "Review and verify low-confidence records")
	}

	// Critical severity should come with real magnitude behind it.
	criticalByType := make(map[string][]int)
	for i := range records {
		if records[i].Severity == domain.SeverityCritical {
			criticalByType[records[i].Type] = append(criticalByType[records[i].Type], i)
		}
	}
	types := make([]string, 0, len(criticalByType))
	for t := range criticalByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		indices := criticalByType[t]
		totalChecks += len(indices)
		lowMag := 0
		for _, i := range indices {
			if records[i].Magnitude < criticalMagnitudeMin {
				lowMag++
			}
		}
		if lowMag > 0 {
			invalid += lowMag
			issues = append(issues, fmt.Sprintf("%d %s records marked 'critical' have low magnitude", lowMag, t))
			recommendations = append(recommendations, fmt.Sprintf("Recalculate severity for %s events", t))
		}
	}

	extremePop := 0
	for i := range records {
		totalChecks++
		if records[i].PopulationExposed > maxPlausiblePop {
			extremePop++
		}
	}
	if extremePop > 0 {
		invalid += extremePop
		issues = append(issues, fmt.Sprintf("%d records have unrealistic population exposure (>100M)", extremePop))
		recommendations = append(recommendations, "Verify population exposure calculations")
	}

	score := 1.0
	if totalChecks > 0 {
		score = 1 - float64(invalid)/float64(totalChecks)
	}

	return DimensionResult{
		Score:           round4(score),
		Status:          dimensionStatus(score, thresholdValidity),
		InvalidCount:    invalid,
		TotalChecks:     totalChecks,
		Issues:          issues,
		Recommendations: recommendations,
	}
}
