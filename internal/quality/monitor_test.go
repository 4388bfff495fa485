package quality

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-analytics-service/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(testNow))
	t.Cleanup(func() { domain.SetClock(nil) })
}

// goodRecord returns a record that passes every dimension check.
func goodRecord(id string) domain.HazardRecord {
	return domain.HazardRecord{
		ID:         id,
		Type:       domain.TypeEarthquake,
		Source:     domain.SourceUSGS,
		Timestamp:  testNow.Add(-time.Hour),
		Latitude:   34.5,
		Longitude:  -118.1,
		Magnitude:  4.2,
		Severity:   domain.SeverityLow,
		Title:      "M 4.2",
		Confidence: 0.95,
	}
}

func TestAssess(t *testing.T) {
	freezeClock(t)

	t.Run("clean dataset passes", func(t *testing.T) {
		records := []domain.HazardRecord{goodRecord("a"), goodRecord("b"), goodRecord("c")}

		report := NewMonitor(testLogger()).Assess(records, domain.SourceUSGS)

		assert.NotEmpty(t, report.ID)
		assert.Equal(t, domain.SourceUSGS, report.Source)
		assert.Equal(t, testNow, report.Timestamp)
		assert.Equal(t, 3, report.RecordCount)
		assert.Equal(t, 1.0, report.OverallScore)
		assert.Equal(t, StatusPass, report.OverallStatus)
		require.NotNil(t, report.Dimensions)
		assert.Equal(t, 1.0, report.Dimensions.Completeness.Score)
		assert.Equal(t, 1.0, report.Dimensions.Accuracy.Score)
		assert.Equal(t, 1.0, report.Dimensions.Consistency.Score)
		assert.Equal(t, 1.0, report.Dimensions.Timeliness.Score)
		assert.Equal(t, 1.0, report.Dimensions.Validity.Score)
		assert.Empty(t, report.Issues)
	})

	t.Run("empty dataset yields fail report", func(t *testing.T) {
		report := NewMonitor(testLogger()).Assess(nil, "merged")

		assert.Equal(t, 0, report.RecordCount)
		assert.Equal(t, 0.0, report.OverallScore)
		assert.Equal(t, StatusFail, report.OverallStatus)
		assert.Nil(t, report.Dimensions)
		assert.Equal(t, []string{"No data to assess"}, report.Issues)
		assert.Equal(t, []string{"Ensure data is being collected properly"}, report.Recommendations)
	})

	t.Run("overall score stays in unit range", func(t *testing.T) {
		// A deliberately broken dataset: duplicates, bad coordinates,
		// unknown vocabulary, missing timestamps, low confidence.
		broken := []domain.HazardRecord{
			{ID: "x", Type: "METEOR", Source: "EMDAT", Severity: "extreme", Latitude: 200, Longitude: 400, Magnitude: -3, Confidence: 0.1},
			{ID: "x", Type: "METEOR", Source: "EMDAT", Severity: "extreme", Confidence: 0.2},
		}

		report := NewMonitor(testLogger()).Assess(broken, domain.SourceGDACS)

		assert.GreaterOrEqual(t, report.OverallScore, 0.0)
		assert.LessOrEqual(t, report.OverallScore, 1.0)
		assert.Equal(t, StatusFail, report.OverallStatus)
		assert.NotEmpty(t, report.Issues)
		assert.NotEmpty(t, report.Recommendations)
	})
}

func TestCheckCompleteness(t *testing.T) {
	t.Run("missing required values are flagged", func(t *testing.T) {
		records := []domain.HazardRecord{goodRecord("a"), goodRecord("")}

		result := checkCompleteness(records)

		assert.Equal(t, 0.5, result.FieldCompleteness["id"])
		assert.Contains(t, result.Issues, "Required field 'id' has 1 missing values")
		assert.Equal(t, StatusFail, result.Status)
	})

	t.Run("entirely missing required field", func(t *testing.T) {
		a, b := goodRecord("a"), goodRecord("b")
		a.Timestamp, b.Timestamp = time.Time{}, time.Time{}

		result := checkCompleteness([]domain.HazardRecord{a, b})

		assert.Equal(t, []string{"timestamp"}, result.MissingFields)
		assert.Contains(t, result.Issues, "Required field 'timestamp' is entirely missing")
	})

	t.Run("optional gaps lower the score without issues", func(t *testing.T) {
		r := goodRecord("a")
		r.Severity = ""

		result := checkCompleteness([]domain.HazardRecord{r})

		assert.Less(t, result.Score, 1.0)
		assert.Empty(t, result.Issues)
	})
}

func TestCheckAccuracy(t *testing.T) {
	t.Run("magnitude bounds", func(t *testing.T) {
		nan := math.NaN()
		records := make([]domain.HazardRecord, 0, 5)
		for _, mag := range []float64{3, 5, 15, -2, 7} {
			records = append(records, domain.HazardRecord{
				Magnitude:         mag,
				Latitude:          nan,
				Longitude:         nan,
				PopulationExposed: nan,
				Confidence:        nan,
			})
		}

		result := checkAccuracy(records)

		assert.Equal(t, 2, result.OutOfRangeCount)
		assert.Equal(t, 5, result.TotalChecks)
		assert.Equal(t, 0.6, result.Score)
		assert.Equal(t, StatusFail, result.Status)
		assert.Contains(t, result.Issues, "Field 'magnitude' has 2 values out of range [0, 10]")
	})

	t.Run("null island coordinates are out of range", func(t *testing.T) {
		records := []domain.HazardRecord{goodRecord("a"), {ID: "b", Confidence: 0.9}}

		result := checkAccuracy(records)

		assert.Contains(t, result.Issues, "1 records have invalid coordinates (0, 0)")
		assert.Less(t, result.Score, 1.0)
	})

	t.Run("in-bounds dataset scores one", func(t *testing.T) {
		result := checkAccuracy([]domain.HazardRecord{goodRecord("a")})

		assert.Equal(t, 1.0, result.Score)
		assert.Equal(t, StatusPass, result.Status)
		assert.Zero(t, result.OutOfRangeCount)
	})
}

func TestCheckConsistency(t *testing.T) {
	t.Run("duplicates and unknown vocabulary", func(t *testing.T) {
		a, b, c, d := goodRecord("a"), goodRecord("a"), goodRecord("c"), goodRecord("d")
		c.Type = "METEOR"
		d.Severity = "extreme"

		result := checkConsistency([]domain.HazardRecord{a, b, c, d})

		assert.Equal(t, 1, result.DuplicateCount)
		assert.Equal(t, 3, result.InconsistencyCount)
		assert.Equal(t, 0.25, result.Score)
		assert.Contains(t, result.Issues, "Found 1 duplicate IDs")
		assert.Contains(t, result.Issues, "Found unknown hazard types: METEOR")
		assert.Contains(t, result.Issues, "Found invalid severity levels: extreme")
	})

	t.Run("clean dataset", func(t *testing.T) {
		result := checkConsistency([]domain.HazardRecord{goodRecord("a"), goodRecord("b")})

		assert.Equal(t, 1.0, result.Score)
		assert.Equal(t, StatusPass, result.Status)
	})
}

func TestCheckTimeliness(t *testing.T) {
	freezeClock(t)

	t.Run("fresh records score one with no future flags", func(t *testing.T) {
		records := []domain.HazardRecord{
			{ID: "a", Timestamp: testNow},
			{ID: "b", Timestamp: testNow},
			{ID: "c", Timestamp: testNow},
		}

		result := checkTimeliness(records)

		assert.Equal(t, 1.0, result.Score)
		assert.Equal(t, StatusPass, result.Status)
		assert.Zero(t, result.FutureTimestamps)
		assert.Equal(t, 3, result.AgeDistribution["recent_1day"])
	})

	t.Run("age buckets weight the score", func(t *testing.T) {
		records := []domain.HazardRecord{
			{ID: "a", Timestamp: testNow.Add(-time.Hour)},           // 1.0
			{ID: "b", Timestamp: testNow.Add(-3 * 24 * time.Hour)},  // 0.9
			{ID: "c", Timestamp: testNow.Add(-20 * 24 * time.Hour)}, // 0.7
			{ID: "d", Timestamp: testNow.Add(-90 * 24 * time.Hour)}, // 0.5
		}

		result := checkTimeliness(records)

		assert.Equal(t, 0.775, result.Score)
		assert.Equal(t, StatusFail, result.Status)
		assert.Contains(t, result.Issues, "1 records are older than 30 days")
	})

	t.Run("future timestamps are flagged not penalized", func(t *testing.T) {
		records := []domain.HazardRecord{{ID: "a", Timestamp: testNow.Add(2 * time.Hour)}}

		result := checkTimeliness(records)

		assert.Equal(t, 1.0, result.Score)
		assert.Equal(t, 1, result.FutureTimestamps)
		assert.Contains(t, result.Issues, "1 records have future timestamps")
	})

	t.Run("all timestamps missing fails hard", func(t *testing.T) {
		result := checkTimeliness([]domain.HazardRecord{{ID: "a"}, {ID: "b"}})

		assert.Equal(t, 0.0, result.Score)
		assert.Equal(t, StatusFail, result.Status)
		assert.Contains(t, result.Issues, "Timestamp field is missing or empty")
	})

	t.Run("missing timestamp contributes zero weight", func(t *testing.T) {
		records := []domain.HazardRecord{
			{ID: "a", Timestamp: testNow},
			{ID: "b"},
		}

		result := checkTimeliness(records)

		assert.Equal(t, 0.5, result.Score)
	})
}

func TestCheckValidity(t *testing.T) {
	t.Run("business rules", func(t *testing.T) {
		lowConf := goodRecord("a")
		lowConf.Confidence = 0.3
		weakCritical := goodRecord("b")
		weakCritical.Severity = domain.SeverityCritical
		weakCritical.Magnitude = 3.0
		hugePop := goodRecord("c")
		hugePop.PopulationExposed = 2e8

		result := checkValidity([]domain.HazardRecord{lowConf, weakCritical, hugePop})

		assert.Equal(t, 3, result.InvalidCount)
		assert.Contains(t, result.Issues, "1 records have low confidence (<0.5)")
		assert.Contains(t, result.Issues, "1 EARTHQUAKE records marked 'critical' have low magnitude")
		assert.Contains(t, result.Issues, "1 records have unrealistic population exposure (>100M)")
		assert.Equal(t, StatusFail, result.Status)
	})

	t.Run("strong critical record is valid", func(t *testing.T) {
		r := goodRecord("a")
		r.Severity = domain.SeverityCritical
		r.Magnitude = 7.9

		result := checkValidity([]domain.HazardRecord{r})

		assert.Equal(t, 1.0, result.Score)
		assert.Zero(t, result.InvalidCount)
	})
}

func TestHistory(t *testing.T) {
	freezeClock(t)

	t.Run("bounded and ordered oldest first", func(t *testing.T) {
		m := NewMonitor(testLogger())
		m.maxHistory = 5
		for i := 0; i < 8; i++ {
			m.Assess([]domain.HazardRecord{goodRecord(fmt.Sprintf("r%d", i))}, fmt.Sprintf("s%d", i))
		}

		reports := m.History(0)

		require.Len(t, reports, 5)
		assert.Equal(t, "s3", reports[0].Source)
		assert.Equal(t, "s7", reports[4].Source)
	})

	t.Run("limit returns most recent", func(t *testing.T) {
		m := NewMonitor(testLogger())
		m.Assess([]domain.HazardRecord{goodRecord("a")}, "first")
		m.Assess([]domain.HazardRecord{goodRecord("b")}, "second")

		reports := m.History(1)

		require.Len(t, reports, 1)
		assert.Equal(t, "second", reports[0].Source)
	})

	t.Run("reset clears", func(t *testing.T) {
		m := NewMonitor(testLogger())
		m.Assess([]domain.HazardRecord{goodRecord("a")}, "s")
		m.Reset()

		assert.Empty(t, m.History(0))
	})
}

func TestCompareSources(t *testing.T) {
	t.Run("ranks by score", func(t *testing.T) {
		reports := []Report{
			{Source: "USGS", OverallScore: 0.95, OverallStatus: StatusPass, RecordCount: 10},
			{Source: "NASA", OverallScore: 0.80, OverallStatus: StatusWarning, RecordCount: 5},
			{Source: "GDACS", OverallScore: 0.60, OverallStatus: StatusFail, RecordCount: 7},
		}

		c := CompareSources(reports)

		require.Len(t, c.Sources, 3)
		assert.Equal(t, "USGS", c.BestSource)
		assert.Equal(t, "GDACS", c.WorstSource)
		assert.Equal(t, 0.95, c.AverageScores["USGS"])
	})

	t.Run("repeated sources average", func(t *testing.T) {
		reports := []Report{
			{Source: "USGS", OverallScore: 1.0},
			{Source: "USGS", OverallScore: 0.5},
			{Source: "NASA", OverallScore: 0.9},
		}

		c := CompareSources(reports)

		assert.Equal(t, 0.75, c.AverageScores["USGS"])
		assert.Equal(t, "NASA", c.BestSource)
		assert.Equal(t, "USGS", c.WorstSource)
	})

	t.Run("empty input", func(t *testing.T) {
		c := CompareSources(nil)

		assert.Empty(t, c.Sources)
		assert.Empty(t, c.BestSource)
		assert.Empty(t, c.WorstSource)
	})
}
