package analytics

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// defaultWindowDays is used when a caller passes a non-positive window.
const defaultWindowDays = 30

// Slope bands for classifying a trend direction, in events per day.
const (
	slopeIncreasing = 0.1
	slopeDecreasing = -0.1
)

const (
	DirectionIncreasing = "increasing"
	DirectionDecreasing = "decreasing"
	DirectionStable     = "stable"
)

// minTrendDays is the minimum number of distinct event days a group needs
// before a regression is meaningful.
const minTrendDays = 3

// TrendResult is the fitted daily-count trend of one (region, type, severity)
// group inside the analysis window.
type TrendResult struct {
	Region       string  `json:"region"`
	Type         string  `json:"type"`
	Severity     string  `json:"severity"`
	Direction    string  `json:"direction"`
	Slope        float64 `json:"slope"`
	Intercept    float64 `json:"intercept"`
	RSquared     float64 `json:"r_squared"`
	PValue       float64 `json:"p_value"`
	DailyAverage float64 `json:"daily_average"`
	DataPoints   int     `json:"data_points"`
	TotalEvents  int     `json:"total_events"`
	WindowDays   int     `json:"window_days"`
}

type trendKey struct {
	region, hazardType, severity string
}

// Trends fits a least-squares line to the daily event counts of every
// (region, type, severity) group within the window. The window is anchored at
// the newest timestamp in the dataset, not the wall clock, so replayed
// historical data still produces trends. The regression runs over the sorted
// observed days indexed 0..n-1; calendar gaps between active days do not
// stretch the x-axis. Groups seen on fewer than three distinct days are
// skipped.
func Trends(records []Record, windowDays int) []TrendResult {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}

	newest, ok := maxTimestamp(records)
	if !ok {
		return []TrendResult{}
	}
	cutoff := newest.AddDate(0, 0, -windowDays)

	// Per group, count events per calendar day.
	daily := make(map[trendKey]map[string]int)
	totals := make(map[trendKey]int)
	for i := range records {
		r := &records[i]
		if r.Timestamp.IsZero() || r.Timestamp.Before(cutoff) {
			continue
		}
		key := trendKey{r.Region, r.Type, r.Severity}
		if daily[key] == nil {
			daily[key] = make(map[string]int)
		}
		daily[key][r.Date]++
		totals[key]++
	}

	results := make([]TrendResult, 0, len(daily))
	for key, counts := range daily {
		if len(counts) < minTrendDays {
			continue
		}

		dates := make([]string, 0, len(counts))
		for date := range counts {
			dates = append(dates, date)
		}
		sort.Strings(dates)

		xs := make([]float64, len(dates))
		ys := make([]float64, len(dates))
		for i, date := range dates {
			xs[i] = float64(i)
			ys[i] = float64(counts[date])
		}

		slope, intercept, r2, p := regress(xs, ys)

		results = append(results, TrendResult{
			Region:       key.region,
			Type:         key.hazardType,
			Severity:     key.severity,
			Direction:    direction(slope),
			Slope:        round4(slope),
			Intercept:    round4(intercept),
			RSquared:     round4(r2),
			PValue:       round4(p),
			DailyAverage: round4(float64(totals[key]) / float64(len(dates))),
			DataPoints:   len(dates),
			TotalEvents:  totals[key],
			WindowDays:   windowDays,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Region != results[j].Region {
			return results[i].Region < results[j].Region
		}
		if results[i].Type != results[j].Type {
			return results[i].Type < results[j].Type
		}
		return results[i].Severity < results[j].Severity
	})

	return results
}

func direction(slope float64) string {
	switch {
	case slope > slopeIncreasing:
		return DirectionIncreasing
	case slope < slopeDecreasing:
		return DirectionDecreasing
	default:
		return DirectionStable
	}
}

// regress fits y = alpha + beta*x and returns the slope, the intercept, the
// coefficient of determination, and the two-sided p-value of the slope. A
// degenerate fit (constant y, or all x equal) reports slope 0, r² 0, p 1.
func regress(xs, ys []float64) (slope, intercept, r2, p float64) {
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r := stat.Correlation(xs, ys, nil)

	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0, 0, 0, 1
	}
	if math.IsNaN(r) {
		return finite(beta), finite(alpha), 0, 1
	}
	r2 = r * r

	n := float64(len(xs))
	if n <= 2 || r2 >= 1 {
		return finite(beta), finite(alpha), finite(r2), 0
	}
	t := r * math.Sqrt((n-2)/(1-r2))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 2}
	p = 2 * dist.Survival(math.Abs(t))

	return finite(beta), finite(alpha), finite(r2), finite(p)
}

// RiskScore is the composite exposure score of one (region, type) group.
type RiskScore struct {
	Region      string  `json:"region"`
	Type        string  `json:"type"`
	RiskScore   float64 `json:"risk_score"`
	Frequency   float64 `json:"frequency"`
	Severity    float64 `json:"severity"`
	Recency     float64 `json:"recency"`
	TotalEvents int     `json:"total_events"`
	TimeWindow  int     `json:"time_window_days"`
}

// Component weights of the composite risk score.
const (
	riskWeightFrequency = 0.4
	riskWeightSeverity  = 0.4
	riskWeightRecency   = 0.2
)

// RiskScores ranks (region, type) groups by a composite of event frequency,
// mean severity level, and last-day activity inside the window. Both the
// window and the recency term anchor at the newest timestamp in the dataset,
// so replayed historical data scores the same as live data. Results are
// sorted by score descending; ties keep first-appearance order.
func RiskScores(records []Record, windowDays int) []RiskScore {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}

	newest, ok := maxTimestamp(records)
	if !ok {
		return []RiskScore{}
	}
	cutoff := newest.AddDate(0, 0, -windowDays)
	lastDay := newest.Add(-24 * time.Hour)

	type riskAgg struct {
		total        int
		severitySum  float64
		lastDayCount int
	}
	type riskKey struct {
		region, hazardType string
	}

	groups := make(map[riskKey]*riskAgg)
	var order []riskKey
	for i := range records {
		r := &records[i]
		if r.Timestamp.IsZero() || r.Timestamp.Before(cutoff) {
			continue
		}
		key := riskKey{r.Region, r.Type}
		agg := groups[key]
		if agg == nil {
			agg = &riskAgg{}
			groups[key] = agg
			order = append(order, key)
		}
		agg.total++
		agg.severitySum += r.SeverityLevel
		if !r.Timestamp.Before(lastDay) {
			agg.lastDayCount++
		}
	}

	scores := make([]RiskScore, 0, len(order))
	for _, key := range order {
		agg := groups[key]
		frequency := float64(agg.total) / float64(windowDays)
		severity := agg.severitySum / float64(agg.total)
		recency := 2 * float64(agg.lastDayCount)
		score := riskWeightFrequency*frequency + riskWeightSeverity*severity + riskWeightRecency*recency

		scores = append(scores, RiskScore{
			Region:      key.region,
			Type:        key.hazardType,
			RiskScore:   round4(finite(score)),
			Frequency:   round4(finite(frequency)),
			Severity:    round4(finite(severity)),
			Recency:     round4(recency),
			TotalEvents: agg.total,
			TimeWindow:  windowDays,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].RiskScore > scores[j].RiskScore
	})

	return scores
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
