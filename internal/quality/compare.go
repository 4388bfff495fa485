package quality

// SourceScore summarizes one report inside a cross-source comparison.
type SourceScore struct {
	Source      string  `json:"source"`
	Score       float64 `json:"score"`
	Status      string  `json:"status"`
	RecordCount int     `json:"record_count"`
}

// SourceComparison ranks a set of per-source reports.
type SourceComparison struct {
	Sources       []SourceScore      `json:"sources"`
	AverageScores map[string]float64 `json:"average_scores"`
	BestSource    string             `json:"best_source"`
	WorstSource   string             `json:"worst_source"`
}

// CompareSources ranks reports by overall score. When a source appears more
// than once its scores are averaged. Ties resolve to the earlier report, so
// the result is deterministic for a fixed input order.
func CompareSources(reports []Report) SourceComparison {
	comparison := SourceComparison{
		Sources:       make([]SourceScore, 0, len(reports)),
		AverageScores: make(map[string]float64, len(reports)),
	}
	if len(reports) == 0 {
		return comparison
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	var order []string

	for _, r := range reports {
		comparison.Sources = append(comparison.Sources, SourceScore{
			Source:      r.Source,
			Score:       r.OverallScore,
			Status:      r.OverallStatus,
			RecordCount: r.RecordCount,
		})
		if counts[r.Source] == 0 {
			order = append(order, r.Source)
		}
		sums[r.Source] += r.OverallScore
		counts[r.Source]++
	}

	for _, source := range order {
		comparison.AverageScores[source] = round4(sums[source] / float64(counts[source]))
	}

	best, worst := order[0], order[0]
	for _, source := range order[1:] {
		if comparison.AverageScores[source] > comparison.AverageScores[best] {
			best = source
		}
		if comparison.AverageScores[source] < comparison.AverageScores[worst] {
			worst = source
		}
	}
	comparison.BestSource = best
	comparison.WorstSource = worst

	return comparison
}
