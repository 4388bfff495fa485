// Command genmock generates deterministic mock provider payloads and runs
// them through the real ingestion adapters, producing paired raw and unified
// fixtures for test suites and local replay.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -raw-out data/mock/hazard_events_raw.json \
//	  -records-out data/mock/hazard_records_unified.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-analytics-service/internal/analytics"
	"github.com/couchcryptid/hazard-analytics-service/internal/domain"
	"github.com/couchcryptid/hazard-analytics-service/internal/ingest"
	"github.com/couchcryptid/hazard-analytics-service/internal/quality"
)

var baseDate = time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)

// Hazard hotspots the generator scatters events around.
var hotspots = []struct {
	name     string
	lat, lng float64
}{
	{"japan", 36.2, 138.3},
	{"california", 36.8, -119.4},
	{"chile", -35.7, -71.5},
	{"indonesia", -2.5, 118.0},
	{"italy", 41.9, 12.6},
	{"kenya", 0.2, 37.9},
}

// rawFixture groups raw payloads by provider tag.
type rawFixture struct {
	USGS  []json.RawMessage `json:"usgs"`
	NASA  []json.RawMessage `json:"nasa"`
	GDACS []json.RawMessage `json:"gdacs"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rawOut := flag.String("raw-out", "", "output path for the raw provider payload fixture")
	recordsOut := flag.String("records-out", "", "output path for the unified record fixture")
	perProvider := flag.Int("per-provider", 50, "events to generate per provider")
	flag.Parse()

	if *rawOut == "" || *recordsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -raw-out, -records-out")
	}

	// Fixed clock and seed for reproducible fixtures.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate))
	defer domain.SetClock(nil)
	rng := rand.New(rand.NewSource(20240131))

	fixture := rawFixture{
		USGS:  generateUSGS(rng, *perProvider),
		NASA:  generateNASA(rng, *perProvider),
		GDACS: generateGDACS(rng, *perProvider),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Fixed provider order keeps tie-breaking in the merge deterministic.
	providerItems := []struct {
		provider string
		items    []json.RawMessage
	}{
		{"USGS", fixture.USGS},
		{"NASA", fixture.NASA},
		{"GDACS", fixture.GDACS},
	}

	datasets := make([][]domain.HazardRecord, 0, len(providerItems))
	for _, pi := range providerItems {
		provider, items := pi.provider, pi.items
		payloads := make([][]byte, len(items))
		for i, item := range items {
			payloads[i] = item
		}
		records, err := ingest.Transform(provider, payloads, logger)
		if err != nil {
			return fmt.Errorf("transforming %s payloads: %w", provider, err)
		}
		datasets = append(datasets, records)
		log.Printf("%s: %d records", provider, len(records))
	}

	merged := domain.Merge(datasets...)
	log.Printf("merged: %d records", len(merged))

	if err := writeJSON(*rawOut, fixture); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s", *rawOut)

	if err := writeJSON(*recordsOut, merged); err != nil {
		return fmt.Errorf("writing unified fixture: %w", err)
	}
	log.Printf("wrote unified fixture: %s", *recordsOut)

	printStats(merged)
	return nil
}

// scatter returns a hotspot location with some jitter.
func scatter(rng *rand.Rand) (float64, float64) {
	h := hotspots[rng.Intn(len(hotspots))]
	return h.lat + rng.Float64()*4 - 2, h.lng + rng.Float64()*4 - 2
}

// eventTime spreads events over the 30 days leading up to the base date.
func eventTime(rng *rand.Rand) time.Time {
	return baseDate.Add(-time.Duration(rng.Intn(30*24)) * time.Hour)
}

func generateUSGS(rng *rand.Rand, n int) []json.RawMessage {
	items := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		lat, lng := scatter(rng)
		mag := 2.5 + rng.Float64()*5.5
		ts := eventTime(rng)
		item := map[string]any{
			"id": fmt.Sprintf("us7000m%03d", i),
			"properties": map[string]any{
				"mag":   mag,
				"place": fmt.Sprintf("%d km from somewhere", rng.Intn(100)),
				"time":  ts.UnixMilli(),
				"title": fmt.Sprintf("M %.1f earthquake", mag),
			},
			"geometry": map[string]any{
				"coordinates": []float64{lng, lat, rng.Float64() * 50},
			},
		}
		items = append(items, mustMarshal(item))
	}
	return items
}

func generateNASA(rng *rand.Rand, n int) []json.RawMessage {
	categories := []string{"Wildfires", "Severe Storms", "Floods", "Volcanoes"}
	items := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		lat, lng := scatter(rng)
		category := categories[rng.Intn(len(categories))]
		item := map[string]any{
			"id":    fmt.Sprintf("EONET_%04d", i),
			"title": fmt.Sprintf("%s event %d", category, i),
			"categories": []map[string]any{
				{"id": category, "title": category},
			},
			"geometry": []map[string]any{
				{"date": eventTime(rng).Format(time.RFC3339), "coordinates": []float64{lng, lat}},
			},
		}
		items = append(items, mustMarshal(item))
	}
	return items
}

func generateGDACS(rng *rand.Rand, n int) []json.RawMessage {
	types := []string{"EQ", "FL", "TC", "VO", "WF"}
	alerts := []string{"Green", "Orange", "Red"}
	items := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		lat, lng := scatter(rng)
		eventType := types[rng.Intn(len(types))]
		item := map[string]any{
			"id":         1000 + i,
			"eventtype":  eventType,
			"alertlevel": alerts[rng.Intn(len(alerts))],
			"name":       fmt.Sprintf("%s alert %d", eventType, i),
			"fromdate":   eventTime(rng).Format("2006-01-02T15:04:05"),
			"latitude":   lat,
			"longitude":  lng,
			"severitydata": map[string]any{
				"magnitude": rng.Float64() * 8,
			},
			"population": map[string]any{
				"value": float64(rng.Intn(2_000_000)),
			},
		}
		items = append(items, mustMarshal(item))
	}
	return items
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Fatalf("marshal mock item: %v", err)
	}
	return data
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(records []domain.HazardRecord) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	report := quality.NewMonitor(logger).Assess(records, "merged")
	summary := analytics.Summarize(analytics.Enrich(records))

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", summary.TotalEvents)
	fmt.Printf("By type: %v\n", summary.ByType)
	fmt.Printf("By severity: %v\n", summary.BySeverity)
	fmt.Printf("By region: %v\n", summary.ByRegion)
	fmt.Printf("By source: %v\n", summary.BySource)
	if summary.TimeRange != nil {
		fmt.Printf("Time range: %s .. %s (%d days)\n",
			summary.TimeRange.Start.Format(time.RFC3339),
			summary.TimeRange.End.Format(time.RFC3339),
			summary.TimeRange.Days)
	}
	fmt.Printf("Quality: %.4f (%s)\n", report.OverallScore, report.OverallStatus)
	for _, issue := range report.Issues {
		fmt.Printf("  issue: %s\n", issue)
	}
}
