// Command validate performs end-to-end integrity checks over a pair of mock
// fixtures: the raw provider payloads and the unified records derived from
// them. It verifies transformation counts, vocabulary membership, merge
// invariants, and the overall quality gate.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -raw data/mock/hazard_events_raw.json \
//	  -records data/mock/hazard_records_unified.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-analytics-service/internal/domain"
	"github.com/couchcryptid/hazard-analytics-service/internal/ingest"
	"github.com/couchcryptid/hazard-analytics-service/internal/quality"
)

var baseDate = time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)

// qualityGate is the minimum overall score a regenerated fixture must reach.
const qualityGate = 0.70

// rawFixture mirrors the genmock output layout.
type rawFixture struct {
	USGS  []json.RawMessage `json:"usgs"`
	NASA  []json.RawMessage `json:"nasa"`
	GDACS []json.RawMessage `json:"gdacs"`
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rawPath := flag.String("raw", "", "path to the raw provider payload fixture")
	recordsPath := flag.String("records", "", "path to the unified record fixture")
	flag.Parse()

	if *rawPath == "" || *recordsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*rawPath, *recordsPath))
}

func run(rawPath, recordsPath string) int {
	// Fixed clock matching genmock so fallback timestamps reproduce.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate))
	defer domain.SetClock(nil)

	fixture, err := readRawFixture(rawPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading raw fixture: %v\n", err)
		return 1
	}
	records, err := readRecords(recordsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading unified fixture: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	regenerated := regenerate(fixture, logger)

	phases := []*phase{
		checkCounts(fixture, regenerated, records),
		checkVocabulary(records),
		checkMergeInvariants(records),
		checkQualityGate(records, logger),
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      %s\n", e)
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d phases failed\n", failed, len(phases))
		return 1
	}
	fmt.Printf("\nall %d phases passed\n", len(phases))
	return 0
}

func readRawFixture(path string) (rawFixture, error) {
	var fixture rawFixture
	data, err := os.ReadFile(path)
	if err != nil {
		return fixture, err
	}
	return fixture, json.Unmarshal(data, &fixture)
}

func readRecords(path string) ([]domain.HazardRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []domain.HazardRecord
	return records, json.Unmarshal(data, &records)
}

// regenerate runs the raw payloads through the real adapters and merge.
func regenerate(fixture rawFixture, logger *slog.Logger) []domain.HazardRecord {
	var datasets [][]domain.HazardRecord
	for _, pi := range []struct {
		provider string
		items    []json.RawMessage
	}{
		{"USGS", fixture.USGS},
		{"NASA", fixture.NASA},
		{"GDACS", fixture.GDACS},
	} {
		payloads := make([][]byte, len(pi.items))
		for i, item := range pi.items {
			payloads[i] = item
		}
		records, err := ingest.Transform(pi.provider, payloads, logger)
		if err != nil {
			continue
		}
		datasets = append(datasets, records)
	}
	return domain.Merge(datasets...)
}

func checkCounts(fixture rawFixture, regenerated, records []domain.HazardRecord) *phase {
	p := &phase{name: "transformation counts"}

	rawTotal := len(fixture.USGS) + len(fixture.NASA) + len(fixture.GDACS)
	if rawTotal == 0 {
		p.errorf("raw fixture is empty")
		return p
	}
	if len(records) == 0 {
		p.errorf("unified fixture is empty")
		return p
	}
	if len(regenerated) != len(records) {
		p.errorf("regenerated %d records from raw payloads, fixture has %d", len(regenerated), len(records))
	}
	if len(records) > rawTotal {
		p.errorf("unified fixture has %d records from only %d raw payloads", len(records), rawTotal)
	}
	return p
}

func checkVocabulary(records []domain.HazardRecord) *phase {
	p := &phase{name: "vocabulary membership"}

	for i := range records {
		r := &records[i]
		if r.ID == "" {
			p.errorf("record %d has empty id", i)
		}
		if !domain.KnownSources[r.Source] {
			p.errorf("record %s has unknown source %q", r.ID, r.Source)
		}
		if !domain.KnownSeverities[r.Severity] {
			p.errorf("record %s has unknown severity %q", r.ID, r.Severity)
		}
		if expected := domain.ClassifySeverity(r.Type, r.Magnitude); r.Severity != expected {
			p.errorf("record %s severity %q, classification says %q", r.ID, r.Severity, expected)
		}
	}
	return p
}

func checkMergeInvariants(records []domain.HazardRecord) *phase {
	p := &phase{name: "merge invariants"}

	type key struct {
		id string
		ts time.Time
	}
	seen := make(map[key]bool, len(records))
	for i := range records {
		k := key{records[i].ID, records[i].Timestamp}
		if seen[k] {
			p.errorf("duplicate (id, timestamp): %s @ %s", k.id, k.ts.Format(time.RFC3339))
		}
		seen[k] = true

		if i > 0 && records[i].Timestamp.After(records[i-1].Timestamp) {
			p.errorf("records out of order at index %d", i)
		}
	}

	if remerged := domain.Merge(records, records); len(remerged) != len(records) {
		p.errorf("self-merge changed record count: %d -> %d", len(records), len(remerged))
	}
	return p
}

func checkQualityGate(records []domain.HazardRecord, logger *slog.Logger) *phase {
	p := &phase{name: "quality gate"}

	report := quality.NewMonitor(logger).Assess(records, "merged")
	if report.OverallScore < qualityGate {
		p.errorf("overall quality %.4f below gate %.2f (%s)", report.OverallScore, qualityGate, report.OverallStatus)
		for _, issue := range report.Issues {
			p.errorf("issue: %s", issue)
		}
	}
	return p
}
