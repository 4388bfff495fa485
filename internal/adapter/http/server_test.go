package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/hazard-analytics-service/internal/adapter/http"
	"github.com/couchcryptid/hazard-analytics-service/internal/domain"
	"github.com/couchcryptid/hazard-analytics-service/internal/observability"
	"github.com/couchcryptid/hazard-analytics-service/internal/quality"
	"github.com/couchcryptid/hazard-analytics-service/internal/store"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

// spyCache records cache traffic so tests can assert hit behavior.
type spyCache struct {
	entries map[string][]byte
	hits    int
	puts    int
}

func newSpyCache() *spyCache {
	return &spyCache{entries: make(map[string][]byte)}
}

func (c *spyCache) Get(key string) ([]byte, bool) {
	data, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return data, ok
}

func (c *spyCache) Put(key string, value []byte) {
	c.puts++
	c.entries[key] = value
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededDataset() *store.Store {
	s := store.New(0)
	s.Add([]domain.HazardRecord{
		{ID: "us1", Type: domain.TypeEarthquake, Source: domain.SourceUSGS, Severity: domain.SeverityMedium,
			Timestamp: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), Latitude: 35.68, Longitude: 139.69, Magnitude: 5.8, Confidence: 0.95},
		{ID: "us2", Type: domain.TypeEarthquake, Source: domain.SourceUSGS, Severity: domain.SeverityLow,
			Timestamp: time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC), Latitude: 36.0, Longitude: 140.0, Magnitude: 4.1, Confidence: 0.95},
		{ID: "EONET_1", Type: domain.TypeWildfire, Source: domain.SourceNASA, Severity: domain.SeverityLow,
			Timestamp: time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC), Latitude: 34.05, Longitude: -118.24, Magnitude: 500, Confidence: 0.85},
	})
	return s
}

type testServer struct {
	srv     *httpadapter.Server
	cache   *spyCache
	monitor *quality.Monitor
}

func newTestServer(readyErr error) *testServer {
	dataset := seededDataset()
	monitor := quality.NewMonitor(testLogger())
	monitor.Assess(dataset.Snapshot(), "merged")
	cache := newSpyCache()

	srv := httpadapter.NewServer(":0", httpadapter.Deps{
		Dataset:         dataset,
		Monitor:         monitor,
		Ready:           &mockReadiness{err: readyErr},
		Cache:           cache,
		Metrics:         observability.NewMetricsForTesting(),
		TrendWindowDays: 30,
		Logger:          testLogger(),
	})
	return &testServer{srv: srv, cache: cache, monitor: monitor}
}

func (ts *testServer) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	ts.srv.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		rec, _ := newTestServer(nil).get(t, "/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readyz ready", func(t *testing.T) {
		rec, _ := newTestServer(nil).get(t, "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readyz not ready", func(t *testing.T) {
		rec, _ := newTestServer(errors.New("no messages yet")).get(t, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		ts := newTestServer(nil)
		rec := httptest.NewRecorder()
		ts.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "go_goroutines")
	})
}

func TestSummaryEndpoint(t *testing.T) {
	t.Run("whole dataset", func(t *testing.T) {
		rec, body := newTestServer(nil).get(t, "/v1/summary")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(3), body["total_events"])
		byType := body["by_type"].(map[string]any)
		assert.Equal(t, float64(2), byType[domain.TypeEarthquake])
	})

	t.Run("type filter", func(t *testing.T) {
		rec, body := newTestServer(nil).get(t, "/v1/summary?type=wildfire")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), body["total_events"])
	})

	t.Run("invalid start is a 400", func(t *testing.T) {
		rec, body := newTestServer(nil).get(t, "/v1/summary?start=yesterday")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, body["error"], "invalid start")
	})

	t.Run("repeated requests hit the cache", func(t *testing.T) {
		ts := newTestServer(nil)

		_, first := ts.get(t, "/v1/summary")
		_, second := ts.get(t, "/v1/summary")

		assert.Equal(t, first, second)
		assert.Equal(t, 1, ts.cache.puts)
		assert.Equal(t, 1, ts.cache.hits)
	})
}

func TestRecordsEndpoint(t *testing.T) {
	t.Run("returns enriched records", func(t *testing.T) {
		rec, body := newTestServer(nil).get(t, "/v1/records")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(3), body["count"])
		records := body["records"].([]any)
		first := records[0].(map[string]any)
		// Newest first, with derived dimensions attached.
		assert.Equal(t, "EONET_1", first["id"])
		assert.Equal(t, "North America", first["region"])
		assert.Equal(t, "2024-01", first["yearMonth"])
	})

	t.Run("limit", func(t *testing.T) {
		_, body := newTestServer(nil).get(t, "/v1/records?limit=2")

		assert.Equal(t, float64(2), body["count"])
	})
}

func TestPivotEndpoint(t *testing.T) {
	ts := newTestServer(nil)
	reqBody := `{"time_dim":"yearMonth","agg":"count"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/pivot", strings.NewReader(reqBody))
	ts.srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	cells := body["cells"].(map[string]any)
	row := cells["2024-01|Asia-Pacific"].(map[string]any)
	assert.Equal(t, float64(1), row["EARTHQUAKE|medium"])
	assert.Equal(t, float64(1), row["EARTHQUAKE|low"])

	table := body["table"].(map[string]any)
	opts := table["options"].(map[string]any)
	assert.Equal(t, "yearMonth", opts["time_dim"])
	assert.Equal(t, "region", opts["geo_dim"])
}

func TestTrendsEndpoint(t *testing.T) {
	rec, _ := newTestServer(nil).get(t, "/v1/trends?window=7")

	// The seeded dataset has no group with three distinct days, so the body
	// is an empty array.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRiskEndpoint(t *testing.T) {
	ts := newTestServer(nil)
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/risk?window=7", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var scores []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scores))
	require.Len(t, scores, 2)
	assert.GreaterOrEqual(t, scores[0]["risk_score"].(float64), scores[1]["risk_score"].(float64))
}

func TestQualityEndpoints(t *testing.T) {
	t.Run("history", func(t *testing.T) {
		ts := newTestServer(nil)
		rec := httptest.NewRecorder()
		ts.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/quality/history", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var reports []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
		require.Len(t, reports, 1)
		assert.Equal(t, "merged", reports[0]["source"])
		assert.Equal(t, float64(3), reports[0]["record_count"])
	})

	t.Run("compare", func(t *testing.T) {
		ts := newTestServer(nil)
		ts.monitor.Assess(seededDataset().Snapshot(), "USGS")

		rec, body := ts.get(t, "/v1/quality/compare")

		require.Equal(t, http.StatusOK, rec.Code)
		sources := body["sources"].([]any)
		assert.Len(t, sources, 2)
		assert.NotEmpty(t, body["best_source"])
	})
}
