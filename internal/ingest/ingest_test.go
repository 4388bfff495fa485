package ingest

import (
	"io"
	"log/slog"
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

func TestTransformUSGS(t *testing.T) {
	t.Run("earthquake feature", func(t *testing.T) {
		data := []byte(`{"id":"us7000m9ux","properties":{"mag":5.8,"place":"22 km SE of Ridgecrest, CA","time":1701234567890,"title":"M 5.8 - California"},"geometry":{"coordinates":[-118.123,34.567,10.0]}}`)

		records := TransformUSGS([][]byte{data}, testLogger())

		require.Len(t, records, 1)
		r := records[0]
		assert.Equal(t, "us7000m9ux", r.ID)
		assert.Equal(t, domain.TypeEarthquake, r.Type)
		assert.Equal(t, domain.SourceUSGS, r.Source)
		assert.Equal(t, time.UnixMilli(1701234567890).UTC(), r.Timestamp)
		assert.Equal(t, 34.567, r.Latitude)
		assert.Equal(t, -118.123, r.Longitude)
		assert.Equal(t, 5.8, r.Magnitude)
		assert.Equal(t, domain.SeverityMedium, r.Severity)
		assert.Equal(t, "M 5.8 - California", r.Title)
		assert.Equal(t, "22 km SE of Ridgecrest, CA", r.Description)
		assert.Equal(t, 0.95, r.Confidence)
	})

	t.Run("missing magnitude defaults to zero", func(t *testing.T) {
		data := []byte(`{"id":"us1","properties":{"place":"somewhere","time":0},"geometry":{"coordinates":[10,20]}}`)

		records := TransformUSGS([][]byte{data}, testLogger())

		require.Len(t, records, 1)
		assert.Equal(t, 0.0, records[0].Magnitude)
		assert.Equal(t, domain.SeverityLow, records[0].Severity)
	})

	t.Run("malformed item is skipped", func(t *testing.T) {
		good := []byte(`{"id":"us2","properties":{"mag":7.6,"time":1701234567890},"geometry":{"coordinates":[100,-5]}}`)
		bad := []byte(`{not json`)

		records := TransformUSGS([][]byte{bad, good}, testLogger())

		require.Len(t, records, 1)
		assert.Equal(t, "us2", records[0].ID)
		assert.Equal(t, domain.SeverityCritical, records[0].Severity)
	})

	t.Run("empty batch", func(t *testing.T) {
		records := TransformUSGS(nil, testLogger())
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})
}

func TestTransformNASA(t *testing.T) {
	t.Run("wildfire event uses latest geometry", func(t *testing.T) {
		data := []byte(`{"id":"EONET_12345","title":"Wildfire - California","categories":[{"id":"wildfires","title":"Wildfires"}],"geometry":[{"date":"2024-01-10T00:00:00Z","coordinates":[-120.0,36.0]},{"date":"2024-01-15T00:00:00Z","coordinates":[-118.123,34.567]}]}`)

		records := TransformNASA([][]byte{data}, testLogger())

		require.Len(t, records, 1)
		r := records[0]
		assert.Equal(t, "EONET_12345", r.ID)
		assert.Equal(t, domain.TypeWildfire, r.Type)
		assert.Equal(t, domain.SourceNASA, r.Source)
		assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), r.Timestamp)
		assert.Equal(t, 34.567, r.Latitude)
		assert.Equal(t, -118.123, r.Longitude)
		assert.Equal(t, 500.0, r.Magnitude)
		assert.Equal(t, domain.SeverityLow, r.Severity)
		assert.Equal(t, 0.85, r.Confidence)
	})

	t.Run("category mapping", func(t *testing.T) {
		tests := []struct {
			category string
			expected string
		}{
			{"Wildfires", domain.TypeWildfire},
			{"Severe Storms", domain.TypeStorm},
			{"Floods", domain.TypeFlood},
			{"Volcanoes", domain.TypeVolcano},
			{"Sea and Lake Ice", "SEA AND LAKE ICE"}, // permissive passthrough
		}
		for _, tt := range tests {
			data := []byte(`{"id":"e","title":"t","categories":[{"title":"` + tt.category + `"}],"geometry":[{"date":"2024-01-15T00:00:00Z","coordinates":[1,2]}]}`)
			records := TransformNASA([][]byte{data}, testLogger())
			require.Len(t, records, 1, tt.category)
			assert.Equal(t, tt.expected, records[0].Type, tt.category)
		}
	})

	t.Run("event without geometry is skipped", func(t *testing.T) {
		data := []byte(`{"id":"EONET_1","title":"t","categories":[{"title":"Wildfires"}],"geometry":[]}`)

		records := TransformNASA([][]byte{data}, testLogger())

		assert.Empty(t, records)
	})

	t.Run("missing date defaults to now", func(t *testing.T) {
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		domain.SetClock(clockwork.NewFakeClockAt(now))
		defer domain.SetClock(nil)

		data := []byte(`{"id":"e","title":"t","categories":[{"title":"Wildfires"}],"geometry":[{"coordinates":[1,2]}]}`)

		records := TransformNASA([][]byte{data}, testLogger())

		require.Len(t, records, 1)
		assert.Equal(t, now, records[0].Timestamp)
	})

	t.Run("unparsable date degrades to zero time", func(t *testing.T) {
		data := []byte(`{"id":"e","title":"t","categories":[{"title":"Wildfires"}],"geometry":[{"date":"not a date","coordinates":[1,2]}]}`)

		records := TransformNASA([][]byte{data}, testLogger())

		require.Len(t, records, 1)
		assert.True(t, records[0].Timestamp.IsZero())
	})
}

func TestTransformGDACS(t *testing.T) {
	t.Run("earthquake alert", func(t *testing.T) {
		data := []byte(`{"id":"gdacs_123","eventtype":"EQ","alertlevel":"Orange","name":"Earthquake M6.5","description":"strong quake","fromdate":"2024-01-15T12:00:00","latitude":34.567,"longitude":-118.123,"severitydata":{"magnitude":6.5},"population":{"value":1000000}}`)

		records := TransformGDACS([][]byte{data}, testLogger())

		require.Len(t, records, 1)
		r := records[0]
		assert.Equal(t, "gdacs_123", r.ID)
		assert.Equal(t, domain.TypeEarthquake, r.Type)
		assert.Equal(t, domain.SourceGDACS, r.Source)
		assert.Equal(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), r.Timestamp)
		assert.Equal(t, 6.5, r.Magnitude)
		assert.Equal(t, domain.SeverityHigh, r.Severity)
		assert.Equal(t, 1000000.0, r.PopulationExposed)
		assert.Equal(t, 0.85, r.Confidence)
	})

	t.Run("numeric id", func(t *testing.T) {
		data := []byte(`{"id":4521,"eventtype":"FL","alertlevel":"Green","fromdate":"2024-01-15T12:00:00"}`)

		records := TransformGDACS([][]byte{data}, testLogger())

		require.Len(t, records, 1)
		assert.Equal(t, "4521", records[0].ID)
		assert.Equal(t, domain.TypeFlood, records[0].Type)
		assert.Equal(t, 0.70, records[0].Confidence)
	})

	t.Run("alert level confidence mapping", func(t *testing.T) {
		tests := []struct {
			level    string
			expected float64
		}{
			{"Red", 0.95},
			{"Orange", 0.85},
			{"Green", 0.70},
			{"Purple", 0.75}, // unrecognized level keeps the permissive default
			{"", 0.75},
		}
		for _, tt := range tests {
			data := []byte(`{"id":"g","eventtype":"EQ","alertlevel":"` + tt.level + `","fromdate":"2024-01-15T12:00:00"}`)
			records := TransformGDACS([][]byte{data}, testLogger())
			require.Len(t, records, 1, tt.level)
			assert.Equal(t, tt.expected, records[0].Confidence, tt.level)
		}
	})

	t.Run("unknown event type", func(t *testing.T) {
		data := []byte(`{"id":"g","eventtype":"DR","alertlevel":"Green","fromdate":"2024-01-15T12:00:00","severitydata":{"magnitude":3}}`)

		records := TransformGDACS([][]byte{data}, testLogger())

		require.Len(t, records, 1)
		assert.Equal(t, domain.TypeUnknown, records[0].Type)
		assert.Equal(t, domain.SeverityLow, records[0].Severity)
	})
}

func TestTransform(t *testing.T) {
	t.Run("dispatches by provider tag", func(t *testing.T) {
		data := [][]byte{[]byte(`{"id":"us1","properties":{"mag":4.0,"time":1701234567890},"geometry":{"coordinates":[1,2]}}`)}

		for _, tag := range []string{"USGS", "usgs", " Usgs "} {
			records, err := Transform(tag, data, testLogger())
			require.NoError(t, err, tag)
			require.Len(t, records, 1, tag)
			assert.Equal(t, domain.SourceUSGS, records[0].Source)
		}
	})

	t.Run("unknown provider is a hard error", func(t *testing.T) {
		_, err := Transform("EMDAT", nil, testLogger())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})
}
