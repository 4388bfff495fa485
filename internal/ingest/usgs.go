package ingest

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-analytics-service/internal/domain"
)

// usgsFeature is the subset of a USGS GeoJSON earthquake feature the adapter
// consumes. Coordinates are ordered [longitude, latitude, depth].
type usgsFeature struct {
	ID         string `json:"id"`
	Properties struct {
		Mag   *float64 `json:"mag"`
		Place string   `json:"place"`
		Time  int64    `json:"time"` // epoch milliseconds
		Title string   `json:"title"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

// TransformUSGS converts USGS earthquake features into canonical records.
// Malformed items are logged and skipped.
func TransformUSGS(items [][]byte, logger *slog.Logger) []domain.HazardRecord {
	records := make([]domain.HazardRecord, 0, len(items))

	for i, item := range items {
		var f usgsFeature
		if err := json.Unmarshal(item, &f); err != nil {
			logger.Warn("skipping malformed usgs item", "index", i, "error", err)
			continue
		}

		magnitude := 0.0
		if f.Properties.Mag != nil {
			magnitude = *f.Properties.Mag
		}

		lat, lng := 0.0, 0.0
		if len(f.Geometry.Coordinates) > 1 {
			lat = f.Geometry.Coordinates[1]
		}
		if len(f.Geometry.Coordinates) > 0 {
			lng = f.Geometry.Coordinates[0]
		}

		records = append(records, domain.HazardRecord{
			ID:          f.ID,
			Type:        domain.TypeEarthquake,
			Source:      domain.SourceUSGS,
			Timestamp:   time.UnixMilli(f.Properties.Time).UTC(),
			Latitude:    lat,
			Longitude:   lng,
			Magnitude:   magnitude,
			Severity:    domain.ClassifySeverity(domain.TypeEarthquake, magnitude),
			Title:       f.Properties.Title,
			Description: f.Properties.Place,
			Confidence:  usgsConfidence,
		})
	}

	return records
}
