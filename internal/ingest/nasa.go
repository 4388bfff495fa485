package ingest

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/hazard-analytics-service/internal/domain"
)

// nasaCategoryMapping maps EONET category titles (lowercased) to canonical
// hazard types. Unrecognized categories pass through uppercased rather than
// being rejected; the quality monitor flags them as unknown types.
var nasaCategoryMapping = map[string]string{
	"wildfires":     domain.TypeWildfire,
	"severe storms": domain.TypeStorm,
	"floods":        domain.TypeFlood,
	"volcanoes":     domain.TypeVolcano,
}

// nasaEstimatedMagnitude stands in for EONET events, which carry no magnitude.
// 500 acres sits mid-range for the wildfire threshold table.
const nasaEstimatedMagnitude = 500.0

// nasaEvent is the subset of a NASA EONET event the adapter consumes. The
// geometry list is ordered oldest to newest; the last entry is current.
type nasaEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Categories  []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"categories"`
	Geometry []struct {
		Date        string    `json:"date"`
		Coordinates []float64 `json:"coordinates"` // [longitude, latitude]
	} `json:"geometry"`
}

// TransformNASA converts NASA EONET events into canonical records. Events
// without any geometry are skipped; malformed items are logged and skipped.
func TransformNASA(items [][]byte, logger *slog.Logger) []domain.HazardRecord {
	records := make([]domain.HazardRecord, 0, len(items))

	for i, item := range items {
		var e nasaEvent
		if err := json.Unmarshal(item, &e); err != nil {
			logger.Warn("skipping malformed nasa item", "index", i, "error", err)
			continue
		}
		if len(e.Geometry) == 0 {
			logger.Warn("skipping nasa event without geometry", "index", i, "id", e.ID)
			continue
		}

		hazardType := domain.TypeUnknown
		if len(e.Categories) > 0 {
			category := strings.ToLower(strings.TrimSpace(e.Categories[0].Title))
			if mapped, ok := nasaCategoryMapping[category]; ok {
				hazardType = mapped
			} else if category != "" {
				hazardType = strings.ToUpper(category)
			}
		}

		latest := e.Geometry[len(e.Geometry)-1]
		lat, lng := 0.0, 0.0
		if len(latest.Coordinates) > 1 {
			lat = latest.Coordinates[1]
		}
		if len(latest.Coordinates) > 0 {
			lng = latest.Coordinates[0]
		}

		records = append(records, domain.HazardRecord{
			ID:          e.ID,
			Type:        hazardType,
			Source:      domain.SourceNASA,
			Timestamp:   parseEventTime(latest.Date, logger),
			Latitude:    lat,
			Longitude:   lng,
			Magnitude:   nasaEstimatedMagnitude,
			Severity:    domain.ClassifySeverity(hazardType, nasaEstimatedMagnitude),
			Title:       e.Title,
			Description: e.Description,
			Confidence:  nasaConfidence,
		})
	}

	return records
}

// parseEventTime parses a provider timestamp. An absent value defaults to the
// current time (the feed omits dates only for just-opened events); an
// unparsable value degrades to the zero time, which the quality monitor
// counts as missing.
func parseEventTime(value string, logger *slog.Logger) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.Now().UTC()
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC()
	}
	// GDACS omits the zone designator.
	if t, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return t.UTC()
	}
	logger.Warn("unparsable event timestamp", "value", value)
	return time.Time{}
}
