package ingest

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/couchcryptid/hazard-analytics-service/internal/domain"
)

// gdacsTypeMapping maps GDACS two-letter event types to canonical hazard
// types. Unrecognized types map to UNKNOWN rather than being rejected.
var gdacsTypeMapping = map[string]string{
	"EQ": domain.TypeEarthquake,
	"FL": domain.TypeFlood,
	"TC": domain.TypeCyclone,
	"VO": domain.TypeVolcano,
	"WF": domain.TypeWildfire,
}

// gdacsAlertConfidence maps GDACS alert levels to provider-trust priors.
// Unrecognized levels fall back to gdacsDefaultConfidence.
var gdacsAlertConfidence = map[string]float64{
	"Red":    0.95,
	"Orange": 0.85,
	"Green":  0.70,
}

// flexibleID accepts either a JSON string or number; GDACS switched id types
// between API versions.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

// gdacsEvent is the subset of a GDACS alert the adapter consumes.
type gdacsEvent struct {
	ID           flexibleID `json:"id"`
	EventType    string     `json:"eventtype"`
	AlertLevel   string     `json:"alertlevel"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	FromDate     string     `json:"fromdate"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	SeverityData struct {
		Magnitude float64 `json:"magnitude"`
	} `json:"severitydata"`
	Population struct {
		Value float64 `json:"value"`
	} `json:"population"`
}

// TransformGDACS converts GDACS alerts into canonical records. Malformed
// items are logged and skipped.
func TransformGDACS(items [][]byte, logger *slog.Logger) []domain.HazardRecord {
	records := make([]domain.HazardRecord, 0, len(items))

	for i, item := range items {
		var e gdacsEvent
		if err := json.Unmarshal(item, &e); err != nil {
			logger.Warn("skipping malformed gdacs item", "index", i, "error", err)
			continue
		}

		hazardType, ok := gdacsTypeMapping[e.EventType]
		if !ok {
			hazardType = domain.TypeUnknown
		}

		confidence, ok := gdacsAlertConfidence[e.AlertLevel]
		if !ok {
			confidence = gdacsDefaultConfidence
		}

		records = append(records, domain.HazardRecord{
			ID:                string(e.ID),
			Type:              hazardType,
			Source:            domain.SourceGDACS,
			Timestamp:         parseEventTime(e.FromDate, logger),
			Latitude:          e.Latitude,
			Longitude:         e.Longitude,
			Magnitude:         e.SeverityData.Magnitude,
			Severity:          domain.ClassifySeverity(hazardType, e.SeverityData.Magnitude),
			Title:             e.Name,
			Description:       e.Description,
			PopulationExposed: e.Population.Value,
			Confidence:        confidence,
		})
	}

	return records
}
