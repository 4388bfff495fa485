// Package ingest maps provider-shaped payloads into canonical hazard records.
//
// Each provider has its own tagged payload type, validated once at adapter
// entry. A malformed item is logged and skipped; no single bad item aborts a
// batch. Only an unrecognized provider tag is a hard error.
package ingest

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/hazard-analytics-service/internal/domain"
)

// Provider-trust priors assigned by the adapters. Seismic-network data is the
// most reliable; satellite-derived EONET events carry more positional
// uncertainty; GDACS confidence tracks its alert level.
const (
	usgsConfidence         = 0.95
	nasaConfidence         = 0.85
	gdacsDefaultConfidence = 0.75
)

// Transform dispatches a batch of raw payload items to the adapter for the
// given provider tag. The tag is matched case-insensitively. An unknown tag
// is a structural error; per-item failures inside an adapter are not.
func Transform(provider string, items [][]byte, logger *slog.Logger) ([]domain.HazardRecord, error) {
	switch strings.ToUpper(strings.TrimSpace(provider)) {
	case domain.SourceUSGS:
		return TransformUSGS(items, logger), nil
	case domain.SourceNASA:
		return TransformNASA(items, logger), nil
	case domain.SourceGDACS:
		return TransformGDACS(items, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
