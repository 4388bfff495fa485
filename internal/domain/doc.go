// Package domain models the unified hazard-event record that all provider
// feeds are normalized into.
//
// # Data Sources
//
// Three upstream feeds are supported, each with its own payload shape:
//
//	USGS   — earthquake GeoJSON features (id, properties.mag/place/time/title,
//	         geometry.coordinates as [lng, lat, depth]). Epoch-millisecond
//	         timestamps. Magnitudes may be negative for micro-events.
//	NASA   — EONET events (id, title, categories, a geometry list ordered
//	         oldest to newest; the latest entry carries the current position).
//	         EONET publishes no magnitude; a fixed mid-range estimate is used.
//	GDACS  — global disaster alerts (two-letter event types EQ/FL/TC/VO/WF,
//	         a Red/Orange/Green alert level, severitydata.magnitude, and an
//	         exposed-population estimate).
//
// The collector service publishes one provider payload item per Kafka message
// with the provider tag in a "provider" header; the ingest package maps each
// shape into [HazardRecord].
//
// # Canonical Conventions
//
// Hazard types are uppercase (EARTHQUAKE, WILDFIRE, FLOOD, VOLCANO, CYCLONE,
// STORM); severities are lowercase (low, medium, high, critical). Magnitude
// semantics are type-dependent: Richter-style magnitude for earthquakes,
// burned acreage for wildfires, unused for floods.
//
// Severity is derived deterministically from (type, magnitude) by
// [ClassifySeverity] using per-type threshold tables. Types without a
// threshold table always classify "low".
//
// # Deduplication
//
// Records are deduplicated on the (id, timestamp) pair by [Merge], keeping the
// first occurrence. The id alone is not sufficient: NASA EONET re-reports
// long-running events (wildfires, volcanoes) under the same id with a new
// geometry date, and those updates are distinct observations.
package domain
