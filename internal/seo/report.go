package seo

import "encoding/json"

// ReportKind discriminates the three KeywordReport shapes.
type ReportKind string

// Keyword report shapes.
const (
	ReportFull     ReportKind = "full"
	ReportDegraded ReportKind = "degraded"
	ReportError    ReportKind = "error"
)

// SERPUnavailable marks degraded reports whose SERP task never completed.
const SERPUnavailable = "SERP data unavailable"

// KeywordReport is the per-keyword record of an audit. Which fields are
// populated depends on Kind; use the constructors below.
type KeywordReport struct {
	Keyword               string     `json:"keyword"`
	Kind                  ReportKind `json:"kind"`
	Position              int        `json:"position"`
	EstimatedTraffic      float64    `json:"estimated_traffic"`
	EstimatedTrafficValue float64    `json:"estimated_traffic_value"`
	SearchVolume          int        `json:"search_volume"`
	Difficulty            int        `json:"difficulty"`
	CostPerClick          float64    `json:"cpc"`
	Top5Competitors       []string   `json:"top5_competitors"`
	SERPFeatures          []string   `json:"serp_features,omitempty"`
	SERPStatus            string     `json:"serp_status,omitempty"`
	ErrorReason           string     `json:"error_reason,omitempty"`
}

// MarshalJSON writes only the fields of the report's shape: degraded records
// carry no SERP fields and error records only the keyword and the reason.
func (r KeywordReport) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ReportDegraded:
		return json.Marshal(degradedWire{
			Keyword:      r.Keyword,
			Kind:         r.Kind,
			SearchVolume: r.SearchVolume,
			Difficulty:   r.Difficulty,
			CostPerClick: r.CostPerClick,
			SERPStatus:   r.SERPStatus,
		})
	case ReportError:
		return json.Marshal(errorWire{Keyword: r.Keyword, Kind: r.Kind, ErrorReason: r.ErrorReason})
	default:
		type full KeywordReport
		return json.Marshal(full(r))
	}
}

type degradedWire struct {
	Keyword      string     `json:"keyword"`
	Kind         ReportKind `json:"kind"`
	SearchVolume int        `json:"search_volume"`
	Difficulty   int        `json:"difficulty"`
	CostPerClick float64    `json:"cpc"`
	SERPStatus   string     `json:"serp_status"`
}

type errorWire struct {
	Keyword     string     `json:"keyword"`
	Kind        ReportKind `json:"kind"`
	ErrorReason string     `json:"error_reason"`
}

// Usable reports whether the record carries any keyword data.
func (r KeywordReport) Usable() bool {
	return r.Kind == ReportFull || r.Kind == ReportDegraded
}

// FullReport builds a complete record.
func FullReport(
	keyword string,
	metrics KeywordMetrics,
	position int,
	traffic float64,
	value float64,
	competitors []string,
	features []string,
) KeywordReport {
	if competitors == nil {
		competitors = []string{}
	}
	return KeywordReport{
		Keyword:               keyword,
		Kind:                  ReportFull,
		Position:              position,
		EstimatedTraffic:      traffic,
		EstimatedTrafficValue: value,
		SearchVolume:          metrics.SearchVolume,
		Difficulty:            metrics.Difficulty,
		CostPerClick:          metrics.CostPerClick,
		Top5Competitors:       competitors,
		SERPFeatures:          features,
	}
}

// DegradedReport builds a metrics-only record. status explains why the SERP
// side is missing.
func DegradedReport(keyword string, metrics KeywordMetrics, status string) KeywordReport {
	if status == "" {
		status = SERPUnavailable
	}
	return KeywordReport{
		Keyword:         keyword,
		Kind:            ReportDegraded,
		SearchVolume:    metrics.SearchVolume,
		Difficulty:      metrics.Difficulty,
		CostPerClick:    metrics.CostPerClick,
		Top5Competitors: []string{},
		SERPStatus:      status,
	}
}

// ErrorReport builds a record for a keyword with no usable data.
func ErrorReport(keyword, reason string) KeywordReport {
	return KeywordReport{
		Keyword:         keyword,
		Kind:            ReportError,
		Top5Competitors: []string{},
		ErrorReason:     reason,
	}
}
