// Package model holds the records that flow between the enrichment stages.
//
// Optional metrics are pointers: nil means the provider did not report the
// value, which is different from a reported zero.
package model

import (
	"encoding/json"
	"strings"
)

// Competition is the advertiser bidding intensity reported for a keyword
type Competition string

const (
	CompetitionLow     Competition = "LOW"
	CompetitionMedium  Competition = "MEDIUM"
	CompetitionHigh    Competition = "HIGH"
	CompetitionUnknown Competition = "UNKNOWN"
)

// ParseCompetition maps provider strings onto the enum; anything unrecognized is UNKNOWN
func ParseCompetition(s string) Competition {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return CompetitionLow
	case "MEDIUM":
		return CompetitionMedium
	case "HIGH":
		return CompetitionHigh
	default:
		return CompetitionUnknown
	}
}

// MonthlyVolume is one entry of a keyword's search history
type MonthlyVolume struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Volume *int64 `json:"search_volume"`
}

// MetricRecord is the normalized per-keyword result of one run
type MetricRecord struct {
	Keyword          string          `json:"keyword"`
	SearchVolume     *int64          `json:"search_volume,omitempty"`
	Competition      *Competition    `json:"competition,omitempty"`
	CompetitionIndex *float64        `json:"competition_index,omitempty"`
	CPC              *float64        `json:"cpc,omitempty"`
	BidLow           *float64        `json:"bid_low,omitempty"`
	BidHigh          *float64        `json:"bid_high,omitempty"`
	MonthlyHistory   []MonthlyVolume `json:"monthly_history,omitempty"`
	GlobalVolume     *int64          `json:"global_volume,omitempty"`
	USVolume         *int64          `json:"us_volume,omitempty"`
}

// HistoryJSON renders the monthly history the way it is exported ("" when unset)
func (m *MetricRecord) HistoryJSON() string {
	if m == nil || m.MonthlyHistory == nil {
		return ""
	}
	data, err := json.Marshal(m.MonthlyHistory)
	if err != nil {
		return ""
	}
	return string(data)
}

// Row is one input row: column name to cell value
type Row map[string]string

// EnrichedRow is an input row with the metrics matched by its normalized keyword.
// Missing rows have Metrics == nil and a Reason.
type EnrichedRow struct {
	Index   int           `json:"index"`
	Fields  Row           `json:"fields"`
	Keyword string        `json:"keyword"`
	Metrics *MetricRecord `json:"metrics,omitempty"`
	Missing bool          `json:"missing"`
	Reason  string        `json:"reason,omitempty"`
}

// PageSummary is the GSC page-level rollup
type PageSummary struct {
	Page              string  `json:"page"`
	TotalSearchVolume int64   `json:"total_search_volume"`
	TotalClicks       int64   `json:"total_clicks"`
	TotalImpressions  int64   `json:"total_impressions"`
	AvgPosition       float64 `json:"avg_position"`
	CTRPct            float64 `json:"ctr_pct"`
}

// Int64 returns a pointer to v
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v
func Float64(v float64) *float64 { return &v }

// CompetitionPtr returns a pointer to c
func CompetitionPtr(c Competition) *Competition { return &c }
