package table

import (
	"strings"

	"keyword-enricher/pkg/enricher"
	"keyword-enricher/pkg/model"
)

// Sheet names used in exported workbooks
const (
	SheetKeywords    = "Keywords"
	SheetPageSummary = "Page Summary"
	SheetWarnings    = "Warnings"
)

// Layout selects which metric column groups the Keywords sheet carries
type Layout struct {
	Ads         bool
	Clickstream bool
}

// LayoutForMode returns the columns a run mode can fill
func LayoutForMode(mode string) Layout {
	switch strings.ToLower(mode) {
	case "clickstream":
		return Layout{Clickstream: true}
	case "dual":
		return Layout{Ads: true, Clickstream: true}
	default:
		return Layout{Ads: true}
	}
}

var (
	adsColumns = []string{
		"Search Volume", "Competition", "Competition Index", "CPC",
		"Low Top of Page Bid", "High Top of Page Bid", "Monthly Searches",
	}
	clickstreamColumns = []string{"Global Volume", "US Volume"}
)

// StatusColumn holds "ok" or the reason a row has no metrics
const StatusColumn = "Enrichment Status"

// KeywordsSheet lays the enriched rows out after the original columns.
// Unreported metrics are empty cells, never zero.
func KeywordsSheet(header []string, rows []model.EnrichedRow, layout Layout) *Sheet {
	s := &Sheet{Name: SheetKeywords}
	s.Header = append(s.Header, header...)
	if layout.Ads {
		s.Header = append(s.Header, adsColumns...)
	}
	if layout.Clickstream {
		s.Header = append(s.Header, clickstreamColumns...)
	}
	s.Header = append(s.Header, StatusColumn)

	for _, row := range rows {
		cells := make([]interface{}, 0, len(s.Header))
		for _, col := range header {
			cells = append(cells, row.Fields[col])
		}

		m := row.Metrics
		if layout.Ads {
			if m == nil {
				cells = append(cells, make([]interface{}, len(adsColumns))...)
			} else {
				cells = append(cells,
					int64Cell(m.SearchVolume),
					competitionCell(m.Competition),
					float64Cell(m.CompetitionIndex),
					float64Cell(m.CPC),
					float64Cell(m.BidLow),
					float64Cell(m.BidHigh),
					stringCell(m.HistoryJSON()),
				)
			}
		}
		if layout.Clickstream {
			if m == nil {
				cells = append(cells, nil, nil)
			} else {
				cells = append(cells, int64Cell(m.GlobalVolume), int64Cell(m.USVolume))
			}
		}

		status := "ok"
		if row.Missing {
			status = row.Reason
		}
		cells = append(cells, status)

		s.Rows = append(s.Rows, cells)
	}

	return s
}

// PageSummarySheet lays out the GSC page rollup
func PageSummarySheet(summaries []model.PageSummary) *Sheet {
	s := &Sheet{
		Name:   SheetPageSummary,
		Header: []string{"Page", "Total Search Volume", "Total Clicks", "Total Impressions", "Avg Position", "CTR %"},
	}
	for _, p := range summaries {
		s.Rows = append(s.Rows, []interface{}{
			p.Page,
			p.TotalSearchVolume,
			p.TotalClicks,
			p.TotalImpressions,
			round(p.AvgPosition, 2),
			round(p.CTRPct, 3),
		})
	}
	return s
}

// WarningsSheet lists batch failures and task warnings; nil when there are none
func WarningsSheet(warnings []enricher.Warning) *Sheet {
	if len(warnings) == 0 {
		return nil
	}

	s := &Sheet{
		Name:   SheetWarnings,
		Header: []string{"Batch", "Endpoint", "Status Code", "Keywords", "Error"},
	}
	for _, w := range warnings {
		var code interface{}
		if w.StatusCode != 0 {
			code = int64(w.StatusCode)
		}
		s.Rows = append(s.Rows, []interface{}{
			int64(w.Batch),
			w.Endpoint,
			code,
			strings.Join(w.Keywords, ", "),
			w.Error,
		})
	}
	return s
}

func int64Cell(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func float64Cell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func competitionCell(c *model.Competition) interface{} {
	if c == nil {
		return nil
	}
	return string(*c)
}

func stringCell(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func round(v float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}
