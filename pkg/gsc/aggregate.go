package gsc

import (
	"math"
	"strings"

	"keyword-enricher/pkg/model"
)

// Aggregate groups rows by page in first-seen order. Missing search volume,
// clicks and impressions count as zero here and nowhere upstream. Rows with
// an empty page cell are not attributed to any page.
func Aggregate(rows []model.EnrichedRow, cols Columns) []model.PageSummary {
	type acc struct {
		summary      model.PageSummary
		positionSum  float64
		positionRows int
	}

	var order []string
	groups := make(map[string]*acc)

	for _, row := range rows {
		page := strings.TrimSpace(row.Fields[cols.Page])
		if page == "" {
			continue
		}

		g, ok := groups[page]
		if !ok {
			g = &acc{summary: model.PageSummary{Page: page}}
			groups[page] = g
			order = append(order, page)
		}

		g.summary.TotalSearchVolume += volumeOf(row.Metrics)
		g.summary.TotalClicks += intCell(row.Fields, cols.Clicks)
		g.summary.TotalImpressions += intCell(row.Fields, cols.Impressions)

		if cols.Position != "" {
			if pos, ok := ParseNumber(row.Fields[cols.Position]); ok {
				g.positionSum += pos
				g.positionRows++
			}
		}
	}

	out := make([]model.PageSummary, 0, len(order))
	for _, page := range order {
		g := groups[page]
		if g.summary.TotalImpressions > 0 {
			g.summary.CTRPct = 100 * float64(g.summary.TotalClicks) / float64(g.summary.TotalImpressions)
		}
		if g.positionRows > 0 {
			g.summary.AvgPosition = g.positionSum / float64(g.positionRows)
		}
		out = append(out, g.summary)
	}
	return out
}

// volumeOf prefers the Ads search volume and falls back to the US Clickstream volume
func volumeOf(rec *model.MetricRecord) int64 {
	if rec == nil {
		return 0
	}
	if rec.SearchVolume != nil {
		return *rec.SearchVolume
	}
	if rec.USVolume != nil {
		return *rec.USVolume
	}
	return 0
}

func intCell(fields model.Row, column string) int64 {
	if column == "" {
		return 0
	}
	v, ok := ParseNumber(fields[column])
	if !ok {
		return 0
	}
	return int64(math.Round(v))
}
