package gsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyword-enricher/pkg/model"
)

var testCols = Columns{
	Query:       "Query",
	Page:        "Page",
	Clicks:      "Clicks",
	Impressions: "Impressions",
	Position:    "Position",
}

func gscRow(page, clicks, impressions, position string, metrics *model.MetricRecord) model.EnrichedRow {
	return model.EnrichedRow{
		Fields: model.Row{
			"Page":        page,
			"Clicks":      clicks,
			"Impressions": impressions,
			"Position":    position,
		},
		Metrics: metrics,
		Missing: metrics == nil,
	}
}

func TestAggregate_PageRollup(t *testing.T) {
	rows := []model.EnrichedRow{
		gscRow("A", "5", "100", "3", &model.MetricRecord{SearchVolume: model.Int64(10)}),
		gscRow("A", "15", "200", "5", &model.MetricRecord{SearchVolume: model.Int64(20)}),
	}

	summaries := Aggregate(rows, testCols)
	require.Len(t, summaries, 1)

	a := summaries[0]
	assert.Equal(t, "A", a.Page)
	assert.EqualValues(t, 30, a.TotalSearchVolume)
	assert.EqualValues(t, 20, a.TotalClicks)
	assert.EqualValues(t, 300, a.TotalImpressions)
	assert.InDelta(t, 6.667, a.CTRPct, 0.001)
	assert.InDelta(t, 4.0, a.AvgPosition, 1e-9)
}

func TestAggregate_MissingAndFallbacks(t *testing.T) {
	rows := []model.EnrichedRow{
		gscRow("B", "1,200", "0", "", nil),
		gscRow("A", "", "", "7.5", &model.MetricRecord{USVolume: model.Int64(40)}),
		gscRow("B", "3", "", "2", &model.MetricRecord{}),
		gscRow("", "9", "9", "1", &model.MetricRecord{SearchVolume: model.Int64(99)}),
	}

	summaries := Aggregate(rows, testCols)
	require.Len(t, summaries, 2)

	// first-seen order
	assert.Equal(t, "B", summaries[0].Page)
	assert.Equal(t, "A", summaries[1].Page)

	b := summaries[0]
	assert.EqualValues(t, 0, b.TotalSearchVolume)
	assert.EqualValues(t, 1203, b.TotalClicks)
	assert.EqualValues(t, 0, b.TotalImpressions)
	assert.Zero(t, b.CTRPct)
	assert.InDelta(t, 2.0, b.AvgPosition, 1e-9)

	a := summaries[1]
	assert.EqualValues(t, 40, a.TotalSearchVolume)
	assert.InDelta(t, 7.5, a.AvgPosition, 1e-9)
}

func TestAggregate_NoPositionColumn(t *testing.T) {
	cols := testCols
	cols.Position = ""

	summaries := Aggregate([]model.EnrichedRow{gscRow("A", "1", "10", "4", nil)}, cols)
	require.Len(t, summaries, 1)
	assert.Zero(t, summaries[0].AvgPosition)
	assert.InDelta(t, 10.0, summaries[0].CTRPct, 1e-9)
}

func TestDetectColumns(t *testing.T) {
	cols, err := DetectColumns([]string{"Top queries", "Landing Page", "Clicks", "Impressions", "CTR", "Position"})
	require.NoError(t, err)
	assert.Equal(t, "Top queries", cols.Query)
	assert.Equal(t, "Landing Page", cols.Page)
	assert.Equal(t, "CTR", cols.CTR)
	assert.Equal(t, "Position", cols.Position)

	cols, err = DetectColumns([]string{"keyword", "PAGE"})
	require.NoError(t, err)
	assert.Equal(t, "keyword", cols.Query)
	assert.Equal(t, "PAGE", cols.Page)
	assert.Empty(t, cols.Clicks)

	_, err = DetectColumns([]string{"keyword", "volume"})
	assert.ErrorContains(t, err, "page")
}

func TestParseNumber(t *testing.T) {
	cases := map[string]float64{
		"1,234": 1234,
		"5.2%":  5.2,
		" 3 ":   3,
		"0":     0,
	}
	for in, want := range cases {
		got, ok := ParseNumber(in)
		assert.True(t, ok, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}

	for _, in := range []string{"", "  ", "n/a", "%"} {
		_, ok := ParseNumber(in)
		assert.False(t, ok, in)
	}
}
