package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"keyword-enricher/internal/config"
	"keyword-enricher/pkg/api"
	"keyword-enricher/pkg/batch"
	"keyword-enricher/pkg/logger"
	"keyword-enricher/pkg/table"
)

// volumePoster reports a search volume of 100 for every keyword
type volumePoster struct {
	mu       sync.Mutex
	markets  []string
	keywords []string
}

func (p *volumePoster) Post(ctx context.Context, ep api.Endpoint, b batch.Batch) (api.Payload, error) {
	p.mu.Lock()
	p.keywords = append(p.keywords, b.Keywords...)
	p.mu.Unlock()

	out := &api.AdsPayload{}
	for _, kw := range b.Keywords {
		v := int64(100)
		out.Items = append(out.Items, api.AdsItem{Keyword: kw, SearchVolume: &v})
	}
	return out, nil
}

type localizingPoster struct {
	*volumePoster
}

func (p localizingPoster) Localize(locationCode int, languageCode string) api.Poster {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markets = append(p.markets, languageCode)
	return p.volumePoster
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.NewManager().Load("")
	require.NoError(t, err)
	return cfg
}

func newTestService(t *testing.T, poster api.Poster) *Service {
	t.Helper()
	s, err := NewWithPoster(testConfig(t), poster, prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	return s
}

func gscInput(t *testing.T) *table.Input {
	t.Helper()
	data := "Query,Page,Clicks,Impressions,Position\n" +
		"running shoes,https://a.example/shoes,10,100,3\n" +
		"trail shoes,https://a.example/shoes,20,200,5\n" +
		"boots,https://a.example/boots,1,10,12\n"
	in, err := table.ReadCSV("gsc.csv", strings.NewReader(data))
	require.NoError(t, err)
	return in
}

func TestEnrich_GSCJob(t *testing.T) {
	poster := &volumePoster{}
	s := newTestService(t, poster)

	out, err := s.Enrich(context.Background(), Request{Input: gscInput(t), GSC: true})
	require.NoError(t, err)

	assert.Equal(t, "Query", out.Result.KeywordColumn)
	assert.ElementsMatch(t, []string{"running shoes", "trail shoes", "boots"}, poster.keywords)

	require.Len(t, out.Pages, 2)
	assert.Equal(t, "https://a.example/shoes", out.Pages[0].Page)
	assert.EqualValues(t, 200, out.Pages[0].TotalSearchVolume)
	assert.EqualValues(t, 30, out.Pages[0].TotalClicks)
	assert.InDelta(t, 4.0, out.Pages[0].AvgPosition, 1e-9)

	sheets := out.Sheets()
	require.Len(t, sheets, 2)
	assert.Equal(t, table.SheetPageSummary, sheets[1].Name)
}

func TestEnrich_RejectsNonGSCHeader(t *testing.T) {
	s := newTestService(t, &volumePoster{})
	in := &table.Input{Name: "plain.csv", Header: []string{"Keyword"}}

	_, err := s.Enrich(context.Background(), Request{Input: in, GSC: true})
	assert.ErrorContains(t, err, "not a GSC export")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEnrich_LocalizesWhenAsked(t *testing.T) {
	poster := localizingPoster{&volumePoster{}}
	s := newTestService(t, poster)

	_, err := s.Enrich(context.Background(), Request{Input: gscInput(t), LanguageCode: "de"})
	require.NoError(t, err)
	_, err = s.Enrich(context.Background(), Request{Input: gscInput(t)})
	require.NoError(t, err)

	assert.Equal(t, []string{"de"}, poster.markets)
}

func TestEnrich_CanceledBeforeStart(t *testing.T) {
	s := newTestService(t, &volumePoster{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := s.Enrich(ctx, Request{Input: gscInput(t)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
}

func TestOutput_Write(t *testing.T) {
	s := newTestService(t, &volumePoster{})
	out, err := s.Enrich(context.Background(), Request{Input: gscInput(t), KeywordColumn: "query"})
	require.NoError(t, err)

	var csvBuf bytes.Buffer
	require.NoError(t, out.Write(&csvBuf, "csv"))
	records, err := csv.NewReader(&csvBuf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, table.StatusColumn, records[0][len(records[0])-1])

	var xlsxBuf bytes.Buffer
	require.NoError(t, out.Write(&xlsxBuf, ".XLSX"))
	f, err := excelize.OpenReader(&xlsxBuf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{table.SheetKeywords}, f.GetSheetList())

	headers := out.SummaryHeaders()
	assert.Equal(t, "3", headers["X-Keywords-Resolved"])
	assert.Equal(t, "300", headers["X-Total-Search-Volume"])
	assert.Equal(t, "100.00", headers["X-Avg-Search-Volume"])
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, FormatXLSX, ParseFormat("xlsx"))
	assert.Equal(t, FormatCSV, ParseFormat(""))
	assert.Equal(t, "seo_keywords_results.xlsx", FileName("XLSX"))
	assert.Equal(t, "seo_keywords_results.csv", FileName("pdf"))
	assert.Contains(t, ContentType("csv"), "text/csv")
}

func TestNewWithPoster_RequiresPoster(t *testing.T) {
	_, err := NewWithPoster(testConfig(t), nil, prometheus.NewRegistry(), nil)
	assert.Error(t, err)
}

func TestEnrich_LogLinesCarryOneComponent(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(logger.Config{Level: "debug"}, &buf)
	s, err := NewWithPoster(testConfig(t), &volumePoster{}, prometheus.NewRegistry(), log)
	require.NoError(t, err)

	_, err = s.Enrich(context.Background(), Request{Input: gscInput(t), GSC: true})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.LessOrEqual(t, strings.Count(line, `"component"`), 1, line)
	}
	assert.Contains(t, buf.String(), `"component":"enricher"`)
}
