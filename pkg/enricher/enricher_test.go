package enricher

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"keyword-enricher/pkg/api"
	"keyword-enricher/pkg/batch"
	"keyword-enricher/pkg/model"
)

type postCall struct {
	Endpoint string
	Batch    int
	Keywords []string
}

// fakePoster answers every keyword with a volume equal to its length,
// unless fail says otherwise for that call
type fakePoster struct {
	mu    sync.Mutex
	calls []postCall
	fail  func(ep api.Endpoint, b batch.Batch) error
	skip  map[string]bool
	after func(call int)
}

func (f *fakePoster) Post(ctx context.Context, ep api.Endpoint, b batch.Batch) (api.Payload, error) {
	f.mu.Lock()
	f.calls = append(f.calls, postCall{Endpoint: ep.Name, Batch: b.Index, Keywords: append([]string(nil), b.Keywords...)})
	n := len(f.calls)
	f.mu.Unlock()

	if f.after != nil {
		defer f.after(n)
	}

	if f.fail != nil {
		if err := f.fail(ep, b); err != nil {
			return nil, err
		}
	}

	if ep.Kind == api.KindClickstream {
		p := &api.ClickstreamPayload{}
		for _, kw := range b.Keywords {
			if f.skip[kw] {
				continue
			}
			v := int64(len(kw) * 10)
			p.Items = append(p.Items, api.ClickstreamItem{Keyword: kw, SearchVolume: &v})
		}
		return p, nil
	}

	p := &api.AdsPayload{}
	for _, kw := range b.Keywords {
		if f.skip[kw] {
			continue
		}
		v := int64(len(kw))
		cpc := 1.5
		p.Items = append(p.Items, api.AdsItem{Keyword: strings.ToUpper(kw), SearchVolume: &v, CPC: &cpc})
	}
	return p, nil
}

func (f *fakePoster) keywordsPosted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.Keywords...)
	}
	return out
}

func rowsOf(keywords ...string) []model.Row {
	rows := make([]model.Row, len(keywords))
	for i, kw := range keywords {
		rows[i] = model.Row{"Keyword": kw, "Row": string(rune('A' + i))}
	}
	return rows
}

func build(t *testing.T, p api.Poster, mode string, size int) *Enricher {
	t.Helper()
	e, err := NewBuilder().
		WithPoster(p).
		WithMode(mode).
		WithBatchSize(size).
		WithProgressInterval(0).
		Build()
	require.NoError(t, err)
	return e
}

func TestRun_PartialFailureOfMiddleBatch(t *testing.T) {
	poster := &fakePoster{fail: func(ep api.Endpoint, b batch.Batch) error {
		if b.Index == 2 {
			return &api.TransientAPIError{Endpoint: ep.Name, HTTPStatus: 503}
		}
		return nil
	}}
	e := build(t, poster, "ads", 2)

	rows := rowsOf("alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "Delta")
	result, err := e.Run(context.Background(), rows, "Keyword")
	require.NoError(t, err)

	require.Len(t, result.Rows, len(rows))
	assert.Equal(t, 3, result.Batches)
	assert.Equal(t, 1, result.FailedBatches)

	for _, i := range []int{0, 1, 4, 5} {
		assert.False(t, result.Rows[i].Missing, "row %d", i)
		require.NotNil(t, result.Rows[i].Metrics)
	}
	for _, i := range []int{2, 3, 6} {
		assert.True(t, result.Rows[i].Missing, "row %d", i)
		assert.Nil(t, result.Rows[i].Metrics)
		assert.True(t, strings.HasPrefix(result.Rows[i].Reason, "batch 2 failed: "), result.Rows[i].Reason)
	}

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, 2, result.Warnings[0].Batch)
	assert.Equal(t, []string{"charlie", "delta"}, result.Warnings[0].Keywords)
	assert.Equal(t, api.EndpointAdsSearchVolume.Name, result.Warnings[0].Endpoint)

	// batch 3 was still issued after batch 2 failed
	assert.Len(t, poster.calls, 3)
	assert.Equal(t, 3, poster.calls[2].Batch)
}

func TestRun_OneFetchPerNormalizedKeyword(t *testing.T) {
	poster := &fakePoster{}
	e := build(t, poster, "ads", 100)

	rows := rowsOf("Running Shoes", "running  shoes", " RUNNING SHOES ", "trail shoes", "Trail Shoes")
	result, err := e.Run(context.Background(), rows, "Keyword")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"running shoes", "trail shoes"}, poster.keywordsPosted())
	assert.Equal(t, 2, result.UniqueKeywords)

	// duplicate rows share one record
	assert.Same(t, result.Rows[0].Metrics, result.Rows[1].Metrics)
	assert.Same(t, result.Rows[0].Metrics, result.Rows[2].Metrics)
	assert.Same(t, result.Rows[3].Metrics, result.Rows[4].Metrics)
	assert.Equal(t, "Running Shoes", result.Rows[2].Metrics.Keyword)

	for i, row := range result.Rows {
		assert.Equal(t, i, row.Index)
		assert.Equal(t, rows[i], row.Fields)
	}
}

func TestRun_NoSilentZeros(t *testing.T) {
	poster := &fakePoster{skip: map[string]bool{"bravo": true}}
	e := build(t, poster, "ads", 100)

	result, err := e.Run(context.Background(), rowsOf("alpha", "bravo", "!"), "Keyword")
	require.NoError(t, err)

	assert.False(t, result.Rows[0].Missing)

	assert.True(t, result.Rows[1].Missing)
	assert.Nil(t, result.Rows[1].Metrics)
	assert.Equal(t, ReasonNoData, result.Rows[1].Reason)

	assert.True(t, result.Rows[2].Missing)
	assert.Equal(t, "invalid keyword: empty after cleaning", result.Rows[2].Reason)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "!", result.Rejected[0].Raw)
}

func TestRun_FailedBatchWarningShowsInputSpelling(t *testing.T) {
	poster := &fakePoster{fail: func(ep api.Endpoint, b batch.Batch) error {
		if b.Index == 2 {
			return &api.TransientAPIError{Endpoint: ep.Name, HTTPStatus: 503}
		}
		return nil
	}}
	e := build(t, poster, "ads", 1)

	result, err := e.Run(context.Background(), rowsOf("alpha", "Trail  SHOES", "trail shoes"), "Keyword")
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, []string{"Trail  SHOES"}, result.Warnings[0].Keywords)
	assert.Equal(t, []string{"trail shoes"}, poster.calls[1].Keywords)
}

type keywordCounts struct {
	nopRunObserver
	fetched, missing, rejected int
}

func (k *keywordCounts) ObserveKeywords(fetched, missing, rejected int) {
	k.fetched, k.missing, k.rejected = fetched, missing, rejected
}

func TestRun_RejectedCountsDistinctCells(t *testing.T) {
	counts := &keywordCounts{}
	e, err := NewBuilder().
		WithPoster(&fakePoster{}).
		WithMode("ads").
		WithBatchSize(100).
		WithObserver(counts).
		Build()
	require.NoError(t, err)

	result, err := e.Run(context.Background(), rowsOf("alpha", "x", "!", "x", "!"), "Keyword")
	require.NoError(t, err)

	require.Len(t, result.Rejected, 2)
	assert.Equal(t, "x", result.Rejected[0].Raw)
	assert.Equal(t, "!", result.Rejected[1].Raw)
	assert.Equal(t, 1, counts.fetched)
	assert.Equal(t, 2, counts.rejected)
	assert.True(t, result.Rows[3].Missing)
	assert.True(t, result.Rows[4].Missing)
}

func TestRun_FatalErrorAborts(t *testing.T) {
	poster := &fakePoster{fail: func(ep api.Endpoint, b batch.Batch) error {
		return &api.FatalAPIError{Endpoint: ep.Name, HTTPStatus: 401, Message: "unauthorized"}
	}}
	e := build(t, poster, "ads", 1)

	result, err := e.Run(context.Background(), rowsOf("alpha", "bravo"), "Keyword")
	assert.Nil(t, result)

	var fatal *api.FatalAPIError
	require.True(t, errors.As(err, &fatal))
	assert.Len(t, poster.calls, 1)
}

func TestRun_CancellationReturnsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poster := &fakePoster{after: func(call int) {
		if call == 1 {
			cancel()
		}
	}}
	e := build(t, poster, "ads", 1)

	result, err := e.Run(ctx, rowsOf("alpha", "bravo", "charlie"), "Keyword")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.True(t, result.Canceled)

	require.Len(t, result.Rows, 3)
	assert.False(t, result.Rows[0].Missing)
	assert.Equal(t, ReasonCanceled, result.Rows[1].Reason)
	assert.Equal(t, ReasonCanceled, result.Rows[2].Reason)
	assert.Len(t, poster.calls, 1)
}

func TestRun_DualModeCallsClickstreamFirst(t *testing.T) {
	poster := &fakePoster{}
	e := build(t, poster, "dual", 100)

	result, err := e.Run(context.Background(), rowsOf("alpha", "bravo"), "Keyword")
	require.NoError(t, err)

	require.Len(t, poster.calls, 2)
	assert.Equal(t, api.EndpointClickstreamGlobal.Name, poster.calls[0].Endpoint)
	assert.Equal(t, api.EndpointAdsSearchVolume.Name, poster.calls[1].Endpoint)

	rec := result.Rows[0].Metrics
	require.NotNil(t, rec)
	assert.EqualValues(t, 50, *rec.GlobalVolume)
	assert.EqualValues(t, 5, *rec.SearchVolume)
}

func TestRun_DualModeFailureOnSecondCallFailsBatch(t *testing.T) {
	poster := &fakePoster{fail: func(ep api.Endpoint, b batch.Batch) error {
		if ep.Kind == api.KindAds {
			return &api.TransientAPIError{Endpoint: ep.Name, StatusCode: 50000}
		}
		return nil
	}}
	e := build(t, poster, "dual", 100)

	result, err := e.Run(context.Background(), rowsOf("alpha"), "Keyword")
	require.NoError(t, err)

	assert.True(t, result.Rows[0].Missing)
	assert.Contains(t, result.Rows[0].Reason, "batch 1 failed")
	assert.Equal(t, api.EndpointAdsSearchVolume.Name, result.Warnings[0].Endpoint)
}

func TestRun_Summary(t *testing.T) {
	e := build(t, &fakePoster{}, "ads", 100)

	result, err := e.Run(context.Background(), rowsOf("ab", "abcd", "abcd"), "Keyword")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Summary.Keywords)
	assert.EqualValues(t, 6, result.Summary.TotalSearchVolume)
	assert.InDelta(t, 3.0, result.Summary.AvgSearchVolume, 1e-9)
	assert.InDelta(t, 1.5, result.Summary.AvgCPC, 1e-9)
}

func TestWriteReport(t *testing.T) {
	e := build(t, &fakePoster{}, "ads", 100)
	result, err := e.Run(context.Background(), rowsOf("alpha", "x", "x"), "Keyword")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, result))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, result.RunID, decoded["run_id"])
	assert.Equal(t, 3, decoded["rows"])
	assert.Equal(t, 2, decoded["missing_rows"])
	assert.Len(t, decoded["rejected"], 1)
}

func TestBuilder_CollectsErrors(t *testing.T) {
	_, err := NewBuilder().
		WithMode("bogus").
		WithBatchSize(0).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "batch size must be positive")
	assert.Contains(t, err.Error(), "API client is required")
}
