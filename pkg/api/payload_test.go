package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adsResponse = `{
  "status_code": 20000,
  "status_message": "Ok.",
  "tasks": [{
    "id": "task-1",
    "status_code": 20000,
    "status_message": "Ok.",
    "result": [
      {
        "keyword": "running shoes",
        "search_volume": 74000,
        "competition": "HIGH",
        "competition_index": 100,
        "cpc": 1.23,
        "low_top_of_page_bid": 0.5,
        "high_top_of_page_bid": 2.25,
        "monthly_searches": [{"year": 2024, "month": 1, "search_volume": 80000}]
      },
      {
        "keyword": "trail shoes",
        "search_volume": null,
        "competition": null,
        "competition_index": null,
        "cpc": null,
        "low_top_of_page_bid_micros": 450000,
        "monthly_searches": null
      }
    ]
  }]
}`

const clickstreamResponse = `{
  "status_code": 20000,
  "tasks": [{
    "id": "task-2",
    "status_code": 20000,
    "result": [{
      "items": [
        {
          "keyword": "running shoes",
          "search_volume": 120000,
          "country_distribution": [
            {"country_iso_code": "GB", "search_volume": 20000, "percentage": 16.6},
            {"country_iso_code": "US", "search_volume": 60000, "percentage": 50}
          ]
        }
      ]
    }]
  }]
}`

func TestResponseParser_Ads(t *testing.T) {
	p := NewResponseParser()

	payload, err := p.Parse(EndpointAdsSearchVolume, []byte(adsResponse))
	require.NoError(t, err)
	require.Equal(t, KindAds, payload.Kind())

	ads := payload.(*AdsPayload)
	require.Len(t, ads.Items, 2)

	first := ads.Items[0]
	assert.Equal(t, "running shoes", first.Keyword)
	require.NotNil(t, first.SearchVolume)
	assert.EqualValues(t, 74000, *first.SearchVolume)
	assert.Equal(t, "HIGH", *first.Competition)
	assert.InDelta(t, 2.25, *first.HighTopOfPageBid, 1e-9)
	require.Len(t, first.MonthlySearches, 1)
	assert.EqualValues(t, 80000, *first.MonthlySearches[0].SearchVolume)

	second := ads.Items[1]
	assert.Nil(t, second.SearchVolume)
	assert.Nil(t, second.CPC)
	assert.Nil(t, second.MonthlySearches)
	assert.InDelta(t, 450000, *second.LowTopOfPageBidMicros, 1e-9)
	assert.Empty(t, ads.TaskWarnings())
}

func TestResponseParser_Clickstream(t *testing.T) {
	payload, err := NewResponseParser().Parse(EndpointClickstreamGlobal, []byte(clickstreamResponse))
	require.NoError(t, err)
	require.Equal(t, KindClickstream, payload.Kind())

	click := payload.(*ClickstreamPayload)
	require.Len(t, click.Items, 1)
	assert.EqualValues(t, 120000, *click.Items[0].SearchVolume)
	assert.Len(t, click.Items[0].CountryDistribution, 2)
}

func TestResponseParser_Errors(t *testing.T) {
	p := NewResponseParser()

	tests := []struct {
		name  string
		body  string
		fatal bool
	}{
		{"empty body", ``, false},
		{"malformed json", `{"status_code": 200`, false},
		{"top level auth failure", `{"status_code": 40100, "status_message": "You are not authorized"}`, true},
		{"top level internal error", `{"status_code": 50000, "status_message": "Internal Error."}`, false},
		{"task rate exceeded", `{"status_code": 20000, "tasks": [{"status_code": 40202, "status_message": "Rate limit"}]}`, false},
		{"task invalid field", `{"status_code": 20000, "tasks": [{"status_code": 40501, "status_message": "Invalid Field"}]}`, true},
		{"malformed task result", `{"status_code": 20000, "tasks": [{"status_code": 20000, "result": {"oops": 1}}]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(EndpointAdsSearchVolume, []byte(tt.body))
			require.Error(t, err)

			var fatal *FatalAPIError
			var transient *TransientAPIError
			if tt.fatal {
				assert.True(t, errors.As(err, &fatal), "expected fatal, got %v", err)
			} else {
				assert.True(t, errors.As(err, &transient), "expected transient, got %v", err)
			}
		})
	}
}

func TestResponseParser_TaskWarnings(t *testing.T) {
	body := `{"status_code": 20000, "tasks": [
		{"id": "a", "status_code": 20000, "result": null},
		{"id": "b", "status_code": 20100, "status_message": "Task Created."}
	]}`

	payload, err := NewResponseParser().Parse(EndpointAdsSearchVolume, []byte(body))
	require.NoError(t, err)

	warnings := payload.TaskWarnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "a", warnings[0].TaskID)
	assert.Equal(t, "task returned no results", warnings[0].StatusMessage)
	assert.Equal(t, 20100, warnings[1].StatusCode)
}
