package api

import (
	"encoding/json"
	"fmt"
)

// PayloadKind tags which response shape a Payload carries
type PayloadKind int

const (
	KindAds PayloadKind = iota + 1
	KindClickstream
)

func (k PayloadKind) String() string {
	switch k {
	case KindAds:
		return "ads"
	case KindClickstream:
		return "clickstream"
	default:
		return "unknown"
	}
}

// Payload is the parsed result of one endpoint call: *AdsPayload or *ClickstreamPayload
type Payload interface {
	Kind() PayloadKind
	TaskWarnings() []TaskWarning
}

// TaskWarning is a task that came back without an error but also without usable data
type TaskWarning struct {
	TaskID        string `json:"task_id" yaml:"task_id"`
	StatusCode    int    `json:"status_code" yaml:"status_code"`
	StatusMessage string `json:"status_message" yaml:"status_message"`
}

// MonthlySearch is one month of an Ads keyword's history
type MonthlySearch struct {
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	SearchVolume *int64 `json:"search_volume"`
}

// AdsItem is one keyword of the Google Ads search volume result
type AdsItem struct {
	Keyword                string          `json:"keyword"`
	SearchVolume           *int64          `json:"search_volume"`
	Competition            *string         `json:"competition"`
	CompetitionIndex       *float64        `json:"competition_index"`
	CPC                    *float64        `json:"cpc"`
	LowTopOfPageBid        *float64        `json:"low_top_of_page_bid"`
	HighTopOfPageBid       *float64        `json:"high_top_of_page_bid"`
	LowTopOfPageBidMicros  *float64        `json:"low_top_of_page_bid_micros"`
	HighTopOfPageBidMicros *float64        `json:"high_top_of_page_bid_micros"`
	MonthlySearches        []MonthlySearch `json:"monthly_searches"`
}

// AdsPayload is the parsed Google Ads search volume response
type AdsPayload struct {
	Items    []AdsItem
	Warnings []TaskWarning
}

func (p *AdsPayload) Kind() PayloadKind           { return KindAds }
func (p *AdsPayload) TaskWarnings() []TaskWarning { return p.Warnings }

// CountryVolume is one entry of a Clickstream keyword's country breakdown
type CountryVolume struct {
	CountryISOCode string   `json:"country_iso_code"`
	SearchVolume   *int64   `json:"search_volume"`
	Percentage     *float64 `json:"percentage"`
}

// ClickstreamItem is one keyword of the Clickstream global search volume result
type ClickstreamItem struct {
	Keyword             string          `json:"keyword"`
	SearchVolume        *int64          `json:"search_volume"`
	CountryDistribution []CountryVolume `json:"country_distribution"`
}

// ClickstreamPayload is the parsed Clickstream global search volume response
type ClickstreamPayload struct {
	Items    []ClickstreamItem
	Warnings []TaskWarning
}

func (p *ClickstreamPayload) Kind() PayloadKind           { return KindClickstream }
func (p *ClickstreamPayload) TaskWarnings() []TaskWarning { return p.Warnings }

// envelope is the wrapper shared by every DataForSEO v3 response
type envelope struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Tasks         []struct {
		ID            string          `json:"id"`
		StatusCode    int             `json:"status_code"`
		StatusMessage string          `json:"status_message"`
		Result        json.RawMessage `json:"result"`
	} `json:"tasks"`
}

// ResponseParser turns response bodies into payloads and typed errors
type ResponseParser struct{}

// NewResponseParser creates a new DataForSEO response parser
func NewResponseParser() *ResponseParser {
	return &ResponseParser{}
}

// Parse decodes body for endpoint. Non-success status codes become
// TransientAPIError or FatalAPIError; a task that succeeded without results
// is reported as a TaskWarning.
func (p *ResponseParser) Parse(endpoint Endpoint, body []byte) (Payload, error) {
	if len(body) == 0 {
		return nil, &TransientAPIError{Endpoint: endpoint.Name, Message: "empty response body"}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &TransientAPIError{
			Endpoint: endpoint.Name,
			Message:  fmt.Sprintf("malformed response (%s)", snippet(body)),
			Err:      err,
		}
	}

	if env.StatusCode != StatusOK {
		return nil, newStatusError(ClassifyStatusCode(env.StatusCode), endpoint.Name, 0, env.StatusCode, env.StatusMessage, nil)
	}

	var (
		ads      = &AdsPayload{}
		click    = &ClickstreamPayload{}
		warnings []TaskWarning
	)

	for _, task := range env.Tasks {
		if task.StatusCode != StatusOK {
			sev := ClassifyStatusCode(task.StatusCode)
			if task.StatusCode >= 40000 {
				return nil, newStatusError(sev, endpoint.Name, 0, task.StatusCode, task.StatusMessage, nil)
			}
			warnings = append(warnings, TaskWarning{
				TaskID:        task.ID,
				StatusCode:    task.StatusCode,
				StatusMessage: task.StatusMessage,
			})
			continue
		}

		if isNullResult(task.Result) {
			warnings = append(warnings, TaskWarning{
				TaskID:        task.ID,
				StatusCode:    task.StatusCode,
				StatusMessage: "task returned no results",
			})
			continue
		}

		var err error
		switch endpoint.Kind {
		case KindClickstream:
			err = p.decodeClickstream(task.Result, click)
		default:
			err = p.decodeAds(task.Result, ads)
		}
		if err != nil {
			return nil, &TransientAPIError{
				Endpoint: endpoint.Name,
				Message:  fmt.Sprintf("malformed task result (%s)", snippet(task.Result)),
				Err:      err,
			}
		}
	}

	if endpoint.Kind == KindClickstream {
		click.Warnings = warnings
		return click, nil
	}
	ads.Warnings = warnings
	return ads, nil
}

func (p *ResponseParser) decodeAds(raw json.RawMessage, into *AdsPayload) error {
	var items []*AdsItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	for _, item := range items {
		if item == nil || item.Keyword == "" {
			continue
		}
		into.Items = append(into.Items, *item)
	}
	return nil
}

func (p *ResponseParser) decodeClickstream(raw json.RawMessage, into *ClickstreamPayload) error {
	// The Clickstream endpoint wraps keywords in result[].items[]
	var results []*struct {
		Items []*ClickstreamItem `json:"items"`
	}
	if err := json.Unmarshal(raw, &results); err != nil {
		return err
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, item := range res.Items {
			if item == nil || item.Keyword == "" {
				continue
			}
			into.Items = append(into.Items, *item)
		}
	}
	return nil
}

func isNullResult(raw json.RawMessage) bool {
	s := string(raw)
	return s == "" || s == "null" || s == "[]"
}

func snippet(body []byte) string {
	return string(body[:min(len(body), 200)])
}
