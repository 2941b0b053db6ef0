// Package merge reconciles Ads and Clickstream payloads into one MetricRecord per keyword.
package merge

import (
	"strings"

	"keyword-enricher/pkg/api"
	"keyword-enricher/pkg/batch"
	"keyword-enricher/pkg/keyword"
	"keyword-enricher/pkg/logger"
	"keyword-enricher/pkg/model"
)

const microsPerUnit = 1_000_000

// Displayer resolves a normalized key back to the keyword the user typed
type Displayer interface {
	Display(key string) string
}

// Merger maps provider payloads onto the keys of a batch
type Merger struct {
	normalizer *keyword.Normalizer
	display    Displayer
	usCountry  string
	log        *logger.Logger
}

// NewMerger creates a merger. Echoes are re-normalized with n so that
// provider casing and spacing changes still match; display may be nil.
func NewMerger(n *keyword.Normalizer, display Displayer) *Merger {
	return &Merger{
		normalizer: n,
		display:    display,
		usCountry:  "US",
		log:        logger.GetLogger().WithField("component", "merger"),
	}
}

// Merge builds a record for every batch key that appears in at least one
// payload. Fields from a payload that lacks the key stay nil.
func (m *Merger) Merge(b batch.Batch, payloads ...api.Payload) map[string]*model.MetricRecord {
	inBatch := make(map[string]struct{}, b.Len())
	for _, key := range b.Keywords {
		inBatch[key] = struct{}{}
	}

	records := make(map[string]*model.MetricRecord, b.Len())
	for _, payload := range payloads {
		switch p := payload.(type) {
		case *api.AdsPayload:
			m.mergeAds(b, inBatch, p, records)
		case *api.ClickstreamPayload:
			m.mergeClickstream(b, inBatch, p, records)
		case nil:
			continue
		default:
			m.log.WithField("kind", payload.Kind().String()).Warn("Ignoring payload of unknown kind")
		}
	}

	return records
}

// match resolves an echoed keyword to a batch key; ok is false for unsolicited echoes
func (m *Merger) match(b batch.Batch, inBatch map[string]struct{}, echo, kind string) (string, bool) {
	key := m.normalizer.Key(echo)
	if _, ok := inBatch[key]; ok {
		return key, true
	}

	m.log.WithFields(map[string]interface{}{
		"batch": b.Index,
		"kind":  kind,
		"echo":  echo,
	}).Warn("Dropping result for keyword not in batch")
	return "", false
}

func (m *Merger) recordFor(key string, records map[string]*model.MetricRecord) *model.MetricRecord {
	if rec, ok := records[key]; ok {
		return rec
	}
	rec := &model.MetricRecord{Keyword: key}
	if m.display != nil {
		rec.Keyword = m.display.Display(key)
	}
	records[key] = rec
	return rec
}

func (m *Merger) mergeAds(b batch.Batch, inBatch map[string]struct{}, p *api.AdsPayload, records map[string]*model.MetricRecord) {
	seen := make(map[string]bool, len(p.Items))
	for _, item := range p.Items {
		key, ok := m.match(b, inBatch, item.Keyword, "ads")
		if !ok || seen[key] {
			continue
		}
		seen[key] = true

		rec := m.recordFor(key, records)
		rec.SearchVolume = item.SearchVolume
		rec.CompetitionIndex = item.CompetitionIndex
		rec.CPC = item.CPC
		rec.BidLow = bid(item.LowTopOfPageBid, item.LowTopOfPageBidMicros)
		rec.BidHigh = bid(item.HighTopOfPageBid, item.HighTopOfPageBidMicros)

		if item.Competition != nil && strings.TrimSpace(*item.Competition) != "" {
			rec.Competition = model.CompetitionPtr(model.ParseCompetition(*item.Competition))
		}

		if item.MonthlySearches != nil {
			history := make([]model.MonthlyVolume, 0, len(item.MonthlySearches))
			for _, ms := range item.MonthlySearches {
				history = append(history, model.MonthlyVolume{
					Year:   ms.Year,
					Month:  ms.Month,
					Volume: ms.SearchVolume,
				})
			}
			rec.MonthlyHistory = history
		}
	}
}

func (m *Merger) mergeClickstream(b batch.Batch, inBatch map[string]struct{}, p *api.ClickstreamPayload, records map[string]*model.MetricRecord) {
	seen := make(map[string]bool, len(p.Items))
	for _, item := range p.Items {
		key, ok := m.match(b, inBatch, item.Keyword, "clickstream")
		if !ok || seen[key] {
			continue
		}
		seen[key] = true

		rec := m.recordFor(key, records)
		rec.GlobalVolume = item.SearchVolume
		for _, country := range item.CountryDistribution {
			if strings.EqualFold(country.CountryISOCode, m.usCountry) {
				rec.USVolume = country.SearchVolume
				break
			}
		}
	}
}

// bid prefers the provider's decimal value and falls back to micros
func bid(value, micros *float64) *float64 {
	if value != nil {
		return value
	}
	if micros != nil {
		return model.Float64(*micros / microsPerUnit)
	}
	return nil
}
