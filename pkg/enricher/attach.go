package enricher

import (
	"keyword-enricher/pkg/keyword"
	"keyword-enricher/pkg/model"
)

const (
	reasonInvalidPrefix = "invalid keyword: "
	ReasonNoData        = "no data returned"
	ReasonCanceled      = "run canceled"
)

// Attach produces exactly one EnrichedRow per input row, in input order.
// Rows sharing a normalized keyword share the same *MetricRecord. Rows
// without data carry a reason: failures[key] when the key's batch failed or
// was never issued, otherwise "no data returned".
func Attach(rows []model.Row, set *keyword.Set, records map[string]*model.MetricRecord, failures map[string]string) []model.EnrichedRow {
	out := make([]model.EnrichedRow, len(rows))

	for i, row := range rows {
		enriched := model.EnrichedRow{Index: i, Fields: row}

		key, ok, why := set.RowKey(i)
		switch {
		case !ok:
			enriched.Missing = true
			enriched.Reason = reasonInvalidPrefix + why
		case records[key] != nil:
			enriched.Keyword = key
			enriched.Metrics = records[key]
		default:
			enriched.Keyword = key
			enriched.Missing = true
			if reason, failed := failures[key]; failed {
				enriched.Reason = reason
			} else {
				enriched.Reason = ReasonNoData
			}
		}

		out[i] = enriched
	}

	return out
}
