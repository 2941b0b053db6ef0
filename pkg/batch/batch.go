// Package batch splits the deduplicated keyword set into request-sized chunks.
package batch

import (
	"fmt"
)

// Batch is one request's worth of normalized keywords. Index is 1-based.
type Batch struct {
	Index    int
	Keywords []string
}

// Len returns the number of keywords in the batch
func (b Batch) Len() int {
	return len(b.Keywords)
}

// SizeLimited is anything that caps how many keywords one request may carry
type SizeLimited interface {
	BatchLimit() int
}

// Partition splits keys into ceil(len(keys)/limit) ordered batches.
// Every key lands in exactly one batch, in its original order.
func Partition(keys []string, limit int) ([]Batch, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("batch limit must be positive, got %d", limit)
	}

	batches := make([]Batch, 0, (len(keys)+limit-1)/limit)
	for i := 0; i < len(keys); i += limit {
		end := i + limit
		if end > len(keys) {
			end = len(keys)
		}

		chunk := make([]string, end-i)
		copy(chunk, keys[i:end])
		batches = append(batches, Batch{
			Index:    len(batches) + 1,
			Keywords: chunk,
		})
	}

	return batches, nil
}

// EffectiveLimit clamps the requested size to the tightest limit among endpoints.
// A non-positive request means "as large as the endpoints allow".
func EffectiveLimit(requested int, endpoints ...SizeLimited) int {
	limit := requested
	for _, ep := range endpoints {
		ceiling := ep.BatchLimit()
		if ceiling <= 0 {
			continue
		}
		if limit <= 0 || limit > ceiling {
			limit = ceiling
		}
	}
	return limit
}
