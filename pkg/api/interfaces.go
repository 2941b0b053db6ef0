package api

import (
	"context"
	"time"

	"keyword-enricher/pkg/batch"
)

// Poster issues one endpoint call for one batch, including pacing and retries
type Poster interface {
	Post(ctx context.Context, endpoint Endpoint, b batch.Batch) (Payload, error)
}

// Observer receives per-attempt outcomes, e.g. for metrics
type Observer interface {
	ObserveRequest(endpoint, outcome string, duration time.Duration)
	ObserveRetry(endpoint string)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, time.Duration) {}
func (nopObserver) ObserveRetry(string)                          {}
