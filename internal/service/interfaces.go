package service

import (
	"context"

	"keyword-enricher/pkg/api"
)

// EnrichmentService runs one uploaded table through the enrichment pipeline
type EnrichmentService interface {
	Enrich(ctx context.Context, req Request) (*Output, error)
}

// MonitorService reports whether the service can take work
type MonitorService interface {
	HealthCheck(ctx context.Context) error
	Busy() bool
}

// Localizer is implemented by API clients that can target another market
type Localizer interface {
	Localize(locationCode int, languageCode string) api.Poster
}
