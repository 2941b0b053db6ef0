// Package enricher runs the batch pipeline: normalize, partition, fetch,
// merge and attach metrics back onto the input rows.
package enricher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"keyword-enricher/pkg/api"
	"keyword-enricher/pkg/batch"
	"keyword-enricher/pkg/keyword"
	"keyword-enricher/pkg/logger"
	"keyword-enricher/pkg/merge"
	"keyword-enricher/pkg/model"
)

// RunObserver receives run-level events, e.g. for metrics
type RunObserver interface {
	RunStarted()
	RunFinished(result string, duration time.Duration)
	ObserveBatch(result string)
	ObserveKeywords(fetched, missing, rejected int)
}

type nopRunObserver struct{}

func (nopRunObserver) RunStarted()                       {}
func (nopRunObserver) RunFinished(string, time.Duration) {}
func (nopRunObserver) ObserveBatch(string)               {}
func (nopRunObserver) ObserveKeywords(int, int, int)     {}

// Warning is a non-fatal problem recorded during a run
type Warning struct {
	Batch      int      `json:"batch" yaml:"batch"`
	Endpoint   string   `json:"endpoint" yaml:"endpoint"`
	Keywords   []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	StatusCode int      `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Error      string   `json:"error" yaml:"error"`
}

// Result is the outcome of one run. Rows always has one entry per input row.
type Result struct {
	RunID          string
	Mode           api.Mode
	KeywordColumn  string
	Rows           []model.EnrichedRow
	Records        map[string]*model.MetricRecord
	Rejected       []keyword.Record // one per distinct rejected cell
	Warnings       []Warning
	Summary        Summary
	Batches        int
	FailedBatches  int
	UniqueKeywords int
	Canceled       bool
	StartedAt      time.Time
	Duration       time.Duration
}

// Enricher orchestrates one or more sequential runs against a Poster
type Enricher struct {
	poster           api.Poster
	normalizer       *keyword.Normalizer
	mode             api.Mode
	endpoints        []api.Endpoint
	batchSize        int
	observer         RunObserver
	progressInterval time.Duration
	log              *logger.Logger
	secureLog        *logger.SecurityLogger
}

// Run enriches rows using the keyword in keywordColumn.
//
// A fatal provider error aborts the run and returns a nil Result. A canceled
// context stops issuing batches; the partial Result is returned together
// with the context error and unissued rows are marked "run canceled".
func (e *Enricher) Run(ctx context.Context, rows []model.Row, keywordColumn string) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := e.log.WithFields(map[string]interface{}{
		"run_id": runID,
		"mode":   string(e.mode),
	})

	e.observer.RunStarted()
	outcome := "error"
	defer func() { e.observer.RunFinished(outcome, time.Since(start)) }()

	raws := make([]string, len(rows))
	for i, row := range rows {
		raws[i] = row[keywordColumn]
	}
	set := e.normalizer.NormalizeAll(raws)
	rejected := uniqueRejected(set.Rejected())

	limited := make([]batch.SizeLimited, len(e.endpoints))
	for i, ep := range e.endpoints {
		limited[i] = ep
	}
	batches, err := batch.Partition(set.Keys(), batch.EffectiveLimit(e.batchSize, limited...))
	if err != nil {
		return nil, fmt.Errorf("failed to partition keywords: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"rows":            len(rows),
		"unique_keywords": set.Len(),
		"rejected":        len(rejected),
		"batches":         len(batches),
	}).Info("Starting enrichment run")

	merger := merge.NewMerger(e.normalizer, set)
	records := make(map[string]*model.MetricRecord, set.Len())
	failures := make(map[string]string)
	var warnings []Warning

	progress := logger.NewProgressReporter(len(batches), "batches", log)
	progress.SetInterval(e.progressInterval)

	failedBatches := 0
	canceled := false

	for i, b := range batches {
		if ctx.Err() != nil {
			markCanceled(batches[i:], failures)
			canceled = true
			break
		}

		payloads, failure, err := e.fetchBatch(ctx, b)
		if err != nil {
			if isCancellation(err) {
				markCanceled(batches[i:], failures)
				canceled = true
				break
			}
			e.secureLog.SafeError("Fatal provider error, aborting run", err, map[string]interface{}{
				"run_id": runID,
				"batch":  b.Index,
			})
			return nil, fmt.Errorf("batch %d: %w", b.Index, err)
		}

		for _, p := range payloads {
			for _, tw := range p.TaskWarnings() {
				warnings = append(warnings, Warning{
					Batch:      b.Index,
					Endpoint:   kindEndpoint(e.endpoints, p.Kind()),
					StatusCode: tw.StatusCode,
					Error:      tw.StatusMessage,
				})
			}
		}

		if failure != nil {
			failedBatches++
			reason := failure.Reason()
			shown := make([]string, len(b.Keywords))
			for j, key := range b.Keywords {
				failures[key] = reason
				shown[j] = set.Display(key)
			}
			warnings = append(warnings, Warning{
				Batch:    b.Index,
				Endpoint: failure.Endpoint,
				Keywords: shown,
				Error:    failure.Err.Error(),
			})
			e.secureLog.SafeWarn("Batch failed after retries, continuing with next batch", map[string]interface{}{
				"run_id":   runID,
				"batch":    b.Index,
				"endpoint": failure.Endpoint,
				"keywords": shown,
				"reason":   failure.Err.Error(),
			})
			e.observer.ObserveBatch("failed")
			progress.Update(1)
			continue
		}

		for key, rec := range merger.Merge(b, payloads...) {
			records[key] = rec
		}
		e.observer.ObserveBatch("ok")
		progress.Update(1)
	}

	if canceled {
		e.observer.ObserveBatch("canceled")
		log.Warn("Run canceled, returning partial result")
	} else {
		progress.Complete()
	}

	enriched := Attach(rows, set, records, failures)

	result := &Result{
		RunID:          runID,
		Mode:           e.mode,
		KeywordColumn:  keywordColumn,
		Rows:           enriched,
		Records:        records,
		Rejected:       rejected,
		Warnings:       warnings,
		Summary:        Summarize(records),
		Batches:        len(batches),
		FailedBatches:  failedBatches,
		UniqueKeywords: set.Len(),
		Canceled:       canceled,
		StartedAt:      start,
		Duration:       time.Since(start),
	}

	e.observer.ObserveKeywords(len(records), set.Len()-len(records), len(rejected))
	log.WithFields(map[string]interface{}{
		"resolved":       result.Summary.Keywords,
		"failed_batches": failedBatches,
		"warnings":       len(warnings),
		"total_volume":   result.Summary.TotalSearchVolume,
		"avg_volume":     result.Summary.AvgSearchVolume,
		"avg_cpc":        result.Summary.AvgCPC,
		"duration":       result.Duration.Round(time.Millisecond).String(),
	}).Info("Enrichment run finished")

	switch {
	case canceled:
		outcome = "canceled"
		if err := ctx.Err(); err != nil {
			return result, err
		}
		return result, context.Canceled
	case failedBatches > 0:
		outcome = "partial"
	default:
		outcome = "ok"
	}
	return result, nil
}

// fetchBatch calls every endpoint of the mode for b, in order. A transient
// failure on any call turns the whole batch into a BatchFailure; fatal and
// cancellation errors are returned as err.
func (e *Enricher) fetchBatch(ctx context.Context, b batch.Batch) ([]api.Payload, *BatchFailure, error) {
	payloads := make([]api.Payload, 0, len(e.endpoints))

	for _, ep := range e.endpoints {
		p, err := e.poster.Post(ctx, ep, b)
		if err == nil {
			payloads = append(payloads, p)
			continue
		}

		var fatal *api.FatalAPIError
		if errors.As(err, &fatal) || isCancellation(err) {
			return nil, nil, err
		}

		return payloads, &BatchFailure{
			Index:    b.Index,
			Endpoint: ep.Name,
			Keywords: b.Keywords,
			Err:      err,
		}, nil
	}

	return payloads, nil, nil
}

func markCanceled(pending []batch.Batch, failures map[string]string) {
	for _, b := range pending {
		for _, key := range b.Keywords {
			failures[key] = ReasonCanceled
		}
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func kindEndpoint(endpoints []api.Endpoint, kind api.PayloadKind) string {
	for _, ep := range endpoints {
		if ep.Kind == kind {
			return ep.Name
		}
	}
	return strings.ToLower(kind.String())
}

// Mode returns the endpoint mode runs use
func (e *Enricher) Mode() api.Mode {
	return e.mode
}

// uniqueRejected keeps the first record of each distinct raw cell
func uniqueRejected(recs []keyword.Record) []keyword.Record {
	seen := make(map[string]bool, len(recs))
	out := recs[:0]
	for _, rec := range recs {
		if seen[rec.Raw] {
			continue
		}
		seen[rec.Raw] = true
		out = append(out, rec)
	}
	return out
}
