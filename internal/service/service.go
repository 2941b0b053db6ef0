// Package service assembles the enrichment pipeline from configuration and
// runs upload jobs for both the CLI and the HTTP server.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"keyword-enricher/internal/config"
	"keyword-enricher/pkg/api"
	"keyword-enricher/pkg/enricher"
	"keyword-enricher/pkg/gsc"
	"keyword-enricher/pkg/logger"
	"keyword-enricher/pkg/model"
	"keyword-enricher/pkg/table"
	"keyword-enricher/pkg/telemetry"
)

// Output formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrInvalidRequest marks job errors caused by the upload or its options
var ErrInvalidRequest = errors.New("invalid request")

// Request describes one enrichment job. Zero values fall back to configuration.
type Request struct {
	Input         *table.Input
	KeywordColumn string
	Mode          string
	GSC           bool
	LocationCode  int
	LanguageCode  string
}

// Output is a finished (or canceled, partial) job ready to be written out
type Output struct {
	Result *enricher.Result
	Header []string
	Pages  []model.PageSummary
	GSC    bool
}

// Service owns the long-lived pieces shared by every job: the API client,
// its pacing, the metrics recorder and the one-run-at-a-time executor
type Service struct {
	cfg      *config.Config
	poster   api.Poster
	closer   func()
	recorder *telemetry.Recorder
	executor *api.SequentialExecutor
	base     *logger.Logger
	log      *logger.Logger
}

// New wires a DataForSEO client from cfg and creds and registers metrics on reg
func New(cfg *config.Config, creds config.Credentials, reg prometheus.Registerer, log *logger.Logger) (*Service, error) {
	limiter := api.NewRateLimiter(cfg.Rate, api.RealClock())
	retrier := api.NewRetrier(cfg.Retry, api.RealClock())

	conn := api.DefaultConnectionConfig()
	conn.RequestTimeout = cfg.API.Timeout

	client := api.NewClient(api.ClientConfig{
		BaseURL:      cfg.API.BaseURL,
		Login:        creds.Login,
		Password:     creds.Password,
		LocationCode: cfg.API.LocationCode,
		LanguageCode: cfg.API.LanguageCode,
		Connection:   conn,
	}, limiter, retrier)

	s, err := NewWithPoster(cfg, client, reg, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	client.SetObserver(s.recorder)
	s.closer = client.Close
	return s, nil
}

// NewWithPoster builds a service around an existing poster
func NewWithPoster(cfg *config.Config, poster api.Poster, reg prometheus.Registerer, log *logger.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if poster == nil {
		return nil, errors.New("API client is required")
	}

	recorder, err := telemetry.NewRecorder(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	if log == nil {
		log = logger.GetLogger()
	}

	return &Service{
		cfg:      cfg,
		poster:   poster,
		closer:   func() {},
		recorder: recorder,
		executor: api.NewSequentialExecutor(),
		base:     log,
		log:      log.WithField("component", "service"),
	}, nil
}

// Enrich runs req once no other job is running. On cancellation the partial
// Output is returned together with the context error.
func (s *Service) Enrich(ctx context.Context, req Request) (*Output, error) {
	if req.Input == nil {
		return nil, fmt.Errorf("%w: no input table", ErrInvalidRequest)
	}

	var out *Output
	err := s.executor.Execute(ctx, func() error {
		var runErr error
		out, runErr = s.run(ctx, req)
		return runErr
	})
	return out, err
}

func (s *Service) run(ctx context.Context, req Request) (*Output, error) {
	in := req.Input

	var cols gsc.Columns
	column := req.KeywordColumn
	if req.GSC {
		detected, err := gsc.DetectColumns(in.Header)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		cols = detected
		if column == "" {
			column = cols.Query
		}
	}

	column, err := table.DetectKeywordColumn(in.Header, column)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	mode := req.Mode
	if mode == "" {
		mode = s.cfg.API.Mode
	}

	poster := s.poster
	if l, ok := poster.(Localizer); ok && (req.LocationCode > 0 || req.LanguageCode != "") {
		poster = l.Localize(req.LocationCode, req.LanguageCode)
	}

	e, err := enricher.NewBuilder().
		WithPoster(poster).
		WithMode(mode).
		WithBatchSize(s.cfg.Batch.Size).
		WithNormalizeOptions(s.cfg.Normalize).
		WithObserver(s.recorder).
		WithLogger(s.base).
		Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	s.log.WithFields(map[string]interface{}{
		"input":          in.Name,
		"rows":           len(in.Rows),
		"keyword_column": column,
		"mode":           string(e.Mode()),
		"gsc":            req.GSC,
	}).Info("Enrichment job accepted")

	result, runErr := e.Run(ctx, in.Rows, column)
	if result == nil {
		return nil, runErr
	}

	out := &Output{Result: result, Header: in.Header, GSC: req.GSC}
	if req.GSC {
		out.Pages = gsc.Aggregate(result.Rows, cols)
	}
	return out, runErr
}

// HealthCheck succeeds while the service can accept jobs
func (s *Service) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// Busy reports whether a job is running
func (s *Service) Busy() bool {
	return s.executor.Busy()
}

// Close releases the API client's connections
func (s *Service) Close() {
	s.closer()
}

// Sheets returns the tables of o in workbook order
func (o *Output) Sheets() []*table.Sheet {
	sheets := []*table.Sheet{
		table.KeywordsSheet(o.Header, o.Result.Rows, table.LayoutForMode(string(o.Result.Mode))),
	}
	if o.GSC {
		sheets = append(sheets, table.PageSummarySheet(o.Pages))
	}
	if w := table.WarningsSheet(o.Result.Warnings); w != nil {
		sheets = append(sheets, w)
	}
	return sheets
}

// Write renders o as an XLSX workbook, or as CSV holding the Keywords table
// only. A CSV caller gets the remaining tables from Secondary.
func (o *Output) Write(w io.Writer, format string) error {
	switch ParseFormat(format) {
	case FormatXLSX:
		return table.WriteXLSX(w, o.Sheets()...)
	default:
		return table.WriteCSV(w, o.Sheets()[0])
	}
}

// Secondary returns the tables after Keywords: the page summary and warnings
func (o *Output) Secondary() []*table.Sheet {
	return o.Sheets()[1:]
}

// ParseFormat normalizes a format name; anything but xlsx means csv
func ParseFormat(format string) string {
	if strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(format), "."), FormatXLSX) {
		return FormatXLSX
	}
	return FormatCSV
}

// FileName is the download name for format
func FileName(format string) string {
	return table.DefaultBaseName + "." + ParseFormat(format)
}

// ContentType is the MIME type for format
func ContentType(format string) string {
	if ParseFormat(format) == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// SummaryHeaders renders the run summary as response headers
func (o *Output) SummaryHeaders() map[string]string {
	r := o.Result
	return map[string]string{
		"X-Run-Id":              r.RunID,
		"X-Keywords-Unique":     fmt.Sprint(r.UniqueKeywords),
		"X-Keywords-Resolved":   fmt.Sprint(r.Summary.Keywords),
		"X-Keywords-Rejected":   fmt.Sprint(len(r.Rejected)),
		"X-Batches-Failed":      fmt.Sprint(r.FailedBatches),
		"X-Total-Search-Volume": fmt.Sprint(r.Summary.TotalSearchVolume),
		"X-Avg-Search-Volume":   fmt.Sprintf("%.2f", r.Summary.AvgSearchVolume),
		"X-Avg-Cpc":             fmt.Sprintf("%.2f", r.Summary.AvgCPC),
		"X-Run-Duration":        r.Duration.Round(time.Millisecond).String(),
	}
}
