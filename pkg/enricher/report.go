package enricher

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"keyword-enricher/pkg/keyword"
)

// Report is the YAML run report written next to the exported table
type Report struct {
	RunID          string           `yaml:"run_id"`
	Mode           string           `yaml:"mode"`
	KeywordColumn  string           `yaml:"keyword_column"`
	StartedAt      time.Time        `yaml:"started_at"`
	Duration       string           `yaml:"duration"`
	Rows           int              `yaml:"rows"`
	MissingRows    int              `yaml:"missing_rows"`
	UniqueKeywords int              `yaml:"unique_keywords"`
	Batches        int              `yaml:"batches"`
	FailedBatches  int              `yaml:"failed_batches"`
	Canceled       bool             `yaml:"canceled"`
	Summary        Summary          `yaml:"summary"`
	Rejected       []RejectedReport `yaml:"rejected,omitempty"`
	Warnings       []Warning        `yaml:"warnings,omitempty"`
}

// RejectedReport is one keyword cell that failed validation
type RejectedReport struct {
	Raw    string `yaml:"raw"`
	Reason string `yaml:"reason"`
}

// NewReport flattens a run result into its report form
func NewReport(r *Result) Report {
	report := Report{
		RunID:          r.RunID,
		Mode:           string(r.Mode),
		KeywordColumn:  r.KeywordColumn,
		StartedAt:      r.StartedAt.UTC(),
		Duration:       r.Duration.Round(time.Millisecond).String(),
		Rows:           len(r.Rows),
		UniqueKeywords: r.UniqueKeywords,
		Batches:        r.Batches,
		FailedBatches:  r.FailedBatches,
		Canceled:       r.Canceled,
		Summary:        r.Summary,
		Warnings:       r.Warnings,
	}

	for _, row := range r.Rows {
		if row.Missing {
			report.MissingRows++
		}
	}

	for _, rec := range r.Rejected {
		var verr *keyword.ValidationError
		if errors.As(rec.Err(), &verr) {
			report.Rejected = append(report.Rejected, RejectedReport{Raw: verr.Raw, Reason: verr.Reason})
		}
	}

	return report
}

// WriteReport encodes the run report as YAML
func WriteReport(w io.Writer, r *Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewReport(r)); err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	return enc.Close()
}
