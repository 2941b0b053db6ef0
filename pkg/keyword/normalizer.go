// Package keyword cleans raw keyword cells into matching keys and
// deduplicates them so each distinct term is fetched exactly once.
package keyword

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const allowedPunctuation = "'-&.+#_"

// Options bounds what counts as a fetchable keyword
type Options struct {
	MinLength int `mapstructure:"min_length"`
	MaxLength int `mapstructure:"max_length"`
	MaxWords  int `mapstructure:"max_words"`
}

// DefaultOptions returns the limits used when nothing is configured
func DefaultOptions() Options {
	return Options{
		MinLength: 2,
		MaxLength: 80,
		MaxWords:  10,
	}
}

// Record is the outcome of normalizing one raw keyword
type Record struct {
	Raw        string
	Normalized string
	Valid      bool
	Reason     string
}

// ValidationError reports why a keyword was excluded from fetching
type ValidationError struct {
	Raw    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid keyword %q: %s", e.Raw, e.Reason)
}

// Err returns the validation error for an invalid record, nil otherwise
func (r Record) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Raw: r.Raw, Reason: r.Reason}
}

// Normalizer turns raw strings into case-folded matching keys
type Normalizer struct {
	rules []Rule
}

// NewNormalizer creates a normalizer with the length and word-count rules for opts
func NewNormalizer(opts Options) *Normalizer {
	return NewNormalizerWithRules(DefaultRules(opts)...)
}

// NewNormalizerWithRules creates a normalizer with an explicit rule list
func NewNormalizerWithRules(rules ...Rule) *Normalizer {
	return &Normalizer{rules: rules}
}

// Key returns only the cleaned matching key for s, without validation.
// Response echoes are matched through this so they compare like input cells.
func (n *Normalizer) Key(s string) string {
	// cases.Caser carries state and is not safe for concurrent use
	s = norm.NFKC.String(cases.Fold().String(norm.NFKC.String(s)))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case strings.ContainsRune(allowedPunctuation, r):
			b.WriteRune(r)
		default:
			// Disallowed characters separate words rather than join them
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Normalize cleans raw and applies the validation rules
func (n *Normalizer) Normalize(raw string) Record {
	rec := Record{Raw: raw, Normalized: n.Key(raw)}

	if rec.Normalized == "" {
		rec.Reason = "empty after cleaning"
		return rec
	}

	for _, rule := range n.rules {
		if reason := rule.Check(rec.Normalized); reason != "" {
			rec.Reason = reason
			return rec
		}
	}

	rec.Valid = true
	return rec
}

// NormalizeAll normalizes one keyword cell per input row and deduplicates valid keys
func (n *Normalizer) NormalizeAll(raws []string) *Set {
	set := &Set{
		rows:    make([]Record, len(raws)),
		display: make(map[string]string),
	}

	seen := make(map[string]Record)
	for i, raw := range raws {
		rec, ok := seen[raw]
		if !ok {
			rec = n.Normalize(raw)
			seen[raw] = rec
		}
		set.rows[i] = rec

		if !rec.Valid {
			continue
		}
		if _, exists := set.display[rec.Normalized]; !exists {
			set.display[rec.Normalized] = strings.TrimSpace(raw)
			set.keys = append(set.keys, rec.Normalized)
		}
	}

	return set
}
