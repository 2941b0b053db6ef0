package keyword

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Rule rejects a cleaned keyword. Check returns "" when the keyword passes.
type Rule interface {
	Check(normalized string) string
	Name() string
}

// LengthRule bounds the rune length of a keyword
type LengthRule struct {
	minLength int
	maxLength int
	name      string
}

func NewLengthRule(name string, minLength, maxLength int) *LengthRule {
	return &LengthRule{
		name:      name,
		minLength: minLength,
		maxLength: maxLength,
	}
}

func (r *LengthRule) Check(normalized string) string {
	n := utf8.RuneCountInString(normalized)
	if n < r.minLength {
		return fmt.Sprintf("shorter than %d characters", r.minLength)
	}
	if r.maxLength > 0 && n > r.maxLength {
		return fmt.Sprintf("longer than %d characters", r.maxLength)
	}
	return ""
}

func (r *LengthRule) Name() string {
	return r.name
}

// WordCountRule caps the number of whitespace-separated words
type WordCountRule struct {
	maxWords int
	name     string
}

func NewWordCountRule(name string, maxWords int) *WordCountRule {
	return &WordCountRule{name: name, maxWords: maxWords}
}

func (r *WordCountRule) Check(normalized string) string {
	if r.maxWords <= 0 {
		return ""
	}
	if words := len(strings.Fields(normalized)); words > r.maxWords {
		return fmt.Sprintf("%d words exceeds limit of %d", words, r.maxWords)
	}
	return ""
}

func (r *WordCountRule) Name() string {
	return r.name
}

// DefaultRules builds the length and word-count rules used by NewNormalizer
func DefaultRules(opts Options) []Rule {
	return []Rule{
		NewLengthRule("length", opts.MinLength, opts.MaxLength),
		NewWordCountRule("word_count", opts.MaxWords),
	}
}
