package keyword

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(DefaultOptions())

	tests := []struct {
		name       string
		raw        string
		normalized string
		valid      bool
	}{
		{"trim and collapse", "  best   running\tshoes ", "best running shoes", true},
		{"case fold", "Best RUNNING Shoes", "best running shoes", true},
		{"allowed punctuation kept", "C++ & c# tips", "c++ & c# tips", true},
		{"disallowed punctuation splits", "shoes/boots!!", "shoes boots", true},
		{"full width folded", "ＳＥＯ tools", "seo tools", true},
		{"empty", "   ", "", false},
		{"only punctuation", "!!!", "", false},
		{"too short", "a", "a", false},
		{"too many words", "one two three four five six seven eight nine ten eleven", "one two three four five six seven eight nine ten eleven", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := n.Normalize(tt.raw)
			assert.Equal(t, tt.normalized, rec.Normalized)
			assert.Equal(t, tt.valid, rec.Valid)
			if !tt.valid {
				assert.NotEmpty(t, rec.Reason)
			}
		})
	}
}

func TestNormalizer_TooLong(t *testing.T) {
	n := NewNormalizer(Options{MinLength: 2, MaxLength: 10, MaxWords: 10})

	rec := n.Normalize(strings.Repeat("x", 11))
	assert.False(t, rec.Valid)
	assert.Contains(t, rec.Reason, "longer than 10")

	var verr *ValidationError
	require.True(t, errors.As(rec.Err(), &verr))
	assert.Equal(t, strings.Repeat("x", 11), verr.Raw)
}

func TestNormalizer_Idempotent(t *testing.T) {
	n := NewNormalizer(DefaultOptions())

	inputs := []string{
		"  Best   Running Shoes ",
		"ＳＥＯ　Tools — 2024",
		"Straße & Café",
		"what's the #1 tip?",
		"école",
		"ﬁnance",
	}

	for _, raw := range inputs {
		once := n.Normalize(raw).Normalized
		twice := n.Normalize(once).Normalized
		assert.Equal(t, once, twice, "normalization of %q is not idempotent", raw)
	}
}

func TestNormalizer_NormalizeAllDeduplicates(t *testing.T) {
	n := NewNormalizer(DefaultOptions())

	set := n.NormalizeAll([]string{
		" Running Shoes",
		"running   shoes",
		"RUNNING SHOES ",
		"x",
		"trail shoes",
		"",
	})

	assert.Equal(t, []string{"running shoes", "trail shoes"}, set.Keys())
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, "Running Shoes", set.Display("running shoes"))

	for _, i := range []int{0, 1, 2} {
		key, ok, _ := set.RowKey(i)
		assert.True(t, ok)
		assert.Equal(t, "running shoes", key)
	}

	_, ok, reason := set.RowKey(3)
	assert.False(t, ok)
	assert.Contains(t, reason, "shorter than 2")

	_, ok, reason = set.RowKey(5)
	assert.False(t, ok)
	assert.Equal(t, "empty after cleaning", reason)

	assert.Len(t, set.Records(), 6)
	assert.Len(t, set.Rejected(), 2)
	assert.True(t, set.Contains("trail shoes"))
	assert.False(t, set.Contains("x"))
}

func TestSet_DisplayUnknownKey(t *testing.T) {
	set := NewNormalizer(DefaultOptions()).NormalizeAll(nil)

	assert.Equal(t, "missing", set.Display("missing"))
	_, ok, reason := set.RowKey(0)
	assert.False(t, ok)
	assert.Equal(t, "row out of range", reason)
}
