package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityLogger_MaskSensitiveData(t *testing.T) {
	sl := NewSecurityLogger(NewWithWriter(Config{Level: "debug"}, &bytes.Buffer{}))

	masked := sl.MaskSensitiveData(map[string]interface{}{
		"login":        "analyst@example.com",
		"password":     "hunter2",
		"endpoint_url": "https://api.dataforseo.com/v3/keywords_data/google_ads/search_volume/live",
		"endpoint":     "google_ads_search_volume",
		"keywords":     []string{"a", "b", "c", "d"},
		"batch_index":  3,
	})

	assert.Equal(t, "***", masked["password"])
	assert.True(t, strings.HasPrefix(masked["login"].(string), "***@example.com#"))
	assert.True(t, strings.HasPrefix(masked["endpoint_url"].(string), "api.dataforseo.com/api#"))
	assert.Equal(t, "google_ads_search_volume", masked["endpoint"])
	assert.Equal(t, "keywords_count=4,sample=[a,b,...]", masked["keywords"])
	assert.Equal(t, 3, masked["batch_index"])
}

func TestSecurityLogger_SafeErrorHidesCredentials(t *testing.T) {
	var buf bytes.Buffer
	sl := NewSecurityLogger(NewWithWriter(Config{Level: "debug"}, &buf))

	sl.SafeError("request failed with Basic dXNlcjpwYXNz", errors.New("password=hunter2 rejected"), map[string]interface{}{
		"password": "hunter2",
	})

	out := buf.String()
	require.NotEmpty(t, out)
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "dXNlcjpwYXNz")
	assert.Contains(t, out, "Basic ***")
}

func TestSecurityLogger_MaskLoginWithoutDomain(t *testing.T) {
	sl := NewSecurityLogger(NewWithWriter(Config{}, &bytes.Buffer{}))

	assert.Equal(t, "", sl.MaskLogin(""))
	assert.True(t, strings.HasPrefix(sl.MaskLogin("apiuser"), "login#"))
	assert.Len(t, sl.MaskLogin("apiuser"), len("login#")+8)
}

func TestProgressReporter_Percentage(t *testing.T) {
	pr := NewProgressReporter(4, "batches", NewWithWriter(Config{}, &bytes.Buffer{}))
	pr.SetInterval(0)

	pr.Update(1)
	current, total, pct := pr.GetProgress()
	assert.Equal(t, 1, current)
	assert.Equal(t, 4, total)
	assert.InDelta(t, 25.0, pct, 0.001)

	pr.Complete()
	_, _, pct = pr.GetProgress()
	assert.InDelta(t, 100.0, pct, 0.001)
}
