package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validResult() Result {
	metrics := map[string]any{}
	for _, m := range Metrics {
		metrics[m.Key] = map[string]any{"value": 1.5, "explanation": "because"}
	}
	return Result{
		"metrics":         metrics,
		"recommendations": []any{"a"},
		"assumptions":     []any{"b"},
		"risk_factors":    []any{"c"},
		"market_insights": map[string]any{
			"market_size":       "large",
			"competition_level": "high",
			"growth_potential":  "moderate",
		},
	}
}

func TestViolations(t *testing.T) {
	t.Run("valid result", func(t *testing.T) {
		r := validResult()
		assert.Empty(t, Violations(r))
		assert.True(t, r.Valid())
		assert.False(t, r.Degraded())
	})

	t.Run("unknown fields are tolerated", func(t *testing.T) {
		r := validResult()
		r["summary"] = "extra"
		assert.True(t, r.Valid())
	})

	t.Run("missing section", func(t *testing.T) {
		r := validResult()
		delete(r, "risk_factors")
		assert.Equal(t, []string{"risk_factors"}, Violations(r))
	})

	t.Run("metric without value", func(t *testing.T) {
		r := validResult()
		r["metrics"].(map[string]any)["cac"] = map[string]any{"explanation": "x"}
		assert.Equal(t, []string{"metrics.cac.value"}, Violations(r))
	})

	t.Run("missing metric", func(t *testing.T) {
		r := validResult()
		delete(r["metrics"].(map[string]any), "arpu")
		assert.Equal(t, []string{"metrics.arpu"}, Violations(r))
	})

	t.Run("missing market insight", func(t *testing.T) {
		r := validResult()
		delete(r["market_insights"].(map[string]any), "growth_potential")
		assert.Equal(t, []string{"market_insights.growth_potential"}, Violations(r))
	})

	t.Run("list of wrong kind", func(t *testing.T) {
		r := validResult()
		r["assumptions"] = "just text"
		assert.Equal(t, []string{"assumptions"}, Violations(r))
	})

	t.Run("error marker invalidates", func(t *testing.T) {
		r := validResult()
		r["error"] = "boom"
		assert.False(t, r.Valid())
		assert.True(t, r.Degraded())
	})

	t.Run("nil result", func(t *testing.T) {
		assert.Len(t, Violations(nil), 5)
	})
}

func TestFallback(t *testing.T) {
	fb := Fallback()
	require.True(t, fb.Degraded())
	assert.Equal(t, []string{"error"}, Violations(fb), "fallback is complete apart from its error marker")
	assert.Equal(t, ParseFailedCode, fb["error"])

	for _, m := range Metrics {
		metric := fb["metrics"].(map[string]any)[m.Key].(map[string]any)
		assert.Equal(t, 0, metric["value"])
	}

	// each call is independent
	fb["recommendations"] = nil
	assert.NotNil(t, Fallback()["recommendations"])
}

func TestCacheKey(t *testing.T) {
	base := Request{StartupIdea: "Food delivery", Description: "An app for groceries"}

	k := base.CacheKey()
	assert.Len(t, k, 64)
	assert.Equal(t, k, base.CacheKey())

	withInfo := base
	withInfo.AdditionalInfo = "B2C"
	assert.NotEqual(t, k, withInfo.CacheKey())

	other := base
	other.Description = "An app for groceries!"
	assert.NotEqual(t, k, other.CacheKey())
}

func TestUpstreamKind(t *testing.T) {
	assert.Equal(t, "rate_limited", UpstreamKind(ErrUpstreamRateLimited))
	assert.Equal(t, "unknown_status", UpstreamKind(&UpstreamUnknownError{Status: 418}))
	assert.Equal(t, "configuration_missing", UpstreamKind(&InternalError{RequestID: "x", Err: ErrConfigurationMissing}))
	assert.Equal(t, "other", UpstreamKind(assert.AnError))
}
