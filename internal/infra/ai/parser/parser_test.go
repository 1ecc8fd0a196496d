package parser

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

const validJSON = `{
  "metrics": {
    "ltv": {"value": 1200, "explanation": "12 months at 100 USD"},
    "cac": {"value": 300, "explanation": "paid ads"},
    "ltv_cac_ratio": {"value": 4, "explanation": "1200 / 300"},
    "payback_period_months": {"value": 3.5, "explanation": "300 / margin"},
    "monthly_churn_rate": {"value": 5, "explanation": "typical for {consumer} apps"},
    "arpu": {"value": 100, "explanation": "subscription price"}
  },
  "recommendations": ["Raise prices"],
  "assumptions": ["Churn stays flat"],
  "risk_factors": ["Competition"],
  "market_insights": {
    "market_size": "2B USD",
    "competition_level": "high",
    "growth_potential": "strong"
  },
  "confidence": "medium"
}`

func newObserved() (*Parser, *observer.ObservedLogs) {
	core, logs := observer.New(zap.WarnLevel)
	return New(zap.New(core)), logs
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"surrounding prose", "Sure! {\"a\":{\"b\":2}} bye", `{"a":{"b":2}}`, true},
		{"code fence", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"indented fence", "  ```JSON  \n{\"a\":1}\n  ```", `{"a":1}`, true},
		{"backticks inside a value survive", "```json\n{\"a\":\"run ```bash ls```\"}\n```", "{\"a\":\"run ```bash ls```\"}", true},
		{"braces inside strings", `x {"a":"}{"} y`, `{"a":"}{"}`, true},
		{"escaped quote in string", `{"a":"say \"}\" now"}`, `{"a":"say \"}\" now"}`, true},
		{"first object wins", `{"a":1} and {"b":2}`, `{"a":1}`, true},
		{"extra closing brace", `{"a": {"b": 1} }}`, `{"a": {"b": 1} }`, true},
		{"unclosed object falls back to greedy", `{"a": {"b": 1}`, `{"a": {"b": 1}`, true},
		{"no braces", "I cannot help with that.", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode(t *testing.T) {
	obj, err := Decode(`{"n": 1.50, "s": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1.50"), obj["n"])

	_, err = Decode(`{"a": 1,}`)
	assert.Error(t, err)

	_, err = Decode(`{"a":1} {"b":2}`)
	assert.Error(t, err, "trailing data is rejected")

	_, err = Decode(`null`)
	assert.Error(t, err)

	deep := strings.Repeat(`{"a":`, MaxDepth+1) + "1" + strings.Repeat("}", MaxDepth+1)
	_, err = Decode(deep)
	assert.ErrorIs(t, err, errTooDeep)

	ok := strings.Repeat(`{"a":`, 10) + "1" + strings.Repeat("}", 10)
	_, err = Decode(ok)
	assert.NoError(t, err)
}

func TestParse_FencedWithProse(t *testing.T) {
	p, logs := newObserved()
	raw := "Here you go:\n```json\n" + validJSON + "\n```\nHope that helps!"

	r := p.Parse(raw)
	assert.False(t, r.Degraded())
	assert.True(t, r.Valid())
	assert.Equal(t, "medium", r["confidence"], "unknown fields pass through")
	assert.Equal(t, 0, logs.Len())

	cac := r["metrics"].(map[string]any)["cac"].(map[string]any)
	assert.Equal(t, json.Number("300"), cac["value"])
}

func TestParse_MissingSectionFallsBack(t *testing.T) {
	p, logs := newObserved()

	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(validJSON), &obj))
	delete(obj, "risk_factors")
	b, _ := json.Marshal(obj)

	r := p.Parse(string(b))
	assert.Equal(t, analysis.Fallback(), r)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, []interface{}{"risk_factors"}, entry.ContextMap()["missing_fields"])
}

func TestParse_BrokenJSONFallsBack(t *testing.T) {
	p, logs := newObserved()
	r := p.Parse(`{"metrics": {"ltv": {"value": 1,,}}`)
	assert.True(t, r.Degraded())
	assert.Equal(t, analysis.ParseFailedCode, r["error"])
	assert.Equal(t, 1, logs.Len())
}

func TestParse_NoJSONFallsBack(t *testing.T) {
	p, _ := newObserved()
	assert.Equal(t, analysis.Fallback(), p.Parse("Sorry, I can't do that."))
}

func TestParse_ModelErrorFieldFallsBack(t *testing.T) {
	p, _ := newObserved()
	raw := strings.Replace(validJSON, `"confidence": "medium"`, `"error": "refused"`, 1)
	r := p.Parse(raw)
	assert.Equal(t, analysis.ParseFailedCode, r["error"])
}

func TestParse_PreviewIsTruncated(t *testing.T) {
	p, logs := newObserved()
	p.Parse(strings.Repeat("x", 5000))

	require.Equal(t, 1, logs.Len())
	preview := logs.All()[0].ContextMap()["response_preview"].(string)
	assert.Less(t, len(preview), 300)
}

func TestDecodeResult(t *testing.T) {
	r, err := DecodeResult([]byte("  " + validJSON + "\n"))
	require.NoError(t, err)
	assert.True(t, r.Valid())

	_, err = DecodeResult([]byte("not json"))
	assert.Error(t, err)
}
