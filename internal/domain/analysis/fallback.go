package analysis

// ParseFailedCode is the error marker carried by the fallback result.
const ParseFailedCode = "analysis_parse_failed"

const (
	fallbackExplanation = "Unable to parse the model response; no estimate available."
	fallbackUnavailable = "Unavailable: the model response could not be parsed."
)

// Fallback returns the canned degraded result. A fresh value is built on
// every call so callers may not share mutable state through it.
func Fallback() Result {
	metrics := make(map[string]any, len(Metrics))
	for _, m := range Metrics {
		metrics[m.Key] = map[string]any{
			MetricValue:       0,
			MetricExplanation: fallbackExplanation,
		}
	}
	insights := make(map[string]any, len(MarketInsights))
	for _, mi := range MarketInsights {
		insights[mi.Key] = fallbackUnavailable
	}
	return Result{
		FieldMetrics:         metrics,
		FieldRecommendations: []any{"Retry the analysis; the previous attempt returned an unreadable response."},
		FieldAssumptions:     []any{fallbackUnavailable},
		FieldRiskFactors:     []any{fallbackUnavailable},
		FieldMarketInsights:  insights,
		FieldError:           ParseFailedCode,
	}
}
