package analysis

// Top-level fields of an analysis result.
const (
	FieldMetrics         = "metrics"
	FieldRecommendations = "recommendations"
	FieldAssumptions     = "assumptions"
	FieldRiskFactors     = "risk_factors"
	FieldMarketInsights  = "market_insights"
	FieldError           = "error"

	MetricValue       = "value"
	MetricExplanation = "explanation"
)

// MetricInfo describes one of the unit-economics metrics the model must return.
type MetricInfo struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	Description string `json:"description"`
}

// Metrics is the fixed, ordered set of required metrics.
var Metrics = []MetricInfo{
	{Key: "ltv", Name: "Customer Lifetime Value", Unit: "USD",
		Description: "Gross-margin revenue expected from one customer over the whole relationship"},
	{Key: "cac", Name: "Customer Acquisition Cost", Unit: "USD",
		Description: "Average sales and marketing spend needed to win one paying customer"},
	{Key: "ltv_cac_ratio", Name: "LTV to CAC Ratio", Unit: "ratio",
		Description: "How many times a customer pays back the cost of acquiring them; 3 or more is considered healthy"},
	{Key: "payback_period_months", Name: "CAC Payback Period", Unit: "months",
		Description: "Months of gross margin needed to recover the acquisition cost"},
	{Key: "monthly_churn_rate", Name: "Monthly Churn Rate", Unit: "percent",
		Description: "Share of paying customers lost each month"},
	{Key: "arpu", Name: "Average Revenue Per User", Unit: "USD per month",
		Description: "Average monthly revenue generated by one paying customer"},
}

// MarketInsightInfo describes a required market_insights field.
type MarketInsightInfo struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

var MarketInsights = []MarketInsightInfo{
	{Key: "market_size", Description: "estimated size of the addressable market and how it was derived"},
	{Key: "competition_level", Description: "how crowded the market is and who the main competitors are"},
	{Key: "growth_potential", Description: "realistic growth outlook and the main drivers behind it"},
}

var listFields = []string{FieldRecommendations, FieldAssumptions, FieldRiskFactors}

// Violations returns the schema problems of r as field paths, e.g.
// "risk_factors" or "metrics.cac.value". An empty slice means r is valid.
func Violations(r Result) []string {
	var out []string
	if r == nil {
		return []string{FieldMetrics, FieldRecommendations, FieldAssumptions, FieldRiskFactors, FieldMarketInsights}
	}

	metrics, ok := r[FieldMetrics].(map[string]any)
	if !ok {
		out = append(out, FieldMetrics)
	} else {
		for _, m := range Metrics {
			metric, ok := metrics[m.Key].(map[string]any)
			if !ok {
				out = append(out, FieldMetrics+"."+m.Key)
				continue
			}
			if _, ok := metric[MetricValue]; !ok {
				out = append(out, FieldMetrics+"."+m.Key+"."+MetricValue)
			}
			if _, ok := metric[MetricExplanation]; !ok {
				out = append(out, FieldMetrics+"."+m.Key+"."+MetricExplanation)
			}
		}
	}

	for _, f := range listFields {
		if _, ok := r[f].([]any); !ok {
			out = append(out, f)
		}
	}

	insights, ok := r[FieldMarketInsights].(map[string]any)
	if !ok {
		out = append(out, FieldMarketInsights)
	} else {
		for _, mi := range MarketInsights {
			if _, ok := insights[mi.Key]; !ok {
				out = append(out, FieldMarketInsights+"."+mi.Key)
			}
		}
	}

	if _, ok := r[FieldError]; ok {
		out = append(out, FieldError)
	}
	return out
}
