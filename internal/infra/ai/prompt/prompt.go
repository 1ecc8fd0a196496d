package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

const systemPrompt = `You are a senior startup financial analyst who specialises in unit economics for early-stage companies. You have evaluated hundreds of business models across SaaS, marketplaces, e-commerce and consumer apps, and you give conservative, well-reasoned estimates of LTV, CAC and related metrics. When information is missing you state the assumption you made instead of refusing. You always answer with one valid JSON object and nothing else.`

const userTemplate = `Estimate the unit economics of the following startup.

Startup idea:
%s

Description:
%s

Additional information:
%s

%s`

// Builder renders requests into prompts. It holds no state.
type Builder struct{}

func (Builder) Build(req analysis.Request) analysis.Prompt {
	return analysis.Prompt{System: GetSystemPrompt(), User: GetUserPrompt(req)}
}

// GetSystemPrompt returns the fixed persona instruction.
func GetSystemPrompt() string {
	return systemPrompt
}

// GetUserPrompt interpolates the request fields verbatim and appends the
// output schema.
func GetUserPrompt(req analysis.Request) string {
	info := req.AdditionalInfo
	if info == "" {
		info = "Not provided."
	}
	return fmt.Sprintf(userTemplate, req.StartupIdea, req.Description, info, outputSchema)
}

var outputSchema = buildOutputSchema()

func buildOutputSchema() string {
	var b strings.Builder
	b.WriteString("Response format requirements:\n")
	b.WriteString("- Respond with a single valid JSON object only. No markdown, no code fences, no text before or after it.\n")
	b.WriteString("- Every numeric value must be a bare JSON number (no units, currency signs, percent signs or quotes).\n")
	b.WriteString("- Every field listed below is required.\n\n")

	b.WriteString("Fields:\n")
	fmt.Fprintf(&b, "- %q: an object with exactly these keys, each an object {\"value\": number, \"explanation\": string}:\n", analysis.FieldMetrics)
	for _, m := range analysis.Metrics {
		fmt.Fprintf(&b, "    - %q: %s (%s). %s.\n", m.Key, m.Name, m.Unit, m.Description)
	}
	fmt.Fprintf(&b, "- %q: an array of strings with concrete actions to improve the unit economics, most important first.\n", analysis.FieldRecommendations)
	fmt.Fprintf(&b, "- %q: an array of strings listing every assumption behind the numbers.\n", analysis.FieldAssumptions)
	fmt.Fprintf(&b, "- %q: an array of strings naming the main risks to the model.\n", analysis.FieldRiskFactors)
	fmt.Fprintf(&b, "- %q: an object with these string fields:\n", analysis.FieldMarketInsights)
	for _, mi := range analysis.MarketInsights {
		fmt.Fprintf(&b, "    - %q: %s.\n", mi.Key, mi.Description)
	}

	b.WriteString("\nShape (example with empty values):\n{\n")
	fmt.Fprintf(&b, "  %q: {\n", analysis.FieldMetrics)
	for i, m := range analysis.Metrics {
		sep := ","
		if i == len(analysis.Metrics)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    %q: {\"value\": 0, \"explanation\": \"<string>\"}%s\n", m.Key, sep)
	}
	b.WriteString("  },\n")
	fmt.Fprintf(&b, "  %q: [\"<string>\"],\n", analysis.FieldRecommendations)
	fmt.Fprintf(&b, "  %q: [\"<string>\"],\n", analysis.FieldAssumptions)
	fmt.Fprintf(&b, "  %q: [\"<string>\"],\n", analysis.FieldRiskFactors)
	fmt.Fprintf(&b, "  %q: {", analysis.FieldMarketInsights)
	for i, mi := range analysis.MarketInsights {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: \"<string>\"", mi.Key)
	}
	b.WriteString("}\n}")
	return b.String()
}
