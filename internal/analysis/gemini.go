package analysis

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/ais-clarity/internal/cost"
	"github.com/sells-group/ais-clarity/internal/model"
	"github.com/sells-group/ais-clarity/internal/resilience"
	"github.com/sells-group/ais-clarity/pkg/gemini"
)

// GeminiAnalyzer asks a Gemini model for a verdict using structured output.
type GeminiAnalyzer struct {
	client    gemini.Client
	model     string
	maxTokens int32
	meter     *cost.Meter
}

// NewGeminiAnalyzer creates an analyzer backed by the given client. Usage
// is recorded on meter, which may be nil.
func NewGeminiAnalyzer(client gemini.Client, model string, maxTokens int32, meter *cost.Meter) *GeminiAnalyzer {
	return &GeminiAnalyzer{client: client, model: model, maxTokens: maxTokens, meter: meter}
}

// Analyze implements Analyzer.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, req Request) ([]byte, error) {
	resp, err := a.client.Generate(ctx, gemini.GenerateRequest{
		Model:           a.model,
		System:          SystemPrompt,
		Prompt:          BuildPrompt(req),
		MaxOutputTokens: a.maxTokens,
		Schema:          VerdictSchema(),
	})
	if err != nil {
		return nil, resilience.FromStatus(
			eris.Wrapf(err, "analysis: gemini %s", req.Entry.ID),
			gemini.StatusCode(err),
		)
	}

	u := resp.Usage
	a.meter.RecordGemini(a.model, req.Entry.ID, int64(u.PromptTokens), int64(u.CandidateTokens), int64(u.CachedTokens))
	return []byte(resp.Text), nil
}

// VerdictSchema is the response schema sent to Gemini.
func VerdictSchema() *genai.Schema {
	statuses := make([]string, 0, len(model.Statuses)-1)
	for _, s := range model.Statuses {
		if s != model.StatusPending {
			statuses = append(statuses, string(s))
		}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"status": {
				Type:        genai.TypeString,
				Enum:        statuses,
				Description: "Classify the entry as VERIFIED, EXPLAINABLE, UNEXPLAINED, or RISK_FLAG",
			},
			"explanation": {
				Type:        genai.TypeString,
				Description: "Neutral, audit-safe explanation referencing evidence. Must state if evidence is insufficient.",
			},
			"confidenceScore": {
				Type:        genai.TypeNumber,
				Minimum:     genai.Ptr(0.0),
				Maximum:     genai.Ptr(1.0),
				Description: "Score from 0 to 1 representing the accuracy of this analysis.",
			},
			"evidenceIds": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "IDs of the evidence items the explanation relies on.",
			},
			"suggestedActualAmount": {
				Type:        genai.TypeNumber,
				Description: "The amount found in evidence, if different from AIS.",
			},
		},
		Required: []string{"status", "explanation", "confidenceScore"},
	}
}
