package analysis

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ais-clarity/internal/cost"
	"github.com/sells-group/ais-clarity/internal/resilience"
	"github.com/sells-group/ais-clarity/pkg/anthropic"
)

// ClaudeAnalyzer asks a Claude model for a verdict. The model has no
// structured-output schema, so the JSON contract is spelled out in the
// system prompt and the reply is trimmed to its outermost object.
type ClaudeAnalyzer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	cacheTTL  string
	meter     *cost.Meter
}

// NewClaudeAnalyzer creates an analyzer backed by the given client. Usage
// is recorded on meter, which may be nil.
func NewClaudeAnalyzer(client anthropic.Client, model string, maxTokens int64, cacheTTL string, meter *cost.Meter) *ClaudeAnalyzer {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &ClaudeAnalyzer{client: client, model: model, maxTokens: maxTokens, cacheTTL: cacheTTL, meter: meter}
}

// Analyze implements Analyzer.
func (a *ClaudeAnalyzer) Analyze(ctx context.Context, req Request) ([]byte, error) {
	temp := 0.0
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(SystemPrompt+"\n\n"+jsonContract, a.cacheTTL),
		Messages:    []anthropic.Message{{Role: "user", Content: BuildPrompt(req)}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, resilience.FromStatus(
			eris.Wrapf(err, "analysis: claude %s", req.Entry.ID),
			anthropic.StatusCode(err),
		)
	}

	u := resp.Usage
	a.meter.RecordClaude(a.model, req.Entry.ID, u.InputTokens, u.OutputTokens, u.CacheCreationInputTokens, u.CacheReadInputTokens)
	return []byte(cleanJSON(resp.Text())), nil
}

// cleanJSON strips markdown code fences and anything outside the outermost
// JSON object. Text without an object is returned trimmed.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	for _, fence := range []string{"```json", "```"} {
		if strings.HasPrefix(text, fence) {
			text = strings.TrimPrefix(text, fence)
			if idx := strings.LastIndex(text, "```"); idx >= 0 {
				text = text[:idx]
			}
			break
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
