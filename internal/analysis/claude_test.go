package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ais-clarity/internal/cost"
	"github.com/sells-group/ais-clarity/internal/resilience"
	"github.com/sells-group/ais-clarity/pkg/anthropic"
)

func TestClaudeAnalyzer_Analyze(t *testing.T) {
	mc := new(mockAnthropic)
	meter := cost.NewMeter(cost.NewCalculator(cost.DefaultRates()))
	a := NewClaudeAnalyzer(mc, "claude-sonnet-4-5-20250929", 0, "1h", meter)

	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-sonnet-4-5-20250929" &&
			req.MaxTokens == 1024 &&
			len(req.System) == 1 &&
			req.System[0].CacheControl != nil &&
			req.System[0].CacheControl.TTL == "1h" &&
			len(req.Messages) == 1 &&
			req.Messages[0].Role == "user" &&
			req.Temperature != nil && *req.Temperature == 0
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "```json\n{\"status\":\"VERIFIED\"}\n```"}},
		Usage:   anthropic.TokenUsage{InputTokens: 900, OutputTokens: 80},
	}, nil)

	out, err := a.Analyze(context.Background(), NewRequest(sampleEntry(), sampleEvidence()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"VERIFIED"}`, string(out))
	mc.AssertExpectations(t)

	usage := meter.Snapshot()
	require.Len(t, usage, 1)
	assert.Equal(t, "anthropic", usage[0].Provider)
	assert.Equal(t, int64(900), usage[0].InputTokens)
	assert.InDelta(t, 0.0039, usage[0].CostUSD, 1e-9)
}

func TestClaudeAnalyzer_WrapsError(t *testing.T) {
	mc := new(mockAnthropic)
	a := NewClaudeAnalyzer(mc, "m", 512, "", nil)

	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	_, err := a.Analyze(context.Background(), NewRequest(sampleEntry(), nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis: claude AIS-001")
}

func TestClaudeAnalyzer_PermanentError(t *testing.T) {
	mc := new(mockAnthropic)
	a := NewClaudeAnalyzer(mc, "m", 512, "", nil)

	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("invalid request"))
	_, err := a.Analyze(context.Background(), NewRequest(sampleEntry(), nil))
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go: {\"a\":1} hope that helps", `{"a":1}`},
		{"nested", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
		{"no object", "  not json  ", "not json"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}
