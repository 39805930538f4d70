package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: `{"mappings": [`},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: `]}`},
	}}
	assert.Equal(t, `{"mappings": []}`, resp.Text())
}

func TestMessageResponse_TextEmpty(t *testing.T) {
	assert.Equal(t, "", (&MessageResponse{}).Text())
}

func TestEstimateCost_Haiku(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	// input: 1M * $0.80/MTok = $0.80
	// output: 1M * $4.00/MTok = $4.00
	assert.InDelta(t, 4.80, cost, 0.001)
}

func TestEstimateCost_Sonnet(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 18.00, usage.EstimateCost("claude-sonnet-4-5-20250929"), 0.001)
}

func TestEstimateCost_WithCache(t *testing.T) {
	usage := TokenUsage{
		InputTokens:              20_000,
		OutputTokens:             2_000,
		CacheCreationInputTokens: 100_000,
		CacheReadInputTokens:     400_000,
	}
	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	// input: 0.02M * $0.80 = $0.016
	// output: 0.002M * $4.00 = $0.008
	// cacheWrite: 0.1M * $0.80 * 1.25 = $0.10
	// cacheRead: 0.4M * $0.80 * 0.10 = $0.032
	assert.InDelta(t, 0.156, cost, 0.0001)
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.Equal(t, 0.0, usage.EstimateCost("unknown-model"))
}

func TestLogUsage_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		usage := TokenUsage{InputTokens: 100, OutputTokens: 50}
		usage.LogUsage("claude-haiku-4-5-20251001", "tag_mapping")
	})
	assert.NotPanics(t, func() {
		TokenUsage{}.LogUsage("unknown-model", "tag_mapping")
	})
}

func TestMessageResponse_Truncated(t *testing.T) {
	assert.True(t, (&MessageResponse{StopReason: "max_tokens"}).Truncated())
	assert.False(t, (&MessageResponse{StopReason: "end_turn"}).Truncated())
}
