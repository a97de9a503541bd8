// Package metrics tracks per-call cost and token usage across the
// pipeline's AI provider calls: one Metric per call, recorded to an
// in-process, mutex-guarded store and surfaced through internal/events.
package metrics

import "time"

// Metric records one AI provider call's cost, token usage, and outcome.
type Metric struct {
	BookID       string `json:"book_id,omitempty"`
	Stage        string `json:"stage,omitempty"` // "analyze", "extract", "illustrate"
	ChapterIndex int    `json:"chapter_index,omitempty"`

	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	CostUSD          float64 `json:"cost_usd,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	ReasoningTokens  int     `json:"reasoning_tokens,omitempty"`
	TotalTokens      int64   `json:"total_tokens,omitempty"`

	TotalSeconds float64 `json:"total_seconds,omitempty"`
	Retries      int     `json:"retries,omitempty"`

	Success   bool   `json:"success"`
	ErrorType string `json:"error_type,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}
