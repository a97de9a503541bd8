// Package aiclient implements the AI client facade: a normalized surface
// over a chat/completion endpoint and an image endpoint, so the phase
// packages never see provider-specific request/response shapes.
package aiclient

import "context"

// Scene is one illustration-worthy moment Analyze extracts from a chapter.
type Scene struct {
	Description string
	Quote       string
	PageRef     string
	Entities    []string
}

// ExtractedEntity is a story object Analyze found while reading a chapter.
type ExtractedEntity struct {
	Type        string
	Name        string
	Description string
	Quotes      []string
}

// AnalyzeResult is AnalyzeChapterUnified's return shape.
type AnalyzeResult struct {
	Scenes     []Scene
	Entities   []ExtractedEntity
	TokensUsed int64
}

// AnalyzeConfig parameterizes a single analyze call.
type AnalyzeConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// ResolveResult is resolveEntity's return shape.
type ResolveResult struct {
	IsMatch    bool
	Confidence float64
	Reasoning  string
}

// Client is the normalized facade every phase package depends on. Callers
// never see whether image generation returned an inline-bytes chat
// completion or a separate images/generations URL response.
type Client interface {
	// AnalyzeChapterUnified issues the single model call that returns both
	// scenes and entities; one unified call costs half the API calls of
	// separate scene and entity passes.
	AnalyzeChapterUnified(ctx context.Context, chapterText, elementContext string, numScenes int, cfg AnalyzeConfig) (AnalyzeResult, error)

	// ResolveEntity asks the model whether candidateName (of the given
	// type) is the same story object as existingName. Callers must consult
	// the entity resolution cache before calling this.
	ResolveEntity(ctx context.Context, entityType, candidateName, existingName string, cfg AnalyzeConfig) (ResolveResult, error)

	// EnrichDescription collapses multiple enrichment entries into one
	// coherent paragraph. Optional: callers fall back to simple
	// append-with-separator when no enrichment-capable client is configured.
	EnrichDescription(ctx context.Context, baseDescription string, newDetails []string, cfg AnalyzeConfig) (string, error)

	// GenerateImage returns PNG bytes for prompt. Implementations that only
	// yield a URL download the image before returning.
	GenerateImage(ctx context.Context, prompt string, size string, cfg AnalyzeConfig) ([]byte, error)

	// Name identifies the client for registry lookup and logging.
	Name() string

	// TokensUsed reports the running per-book token total the facade keeps.
	TokensUsed() int64
}
