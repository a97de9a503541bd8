package aiclient

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tribixbite/imaginize/internal/ierrors"
)

// MockClientName is the registry name MockClient registers itself under.
const MockClientName = "mock"

// MockClient is a Client for tests: latency simulation,
// ShouldFail/FailAfter knobs, atomic request counter.
type MockClient struct {
	Latency    time.Duration
	ShouldFail bool
	FailAfter  int

	Scenes   []Scene
	Entities []ExtractedEntity
	Resolve  ResolveResult
	ImageOut []byte

	requestCount atomic.Int64
	tokensUsed   atomic.Int64
}

// NewMockClient creates a mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:  time.Millisecond,
		ImageOut: []byte{0x89, 'P', 'N', 'G'},
	}
}

func (c *MockClient) Name() string { return MockClientName }

func (c *MockClient) TokensUsed() int64 { return c.tokensUsed.Load() }

func (c *MockClient) RequestCount() int64 { return c.requestCount.Load() }

func (c *MockClient) maybeFail(ctx context.Context, op string) error {
	n := c.requestCount.Add(1)
	if c.ShouldFail || (c.FailAfter > 0 && int(n) > c.FailAfter) {
		return ierrors.New(ierrors.KindTransport, op, fmt.Errorf("mock client configured to fail"))
	}
	select {
	case <-time.After(c.Latency):
		return nil
	case <-ctx.Done():
		return ierrors.New(ierrors.KindCancelled, op, ctx.Err())
	}
}

func (c *MockClient) AnalyzeChapterUnified(ctx context.Context, chapterText, elementContext string, numScenes int, cfg AnalyzeConfig) (AnalyzeResult, error) {
	if err := c.maybeFail(ctx, "analyzeChapterUnified"); err != nil {
		return AnalyzeResult{}, err
	}
	tokens := int64(len(chapterText)/4 + len(elementContext)/4)
	c.tokensUsed.Add(tokens)

	scenes := c.Scenes
	if scenes == nil {
		scenes = make([]Scene, numScenes)
		for i := range scenes {
			scenes[i] = Scene{Description: fmt.Sprintf("mock scene %d", i+1), Quote: "mock quote", PageRef: fmt.Sprintf("%d", i+1)}
		}
	}
	return AnalyzeResult{Scenes: scenes, Entities: c.Entities, TokensUsed: tokens}, nil
}

func (c *MockClient) ResolveEntity(ctx context.Context, entityType, candidateName, existingName string, cfg AnalyzeConfig) (ResolveResult, error) {
	if err := c.maybeFail(ctx, "resolveEntity"); err != nil {
		return ResolveResult{}, err
	}
	return c.Resolve, nil
}

func (c *MockClient) EnrichDescription(ctx context.Context, baseDescription string, newDetails []string, cfg AnalyzeConfig) (string, error) {
	if err := c.maybeFail(ctx, "enrichDescription"); err != nil {
		return "", err
	}
	out := baseDescription
	for _, d := range newDetails {
		out += " " + d
	}
	return out, nil
}

func (c *MockClient) GenerateImage(ctx context.Context, prompt string, size string, cfg AnalyzeConfig) ([]byte, error) {
	if err := c.maybeFail(ctx, "generateImage"); err != nil {
		return nil, err
	}
	return c.ImageOut, nil
}

var _ Client = (*MockClient)(nil)
