package aiclient

import (
	"context"
	"testing"
)

func TestMockClient_AnalyzeChapterUnified_GeneratesTargetScenes(t *testing.T) {
	c := NewMockClient()
	res, err := c.AnalyzeChapterUnified(context.Background(), "chapter text", "", 3, AnalyzeConfig{})
	if err != nil {
		t.Fatalf("AnalyzeChapterUnified() error = %v", err)
	}
	if len(res.Scenes) != 3 {
		t.Errorf("len(Scenes) = %d, want 3", len(res.Scenes))
	}
}

func TestMockClient_FailAfter(t *testing.T) {
	c := NewMockClient()
	c.FailAfter = 1

	if _, err := c.AnalyzeChapterUnified(context.Background(), "a", "", 1, AnalyzeConfig{}); err != nil {
		t.Fatalf("first call error = %v, want nil", err)
	}
	if _, err := c.AnalyzeChapterUnified(context.Background(), "a", "", 1, AnalyzeConfig{}); err == nil {
		t.Fatalf("second call error = nil, want failure after FailAfter=1")
	}
}

func TestMockClient_TracksTokensUsed(t *testing.T) {
	c := NewMockClient()
	if _, err := c.AnalyzeChapterUnified(context.Background(), "some chapter text here", "", 1, AnalyzeConfig{}); err != nil {
		t.Fatalf("AnalyzeChapterUnified() error = %v", err)
	}
	if c.TokensUsed() == 0 {
		t.Errorf("TokensUsed() = 0, want > 0 after a call")
	}
}

func TestMockClient_GenerateImageReturnsConfiguredBytes(t *testing.T) {
	c := NewMockClient()
	img, err := c.GenerateImage(context.Background(), "a castle at dawn", "1024x1024", AnalyzeConfig{})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if len(img) == 0 {
		t.Errorf("GenerateImage() returned empty bytes")
	}
}
