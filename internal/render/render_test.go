package render

import (
	"strings"
	"testing"

	"github.com/tribixbite/imaginize/internal/bookparse"
	"github.com/tribixbite/imaginize/internal/state"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"The Lantern Wood!", 0, "The_Lantern_Wood"},
		{"  weird///chars**here  ", 0, "weird_chars_here"},
		{strings.Repeat("x", 60), 50, strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Slugify(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestSceneImageFileName(t *testing.T) {
	got := SceneImageFileName(2, 3, "Chapter One: A Beginning", true)
	want := "chapter_2_Chapter_One_A_Beginning_scene_3.png"
	if got != want {
		t.Errorf("SceneImageFileName() = %q, want %q", got, want)
	}

	got = SceneImageFileName(2, 3, "Chapter One", false)
	want = "chapter_2_scene_3.png"
	if got != want {
		t.Errorf("SceneImageFileName() without slug = %q, want %q", got, want)
	}
}

func testBook() *bookparse.Book {
	return &bookparse.Book{
		Title:  "The Riverlands Saga",
		Author: "A. Writer",
		Chapters: []bookparse.ChapterSpec{
			{Index: 1, Title: "Copyright", IsStoryContent: false},
			{Index: 2, Title: "Chapter One", PageRange: "2-6", IsStoryContent: true},
		},
	}
}

func TestContents(t *testing.T) {
	out := Contents(testBook())
	if !strings.Contains(out, "Chapter 2: Chapter One") {
		t.Errorf("Contents() missing chapter entry: %s", out)
	}
	if strings.Contains(out, "Copyright") {
		t.Errorf("Contents() should exclude non-story chapters: %s", out)
	}
}

func TestChapters(t *testing.T) {
	shards := map[int]*state.ChapterShard{
		2: {
			ChapterIndex: 2,
			SceneConcepts: []state.SceneConcept{
				{Index: 1, Description: "A fox in the wood.", Quote: "It was quiet.", GeneratedImagePath: "chapter_2_scene_1.png"},
				{Index: 2, Description: "A storm.", Failed: true, Error: "rate limit exhausted"},
			},
		},
	}
	out := Chapters(testBook(), shards)
	if !strings.Contains(out, "![Scene 1](chapter_2_scene_1.png)") {
		t.Errorf("Chapters() missing image link: %s", out)
	}
	if !strings.Contains(out, "Image generation failed: rate limit exhausted") {
		t.Errorf("Chapters() missing failure note: %s", out)
	}
}
