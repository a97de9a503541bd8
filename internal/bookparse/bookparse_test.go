package bookparse

import "testing"

func TestBook_StoryChaptersExcludesFrontMatter(t *testing.T) {
	b := &Book{
		Chapters: []ChapterSpec{
			{Index: 1, Title: "Copyright", IsStoryContent: false},
			{Index: 2, Title: "Chapter One", IsStoryContent: true},
			{Index: 3, Title: "Table of Contents", IsStoryContent: false},
			{Index: 4, Title: "Chapter Two", IsStoryContent: true},
		},
	}
	got := b.StoryChapters()
	if len(got) != 2 || got[0].Index != 2 || got[1].Index != 4 {
		t.Errorf("StoryChapters() = %+v, want chapters 2 and 4", got)
	}
}

func TestBook_ChapterLookup(t *testing.T) {
	b := &Book{Chapters: []ChapterSpec{{Index: 1}, {Index: 2}}}
	if b.Chapter(2) == nil {
		t.Errorf("Chapter(2) = nil, want found")
	}
	if b.Chapter(99) != nil {
		t.Errorf("Chapter(99) != nil, want nil for missing index")
	}
}

func TestMockParser_ReturnsConfiguredBook(t *testing.T) {
	p := &MockParser{Book: &Book{Title: "Fixture", Chapters: []ChapterSpec{{Index: 1, IsStoryContent: true}}}}
	got, err := p.Parse("/tmp/does-not-matter.epub")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.Title != "Fixture" || got.SourcePath != "/tmp/does-not-matter.epub" {
		t.Errorf("Parse() = %+v, want Title=Fixture and stamped SourcePath", got)
	}
}

func TestMockParser_ShouldErr(t *testing.T) {
	p := &MockParser{ShouldErr: true}
	if _, err := p.Parse("x.epub"); err == nil {
		t.Errorf("Parse() error = nil, want error when ShouldErr set")
	}
}
