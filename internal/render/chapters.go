package render

import (
	"fmt"
	"strings"

	"github.com/tribixbite/imaginize/internal/bookparse"
	"github.com/tribixbite/imaginize/internal/state"
)

// Chapters renders Chapters.md: every story chapter's scenes, with an
// image link for each scene Illustrate has completed and a failure note
// for any scene that exhausted its retries.
// shardsByChapter holds the Illustrate-phase shard for a chapter, keyed by
// chapter index; a missing entry means Illustrate has not reached that
// chapter yet.
func Chapters(book *bookparse.Book, shardsByChapter map[int]*state.ChapterShard) string {
	var b strings.Builder
	b.WriteString("# Chapters\n\n")

	for _, ch := range book.StoryChapters() {
		fmt.Fprintf(&b, "## Chapter %d: %s\n\n", ch.Index, ch.Title)

		shard := shardsByChapter[ch.Index]
		if shard == nil || len(shard.SceneConcepts) == 0 {
			continue
		}
		for _, scene := range shard.SceneConcepts {
			fmt.Fprintf(&b, "### Scene %d\n\n", scene.Index)
			if scene.Quote != "" {
				fmt.Fprintf(&b, "> %s\n\n", scene.Quote)
			}
			if scene.Description != "" {
				fmt.Fprintf(&b, "%s\n\n", scene.Description)
			}
			switch {
			case scene.GeneratedImagePath != "":
				fmt.Fprintf(&b, "![Scene %d](%s)\n\n", scene.Index, scene.GeneratedImagePath)
			case scene.Failed:
				fmt.Fprintf(&b, "*Image generation failed: %s*\n\n", scene.Error)
			}
		}
	}

	return b.String()
}
