// Package render emits the human-facing markdown artifacts the pipeline
// produces alongside its JSON state: Contents.md, Chapters.md, and the
// scene-image filenames Illustrate writes. Hand-built text assembly, no
// template engine.
package render

import (
	"fmt"
	"regexp"
	"strings"
)

var nonFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Slugify sanitizes a string for use in a filename: keep
// [A-Za-z0-9_-], collapse runs of any other character to a single
// underscore, and cap the result at maxLen (maxLen <= 0 means unbounded).
func Slugify(s string, maxLen int) string {
	slug := nonFilenameChars.ReplaceAllString(s, "_")
	slug = strings.Trim(slug, "_")
	if maxLen > 0 && len(slug) > maxLen {
		slug = strings.Trim(slug[:maxLen], "_")
	}
	return slug
}

// SceneImageFileName builds the deterministic image filename
// chapter_{N}_{slug?}_scene_{M}.png, inserting a sanitized, length-capped
// chapter-title slug when useTitleSlug is set. Deterministic names make an
// interrupted Illustrate run idempotent on resume.
func SceneImageFileName(chapterIndex, sceneIndex int, chapterTitle string, useTitleSlug bool) string {
	if useTitleSlug {
		if slug := Slugify(chapterTitle, 50); slug != "" {
			return fmt.Sprintf("chapter_%d_%s_scene_%d.png", chapterIndex, slug, sceneIndex)
		}
	}
	return fmt.Sprintf("chapter_%d_scene_%d.png", chapterIndex, sceneIndex)
}
