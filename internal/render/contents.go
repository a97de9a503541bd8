package render

import (
	"fmt"
	"strings"

	"github.com/tribixbite/imaginize/internal/bookparse"
)

// Contents renders Contents.md: the book's title, author, and a table of
// contents over its story chapters (front/back matter is excluded, same as
// every other phase's worklist).
func Contents(book *bookparse.Book) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", book.Title)
	if book.Author != "" {
		fmt.Fprintf(&b, "*by %s*\n\n", book.Author)
	}
	b.WriteString("## Contents\n\n")
	for _, ch := range book.StoryChapters() {
		fmt.Fprintf(&b, "- Chapter %d: %s (p. %s)\n", ch.Index, ch.Title, ch.PageRange)
	}
	return b.String()
}
