package analyze

import (
	"fmt"
	"strings"

	"github.com/tribixbite/imaginize/internal/catalog"
)

// perEntityTokenCeiling and globalTokenCeiling bound how much prior-
// entity context is carried into each analyze call.
const (
	perEntityTokenCeiling = 200
	globalTokenCeiling    = 2000
)

// estimateTokens approximates token count the way the rest of this repo
// does elsewhere (internal/aiclient's mock token accounting): ~4 characters
// per token, close enough for a context-budget trim, not for billing.
func estimateTokens(s string) int {
	return len(s) / 4
}

// buildElementContext selects entities already mentioned earlier in this
// book and renders them as a compact prompt-ready block, truncated to
// perEntityTokenCeiling per entity and globalTokenCeiling overall.
func buildElementContext(c *catalog.Catalog, bookID string) string {
	var b strings.Builder
	used := 0

	for _, e := range c.All() {
		if len(e.Appearances[bookID]) == 0 {
			continue // not yet mentioned in this book; nothing to carry forward
		}

		desc := truncateToTokens(e.Description, perEntityTokenCeiling)
		entry := fmt.Sprintf("- %s (%s): %s\n", e.Name, e.Type, desc)
		entryTokens := estimateTokens(entry)
		if used+entryTokens > globalTokenCeiling {
			break
		}
		b.WriteString(entry)
		used += entryTokens
	}

	return b.String()
}

// truncateToTokens trims s to roughly maxTokens tokens using the same
// 4-chars-per-token estimate as estimateTokens.
func truncateToTokens(s string, maxTokens int) string {
	limit := maxTokens * 4
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
