package illustrate

import (
	"regexp"
	"strings"

	"github.com/tribixbite/imaginize/internal/catalog"
)

// capitalizedRun matches a run of one or more capitalized words, a cheap
// syntactic heuristic in place of a full named-entity-recognition pass.
var capitalizedRun = regexp.MustCompile(`\b[A-Z][a-zA-Z']*(?:\s+[A-Z][a-zA-Z']*)*\b`)

// leadingStopwords filters out single capitalized words that are almost
// always sentence-initial function words rather than entity mentions.
// Multi-word runs ("Lantern Wood") are never filtered: a genuine proper
// noun phrase is unlikely to collide with this list.
var leadingStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "i": true, "it": true, "but": true,
	"and": true, "or": true, "when": true, "then": true, "as": true, "if": true,
	"he": true, "she": true, "they": true, "we": true, "you": true,
	"this": true, "that": true, "there": true, "here": true, "so": true,
	"at": true, "in": true, "on": true, "with": true, "for": true,
}

// extractMentions returns the distinct candidate entity-name phrases found
// in text, preserving first-seen order.
func extractMentions(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range capitalizedRun.FindAllString(text, -1) {
		words := strings.Fields(m)
		if len(words) == 1 && leadingStopwords[strings.ToLower(words[0])] {
			continue
		}
		key := strings.ToLower(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

// enrichPrompt resolves every candidate
// mention in description and quote against the catalog, appending any
// matched entity's description as supplementary context under a
// boilerplate header.
func enrichPrompt(description, quote string, c *catalog.Catalog) string {
	if c == nil {
		return description
	}

	seen := make(map[string]bool)
	var details []string
	for _, m := range append(extractMentions(description), extractMentions(quote)...) {
		key := strings.ToLower(m)
		if seen[key] {
			continue
		}
		seen[key] = true

		e := c.FindAny(m)
		if e == nil || e.Description == "" {
			continue
		}
		details = append(details, e.Name+": "+e.Description)
	}
	if len(details) == 0 {
		return description
	}
	return description + "\n\nCharacter/Place details: " + strings.Join(details, " | ")
}
