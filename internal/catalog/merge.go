package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Strategy selects how a matched candidate folds into an existing entity.
type Strategy string

const (
	StrategyEnrich   Strategy = "enrich"
	StrategyUnion    Strategy = "union"
	StrategyOverride Strategy = "override"
)

// Resolver consults the AI entity resolver, behind the resolution cache.
// Implemented by internal/phase's glue code so this package has no
// dependency on internal/aiclient or internal/rescache.
type Resolver interface {
	Resolve(ctx context.Context, candidateType EntityType, candidateName, existingName string) (isMatch bool, confidence float64, err error)
}

// Candidate is a not-yet-merged entity observation: the shape Analyze and
// the series bridge produce before consulting the Catalog.
type Candidate struct {
	Type            EntityType
	Name            string
	Description     string
	Quotes          []Quote
	BookID          string
	ChapterIndex    int
	EnrichmentNote  string // optional explicit detail to enrich with; falls back to Description
	MinTokenOverlap int    // minimum shared tokens to attempt step-3 resolution; 0 uses DefaultMinTokenOverlap
}

// DefaultMatchConfidence is the minimum resolver confidence accepted as a
// match when the caller does not supply one.
const DefaultMatchConfidence = 0.7

// DefaultMinTokenOverlap is the minimum number of shared name tokens before
// a candidate/existing pair is even worth an AI resolution call.
const DefaultMinTokenOverlap = 1

// Result reports what MergeEntity did.
type Result struct {
	Matched           *Entity
	WasNew            bool
	Confidence        float64
	MatchedOnFastPath bool
}

// MergeEntity reconciles one observed candidate against the catalog:
//  1. Normalize candidate.Name to lowercase; add to candidate aliases.
//  2. Direct match: shared alias, or a fast syntactic heuristic (case-folded
//     equality, or one name a length>=4 prefix of the other).
//  3. Otherwise, for existing entities with non-trivial token overlap, consult
//     resolver (which is expected to check the resolution cache itself before
//     calling the AI).
//  4. Apply the merge strategy on match; append as new entity otherwise.
//  5. Always record the chapter appearance.
//
// Callers (Analyze, the series bridge) are responsible for holding the
// catalog-file lock around this call; MergeEntity itself assumes
// single-threaded access to c.
func (c *Catalog) MergeEntity(ctx context.Context, cand Candidate, strategy Strategy, resolver Resolver, matchConfidence float64) (Result, error) {
	if matchConfidence <= 0 {
		matchConfidence = DefaultMatchConfidence
	}
	foldedName := foldName(cand.Name)

	existing := c.ByType(cand.Type)

	// Step 2: direct match via shared alias or fast syntactic heuristic.
	for _, e := range existing {
		if e.HasAlias(foldedName) || fastHeuristicMatch(foldName(e.Name), foldedName) {
			res, err := c.applyMatch(e, cand, strategy, 1.0)
			res.MatchedOnFastPath = true
			return res, err
		}
	}

	// Step 3: AI-assisted resolution for entities with non-trivial token
	// overlap with the candidate name.
	if resolver != nil {
		minOverlap := cand.MinTokenOverlap
		if minOverlap <= 0 {
			minOverlap = DefaultMinTokenOverlap
		}
		for _, e := range existing {
			if !hasTokenOverlap(e.Name, cand.Name, minOverlap) {
				continue
			}
			isMatch, confidence, err := resolver.Resolve(ctx, cand.Type, cand.Name, e.Name)
			if err != nil {
				// Wrap without re-tagging so the resolver error's kind (rate
				// limited, exhausted, transport) survives for the caller's
				// retry/abort decision.
				return Result{}, fmt.Errorf("resolve %q against %q: %w", cand.Name, e.Name, err)
			}
			if isMatch && confidence >= matchConfidence {
				return c.applyMatch(e, cand, strategy, confidence)
			}
		}
	}

	// Step 4 (no-match branch): append as new entity.
	quotes, _ := dedupeQuotes(nil, cand.Quotes)
	e := &Entity{
		Type:            cand.Type,
		Name:            cand.Name,
		Aliases:         []string{foldedName},
		Description:     cand.Description,
		Quotes:          quotes,
		FirstAppearance: BookChapter{BookID: cand.BookID, ChapterIndex: cand.ChapterIndex},
		LastUpdated:     time.Now().UTC(),
	}
	e.AddAppearance(cand.BookID, cand.ChapterIndex)
	c.insert(e)
	return Result{Matched: e, WasNew: true, Confidence: 1.0}, nil
}

// applyMatch merges cand into e per strategy and records the appearance
// (step 5, unconditional). LastUpdated only advances when something about
// e actually changed, so a repeat merge of an identical candidate leaves
// e, and the Catalog's JSON encoding, bit-identical.
func (c *Catalog) applyMatch(e *Entity, cand Candidate, strategy Strategy, confidence float64) (Result, error) {
	changed := e.AddAlias(cand.Name)
	changed = applyStrategy(e, cand, strategy) || changed
	changed = e.AddAppearance(cand.BookID, cand.ChapterIndex) || changed
	if changed {
		e.LastUpdated = time.Now().UTC()
	}
	return Result{Matched: e, WasNew: false, Confidence: confidence}, nil
}

// applyStrategy applies the selected merge strategy, reporting whether it
// changed e's description, quotes, or enrichments.
func applyStrategy(e *Entity, cand Candidate, strategy Strategy) bool {
	switch strategy {
	case StrategyUnion:
		changed := false
		if cand.Description != "" {
			joined := joinDescriptions(e.Description, cand.Description)
			changed = joined != e.Description
			e.Description = joined
		}
		quotes, quotesChanged := dedupeQuotes(e.Quotes, cand.Quotes)
		e.Quotes = quotes
		return changed || quotesChanged

	case StrategyOverride:
		// Override always replaces, even when the candidate is shorter.
		changed := cand.Description != "" && cand.Description != e.Description
		if cand.Description != "" {
			e.Description = cand.Description
		}
		quotes, quotesChanged := dedupeQuotes(e.Quotes, cand.Quotes)
		e.Quotes = quotes
		if !changed && !quotesChanged {
			return false
		}
		e.Enrichments = append(e.Enrichments, Enrichment{
			Detail:        "description overridden: " + cand.Description,
			SourceBook:    cand.BookID,
			SourceChapter: cand.ChapterIndex,
			AddedAt:       time.Now().UTC(),
		})
		return true

	default: // StrategyEnrich
		detail := cand.EnrichmentNote
		if detail == "" {
			detail = cand.Description
		}
		changed := false
		if detail != "" && !strings.Contains(e.Description, detail) {
			e.Description = joinDescriptions(e.Description, detail)
			e.Enrichments = append(e.Enrichments, Enrichment{
				Detail:        detail,
				SourceBook:    cand.BookID,
				SourceChapter: cand.ChapterIndex,
				AddedAt:       time.Now().UTC(),
			})
			changed = true
		}
		quotes, quotesChanged := dedupeQuotes(e.Quotes, cand.Quotes)
		e.Quotes = quotes
		return changed || quotesChanged
	}
}

func joinDescriptions(base, addition string) string {
	base = strings.TrimSpace(base)
	addition = strings.TrimSpace(addition)
	if base == "" {
		return addition
	}
	if addition == "" {
		return base
	}
	if !strings.HasSuffix(base, ".") {
		base += "."
	}
	return base + " " + addition
}

// dedupeQuotes merges additions into existing, deduplicating by value, and
// reports whether it actually appended anything new.
func dedupeQuotes(existing []Quote, additions []Quote) ([]Quote, bool) {
	seen := make(map[Quote]bool, len(existing))
	out := make([]Quote, 0, len(existing)+len(additions))
	for _, q := range existing {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	changed := false
	for _, q := range additions {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
			changed = true
		}
	}
	return out, changed
}

// fastHeuristicMatch is the syntactic fallback of the direct-match step:
// exact case-folded equality (already handled by alias checks upstream, kept
// here for candidates whose alias set hasn't converged yet), or one name a
// prefix of the other with both at least 4 characters.
func fastHeuristicMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < 4 || len(b) < 4 {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

// hasTokenOverlap reports whether a and b share at least min whitespace
// tokens of length >= 3, the "non-trivial token overlap" gate of step 3.
func hasTokenOverlap(a, b string, min int) bool {
	ta := tokenSet(a)
	tb := tokenSet(b)
	shared := 0
	for t := range ta {
		if tb[t] {
			shared++
		}
	}
	return shared >= min
}

func tokenize(s string) []string {
	fields := strings.Fields(foldName(s))
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokenize(s) {
		set[t] = true
	}
	return set
}
