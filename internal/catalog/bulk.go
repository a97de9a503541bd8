package catalog

import (
	"context"
	"sort"
)

// MergeCatalog bulk-imports every entity in other into c using strategy,
// used by the series bridge for series-memory import/export.
//
// Matching during a bulk import does not consult the AI resolver: cross-
// book or cross-invocation imports match by alias/heuristic only, since the
// candidate's bookID/chapterIndex context is itself being rebuilt; callers
// needing AI-assisted resolution should call MergeEntity directly.
func (c *Catalog) MergeCatalog(ctx context.Context, other *Catalog, strategy Strategy, bookID string) []Result {
	results := make([]Result, 0, other.Len())
	for _, e := range other.All() {
		books := make([]string, 0, len(e.Appearances))
		for book := range e.Appearances {
			books = append(books, book)
		}
		sort.Strings(books)

		for _, book := range books {
			for _, ch := range e.Appearances[book] {
				cand := Candidate{
					Type:           e.Type,
					Name:           e.Name,
					Description:    e.Description,
					Quotes:         e.Quotes,
					BookID:         book,
					ChapterIndex:   ch,
					EnrichmentNote: latestEnrichmentDetail(e, book),
				}
				res, _ := c.MergeEntity(ctx, cand, strategy, nil, DefaultMatchConfidence)
				if res.WasNew && e.FirstAppearance.BookID != "" {
					res.Matched.FirstAppearance = e.FirstAppearance
				}
				results = append(results, res)
			}
		}
		if len(e.Appearances) == 0 {
			// Entity has no recorded appearances yet; still import it once,
			// attributed to bookID at chapter 0, so it is not silently dropped.
			cand := Candidate{
				Type:         e.Type,
				Name:         e.Name,
				Description:  e.Description,
				Quotes:       e.Quotes,
				BookID:       bookID,
				ChapterIndex: 0,
			}
			res, _ := c.MergeEntity(ctx, cand, strategy, nil, DefaultMatchConfidence)
			results = append(results, res)
		}
	}
	return results
}

func latestEnrichmentDetail(e *Entity, book string) string {
	for i := len(e.Enrichments) - 1; i >= 0; i-- {
		if e.Enrichments[i].SourceBook == book {
			return e.Enrichments[i].Detail
		}
	}
	return ""
}
