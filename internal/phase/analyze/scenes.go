package analyze

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tribixbite/imaginize/internal/aiclient"
)

// computeNumScenes returns max(1, ceil(pageCount / pagesPerImage)). An
// unparseable or empty pageRange is treated as a single page.
func computeNumScenes(pageRange string, pagesPerImage int) int {
	if pagesPerImage <= 0 {
		pagesPerImage = 1
	}
	pageCount := pageCountOf(pageRange)
	n := (pageCount + pagesPerImage - 1) / pagesPerImage
	if n < 1 {
		n = 1
	}
	return n
}

// pageCountOf parses "N" or "N-M" into a page count, defaulting to 1 for
// anything it cannot parse.
func pageCountOf(pageRange string) int {
	pageRange = strings.TrimSpace(pageRange)
	if pageRange == "" {
		return 1
	}
	if lo, hi, ok := strings.Cut(pageRange, "-"); ok {
		loN, err1 := strconv.Atoi(strings.TrimSpace(lo))
		hiN, err2 := strconv.Atoi(strings.TrimSpace(hi))
		if err1 == nil && err2 == nil && hiN >= loN {
			return hiN - loN + 1
		}
		return 1
	}
	if _, err := strconv.Atoi(pageRange); err == nil {
		return 1
	}
	return 1
}

// clampScenes treats the scene target as soft: fewer scenes than target
// is accepted as-is; more than 2x target is truncated by dropping
// the scenes with the shortest quote until exactly 2x target remain.
func clampScenes(scenes []aiclient.Scene, target int) []aiclient.Scene {
	maxAllowed := 2 * target
	if target < 1 {
		maxAllowed = len(scenes)
	}
	if len(scenes) <= maxAllowed {
		return scenes
	}

	// Pick the maxAllowed longest-quote scenes, then restore their original
	// chapter order so scene numbering stays stable.
	idx := make([]int, len(scenes))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return len(scenes[idx[i]].Quote) > len(scenes[idx[j]].Quote)
	})
	idx = idx[:maxAllowed]
	sort.Ints(idx)

	kept := make([]aiclient.Scene, 0, maxAllowed)
	for _, i := range idx {
		kept = append(kept, scenes[i])
	}
	return kept
}
