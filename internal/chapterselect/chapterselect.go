// Package chapterselect parses chapter-selection expressions like
// "1-5,10" into the set of chapter indices they name.
package chapterselect

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tribixbite/imaginize/internal/ierrors"
)

// Parse turns a comma-separated list of chapter indices and inclusive
// ranges ("1-5,10") into a sorted, deduplicated slice of indices. An empty
// expression selects nothing (callers treat that as "no filter").
func Parse(expr string) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	seen := make(map[int]bool)
	var out []int

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			loN, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, ierrors.Newf(ierrors.KindAuthOrConfig, "chapterselect.Parse", "invalid range start %q in %q", lo, part)
			}
			hiN, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, ierrors.Newf(ierrors.KindAuthOrConfig, "chapterselect.Parse", "invalid range end %q in %q", hi, part)
			}
			if loN > hiN {
				return nil, ierrors.Newf(ierrors.KindAuthOrConfig, "chapterselect.Parse", "range %q has start > end", part)
			}
			for n := loN; n <= hiN; n++ {
				if !seen[n] {
					seen[n] = true
					out = append(out, n)
				}
			}
			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, ierrors.Newf(ierrors.KindAuthOrConfig, "chapterselect.Parse", "invalid chapter index %q", part)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	sort.Ints(out)
	return out, nil
}

// Contains reports whether expr (already-parsed via Parse) includes index.
// A nil/empty selection means "no filter", matching every index.
func Contains(selection []int, index int) bool {
	if len(selection) == 0 {
		return true
	}
	for _, n := range selection {
		if n == index {
			return true
		}
	}
	return false
}
