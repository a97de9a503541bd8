package pipeline

import "github.com/tribixbite/imaginize/internal/state"

// ReconcileManifest enforces the dual-check resume rule: a chapter counts
// as completed only if its shard has status=completed AND it appears in
// manifest.completedChapters. Any disagreement between the two, in either
// direction, since a crash can interrupt either write, means the chapter
// is requeued (moved to pending), never promoted. A shard-only completion
// is never used to repair the manifest toward completed; requeuing is
// always safe, promoting is not.
func ReconcileManifest(dir string, phase state.Phase, knownIndices []int) error {
	return state.UpdateManifest(dir, phase, func(m *state.Manifest) error {
		for _, idx := range knownIndices {
			shard, err := state.ReadChapterShard(dir, phase, idx)
			if err != nil {
				return err
			}
			shardDone := shard != nil && shard.Status == state.StatusCompleted
			manifestDone := containsInt(m.CompletedChapters, idx)

			if shardDone != manifestDone {
				state.MoveChapter(m, idx, state.StatusPending)
			}
		}
		return nil
	})
}

func containsInt(haystack []int, needle int) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
