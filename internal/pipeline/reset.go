package pipeline

import (
	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/state"
)

// ResetFrom clears phase's manifest and chapter shards back to pending,
// then cascades the reset forward through every phase that depends on
// phase's output (analyze -> extract -> illustrate), so a forced re-run of
// an earlier phase never leaves a downstream phase holding state derived
// from the discarded work.
func ResetFrom(dir string, phase state.Phase) error {
	switch phase {
	case state.PhaseAnalyze:
		if err := resetPhase(dir, state.PhaseAnalyze); err != nil {
			return err
		}
		return ResetFrom(dir, state.PhaseExtract)

	case state.PhaseExtract:
		if err := resetPhase(dir, state.PhaseExtract); err != nil {
			return err
		}
		return ResetFrom(dir, state.PhaseIllustrate)

	case state.PhaseIllustrate:
		return resetPhase(dir, state.PhaseIllustrate)

	default:
		return ierrors.Newf(ierrors.KindAuthOrConfig, "pipeline.ResetFrom", "unknown phase %q", phase)
	}
}

// resetPhase clears one phase's manifest, chapter shards, and BookState
// entry, without touching any other phase. Shards are overwritten to a
// pending placeholder rather than deleted, matching analyze.go's own
// resetChapters helper: the chapter index stays addressable, only its
// recorded progress is discarded.
func resetPhase(dir string, phase state.Phase) error {
	if err := state.UpdateManifest(dir, phase, func(m *state.Manifest) error {
		*m = state.Manifest{}
		return nil
	}); err != nil {
		return err
	}

	shards, err := state.ListChapterShards(dir, phase)
	if err != nil {
		return err
	}
	for _, s := range shards {
		if err := state.WriteChapterShard(dir, phase, &state.ChapterShard{
			ChapterIndex: s.ChapterIndex,
			Title:        s.Title,
			Status:       state.StatusPending,
		}); err != nil {
			return err
		}
	}

	bs, err := state.LoadBookState(dir)
	if err != nil {
		return err
	}
	if bs == nil {
		return nil
	}
	bs.Phases = bs.Phases.Set(phase, state.PhaseState{Status: state.StatusPending})
	return state.SaveBookState(dir, bs)
}
