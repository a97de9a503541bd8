package state

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tribixbite/imaginize/internal/ierrors"
	"github.com/tribixbite/imaginize/internal/store"
)

// WriteChapterShard atomically writes shard to
// .{phase}.state/chapter_{N}.json. One worker owns a given shard for the
// lifetime of a phase, so no lock is needed beyond AtomicWrite itself.
func WriteChapterShard(dir string, phase Phase, shard *ChapterShard) error {
	path := chapterShardPath(dir, phase, shard.ChapterIndex)
	if err := os.MkdirAll(phaseDir(dir, phase), 0o755); err != nil {
		return ierrors.New(ierrors.KindTransientIO, "writeChapterShard", err).WithPath(path)
	}
	data, err := json.MarshalIndent(shard, "", "  ")
	if err != nil {
		return ierrors.New(ierrors.KindTransientIO, "writeChapterShard", err).WithPath(path)
	}
	return store.AtomicWrite(path, data)
}

// ReadChapterShard reads a chapter's shard for phase. A missing shard
// returns (nil, nil): the chapter has not started this phase.
func ReadChapterShard(dir string, phase Phase, index int) (*ChapterShard, error) {
	path := chapterShardPath(dir, phase, index)
	data, err := store.AtomicRead(path, 3, 20*time.Millisecond)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ierrors.New(ierrors.KindTransientIO, "readChapterShard", err).WithPath(path)
	}

	var shard ChapterShard
	if err := json.Unmarshal(data, &shard); err != nil {
		return nil, ierrors.New(ierrors.KindTransientIO, "readChapterShard", err).WithPath(path)
	}
	return &shard, nil
}

// ListChapterShards reads every chapter_{N}.json file under phase's state
// directory, in ascending chapter-index order. A missing phase directory
// returns an empty slice, not an error: the phase has not produced any
// shard yet.
func ListChapterShards(dir string, phase Phase) ([]*ChapterShard, error) {
	entries, err := os.ReadDir(phaseDir(dir, phase))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ierrors.New(ierrors.KindTransientIO, "listChapterShards", err).WithPath(phaseDir(dir, phase))
	}

	var indices []int
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "chapter_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, "chapter_"), ".json")
		idx, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	shards := make([]*ChapterShard, 0, len(indices))
	for _, idx := range indices {
		shard, err := ReadChapterShard(dir, phase, idx)
		if err != nil {
			return nil, err
		}
		if shard != nil {
			shards = append(shards, shard)
		}
	}
	return shards, nil
}
