package state

import (
	"fmt"
	"path/filepath"
)

const bookStateFileName = ".imaginize.state.json"

const elementsMemoryFileName = ".elements-memory.json"

func bookStatePath(dir string) string {
	return filepath.Join(dir, bookStateFileName)
}

func phaseDir(dir string, phase Phase) string {
	return filepath.Join(dir, fmt.Sprintf(".%s.state", phase))
}

func chapterShardPath(dir string, phase Phase, index int) string {
	return filepath.Join(phaseDir(dir, phase), fmt.Sprintf("chapter_%d.json", index))
}

func manifestPath(dir string, phase Phase) string {
	return filepath.Join(phaseDir(dir, phase), "manifest.json")
}

func elementsMemoryPath(dir string) string {
	return filepath.Join(dir, elementsMemoryFileName)
}
