// Package state implements the pipeline's durable state store: typed,
// file-backed operations over BookState, ChapterShard, and Manifest,
// built on internal/store's atomic-write and lock primitives. This
// package exclusively owns all on-disk JSON under a book directory and
// never exposes raw file handles.
package state

import (
	"fmt"
	"time"
)

// Phase identifies one of the three pipeline phases that maintain their
// own state subdirectory.
type Phase string

const (
	PhaseAnalyze    Phase = "analyze"
	PhaseExtract    Phase = "extract"
	PhaseIllustrate Phase = "illustrate"
)

// Status is the lifecycle state of a phase or a chapter shard.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// PhaseState records one phase's lifecycle within BookState.
type PhaseState struct {
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// TokenStats accumulates token usage across a book's phases.
type TokenStats struct {
	TotalUsed int64 `json:"totalUsed"`
}

// BookState is the global, per-book state file, .imaginize.state.json.
// Updated only at phase boundaries, never per-chapter.
type BookState struct {
	Version     string     `json:"version"`
	BookTitle   string     `json:"bookTitle"`
	TotalPages  int        `json:"totalPages"`
	Phases      PhaseMap   `json:"phases"`
	TokenStats  TokenStats `json:"tokenStats"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// PhaseMap is keyed by Phase; a plain struct keeps the json field names
// fixed across encode/decode.
type PhaseMap struct {
	Analyze    PhaseState `json:"analyze"`
	Extract    PhaseState `json:"extract"`
	Illustrate PhaseState `json:"illustrate"`
}

// Get returns the PhaseState for phase.
func (m PhaseMap) Get(phase Phase) PhaseState {
	switch phase {
	case PhaseAnalyze:
		return m.Analyze
	case PhaseExtract:
		return m.Extract
	case PhaseIllustrate:
		return m.Illustrate
	default:
		return PhaseState{}
	}
}

// Set returns a copy of m with phase's state replaced.
func (m PhaseMap) Set(phase Phase, s PhaseState) PhaseMap {
	switch phase {
	case PhaseAnalyze:
		m.Analyze = s
	case PhaseExtract:
		m.Extract = s
	case PhaseIllustrate:
		m.Illustrate = s
	}
	return m
}

// SceneConcept is one illustration-worthy moment within a chapter,
// produced by Analyze and annotated by Illustrate.
type SceneConcept struct {
	ID                 string   `json:"id"` // stable: ch{N}_scene_{M}
	Index              int      `json:"index"`
	PageRange          string   `json:"pageRange,omitempty"`
	Description        string   `json:"description"`
	Quote              string   `json:"quote"`
	Entities           []string `json:"entities"`
	GeneratedImagePath string   `json:"generatedImagePath,omitempty"`
	Failed             bool     `json:"failed,omitempty"`
	Error              string   `json:"error,omitempty"`
}

// SceneID builds the stable scene identifier ch{N}_scene_{M}.
func SceneID(chapterIndex, sceneIndex int) string {
	return fmt.Sprintf("ch%d_scene_%d", chapterIndex, sceneIndex)
}

// ChapterShard is the per-chapter state file: one file per chapter
// eliminates write contention on the global state file.
type ChapterShard struct {
	ChapterIndex      int            `json:"chapterIndex"`
	Title             string         `json:"title"`
	Status            Status         `json:"status"`
	SceneConcepts     []SceneConcept `json:"sceneConcepts,omitempty"`
	EntitiesMentioned []string       `json:"entitiesMentioned,omitempty"`
	TokensUsed        int64          `json:"tokensUsed"`
	CompletedAt       *time.Time     `json:"completedAt,omitempty"`
	Error             string         `json:"error,omitempty"`
}

// Manifest lists, per phase, which chapters are completed, in progress,
// or failed. A chapter index appears in at most one set; a chapter in no
// set is pending.
type Manifest struct {
	CompletedChapters  []int `json:"completedChapters"`
	InProgressChapters []int `json:"inProgressChapters"`
	FailedChapters     []int `json:"failedChapters"`
}
