package catalog

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func candidate(name, desc string, chapter int) Candidate {
	return Candidate{
		Type:         TypeCharacter,
		Name:         name,
		Description:  desc,
		BookID:       "book-1",
		ChapterIndex: chapter,
	}
}

func TestMergeEntity_Idempotent(t *testing.T) {
	c := New()
	ctx := context.Background()
	cand := candidate("Jon Snow", "a black brother of the Night's Watch", 1)

	if _, err := c.MergeEntity(ctx, cand, StrategyEnrich, nil, 0); err != nil {
		t.Fatalf("first MergeEntity() error = %v", err)
	}
	before, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	if _, err := c.MergeEntity(ctx, cand, StrategyEnrich, nil, 0); err != nil {
		t.Fatalf("second MergeEntity() error = %v", err)
	}
	after, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	if string(before) != string(after) {
		t.Errorf("catalog changed on repeat merge of identical candidate:\nbefore=%s\nafter=%s", before, after)
	}
}

func TestMergeEntity_RepeatMergeLeavesLastUpdatedUnchanged(t *testing.T) {
	c := New()
	ctx := context.Background()
	cand := candidate("Jon Snow", "a black brother of the Night's Watch", 1)

	res1, err := c.MergeEntity(ctx, cand, StrategyEnrich, nil, 0)
	if err != nil {
		t.Fatalf("first MergeEntity() error = %v", err)
	}
	firstUpdated := res1.Matched.LastUpdated

	res2, err := c.MergeEntity(ctx, cand, StrategyEnrich, nil, 0)
	if err != nil {
		t.Fatalf("second MergeEntity() error = %v", err)
	}
	if !res2.Matched.LastUpdated.Equal(firstUpdated) {
		t.Errorf("LastUpdated = %v, want unchanged %v after a no-op repeat merge", res2.Matched.LastUpdated, firstUpdated)
	}

	res3, err := c.MergeEntity(ctx, candidate("Jon Snow", "now a deserter of the Night's Watch", 2), StrategyEnrich, nil, 0)
	if err != nil {
		t.Fatalf("third MergeEntity() error = %v", err)
	}
	if !res3.Matched.LastUpdated.After(firstUpdated) {
		t.Errorf("LastUpdated = %v, want advanced past %v once new information merges in", res3.Matched.LastUpdated, firstUpdated)
	}
}

type fakeResolver struct {
	isMatch    bool
	confidence float64
}

func (f fakeResolver) Resolve(ctx context.Context, t EntityType, newName, existingName string) (bool, float64, error) {
	return f.isMatch, f.confidence, nil
}

func TestMergeEntity_AliasClosure(t *testing.T) {
	c := New()
	ctx := context.Background()
	resolver := fakeResolver{isMatch: true, confidence: 0.85}

	res1, err := c.MergeEntity(ctx, candidate("Jon Snow", "bastard of Winterfell", 1), StrategyEnrich, resolver, 0.7)
	if err != nil {
		t.Fatalf("MergeEntity() error = %v", err)
	}
	if !res1.WasNew {
		t.Fatalf("expected first merge to create a new entity")
	}

	res2, err := c.MergeEntity(ctx, candidate("Jon", "sworn brother of the Night's Watch", 2), StrategyEnrich, resolver, 0.7)
	if err != nil {
		t.Fatalf("MergeEntity() error = %v", err)
	}
	if res2.WasNew {
		t.Fatalf("expected second merge to match the existing entity")
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}

	e := c.Get(Key{Type: TypeCharacter, Name: "jon snow"})
	if e == nil {
		t.Fatalf("entity not found under canonical key")
	}
	if !e.HasAlias("jon snow") || !e.HasAlias("jon") {
		t.Errorf("aliases = %v, want both jon snow and jon", e.Aliases)
	}
	if got := e.Appearances["book-1"]; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("appearances = %v, want [1 2]", got)
	}

	// Alias closure: a third candidate sharing only the newly-added alias
	// must also resolve to the same entity without a fresh AI call.
	res3, err := c.MergeEntity(ctx, candidate("jon", "took the black", 3), StrategyEnrich, resolver, 0.7)
	if err != nil {
		t.Fatalf("MergeEntity() error = %v", err)
	}
	if res3.WasNew || !res3.MatchedOnFastPath {
		t.Errorf("expected third merge to hit the fast alias path, got %+v", res3)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d after third merge, want 1 (no dispersion)", c.Len())
	}
}

func TestAsMarkdown_OrderedByTypeThenName(t *testing.T) {
	c := New()
	ctx := context.Background()
	_, _ = c.MergeEntity(ctx, Candidate{Type: TypePlace, Name: "Winterfell", Description: "seat of House Stark", BookID: "b", ChapterIndex: 1}, StrategyEnrich, nil, 0)
	_, _ = c.MergeEntity(ctx, Candidate{Type: TypeCharacter, Name: "Zorro", Description: "a masked swordsman", BookID: "b", ChapterIndex: 1}, StrategyEnrich, nil, 0)
	_, _ = c.MergeEntity(ctx, Candidate{Type: TypeCharacter, Name: "Arya Stark", Description: "a Stark daughter", BookID: "b", ChapterIndex: 1}, StrategyEnrich, nil, 0)

	md := c.AsMarkdown()
	aryaIdx := strings.Index(md, "Arya Stark")
	zorroIdx := strings.Index(md, "Zorro")
	winterfellIdx := strings.Index(md, "Winterfell")

	if !(aryaIdx < zorroIdx && zorroIdx < winterfellIdx) {
		t.Errorf("markdown ordering wrong: arya=%d zorro=%d winterfell=%d\n%s", aryaIdx, zorroIdx, winterfellIdx, md)
	}
}
