package illustrate

import (
	"context"
	"strings"
	"testing"

	"github.com/tribixbite/imaginize/internal/catalog"
)

func TestExtractMentions_FiltersSingleStopwordsKeepsPhrases(t *testing.T) {
	got := extractMentions("The fox named Mira crossed the Lantern Wood at dusk.")
	want := map[string]bool{"Mira": true, "Lantern Wood": true}
	if len(got) != len(want) {
		t.Fatalf("extractMentions() = %v, want members of %v", got, want)
	}
	for _, m := range got {
		if !want[m] {
			t.Errorf("extractMentions() returned unexpected mention %q", m)
		}
	}
}

func TestEnrichPrompt_AppendsMatchedEntityDetails(t *testing.T) {
	c := catalog.New()
	if _, err := c.MergeEntity(context.Background(), catalog.Candidate{
		Type: catalog.TypeCharacter, Name: "Mira", Description: "A quiet fox.", BookID: "book-1",
	}, catalog.StrategyEnrich, nil, 0); err != nil {
		t.Fatalf("MergeEntity() error = %v", err)
	}

	out := enrichPrompt("Mira crossed the bridge.", "She paused.", c)
	if !strings.Contains(out, "Character/Place details:") {
		t.Errorf("enrichPrompt() missing details header: %q", out)
	}
	if !strings.Contains(out, "A quiet fox.") {
		t.Errorf("enrichPrompt() missing matched entity description: %q", out)
	}
}

func TestEnrichPrompt_NoMatchesReturnsDescriptionUnchanged(t *testing.T) {
	out := enrichPrompt("The wind blew softly.", "Nothing stirred.", catalog.New())
	if out != "The wind blew softly." {
		t.Errorf("enrichPrompt() = %q, want unchanged description", out)
	}
}
