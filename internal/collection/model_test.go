package collection

import "testing"

func TestEffectiveSummaryFallsBackToCollectionDescription(t *testing.T) {
	parent := Collection{Description: "a collection of tools"}
	p := Package{}
	if got := p.EffectiveSummary(parent); got != parent.Description {
		t.Errorf("got %q want %q", got, parent.Description)
	}

	p.Summary = "its own summary"
	if got := p.EffectiveSummary(parent); got != p.Summary {
		t.Errorf("got %q want %q", got, p.Summary)
	}
}

func TestEffectiveKeywordsFallsBackToCollectionKeywords(t *testing.T) {
	parent := Collection{Keywords: []string{"a", "b"}}
	p := Package{}
	got := p.EffectiveKeywords(parent)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v want %v", got, parent.Keywords)
	}

	p.Keywords = []string{"own"}
	got = p.EffectiveKeywords(parent)
	if len(got) != 1 || got[0] != "own" {
		t.Errorf("got %v want [own]", got)
	}
}
