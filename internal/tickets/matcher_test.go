package tickets

import "testing"

func TestMatcherResolvesAliases(t *testing.T) {
	m := NewMatcher(DefaultCatalog())

	cases := []struct {
		input    string
		product  string
		minScore float64
	}{
		{input: "3/4 Limestone", product: "limestone-3/4", minScore: 0.6},
		{input: "Masonry Sand #2", product: "masonry-sand", minScore: 1},
		{input: "QM-1/4 Minus", product: "qm-1/4-minus", minScore: 1},
		{input: "  TOPSOIL ", product: "topsoil", minScore: 1},
		{input: "pea-gravel", product: "pea-gravel", minScore: 1},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got := m.Match(tc.input)
			if got.ProductID != tc.product {
				t.Fatalf("expected %s, got %+v", tc.product, got)
			}
			if got.Confidence < tc.minScore {
				t.Fatalf("expected confidence >= %v, got %v", tc.minScore, got.Confidence)
			}
			if got.NeedsReview {
				t.Fatalf("did not expect review for %q", tc.input)
			}
		})
	}
}

func TestMatcherUnknownMaterialNeedsReview(t *testing.T) {
	m := NewMatcher(DefaultCatalog())
	for _, input := range []string{"xyz123", ""} {
		got := m.Match(input)
		if got.ProductID != "" {
			t.Fatalf("expected no match for %q, got %+v", input, got)
		}
		if !got.NeedsReview {
			t.Fatalf("expected review for %q", input)
		}
	}
}

func TestMatcherTieBreakIsDeterministic(t *testing.T) {
	m := NewMatcher(Catalog{
		"b-stone": {"blue stone", "stone"},
		"a-stone": {"grey stone", "stone"},
	})
	for i := 0; i < 20; i++ {
		got := m.Match("stone")
		if got.ProductID != "a-stone" || got.Alias != "stone" {
			t.Fatalf("expected a-stone via shortest alias, got %+v", got)
		}
	}
}

func TestMatcherPartialMatchFlagsReview(t *testing.T) {
	m := NewMatcher(Catalog{"crushed-concrete": {"crushed concrete recycled base"}})
	got := m.Match("crushed")
	if got.ProductID != "crushed-concrete" {
		t.Fatalf("expected best-effort product, got %+v", got)
	}
	if !got.NeedsReview {
		t.Fatalf("expected low confidence %v to need review", got.Confidence)
	}
}
