package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/mods"
	"github.com/guarzo/poe2gradegap/internal/testutil"
)

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func TestSampleResult_TargetCount(t *testing.T) {
	for _, n := range []int{4, 5} {
		t.Run(fmt.Sprintf("%d listings", n), func(t *testing.T) {
			m := newFakeMarket()
			for i := 0; i < n; i++ {
				m.add(bestTier(fmt.Sprintf("l%d", i), float64(10+i)))
			}
			a := newTestAnalyzer(m, &sleepRecorder{})

			s, err := a.SampleResult(context.Background(),
				model.SearchResult{IDs: m.order, QueryID: "q"},
				SampleParams{TargetCount: 5, MaxToInspect: 50})
			if err != nil {
				t.Fatal(err)
			}

			if n == 4 {
				if s.Average != 0 || s.Modifiers != nil || s.Sufficient() {
					t.Errorf("expected zero sentinel, got %+v", s)
				}
				if s.Samples != 4 {
					t.Errorf("Samples = %d, want 4", s.Samples)
				}
				return
			}
			if s.Average != 12 {
				t.Errorf("Average = %v, want 12", s.Average)
			}
			if len(s.Modifiers) != 2 {
				t.Errorf("expected 2 deduplicated modifiers, got %d", len(s.Modifiers))
			}
		})
	}
}

func TestSampleResult_ExcludedListingSkipped(t *testing.T) {
	m := newFakeMarket(
		testutil.NewListing("excluded").
			Rarity("Magic").
			Price(1000, "exalted").
			Mod(model.GroupExplicit, "Tainted", "P3", 1, 2).
			Mod(model.GroupExplicit, "of Ruin", "S3", 1, 2),
	)
	for i := 0; i < 5; i++ {
		m.add(bestTier(fmt.Sprintf("l%d", i), 10))
	}
	ex := mods.CompileExclusions([]model.ExclusionRule{
		{Tier: "P3", Active: true},
		{NamePattern: "of %", Tier: "S3", Active: true},
	})

	a := newTestAnalyzer(m, &sleepRecorder{})
	s, err := a.SampleResult(context.Background(),
		model.SearchResult{IDs: m.order},
		SampleParams{Exclusions: ex, TargetCount: 5})
	if err != nil {
		t.Fatal(err)
	}

	if s.Average != 10 {
		t.Errorf("Average = %v, want 10 (excluded listing must not be priced)", s.Average)
	}
	if s.Inspected != 6 {
		t.Errorf("Inspected = %d, want 6", s.Inspected)
	}
	for _, d := range s.Modifiers {
		if d.Name == "Tainted" || d.Name == "of Ruin" {
			t.Errorf("excluded modifier aggregated: %+v", d)
		}
	}
	for _, attr := range s.Attributes {
		if attr.Count != 5 {
			t.Errorf("attribute %q counted %d times, want 5", attr.Name, attr.Count)
		}
	}
}

func TestSampleResult_PartialExclusionKeepsListing(t *testing.T) {
	m := newFakeMarket(
		testutil.NewListing("a").
			Price(10, "exalted").
			Mod(model.GroupExplicit, "Keep", "P1", 1, 2).
			Mod(model.GroupExplicit, "Drop", "S3", 1, 2),
	)
	ex := mods.CompileExclusions([]model.ExclusionRule{{NamePattern: "drop", Active: true}})

	a := newTestAnalyzer(m, &sleepRecorder{})
	s, err := a.SampleResult(context.Background(), model.SearchResult{IDs: m.order},
		SampleParams{Exclusions: ex, TargetCount: 1})
	if err != nil {
		t.Fatal(err)
	}
	if s.Average != 10 || len(s.Modifiers) != 1 || s.Modifiers[0].Name != "Keep" {
		t.Errorf("unexpected sample: %+v", s)
	}
}

func TestSampleResult_MinModifierCount(t *testing.T) {
	m := newFakeMarket(
		testutil.NewListing("one").Price(50, "exalted").Mod(model.GroupExplicit, "A", "P1", 1, 2),
		bestTier("two", 20),
	)
	a := newTestAnalyzer(m, &sleepRecorder{})

	s, err := a.SampleResult(context.Background(), model.SearchResult{IDs: m.order},
		SampleParams{MinModifierCount: 2, TargetCount: 1})
	if err != nil {
		t.Fatal(err)
	}
	if s.Average != 20 {
		t.Errorf("Average = %v, want 20", s.Average)
	}
}

func TestSampleResult_ValidatorAndTierFilter(t *testing.T) {
	m := newFakeMarket(
		testutil.NewListing("mixed").
			Rarity("Magic").
			Price(500, "exalted").
			Mod(model.GroupExplicit, "Glinting", "P1", 1, 2).
			Mod(model.GroupExplicit, "of the Lynx", "S2", 1, 2),
		bestTier("best", 40),
	)
	a := newTestAnalyzer(m, &sleepRecorder{})

	s, err := a.SampleResult(context.Background(), model.SearchResult{IDs: m.order},
		SampleParams{Validator: BestTier{}, TargetCount: 1})
	if err != nil {
		t.Fatal(err)
	}
	if s.Average != 40 {
		t.Errorf("Average = %v, want 40", s.Average)
	}

	var names []string
	for _, d := range s.Modifiers {
		names = append(names, d.Name+"/"+d.Tier)
	}
	want := []string{"Glinting/P1", "of the Fox/S1"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("modifiers (-want +got):\n%s", diff)
	}
}

func TestSampleResult_PriceNormalization(t *testing.T) {
	m := newFakeMarket(
		testutil.NewListing("chaos").Price(10, "chaos"),
		testutil.NewListing("divine").Price(1, "Divine"),
		testutil.NewListing("unknown").Price(5, "mystery"),
		testutil.NewListing("none"),
		testutil.NewListing("bad").Price("lots", "exalted"),
		testutil.NewListing("zero").Price(0, "exalted"),
	)
	a := newTestAnalyzer(m, &sleepRecorder{})

	s, err := a.SampleResult(context.Background(), model.SearchResult{IDs: m.order},
		SampleParams{TargetCount: 2})
	if err != nil {
		t.Fatal(err)
	}
	if s.Samples != 2 || s.Average != (78+320)/2.0 {
		t.Errorf("unexpected sample: %+v", s)
	}
}

func TestSampleResult_Batching(t *testing.T) {
	m := newFakeMarket()
	for _, id := range ids("x", 25) {
		m.add(testutil.NewListing(id)) // unpriced, never reaches target
	}
	rec := &sleepRecorder{}
	a := newTestAnalyzer(m, rec)

	s, err := a.SampleResult(context.Background(), model.SearchResult{IDs: m.order},
		SampleParams{TargetCount: 5, MaxToInspect: 15})
	if err != nil {
		t.Fatal(err)
	}
	if s.Inspected != 15 {
		t.Errorf("Inspected = %d, want 15", s.Inspected)
	}
	if len(m.fetches) != 2 || len(m.fetches[0]) != 10 || len(m.fetches[1]) != 5 {
		t.Errorf("unexpected fetch batches: %v", m.fetches)
	}
	if len(rec.waits) != 1 || rec.waits[0] != 500*time.Millisecond {
		t.Errorf("waits = %v, want one batch delay", rec.waits)
	}
}

func TestSampleResult_StopsAtTarget(t *testing.T) {
	m := newFakeMarket()
	for _, id := range ids("p", 30) {
		m.add(priced(id, 10))
	}
	rec := &sleepRecorder{}
	a := newTestAnalyzer(m, rec)

	s, err := a.SampleResult(context.Background(), model.SearchResult{IDs: m.order},
		SampleParams{TargetCount: 3})
	if err != nil {
		t.Fatal(err)
	}
	if s.Inspected != 3 || len(m.fetches) != 1 || rec.count() != 0 {
		t.Errorf("expected a single batch and no pacing: inspected=%d fetches=%d waits=%d",
			s.Inspected, len(m.fetches), rec.count())
	}
}

func TestSampleResult_Errors(t *testing.T) {
	t.Run("fetch error propagates", func(t *testing.T) {
		m := newFakeMarket(priced("a", 1))
		m.fetchErr = errors.New("HTTP 400: bad request")
		a := newTestAnalyzer(m, &sleepRecorder{})

		_, err := a.SampleResult(context.Background(), model.SearchResult{IDs: m.order}, SampleParams{})
		if err == nil || !errors.Is(err, m.fetchErr) {
			t.Errorf("expected wrapped fetch error, got %v", err)
		}
	})

	t.Run("cancelled during pacing", func(t *testing.T) {
		m := newFakeMarket()
		for _, id := range ids("x", 15) {
			m.add(testutil.NewListing(id))
		}
		a := newTestAnalyzer(m, &sleepRecorder{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := a.SampleResult(ctx, model.SearchResult{IDs: m.order}, SampleParams{})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestSampleResult_EmptyResult(t *testing.T) {
	m := newFakeMarket()
	a := newTestAnalyzer(m, &sleepRecorder{})

	s, err := a.SampleResult(context.Background(), model.SearchResult{}, SampleParams{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Sufficient() || len(m.fetches) != 0 {
		t.Errorf("empty result should not fetch: %+v", s)
	}
}
