package pipeline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func completeQualification() QualificationAnswers {
	return QualificationAnswers{
		ScopeOfWorks:          "Groundworks and substructure",
		EstimatedStart:        time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		TenderReturnDate:      time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		SchemeSize:            SchemeMultiplePlots,
		PricingBasis:          PricingIndividualPlots,
		Plots:                 "1-12, 15",
		ExtraOverFoundations:  "yes",
		ExtraOverExternalWork: "no",
	}
}

func TestQualificationAnswers_EmptyListsAllBaseKeys(t *testing.T) {
	missing := QualificationAnswers{}.missingKeys()
	want := []string{"scope_of_works", "estimated_start", "tender_return_date", "scheme_size"}
	if len(missing) != len(want) {
		t.Fatalf("expected %v, got %v", want, missing)
	}
	for i, key := range want {
		if missing[i] != key {
			t.Fatalf("expected %v, got %v", want, missing)
		}
	}
}

func TestQualificationAnswers_MultiplePlotsNeedsPricingDetail(t *testing.T) {
	a := completeQualification()
	a.PricingBasis = ""
	a.ExtraOverFoundations = "maybe"

	missing := a.missingKeys()
	if !containsKey(missing, "pricing_basis") {
		t.Fatalf("expected pricing_basis missing, got %v", missing)
	}
	if !containsKey(missing, "extra_over_foundations") {
		t.Fatalf("expected extra_over_foundations missing, got %v", missing)
	}
}

func TestQualificationAnswers_PlotListOnlyForIndividualPricing(t *testing.T) {
	a := completeQualification()
	a.Plots = ""
	if missing := a.missingKeys(); !containsKey(missing, "plots") {
		t.Fatalf("individual plot pricing without plot list must be incomplete, got %v", missing)
	}

	a.PricingBasis = PricingWholeSite
	if missing := a.missingKeys(); len(missing) != 0 {
		t.Fatalf("whole-site pricing must not need a plot list, got %v", missing)
	}
}

func TestQualificationAnswers_SinglePlotSkipsPlotQuestions(t *testing.T) {
	a := QualificationAnswers{
		ScopeOfWorks:     "Substructure only",
		EstimatedStart:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		TenderReturnDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		SchemeSize:       SchemeSinglePlot,
	}
	if missing := a.missingKeys(); len(missing) != 0 {
		t.Fatalf("single plot scheme should be complete, got %v", missing)
	}
}

func TestReviewAnswers_AllSixRequired(t *testing.T) {
	missing := ReviewAnswers{}.missingKeys()
	if len(missing) != 6 {
		t.Fatalf("expected 6 missing keys, got %d: %v", len(missing), missing)
	}

	complete := ReviewAnswers{
		DrawingsReceived:   "yes",
		DrawingsDate:       "2026-02-10",
		SiteInvestigation:  "yes",
		InvestigationDepth: "3m boreholes",
		GroundConditions:   "clay over gravel",
		LevelsLabelled:     "yes",
	}
	if missing := complete.missingKeys(); len(missing) != 0 {
		t.Fatalf("expected complete, got %v", missing)
	}
}

func TestReviewAnswers_LinkOptional(t *testing.T) {
	a := ReviewAnswers{
		DrawingsReceived:   "yes",
		DrawingsDate:       "2026-02-10",
		SiteInvestigation:  "no",
		InvestigationDepth: "none",
		GroundConditions:   "unknown",
		LevelsLabelled:     "yes",
	}
	if _, ok := a.values()["drawings_link"]; ok {
		t.Fatal("unsupplied link must not appear in the note values")
	}

	a.DrawingsLink = "https://docs.example.com/dwg-114"
	if v := a.values()["drawings_link"]; v != a.DrawingsLink {
		t.Fatalf("expected link in values, got %q", v)
	}
}

func TestQuoteAnswers_ElevenRequired(t *testing.T) {
	missing := QuoteAnswers{}.missingKeys()
	if len(missing) != 11 {
		t.Fatalf("expected 11 missing keys, got %d: %v", len(missing), missing)
	}
}

func TestQuoteAnswers_ZeroValueIsInvalid(t *testing.T) {
	zero := decimal.Zero
	a := completeQuote()
	a.TenderValue = &zero
	if missing := a.missingKeys(); !containsKey(missing, "tender_value") {
		t.Fatalf("zero tender value must be flagged, got %v", missing)
	}
}

func completeQuote() QuoteAnswers {
	value := decimal.RequireFromString("80000")
	cost := decimal.RequireFromString("61000")
	typedMargin := decimal.RequireFromString("999")   // deliberately wrong
	typedPct := decimal.RequireFromString("9.9")      // deliberately wrong
	return QuoteAnswers{
		Reference:           "Q-2088",
		QuoteDate:           time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		QuoteLink:           "https://docs.example.com/q-2088",
		CostingLink:         "https://docs.example.com/c-2088",
		TenderValue:         &value,
		TenderCost:          &cost,
		Margin:              &typedMargin,
		MarginPct:           &typedPct,
		MaterialsRatesAgree: "yes",
		WorksDuration:       "14 weeks",
		PhasesPriced:        "Phase 1 and 2",
	}
}

func containsKey(keys []string, want string) bool {
	for _, k := range keys {
		if k == want {
			return true
		}
	}
	return false
}
