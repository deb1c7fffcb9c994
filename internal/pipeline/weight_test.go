package pipeline

import (
	"testing"

	"github.com/oakes/tender-pipeline/internal/models"
	"github.com/shopspring/decimal"
)

func TestWeight_WonIsOneRegardlessOfProbability(t *testing.T) {
	for _, p := range []models.Probability{"", models.ProbabilityA, models.ProbabilityD, "Z"} {
		w := Weight(models.Deal{Stage: models.StageWon, Probability: p})
		if !w.Equal(decimal.NewFromInt(1)) {
			t.Fatalf("won with probability %q: expected weight 1, got %s", p, w)
		}
	}
}

func TestWeight_DeadStagesAreZeroRegardlessOfProbability(t *testing.T) {
	for _, stage := range []models.Stage{models.StageLost, models.StageNoTender} {
		w := Weight(models.Deal{Stage: stage, Probability: models.ProbabilityA})
		if !w.IsZero() {
			t.Fatalf("%s: expected weight 0, got %s", stage, w)
		}
	}
}

func TestWeight_ProbabilityBuckets(t *testing.T) {
	cases := map[models.Probability]string{
		models.ProbabilityA: "0.75",
		models.ProbabilityB: "0.5",
		models.ProbabilityC: "0.25",
		models.ProbabilityD: "0.1",
		"":                  "0",
		"unknown":           "0",
	}
	for p, want := range cases {
		w := Weight(models.Deal{Stage: models.StageQualified, Probability: p})
		if !w.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("bucket %q: expected %s, got %s", p, want, w)
		}
	}
}

func TestWeight_TotalAndBounded(t *testing.T) {
	one := decimal.NewFromInt(1)
	for _, stage := range append([]models.Stage{"bogus"}, models.AllStages...) {
		for _, p := range []models.Probability{"", "A", "B", "C", "D", "??"} {
			w := Weight(models.Deal{Stage: stage, Probability: p})
			if w.IsNegative() || w.GreaterThan(one) {
				t.Fatalf("weight out of [0,1] for stage=%q probability=%q: %s", stage, p, w)
			}
		}
	}
}

func TestExpectedValue_Scenarios(t *testing.T) {
	thousand := decimal.NewFromInt(1000)

	cases := []struct {
		deal models.Deal
		want string
	}{
		{models.Deal{Stage: models.StageWon, TenderValue: &thousand}, "1000"},
		{models.Deal{Stage: models.StageReceived, Probability: models.ProbabilityC, TenderValue: &thousand}, "250"},
		{models.Deal{Stage: models.StageLost, Probability: models.ProbabilityA, TenderValue: &thousand}, "0"},
		{models.Deal{Stage: models.StageQualified, Probability: models.ProbabilityB}, "0"}, // no value
	}
	for i, c := range cases {
		got := ExpectedValue(c.deal)
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("case %d: expected %s, got %s", i, c.want, got)
		}
	}
}
