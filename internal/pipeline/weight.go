package pipeline

import (
	"github.com/oakes/tender-pipeline/internal/models"
	"github.com/shopspring/decimal"
)

var (
	weightWon = decimal.NewFromInt(1)

	probabilityWeights = map[models.Probability]decimal.Decimal{
		models.ProbabilityA: decimal.RequireFromString("0.75"),
		models.ProbabilityB: decimal.RequireFromString("0.5"),
		models.ProbabilityC: decimal.RequireFromString("0.25"),
		models.ProbabilityD: decimal.RequireFromString("0.1"),
	}
)

// Weight maps a deal's stage and probability bucket to its forecast weight in
// [0,1]. Total: every deal gets a weight, unknown buckets count as zero.
func Weight(d models.Deal) decimal.Decimal {
	switch d.Stage {
	case models.StageWon:
		return weightWon
	case models.StageLost, models.StageNoTender:
		return decimal.Zero
	}
	if w, ok := probabilityWeights[d.Probability]; ok {
		return w
	}
	return decimal.Zero
}

// ExpectedValue is the tender value scaled by the forecast weight. Missing
// values count as zero.
func ExpectedValue(d models.Deal) decimal.Decimal {
	return d.ValueOrZero().Mul(Weight(d))
}
