package pipeline

import "github.com/oakes/tender-pipeline/internal/models"

// transitions is the full adjacency table of the stage machine. The forward
// path is received -> qualified -> in_review -> quote_submitted -> won/lost.
// Any active stage may drop straight to no_tender. quote_submitted may step
// back to in_review for a re-quote. Everything else is rejected, which also
// makes received unreachable once left and no_tender absorbing.
var transitions = map[models.Stage][]models.Stage{
	models.StageReceived:       {models.StageQualified, models.StageNoTender},
	models.StageQualified:      {models.StageInReview, models.StageNoTender},
	models.StageInReview:       {models.StageQuoteSubmitted, models.StageNoTender},
	models.StageQuoteSubmitted: {models.StageWon, models.StageLost, models.StageInReview, models.StageNoTender},
	models.StageWon:            {},
	models.StageLost:           {},
	models.StageNoTender:       {},
}

// stageRanks orders stages for the collapse tie-break. Dead deals rank lowest,
// won deals highest.
var stageRanks = map[models.Stage]int{
	models.StageLost:           0,
	models.StageNoTender:       0,
	models.StageReceived:       1,
	models.StageQualified:      2,
	models.StageInReview:       3,
	models.StageQuoteSubmitted: 4,
	models.StageWon:            5,
}

// CanTransition reports whether the stage machine permits from -> to.
func CanTransition(from, to models.Stage) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// StageRank returns the collapse precedence of a stage. Unknown stages rank
// below everything real.
func StageRank(s models.Stage) int {
	if rank, ok := stageRanks[s]; ok {
		return rank
	}
	return -1
}

// IsTerminal reports whether a stage has no outgoing transitions.
func IsTerminal(s models.Stage) bool {
	return len(transitions[s]) == 0
}

// ClearsProbability reports whether entering a stage wipes the probability
// bucket. Probability only means something while a deal is still in play.
func ClearsProbability(s models.Stage) bool {
	switch s {
	case models.StageWon, models.StageLost, models.StageNoTender:
		return true
	}
	return false
}
