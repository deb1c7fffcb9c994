package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oakes/tender-pipeline/internal/models"
)

// actionStageChange labels audit entries for ungated stage moves.
const actionStageChange = "Stage Change"

// TransitionOutcome is a committed-but-unpersisted stage change: the new
// version of the deal plus the audit entry documenting it. Both must be
// written atomically or not at all.
type TransitionOutcome struct {
	Deal  models.Deal
	Audit models.AuditEntry
}

// Transition validates a proposed stage move and, when legal and complete,
// returns the updated deal and its audit entry. The input deal is never
// mutated. history is the deal's existing audit trail, used to number
// repeated quote submissions.
func Transition(deal models.Deal, target models.Stage, answers GateAnswers, history []models.AuditEntry, now time.Time) (TransitionOutcome, error) {
	if !target.Valid() {
		return TransitionOutcome{}, &IllegalTransitionError{From: deal.Stage, To: target, Reason: "unknown stage"}
	}
	if !CanTransition(deal.Stage, target) {
		reason := ""
		switch {
		case deal.Stage == models.StageNoTender:
			reason = "no tender is terminal"
		case target == models.StageReceived:
			reason = "received cannot be re-entered"
		case IsTerminal(deal.Stage):
			reason = "deal already closed"
		}
		return TransitionOutcome{}, &IllegalTransitionError{From: deal.Stage, To: target, Reason: reason}
	}

	next := deal
	entry := models.AuditEntry{
		ID:        uuid.New(),
		DealID:    deal.ID,
		Action:    actionStageChange,
		Notes:     stageChangeNote(deal.Stage, target),
		CreatedAt: now,
	}

	switch target {
	case models.StageQualified:
		q, ok := answers.(QualificationAnswers)
		if !ok {
			return TransitionOutcome{}, &ValidationError{Missing: []string{"qualification_answers"}}
		}
		if missing := q.missingKeys(); len(missing) > 0 {
			return TransitionOutcome{}, &ValidationError{Missing: missing}
		}
		ret := q.TenderReturnDate
		start := monthStart(q.EstimatedStart)
		next.TenderReturnDate = &ret
		next.EstimatedStartDate = &start

		gate, _ := GateFor(target)
		entry.Action = gate.Action
		entry.Notes = gateNote(gate, q.values())

	case models.StageInReview:
		// Stepping back from quote_submitted is an ungated re-quote; the
		// review gate only guards the forward move out of qualified.
		if deal.Stage != models.StageQuoteSubmitted {
			r, ok := answers.(ReviewAnswers)
			if !ok {
				return TransitionOutcome{}, &ValidationError{Missing: []string{"review_answers"}}
			}
			if missing := r.missingKeys(); len(missing) > 0 {
				return TransitionOutcome{}, &ValidationError{Missing: missing}
			}
			gate, _ := GateFor(target)
			entry.Action = gate.Action
			entry.Notes = gateNote(gate, r.values())
		}

	case models.StageQuoteSubmitted:
		q, ok := answers.(QuoteAnswers)
		if !ok {
			return TransitionOutcome{}, &ValidationError{Missing: []string{"quote_answers"}}
		}
		if missing := q.missingKeys(); len(missing) > 0 {
			return TransitionOutcome{}, &ValidationError{Missing: missing}
		}

		// Caller-typed margin figures are ignored: the committed margin and
		// margin percent always come from value and cost.
		margin, marginPct, err := DeriveFinancials(*q.TenderValue, *q.TenderCost)
		if err != nil {
			return TransitionOutcome{}, &ValidationError{Missing: []string{"tender_value"}}
		}
		value := *q.TenderValue
		cost := *q.TenderCost
		next.TenderValue = &value
		next.TenderCost = &cost
		next.TenderMargin = &margin
		next.TenderMarginPct = &marginPct

		gate, _ := GateFor(target)
		vals := q.values()
		vals["margin"] = margin.String()
		vals["margin_pct"] = marginPct.String()
		entry.Action = fmt.Sprintf("%s v%d", gate.Action, quoteVersion(gate.Action, history))
		entry.Notes = gateNote(gate, vals)

	case models.StageWon, models.StageLost:
		if !deal.FinancialsComplete() {
			return TransitionOutcome{}, &IllegalTransitionError{From: deal.Stage, To: target, Reason: "tender financials incomplete"}
		}

	case models.StageNoTender:
		// Always allowed from any live stage; nothing to validate.
	}

	next.Stage = target
	if ClearsProbability(target) {
		next.Probability = ""
	}
	next.UpdatedAt = now

	return TransitionOutcome{Deal: next, Audit: entry}, nil
}

// quoteVersion numbers repeated quote submissions: one more than the count of
// prior audit entries whose action label starts with the quote gate's name.
func quoteVersion(action string, history []models.AuditEntry) int {
	n := 0
	for _, e := range history {
		if strings.HasPrefix(e.Action, action) {
			n++
		}
	}
	return n + 1
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
