package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stage is the closed set of sales stages a deal moves through.
type Stage string

const (
	StageReceived       Stage = "received"
	StageQualified      Stage = "qualified"
	StageInReview       Stage = "in_review"
	StageQuoteSubmitted Stage = "quote_submitted"
	StageWon            Stage = "won"
	StageLost           Stage = "lost"
	StageNoTender       Stage = "no_tender"
)

var stageLabels = map[Stage]string{
	StageReceived:       "Received",
	StageQualified:      "Qualified",
	StageInReview:       "In Review",
	StageQuoteSubmitted: "Quote Submitted",
	StageWon:            "Won",
	StageLost:           "Lost",
	StageNoTender:       "No Tender",
}

// AllStages lists every stage in lifecycle order.
var AllStages = []Stage{
	StageReceived, StageQualified, StageInReview, StageQuoteSubmitted,
	StageWon, StageLost, StageNoTender,
}

func (s Stage) Valid() bool {
	_, ok := stageLabels[s]
	return ok
}

// Label returns the display name for a stage ("quote_submitted" -> "Quote Submitted").
func (s Stage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}

// Probability is the qualitative win-likelihood bucket. Empty means unset.
type Probability string

const (
	ProbabilityA Probability = "A"
	ProbabilityB Probability = "B"
	ProbabilityC Probability = "C"
	ProbabilityD Probability = "D"
)

func (p Probability) Valid() bool {
	switch p {
	case ProbabilityA, ProbabilityB, ProbabilityC, ProbabilityD:
		return true
	}
	return false
}

// Deal is a single tender submission. Multiple deals can share an AP number
// when they are submissions for the same physical project.
type Deal struct {
	ID                 uuid.UUID        `json:"id"`
	APNumber           *int             `json:"ap_number"`
	CompanyID          uuid.UUID        `json:"company_id"`
	Salesperson        string           `json:"salesperson"`
	Stage              Stage            `json:"stage"`
	Probability        Probability      `json:"probability,omitempty"`
	TenderValue        *decimal.Decimal `json:"tender_value"`
	TenderCost         *decimal.Decimal `json:"tender_cost"`
	TenderMargin       *decimal.Decimal `json:"tender_margin"`
	TenderMarginPct    *decimal.Decimal `json:"tender_margin_pct"`
	EnquiryDate        *time.Time       `json:"enquiry_date"`
	TenderReturnDate   *time.Time       `json:"tender_return_date"`
	EstimatedStartDate *time.Time       `json:"estimated_start_date"`
	Notes              string           `json:"notes"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// ProjectKey groups submissions belonging to one physical project. Deals
// without an AP number key on their own ID so they never merge with anything.
func (d Deal) ProjectKey() string {
	if d.APNumber != nil {
		return fmt.Sprintf("ap:%d", *d.APNumber)
	}
	return "deal:" + d.ID.String()
}

// FinancialsComplete reports whether all four tender money fields are set.
func (d Deal) FinancialsComplete() bool {
	return d.TenderValue != nil && d.TenderCost != nil &&
		d.TenderMargin != nil && d.TenderMarginPct != nil
}

// ValueOrZero treats a missing tender value as zero for comparisons and sums.
func (d Deal) ValueOrZero() decimal.Decimal {
	if d.TenderValue == nil {
		return decimal.Zero
	}
	return *d.TenderValue
}
