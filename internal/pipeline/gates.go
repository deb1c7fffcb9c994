package pipeline

import (
	"strings"
	"time"

	"github.com/oakes/tender-pipeline/internal/models"
	"github.com/shopspring/decimal"
)

// Scheme size and pricing basis choices for the qualification gate.
const (
	SchemeSinglePlot    = "single_plot"
	SchemeMultiplePlots = "multiple_plots"

	PricingWholeSite       = "whole_site"
	PricingIndividualPlots = "individual_plots"
)

// GateAnswers is one completed checklist for a gated stage transition. Each
// gate has its own concrete answer type so completeness is a total function
// over a known shape.
type GateAnswers interface {
	// target is the stage this answer set admits a deal into.
	target() models.Stage
	// missingKeys lists required answers that are absent or malformed.
	missingKeys() []string
	// values maps question key to rendered answer for the audit note.
	values() map[string]string
}

func isYesNo(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "no":
		return true
	}
	return false
}

// QualificationAnswers admits a deal into the qualified stage. The plot and
// extra-over questions only apply to multi-plot schemes, and the plot list
// only when pricing is per individual plot.
type QualificationAnswers struct {
	ScopeOfWorks          string
	EstimatedStart        time.Time // month granularity
	TenderReturnDate      time.Time
	SchemeSize            string
	PricingBasis          string
	Plots                 string
	ExtraOverFoundations  string // yes/no
	ExtraOverExternalWork string // yes/no
}

func (a QualificationAnswers) target() models.Stage { return models.StageQualified }

func (a QualificationAnswers) missingKeys() []string {
	var missing []string
	if strings.TrimSpace(a.ScopeOfWorks) == "" {
		missing = append(missing, "scope_of_works")
	}
	if a.EstimatedStart.IsZero() {
		missing = append(missing, "estimated_start")
	}
	if a.TenderReturnDate.IsZero() {
		missing = append(missing, "tender_return_date")
	}
	switch a.SchemeSize {
	case SchemeSinglePlot:
	case SchemeMultiplePlots:
		switch a.PricingBasis {
		case PricingWholeSite:
		case PricingIndividualPlots:
			if strings.TrimSpace(a.Plots) == "" {
				missing = append(missing, "plots")
			}
		default:
			missing = append(missing, "pricing_basis")
		}
		if !isYesNo(a.ExtraOverFoundations) {
			missing = append(missing, "extra_over_foundations")
		}
		if !isYesNo(a.ExtraOverExternalWork) {
			missing = append(missing, "extra_over_external_work")
		}
	default:
		missing = append(missing, "scheme_size")
	}
	return missing
}

func (a QualificationAnswers) values() map[string]string {
	vals := map[string]string{
		"scope_of_works":     a.ScopeOfWorks,
		"estimated_start":    a.EstimatedStart.Format("January 2006"),
		"tender_return_date": a.TenderReturnDate.Format("2006-01-02"),
		"scheme_size":        a.SchemeSize,
	}
	if a.SchemeSize == SchemeMultiplePlots {
		vals["pricing_basis"] = a.PricingBasis
		vals["extra_over_foundations"] = a.ExtraOverFoundations
		vals["extra_over_external_work"] = a.ExtraOverExternalWork
		if a.PricingBasis == PricingIndividualPlots {
			vals["plots"] = a.Plots
		}
	}
	return vals
}

// ReviewAnswers admits a deal into the in_review stage: drawing receipt and
// site-investigation depth checks. DrawingsLink is optional and only appears
// in the audit note when supplied.
type ReviewAnswers struct {
	DrawingsReceived   string // yes/no
	DrawingsDate       string
	SiteInvestigation  string // yes/no
	InvestigationDepth string
	GroundConditions   string
	LevelsLabelled     string // yes/no
	DrawingsLink       string // optional
}

func (a ReviewAnswers) target() models.Stage { return models.StageInReview }

func (a ReviewAnswers) missingKeys() []string {
	var missing []string
	if !isYesNo(a.DrawingsReceived) {
		missing = append(missing, "drawings_received")
	}
	if strings.TrimSpace(a.DrawingsDate) == "" {
		missing = append(missing, "drawings_date")
	}
	if !isYesNo(a.SiteInvestigation) {
		missing = append(missing, "site_investigation")
	}
	if strings.TrimSpace(a.InvestigationDepth) == "" {
		missing = append(missing, "investigation_depth")
	}
	if strings.TrimSpace(a.GroundConditions) == "" {
		missing = append(missing, "ground_conditions")
	}
	if !isYesNo(a.LevelsLabelled) {
		missing = append(missing, "levels_labelled")
	}
	return missing
}

func (a ReviewAnswers) values() map[string]string {
	vals := map[string]string{
		"drawings_received":   a.DrawingsReceived,
		"drawings_date":       a.DrawingsDate,
		"site_investigation":  a.SiteInvestigation,
		"investigation_depth": a.InvestigationDepth,
		"ground_conditions":   a.GroundConditions,
		"levels_labelled":     a.LevelsLabelled,
	}
	if strings.TrimSpace(a.DrawingsLink) != "" {
		vals["drawings_link"] = a.DrawingsLink
	}
	return vals
}

// QuoteAnswers admits a deal into the quote_submitted stage. Margin and
// MarginPct must be supplied but are ignored: the committed figures are
// recomputed from TenderValue and TenderCost.
type QuoteAnswers struct {
	Reference           string
	QuoteDate           time.Time
	QuoteLink           string
	CostingLink         string
	TenderValue         *decimal.Decimal
	TenderCost          *decimal.Decimal
	Margin              *decimal.Decimal
	MarginPct           *decimal.Decimal
	MaterialsRatesAgree string // yes/no
	WorksDuration       string
	PhasesPriced        string
}

func (a QuoteAnswers) target() models.Stage { return models.StageQuoteSubmitted }

func (a QuoteAnswers) missingKeys() []string {
	var missing []string
	if strings.TrimSpace(a.Reference) == "" {
		missing = append(missing, "reference")
	}
	if a.QuoteDate.IsZero() {
		missing = append(missing, "quote_date")
	}
	if strings.TrimSpace(a.QuoteLink) == "" {
		missing = append(missing, "quote_link")
	}
	if strings.TrimSpace(a.CostingLink) == "" {
		missing = append(missing, "costing_link")
	}
	if a.TenderValue == nil || a.TenderValue.IsZero() {
		missing = append(missing, "tender_value")
	}
	if a.TenderCost == nil {
		missing = append(missing, "tender_cost")
	}
	if a.Margin == nil {
		missing = append(missing, "margin")
	}
	if a.MarginPct == nil {
		missing = append(missing, "margin_pct")
	}
	if !isYesNo(a.MaterialsRatesAgree) {
		missing = append(missing, "materials_rates_agree")
	}
	if strings.TrimSpace(a.WorksDuration) == "" {
		missing = append(missing, "works_duration")
	}
	if strings.TrimSpace(a.PhasesPriced) == "" {
		missing = append(missing, "phases_priced")
	}
	return missing
}

func (a QuoteAnswers) values() map[string]string {
	vals := map[string]string{
		"reference":             a.Reference,
		"quote_date":            a.QuoteDate.Format("2006-01-02"),
		"quote_link":            a.QuoteLink,
		"costing_link":          a.CostingLink,
		"materials_rates_agree": a.MaterialsRatesAgree,
		"works_duration":        a.WorksDuration,
		"phases_priced":         a.PhasesPriced,
	}
	if a.TenderValue != nil {
		vals["tender_value"] = a.TenderValue.String()
	}
	if a.TenderCost != nil {
		vals["tender_cost"] = a.TenderCost.String()
	}
	return vals
}
