package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/oakes/tender-pipeline/internal/db"
	"github.com/oakes/tender-pipeline/internal/models"
	"github.com/oakes/tender-pipeline/internal/pipeline"
)

var _ pipeline.Store = (*db.Store)(nil)

// Moves a deal through the stage machine from the command line. Gated stages
// take their answers from a YAML file; won, lost, no_tender and the re-quote
// step back to in_review need none.
func main() {
	_ = godotenv.Load()

	dealID := flag.String("deal", "", "deal id (uuid)")
	target := flag.String("target", "", "target stage")
	answersPath := flag.String("answers", "", "YAML answers file for gated stages")
	flag.Parse()

	if *dealID == "" || *target == "" {
		flag.Usage()
		os.Exit(2)
	}
	id, err := uuid.Parse(*dealID)
	if err != nil {
		log.Fatalf("bad -deal: %v", err)
	}
	stage := models.Stage(*target)
	if !stage.Valid() {
		log.Fatalf("unknown stage %q", *target)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	store := db.NewStore(pool)

	deal, err := store.GetDeal(ctx, id)
	if err != nil {
		log.Fatal(err)
	}

	answers, err := loadAnswers(deal.Stage, stage, *answersPath)
	if err != nil {
		log.Fatal(err)
	}

	out, err := pipeline.NewService(store).RequestTransition(ctx, id, stage, answers)
	if err != nil {
		var invalid *pipeline.ValidationError
		var illegal *pipeline.IllegalTransitionError
		switch {
		case errors.As(err, &invalid):
			log.Fatalf("gate incomplete, missing: %v", invalid.Missing)
		case errors.As(err, &illegal):
			log.Fatalf("transition rejected: %v", illegal)
		default:
			log.Fatalf("write failed (retryable): %v", err)
		}
	}

	log.Printf("deal %s is now %s (%s)", out.Deal.ID, out.Deal.Stage.Label(), out.Audit.Action)
	if out.Audit.Notes != "" {
		fmt.Println(out.Audit.Notes)
	}
}

// loadAnswers parses the answers file into the gate type the target stage
// expects. Ungated moves return nil.
func loadAnswers(from, target models.Stage, path string) (pipeline.GateAnswers, error) {
	gated := target == models.StageQualified ||
		(target == models.StageInReview && from != models.StageQuoteSubmitted) ||
		target == models.StageQuoteSubmitted
	if !gated {
		return nil, nil
	}
	if path == "" {
		return nil, fmt.Errorf("stage %s is gated: pass -answers", target)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch target {
	case models.StageQualified:
		var f struct {
			ScopeOfWorks          string `yaml:"scope_of_works"`
			EstimatedStart        string `yaml:"estimated_start"` // YYYY-MM
			TenderReturnDate      string `yaml:"tender_return_date"`
			SchemeSize            string `yaml:"scheme_size"`
			PricingBasis          string `yaml:"pricing_basis"`
			Plots                 string `yaml:"plots"`
			ExtraOverFoundations  string `yaml:"extra_over_foundations"`
			ExtraOverExternalWork string `yaml:"extra_over_external_work"`
		}
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		a := pipeline.QualificationAnswers{
			ScopeOfWorks:          f.ScopeOfWorks,
			SchemeSize:            f.SchemeSize,
			PricingBasis:          f.PricingBasis,
			Plots:                 f.Plots,
			ExtraOverFoundations:  f.ExtraOverFoundations,
			ExtraOverExternalWork: f.ExtraOverExternalWork,
		}
		if f.EstimatedStart != "" {
			t, err := time.Parse("2006-01", f.EstimatedStart)
			if err != nil {
				return nil, fmt.Errorf("bad estimated_start: %w", err)
			}
			a.EstimatedStart = t
		}
		if f.TenderReturnDate != "" {
			t, err := time.Parse("2006-01-02", f.TenderReturnDate)
			if err != nil {
				return nil, fmt.Errorf("bad tender_return_date: %w", err)
			}
			a.TenderReturnDate = t
		}
		return a, nil

	case models.StageInReview:
		var a pipeline.ReviewAnswers
		type reviewFile struct {
			DrawingsReceived   string `yaml:"drawings_received"`
			DrawingsDate       string `yaml:"drawings_date"`
			SiteInvestigation  string `yaml:"site_investigation"`
			InvestigationDepth string `yaml:"investigation_depth"`
			GroundConditions   string `yaml:"ground_conditions"`
			LevelsLabelled     string `yaml:"levels_labelled"`
			DrawingsLink       string `yaml:"drawings_link"`
		}
		var f reviewFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		a = pipeline.ReviewAnswers{
			DrawingsReceived:   f.DrawingsReceived,
			DrawingsDate:       f.DrawingsDate,
			SiteInvestigation:  f.SiteInvestigation,
			InvestigationDepth: f.InvestigationDepth,
			GroundConditions:   f.GroundConditions,
			LevelsLabelled:     f.LevelsLabelled,
			DrawingsLink:       f.DrawingsLink,
		}
		return a, nil

	default: // quote_submitted
		var f struct {
			Reference           string `yaml:"reference"`
			QuoteDate           string `yaml:"quote_date"`
			QuoteLink           string `yaml:"quote_link"`
			CostingLink         string `yaml:"costing_link"`
			TenderValue         string `yaml:"tender_value"`
			TenderCost          string `yaml:"tender_cost"`
			Margin              string `yaml:"margin"`
			MarginPct           string `yaml:"margin_pct"`
			MaterialsRatesAgree string `yaml:"materials_rates_agree"`
			WorksDuration       string `yaml:"works_duration"`
			PhasesPriced        string `yaml:"phases_priced"`
		}
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		a := pipeline.QuoteAnswers{
			Reference:           f.Reference,
			QuoteLink:           f.QuoteLink,
			CostingLink:         f.CostingLink,
			MaterialsRatesAgree: f.MaterialsRatesAgree,
			WorksDuration:       f.WorksDuration,
			PhasesPriced:        f.PhasesPriced,
		}
		if f.QuoteDate != "" {
			t, err := time.Parse("2006-01-02", f.QuoteDate)
			if err != nil {
				return nil, fmt.Errorf("bad quote_date: %w", err)
			}
			a.QuoteDate = t
		}
		for _, field := range []struct {
			raw  string
			dest **decimal.Decimal
			name string
		}{
			{f.TenderValue, &a.TenderValue, "tender_value"},
			{f.TenderCost, &a.TenderCost, "tender_cost"},
			{f.Margin, &a.Margin, "margin"},
			{f.MarginPct, &a.MarginPct, "margin_pct"},
		} {
			if field.raw == "" {
				continue
			}
			d, err := decimal.NewFromString(field.raw)
			if err != nil {
				return nil, fmt.Errorf("bad %s: %w", field.name, err)
			}
			*field.dest = &d
		}
		return a, nil
	}
}
