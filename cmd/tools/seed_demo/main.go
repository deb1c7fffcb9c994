package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/oakes/tender-pipeline/internal/db"
	"github.com/oakes/tender-pipeline/internal/models"
	"github.com/oakes/tender-pipeline/internal/pipeline"
)

// Seeds a handful of companies and deals so the report tools have something
// to chew on locally.
func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatal(err)
	}
	store := db.NewStore(pool)

	companyNames := [][2]string{
		{"Harwood Developments", "Chester"},
		{"Pennine Homes", "Leeds"},
		{"Brackley Construction", "Northampton"},
	}
	var companies []models.Company
	for _, c := range companyNames {
		company, err := store.CreateCompany(ctx, c[0], c[1])
		if err != nil {
			log.Fatal(err)
		}
		companies = append(companies, company)
	}

	type seed struct {
		company     int
		ap          *int
		salesperson string
		stage       models.Stage
		probability models.Probability
		value       string
		cost        string
		enquiry     string
	}

	ap101 := 101
	ap102 := 102
	seeds := []seed{
		{0, &ap101, "T. Marsh", models.StageQualified, models.ProbabilityB, "100000", "", "2025-11-12"},
		{0, &ap101, "T. Marsh", models.StageQuoteSubmitted, models.ProbabilityA, "80000", "61000", "2025-12-03"},
		{1, &ap102, "S. Okafor", models.StageWon, "", "245000", "199000", "2025-09-30"},
		{1, nil, "S. Okafor", models.StageReceived, "", "", "", "2026-01-15"},
		{2, nil, "T. Marsh", models.StageInReview, models.ProbabilityC, "56000", "", "2026-02-02"},
		{2, nil, "S. Okafor", models.StageNoTender, "", "", "", "2025-06-20"},
	}

	for _, s := range seeds {
		deal := models.Deal{
			CompanyID:   companies[s.company].ID,
			APNumber:    s.ap,
			Salesperson: s.salesperson,
			Stage:       s.stage,
			Probability: s.probability,
		}
		if s.enquiry != "" {
			t, err := time.Parse("2006-01-02", s.enquiry)
			if err != nil {
				log.Fatal(err)
			}
			deal.EnquiryDate = &t
		}
		if s.value != "" {
			v := decimal.RequireFromString(s.value)
			deal.TenderValue = &v
			if s.cost != "" {
				c := decimal.RequireFromString(s.cost)
				deal.TenderCost = &c
				margin, marginPct, err := pipeline.DeriveFinancials(v, c)
				if err != nil {
					log.Fatal(err)
				}
				deal.TenderMargin = &margin
				deal.TenderMarginPct = &marginPct
			}
		}

		created, err := store.CreateDeal(ctx, deal)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("seeded deal %s (%s, %s)", created.ID, created.Stage.Label(), created.Salesperson)
	}

	log.Printf("seeded %d companies and %d deals", len(companies), len(seeds))
}
