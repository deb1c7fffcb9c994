package main

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/oakes/tender-pipeline/internal/db"
	"github.com/oakes/tender-pipeline/internal/pipeline"
)

// Re-derives margin and margin percent for every deal holding both a tender
// value and cost, fixing rows whose stored figures drifted (hand edits,
// imports from the old spreadsheet).
func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `
		SELECT id, tender_value::text, tender_cost::text,
			COALESCE(tender_margin::text, ''), COALESCE(tender_margin_pct::text, '')
		FROM deals
		WHERE tender_value IS NOT NULL AND tender_cost IS NOT NULL`)
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()

	type fix struct {
		id         uuid.UUID
		margin     decimal.Decimal
		marginPct  decimal.Decimal
	}
	var fixes []fix
	checked := 0

	for rows.Next() {
		var id uuid.UUID
		var valueRaw, costRaw, marginRaw, marginPctRaw string
		if err := rows.Scan(&id, &valueRaw, &costRaw, &marginRaw, &marginPctRaw); err != nil {
			log.Fatal(err)
		}
		checked++

		value := decimal.RequireFromString(valueRaw)
		cost := decimal.RequireFromString(costRaw)
		margin, marginPct, err := pipeline.DeriveFinancials(value, cost)
		if err != nil {
			log.Printf("skipping %s: %v", id, err)
			continue
		}

		stale := marginRaw == "" || marginPctRaw == "" ||
			!decimal.RequireFromString(marginRaw).Equal(margin) ||
			!decimal.RequireFromString(marginPctRaw).Equal(marginPct)
		if stale {
			fixes = append(fixes, fix{id: id, margin: margin, marginPct: marginPct})
		}
	}
	if err := rows.Err(); err != nil {
		log.Fatal(err)
	}

	for _, f := range fixes {
		if _, err := pool.Exec(ctx, `
			UPDATE deals SET tender_margin = $1::numeric, tender_margin_pct = $2::numeric, updated_at = NOW()
			WHERE id = $3`, f.margin.String(), f.marginPct.String(), f.id); err != nil {
			log.Fatal(err)
		}
		log.Printf("recomputed %s: margin %s (%s%%)", f.id, f.margin.String(), f.marginPct.StringFixed(1))
	}

	log.Printf("checked %d deals, fixed %d", checked, len(fixes))
}
