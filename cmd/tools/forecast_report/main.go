package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/oakes/tender-pipeline/internal/db"
	"github.com/oakes/tender-pipeline/internal/models"
	"github.com/oakes/tender-pipeline/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	report := flag.String("report", "kpi", "kpi | pipeline | forecast | salespeople | companies | yoy | fy")
	format := flag.String("format", "table", "table | csv")
	salesperson := flag.String("salesperson", "", "filter by salesperson")
	stage := flag.String("stage", "", "filter by stage")
	from := flag.String("from", "", "enquiry date lower bound (YYYY-MM-DD)")
	to := flag.String("to", "", "enquiry date upper bound (YYYY-MM-DD)")
	split := flag.Bool("split-probability", false, "break expected value down by probability bucket")
	yearA := flag.Int("year-a", time.Now().Year()-1, "first year for the yoy report")
	yearB := flag.Int("year-b", time.Now().Year(), "second year for the yoy report")
	flag.Parse()

	filter := db.DealFilter{Salesperson: *salesperson, Stage: models.Stage(*stage)}
	if *from != "" {
		t, err := time.Parse("2006-01-02", *from)
		if err != nil {
			log.Fatalf("bad -from date: %v", err)
		}
		filter.EnquiryFrom = &t
	}
	if *to != "" {
		t, err := time.Parse("2006-01-02", *to)
		if err != nil {
			log.Fatalf("bad -to date: %v", err)
		}
		filter.EnquiryTo = &t
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	store := db.NewStore(pool)

	// yoy and fy run over the full raw set on purpose: they measure enquiry
	// volume per submission, not per collapsed project, and ignore filters.
	var deals []models.Deal
	if *report == "yoy" || *report == "fy" {
		deals, err = store.ListDeals(ctx, db.DealFilter{})
	} else {
		deals, err = store.ListDeals(ctx, filter)
	}
	if err != nil {
		log.Fatal(err)
	}

	var header []string
	var rows [][]string

	switch *report {
	case "kpi":
		header, rows = kpiRows(pipeline.StageKPI(pipeline.Collapse(deals)))
	case "pipeline":
		header, rows = monthlyRows(pipeline.MonthlyPipeline(pipeline.Collapse(deals), pipeline.DateFieldEnquiry, *split))
	case "forecast":
		header, rows = monthlyRows(pipeline.MonthlyPipeline(pipeline.Collapse(deals), pipeline.DateFieldEstimatedStart, *split))
	case "salespeople":
		header, rows = rollupRows(pipeline.RollupBySalesperson(pipeline.Collapse(deals)))
	case "companies":
		companies, err := store.ListCompanies(ctx)
		if err != nil {
			log.Fatal(err)
		}
		header, rows = rollupRows(pipeline.RollupByCompany(pipeline.Collapse(deals), companies))
	case "yoy":
		header, rows = yoyRows(pipeline.YearOverYear(deals, *yearA, *yearB))
	case "fy":
		header, rows = fyRows(pipeline.FinancialYears(deals))
	default:
		log.Fatalf("unknown report %q", *report)
	}

	if err := render(*format, header, rows); err != nil {
		log.Fatal(err)
	}
}

// money rounds to whole currency units. Rounding only happens here, after all
// summation is done.
func money(d decimal.Decimal) string {
	return d.Round(0).StringFixed(0)
}

func percent(r *decimal.Decimal) string {
	if r == nil {
		return "-"
	}
	return r.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

func kpiRows(r pipeline.StageKPIReport) ([]string, [][]string) {
	header := []string{"Group", "Count", "Total Value"}
	rows := [][]string{
		{r.Active.Label, strconv.Itoa(r.Active.Count), money(r.Active.TotalValue)},
	}
	for _, child := range r.ActiveStages {
		rows = append(rows, []string{"  " + child.Label, strconv.Itoa(child.Count), money(child.TotalValue)})
	}
	for _, b := range []pipeline.KPIBucket{r.Won, r.Lost, r.NoTender} {
		rows = append(rows, []string{b.Label, strconv.Itoa(b.Count), money(b.TotalValue)})
	}
	return header, rows
}

func monthlyRows(buckets []pipeline.MonthBucket) ([]string, [][]string) {
	header := []string{"Month", "Count", "Total Value", "Won Value", "Expected Value"}
	var rows [][]string
	for _, b := range buckets {
		row := []string{
			b.Month.Format("Jan 2006"),
			strconv.Itoa(b.Count),
			money(b.TotalValue),
			money(b.WonValue),
			money(b.ExpectedValue),
		}
		if b.ByProbability != nil {
			for _, p := range []models.Probability{models.ProbabilityA, models.ProbabilityB, models.ProbabilityC, models.ProbabilityD} {
				if v, ok := b.ByProbability[p]; ok {
					row = append(row, fmt.Sprintf("%s: %s", p, money(v)))
				}
			}
		}
		rows = append(rows, row)
	}
	return header, rows
}

func rollupRows(rollups []pipeline.EntityRollup) ([]string, [][]string) {
	header := []string{"Name", "Deals", "Won", "Total Value", "Won Value", "Expected Value", "Win Rate"}
	var rows [][]string
	for _, r := range rollups {
		rows = append(rows, []string{
			r.Name,
			strconv.Itoa(r.DealCount),
			strconv.Itoa(r.WonCount),
			money(r.TotalValue),
			money(r.WonValue),
			money(r.ExpectedValue),
			percent(r.WinRate),
		})
	}
	return header, rows
}

func yoyRows(r pipeline.YearOverYearReport) ([]string, [][]string) {
	header := []string{"Month", strconv.Itoa(r.YearA), strconv.Itoa(r.YearB)}
	var rows [][]string
	for m := 0; m < 12; m++ {
		rows = append(rows, []string{
			time.Month(m + 1).String(),
			strconv.Itoa(r.CountsA[m]),
			strconv.Itoa(r.CountsB[m]),
		})
	}
	return header, rows
}

func fyRows(years []pipeline.FinancialYearSummary) ([]string, [][]string) {
	header := []string{"FY", "Deals", "Won", "Lost", "No Tender", "Total Value", "Won Value"}
	var rows [][]string
	for _, y := range years {
		rows = append(rows, []string{
			fmt.Sprintf("FY%d", y.Year),
			strconv.Itoa(y.Count),
			strconv.Itoa(y.StageCounts[models.StageWon]),
			strconv.Itoa(y.StageCounts[models.StageLost]),
			strconv.Itoa(y.StageCounts[models.StageNoTender]),
			money(y.TotalValue),
			money(y.WonValue),
		})
	}
	return header, rows
}

func render(format string, header []string, rows [][]string) error {
	if format == "csv" {
		w := csv.NewWriter(os.Stdout)
		if err := w.Write(header); err != nil {
			return err
		}
		if err := w.WriteAll(rows); err != nil {
			return err
		}
		w.Flush()
		return w.Error()
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)
	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		t.AppendRow(r)
	}
	t.Render()
	return nil
}
