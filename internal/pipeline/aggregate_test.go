package pipeline

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oakes/tender-pipeline/internal/models"
	"github.com/shopspring/decimal"
)

func valuedDeal(stage models.Stage, probability models.Probability, value string) models.Deal {
	d := models.Deal{ID: uuid.New(), Stage: stage, Probability: probability}
	if value != "" {
		v := decimal.RequireFromString(value)
		d.TenderValue = &v
	}
	return d
}

func onDate(d models.Deal, year int, month time.Month, day int) models.Deal {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	d.EnquiryDate = &t
	return d
}

func TestStageKPI_Partitions(t *testing.T) {
	deals := []models.Deal{
		valuedDeal(models.StageReceived, "", "10"),
		valuedDeal(models.StageQualified, models.ProbabilityB, "20"),
		valuedDeal(models.StageQuoteSubmitted, models.ProbabilityA, "30"),
		valuedDeal(models.StageWon, "", "100"),
		valuedDeal(models.StageLost, "", "50"),
		valuedDeal(models.StageNoTender, "", ""),
	}

	report := StageKPI(deals)
	if report.Active.Count != 3 {
		t.Fatalf("expected 3 active deals, got %d", report.Active.Count)
	}
	if !report.Active.TotalValue.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected active value 60, got %s", report.Active.TotalValue)
	}
	if len(report.ActiveStages) != 4 {
		t.Fatalf("expected 4 per-stage children, got %d", len(report.ActiveStages))
	}
	if report.Won.Count != 1 || !report.Won.TotalValue.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected won bucket: %+v", report.Won)
	}
	if report.NoTender.Count != 1 || !report.NoTender.TotalValue.IsZero() {
		t.Fatalf("unexpected no_tender bucket: %+v", report.NoTender)
	}
}

func TestMonthlyPipeline_BucketsAndExpectedValue(t *testing.T) {
	deals := []models.Deal{
		onDate(valuedDeal(models.StageQualified, models.ProbabilityC, "1000"), 2026, time.January, 5),
		onDate(valuedDeal(models.StageWon, "", "2000"), 2026, time.January, 20),
		onDate(valuedDeal(models.StageReceived, "", "500"), 2026, time.February, 3),
		valuedDeal(models.StageReceived, "", "999"), // no enquiry date, skipped
	}

	buckets := MonthlyPipeline(deals, DateFieldEnquiry, false)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}

	jan := buckets[0]
	if !jan.Month.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected January first, got %s", jan.Month)
	}
	if jan.Count != 2 || !jan.TotalValue.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("unexpected January bucket: %+v", jan)
	}
	if !jan.WonValue.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected won value 2000, got %s", jan.WonValue)
	}
	// 1000 * 0.25 + 2000 * 1
	if !jan.ExpectedValue.Equal(decimal.NewFromInt(2250)) {
		t.Fatalf("expected expected value 2250, got %s", jan.ExpectedValue)
	}
}

func TestMonthlyPipeline_ProbabilitySplit(t *testing.T) {
	deals := []models.Deal{
		onDate(valuedDeal(models.StageQualified, models.ProbabilityA, "100"), 2026, time.March, 1),
		onDate(valuedDeal(models.StageQualified, models.ProbabilityA, "300"), 2026, time.March, 9),
		onDate(valuedDeal(models.StageQualified, models.ProbabilityD, "1000"), 2026, time.March, 12),
	}

	buckets := MonthlyPipeline(deals, DateFieldEnquiry, true)
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	split := buckets[0].ByProbability
	if !split[models.ProbabilityA].Equal(decimal.NewFromInt(300)) { // (100+300) * 0.75
		t.Fatalf("expected A split 300, got %s", split[models.ProbabilityA])
	}
	if !split[models.ProbabilityD].Equal(decimal.NewFromInt(100)) { // 1000 * 0.1
		t.Fatalf("expected D split 100, got %s", split[models.ProbabilityD])
	}
}

func TestMonthlyPipeline_ForecastUsesEstimatedStart(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	d := valuedDeal(models.StageQuoteSubmitted, models.ProbabilityB, "400")
	d.EstimatedStartDate = &start

	buckets := MonthlyPipeline([]models.Deal{d}, DateFieldEstimatedStart, false)
	if len(buckets) != 1 || !buckets[0].Month.Equal(start) {
		t.Fatalf("expected one July bucket, got %+v", buckets)
	}
}

func TestRollupBySalesperson_WinRate(t *testing.T) {
	a := valuedDeal(models.StageWon, "", "300")
	a.Salesperson = "T. Marsh"
	b := valuedDeal(models.StageLost, "", "100")
	b.Salesperson = "T. Marsh"
	c := valuedDeal(models.StageReceived, "", "")
	c.Salesperson = "S. Okafor"

	rollups := RollupBySalesperson([]models.Deal{a, b, c})
	if len(rollups) != 2 {
		t.Fatalf("expected 2 rollups, got %d", len(rollups))
	}

	// Sorted by name: S. Okafor first.
	okafor := rollups[0]
	if okafor.WinRate != nil {
		t.Fatalf("zero total value must leave win rate undefined, got %s", okafor.WinRate)
	}

	marsh := rollups[1]
	if marsh.DealCount != 2 || marsh.WonCount != 1 {
		t.Fatalf("unexpected counts: %+v", marsh)
	}
	if marsh.WinRate == nil || !marsh.WinRate.Equal(decimal.RequireFromString("0.75")) {
		t.Fatalf("expected win rate 0.75, got %v", marsh.WinRate)
	}
}

func TestRollupByCompany_NamesFromLookup(t *testing.T) {
	company := models.Company{ID: uuid.New(), Name: "Harwood Developments"}
	d := valuedDeal(models.StageQualified, models.ProbabilityB, "100")
	d.CompanyID = company.ID

	rollups := RollupByCompany([]models.Deal{d}, []models.Company{company})
	if len(rollups) != 1 || rollups[0].Name != "Harwood Developments" {
		t.Fatalf("expected company name from lookup, got %+v", rollups)
	}
}

func TestYearOverYear_CountsByEnquiryMonth(t *testing.T) {
	deals := []models.Deal{
		onDate(valuedDeal(models.StageReceived, "", ""), 2025, time.March, 2),
		onDate(valuedDeal(models.StageWon, "", "10"), 2025, time.March, 28),
		onDate(valuedDeal(models.StageReceived, "", ""), 2026, time.March, 5),
		onDate(valuedDeal(models.StageReceived, "", ""), 2024, time.July, 1), // other year, ignored
		valuedDeal(models.StageReceived, "", ""),                             // no date, ignored
	}

	report := YearOverYear(deals, 2025, 2026)
	if report.CountsA[2] != 2 {
		t.Fatalf("expected 2 deals in March 2025, got %d", report.CountsA[2])
	}
	if report.CountsB[2] != 1 {
		t.Fatalf("expected 1 deal in March 2026, got %d", report.CountsB[2])
	}
}

func TestFinancialYearOf_DecemberRollsForward(t *testing.T) {
	cases := []struct {
		date string
		want int
	}{
		{"2024-12-15", 2025},
		{"2025-11-30", 2025},
		{"2025-12-01", 2026},
	}
	for _, c := range cases {
		at, err := time.Parse("2006-01-02", c.date)
		if err != nil {
			t.Fatal(err)
		}
		if got := FinancialYearOf(at); got != c.want {
			t.Fatalf("%s: expected FY%d, got FY%d", c.date, c.want, got)
		}
	}
}

func TestFinancialYears_Summary(t *testing.T) {
	deals := []models.Deal{
		onDate(valuedDeal(models.StageWon, "", "100"), 2024, time.December, 15),
		onDate(valuedDeal(models.StageLost, "", "40"), 2025, time.November, 30),
		onDate(valuedDeal(models.StageReceived, "", "10"), 2025, time.December, 1),
	}

	years := FinancialYears(deals)
	if len(years) != 2 {
		t.Fatalf("expected 2 financial years, got %d", len(years))
	}

	fy25 := years[0]
	if fy25.Year != 2025 || fy25.Count != 2 {
		t.Fatalf("unexpected FY2025: %+v", fy25)
	}
	if fy25.StageCounts[models.StageWon] != 1 || fy25.StageCounts[models.StageLost] != 1 {
		t.Fatalf("unexpected FY2025 stage counts: %+v", fy25.StageCounts)
	}
	if !fy25.TotalValue.Equal(decimal.NewFromInt(140)) || !fy25.WonValue.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected FY2025 values: %+v", fy25)
	}

	if years[1].Year != 2026 || years[1].Count != 1 {
		t.Fatalf("unexpected FY2026: %+v", years[1])
	}
}

func TestAggregations_DoNotMutateInput(t *testing.T) {
	deals := []models.Deal{
		onDate(valuedDeal(models.StageWon, "", "100"), 2025, time.May, 1),
	}
	before := *deals[0].TenderValue

	StageKPI(deals)
	MonthlyPipeline(deals, DateFieldEnquiry, true)
	RollupBySalesperson(deals)
	FinancialYears(deals)

	if !deals[0].TenderValue.Equal(before) {
		t.Fatal("aggregation mutated its input")
	}
}
