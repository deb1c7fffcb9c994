package pipeline

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/oakes/tender-pipeline/internal/models"
	"github.com/shopspring/decimal"
)

// Report functions are pure and stateless: they never mutate their input and
// keep every monetary sum in exact decimal form. Rounding to whole currency
// units or one-decimal percents is the renderer's job.

// activeStages are the in-play stages, in lifecycle order, that make up the
// Active KPI bucket.
var activeStages = []models.Stage{
	models.StageReceived, models.StageQualified,
	models.StageInReview, models.StageQuoteSubmitted,
}

// KPIBucket is one slice of the stage-group report.
type KPIBucket struct {
	Label      string          `json:"label"`
	Count      int             `json:"count"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// StageKPIReport partitions a deal set into Active (with per-stage children),
// Won, Lost and No Tender.
type StageKPIReport struct {
	Active       KPIBucket   `json:"active"`
	ActiveStages []KPIBucket `json:"active_stages"`
	Won          KPIBucket   `json:"won"`
	Lost         KPIBucket   `json:"lost"`
	NoTender     KPIBucket   `json:"no_tender"`
}

// StageKPI computes counts and summed tender values per stage group.
func StageKPI(deals []models.Deal) StageKPIReport {
	perStage := make(map[models.Stage]KPIBucket, len(models.AllStages))
	for _, s := range models.AllStages {
		perStage[s] = KPIBucket{Label: s.Label(), TotalValue: decimal.Zero}
	}
	for _, d := range deals {
		b := perStage[d.Stage]
		b.Count++
		b.TotalValue = b.TotalValue.Add(d.ValueOrZero())
		perStage[d.Stage] = b
	}

	report := StageKPIReport{
		Active:   KPIBucket{Label: "Active", TotalValue: decimal.Zero},
		Won:      perStage[models.StageWon],
		Lost:     perStage[models.StageLost],
		NoTender: perStage[models.StageNoTender],
	}
	for _, s := range activeStages {
		child := perStage[s]
		report.ActiveStages = append(report.ActiveStages, child)
		report.Active.Count += child.Count
		report.Active.TotalValue = report.Active.TotalValue.Add(child.TotalValue)
	}
	return report
}

// DateField selects which deal date a time-bucketed report groups on.
type DateField int

const (
	// DateFieldEnquiry groups on the enquiry date ("pipeline over time").
	DateFieldEnquiry DateField = iota
	// DateFieldEstimatedStart groups on the estimated start date ("forecast").
	DateFieldEstimatedStart
)

func (f DateField) of(d models.Deal) *time.Time {
	if f == DateFieldEstimatedStart {
		return d.EstimatedStartDate
	}
	return d.EnquiryDate
}

// MonthBucket is one calendar month of a time-bucketed pipeline report.
type MonthBucket struct {
	Month         time.Time                              `json:"month"`
	Count         int                                    `json:"count"`
	TotalValue    decimal.Decimal                        `json:"total_value"`
	WonValue      decimal.Decimal                        `json:"won_value"`
	ExpectedValue decimal.Decimal                        `json:"expected_value"`
	ByProbability map[models.Probability]decimal.Decimal `json:"by_probability,omitempty"`
}

// MonthlyPipeline buckets deals by calendar month of the chosen date field
// and sums total, won and probability-weighted value per bucket. Deals
// without the chosen date are skipped. With splitProbability the expected
// value is additionally broken down per probability bucket.
func MonthlyPipeline(deals []models.Deal, field DateField, splitProbability bool) []MonthBucket {
	buckets := make(map[time.Time]MonthBucket)
	for _, d := range deals {
		at := field.of(d)
		if at == nil {
			continue
		}
		month := monthStart(at.UTC())

		b, ok := buckets[month]
		if !ok {
			b = MonthBucket{
				Month:         month,
				TotalValue:    decimal.Zero,
				WonValue:      decimal.Zero,
				ExpectedValue: decimal.Zero,
			}
			if splitProbability {
				b.ByProbability = make(map[models.Probability]decimal.Decimal)
			}
		}

		b.Count++
		b.TotalValue = b.TotalValue.Add(d.ValueOrZero())
		if d.Stage == models.StageWon {
			b.WonValue = b.WonValue.Add(d.ValueOrZero())
		}
		expected := ExpectedValue(d)
		b.ExpectedValue = b.ExpectedValue.Add(expected)
		if splitProbability && d.Probability != "" {
			prev, ok := b.ByProbability[d.Probability]
			if !ok {
				prev = decimal.Zero
			}
			b.ByProbability[d.Probability] = prev.Add(expected)
		}
		buckets[month] = b
	}

	out := make([]MonthBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// EntityRollup aggregates deals for one salesperson or company.
type EntityRollup struct {
	Key           string           `json:"key"`
	Name          string           `json:"name"`
	DealCount     int              `json:"deal_count"`
	WonCount      int              `json:"won_count"`
	TotalValue    decimal.Decimal  `json:"total_value"`
	WonValue      decimal.Decimal  `json:"won_value"`
	ExpectedValue decimal.Decimal  `json:"expected_value"`
	WinRate       *decimal.Decimal `json:"win_rate"` // won value / total value, nil when total is zero
}

// RollupBySalesperson groups deals by salesperson, sorted by name. Deals with
// no salesperson roll up under "Unassigned".
func RollupBySalesperson(deals []models.Deal) []EntityRollup {
	return rollup(deals, func(d models.Deal) (string, string) {
		if d.Salesperson == "" {
			return "", "Unassigned"
		}
		return d.Salesperson, d.Salesperson
	})
}

// RollupByCompany groups deals by company. Company names come from the
// supplied lookup list; unknown IDs keep the raw ID as their name.
func RollupByCompany(deals []models.Deal, companies []models.Company) []EntityRollup {
	names := make(map[uuid.UUID]string, len(companies))
	for _, c := range companies {
		names[c.ID] = c.Name
	}
	return rollup(deals, func(d models.Deal) (string, string) {
		name, ok := names[d.CompanyID]
		if !ok {
			name = d.CompanyID.String()
		}
		return d.CompanyID.String(), name
	})
}

func rollup(deals []models.Deal, keyOf func(models.Deal) (key, name string)) []EntityRollup {
	groups := make(map[string]EntityRollup)
	for _, d := range deals {
		key, name := keyOf(d)
		g, ok := groups[key]
		if !ok {
			g = EntityRollup{
				Key:           key,
				Name:          name,
				TotalValue:    decimal.Zero,
				WonValue:      decimal.Zero,
				ExpectedValue: decimal.Zero,
			}
		}
		g.DealCount++
		g.TotalValue = g.TotalValue.Add(d.ValueOrZero())
		g.ExpectedValue = g.ExpectedValue.Add(ExpectedValue(d))
		if d.Stage == models.StageWon {
			g.WonCount++
			g.WonValue = g.WonValue.Add(d.ValueOrZero())
		}
		groups[key] = g
	}

	out := make([]EntityRollup, 0, len(groups))
	for _, g := range groups {
		if !g.TotalValue.IsZero() {
			rate := g.WonValue.Div(g.TotalValue)
			g.WinRate = &rate
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// YearOverYearReport holds monthly deal counts for two calendar years.
// January is index 0.
type YearOverYearReport struct {
	YearA   int     `json:"year_a"`
	YearB   int     `json:"year_b"`
	CountsA [12]int `json:"counts_a"`
	CountsB [12]int `json:"counts_b"`
}

// YearOverYear counts deals per enquiry month for two years. It deliberately
// runs over the raw, uncollapsed set: it measures enquiry volume, not
// distinct projects.
func YearOverYear(deals []models.Deal, yearA, yearB int) YearOverYearReport {
	report := YearOverYearReport{YearA: yearA, YearB: yearB}
	for _, d := range deals {
		if d.EnquiryDate == nil {
			continue
		}
		at := d.EnquiryDate.UTC()
		switch at.Year() {
		case yearA:
			report.CountsA[int(at.Month())-1]++
		case yearB:
			report.CountsB[int(at.Month())-1]++
		}
	}
	return report
}

// FinancialYearSummary tallies one December-to-November financial year,
// labeled by the calendar year it ends in.
type FinancialYearSummary struct {
	Year        int                  `json:"year"`
	Count       int                  `json:"count"`
	StageCounts map[models.Stage]int `json:"stage_counts"`
	TotalValue  decimal.Decimal      `json:"total_value"`
	WonValue    decimal.Decimal      `json:"won_value"`
}

// FinancialYearOf maps a date to its financial year: December belongs to the
// year ending the following November.
func FinancialYearOf(t time.Time) int {
	if t.Month() == time.December {
		return t.Year() + 1
	}
	return t.Year()
}

// FinancialYears summarises the raw, uncollapsed deal set per financial year
// of the enquiry date, sorted ascending. Deals without an enquiry date are
// skipped.
func FinancialYears(deals []models.Deal) []FinancialYearSummary {
	years := make(map[int]FinancialYearSummary)
	for _, d := range deals {
		if d.EnquiryDate == nil {
			continue
		}
		fy := FinancialYearOf(d.EnquiryDate.UTC())

		s, ok := years[fy]
		if !ok {
			s = FinancialYearSummary{
				Year:        fy,
				StageCounts: make(map[models.Stage]int),
				TotalValue:  decimal.Zero,
				WonValue:    decimal.Zero,
			}
		}
		s.Count++
		s.StageCounts[d.Stage]++
		s.TotalValue = s.TotalValue.Add(d.ValueOrZero())
		if d.Stage == models.StageWon {
			s.WonValue = s.WonValue.Add(d.ValueOrZero())
		}
		years[fy] = s
	}

	out := make([]FinancialYearSummary, 0, len(years))
	for _, s := range years {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
