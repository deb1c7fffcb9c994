package pipeline

import (
	"sort"

	"github.com/oakes/tender-pipeline/internal/models"
)

// Collapse reduces a deal set to one representative per project. Deals
// sharing an AP number are submissions for the same physical project and must
// not be double counted in forecasts; deals without one are singleton
// projects and pass through unchanged. The result is sorted by project key so
// it is independent of input order.
func Collapse(deals []models.Deal) []models.Deal {
	best := make(map[string]models.Deal, len(deals))
	for _, d := range deals {
		key := d.ProjectKey()
		if cur, ok := best[key]; ok {
			best[key] = ChooseBetter(cur, d)
		} else {
			best[key] = d
		}
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]models.Deal, 0, len(best))
	for _, k := range keys {
		out = append(out, best[k])
	}
	return out
}

// ChooseBetter picks the representative of two deals on the same project.
// Tie-break order: stage rank, forecast weight, tender value (missing counts
// as zero), enquiry recency, then deal ID. The final ID comparison keeps the
// reduction associative and independent of encounter order.
func ChooseBetter(a, b models.Deal) models.Deal {
	if ra, rb := StageRank(a.Stage), StageRank(b.Stage); ra != rb {
		if ra > rb {
			return a
		}
		return b
	}

	if cmp := Weight(a).Cmp(Weight(b)); cmp != 0 {
		if cmp > 0 {
			return a
		}
		return b
	}

	if cmp := a.ValueOrZero().Cmp(b.ValueOrZero()); cmp != 0 {
		if cmp > 0 {
			return a
		}
		return b
	}

	switch {
	case a.EnquiryDate != nil && b.EnquiryDate == nil:
		return a
	case a.EnquiryDate == nil && b.EnquiryDate != nil:
		return b
	case a.EnquiryDate != nil && b.EnquiryDate != nil:
		if a.EnquiryDate.After(*b.EnquiryDate) {
			return a
		}
		if b.EnquiryDate.After(*a.EnquiryDate) {
			return b
		}
	}

	if a.ID.String() < b.ID.String() {
		return a
	}
	return b
}
