package pipeline

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/oakes/tender-pipeline/internal/models"
)

// flattenText strips any HTML from a free-text answer and collapses
// whitespace, so rich-text paste-ins fold into audit notes as plain text.
func flattenText(s string) string {
	if strings.ContainsAny(s, "<>") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// gateNote renders a completed answer set as a structured multi-line summary,
// one "Label: answer" line per answered question in catalog order.
func gateNote(gate GateDefinition, values map[string]string) string {
	var b strings.Builder
	for _, q := range gate.Questions {
		v, ok := values[q.Key]
		if !ok {
			continue
		}
		v = flattenText(v)
		if v == "" {
			continue
		}
		b.WriteString(q.Label)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// stageChangeNote documents an ungated stage move.
func stageChangeNote(from, to models.Stage) string {
	return "Stage changed from " + from.Label() + " to " + to.Label()
}
