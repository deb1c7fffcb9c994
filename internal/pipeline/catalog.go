package pipeline

import (
	"embed"
	"fmt"

	"github.com/oakes/tender-pipeline/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed config/gates.yaml
var gatesYAML embed.FS

// GateQuestion is one checklist item: the answer key plus the label used when
// the answer is folded into the audit note.
type GateQuestion struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// GateDefinition describes one gate: the stage it admits into, the action
// label stamped on its audit entries, and its questions in display order.
type GateDefinition struct {
	Target    models.Stage   `yaml:"target"`
	Action    string         `yaml:"action"`
	Questions []GateQuestion `yaml:"questions"`
}

type gateCatalog struct {
	Gates []GateDefinition `yaml:"gates"`
}

var catalog = mustLoadCatalog()

func mustLoadCatalog() map[models.Stage]GateDefinition {
	raw, err := gatesYAML.ReadFile("config/gates.yaml")
	if err != nil {
		panic(fmt.Sprintf("gate catalog missing: %v", err))
	}

	var parsed gateCatalog
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		panic(fmt.Sprintf("gate catalog invalid: %v", err))
	}

	byStage := make(map[models.Stage]GateDefinition, len(parsed.Gates))
	for _, g := range parsed.Gates {
		if !g.Target.Valid() {
			panic(fmt.Sprintf("gate catalog references unknown stage %q", g.Target))
		}
		byStage[g.Target] = g
	}
	return byStage
}

// GateFor returns the gate definition admitting into a stage, if one exists.
func GateFor(target models.Stage) (GateDefinition, bool) {
	g, ok := catalog[target]
	return g, ok
}
