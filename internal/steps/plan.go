// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package steps

import (
	"fmt"
	"strings"
)

// Plan is the ordered list of steps needed to reach a target release,
// together with the units that were left out of it.
type Plan struct {
	Description string
	Steps       []*Step
	Skipped     []SkippedUnit
}

// SkippedUnit is a unit left out of the plan because it still hosts
// workloads.
type SkippedUnit struct {
	Unit             string
	Machine          string
	Applications     []string
	AvailabilityZone string
	InstanceCount    int
}

func (u SkippedUnit) String() string {
	quoted := make([]string, len(u.Applications))
	for i, app := range u.Applications {
		quoted[i] = "'" + app + "'"
	}
	return fmt.Sprintf("Machine(machine_id='%s', apps=(%s), az='%s')",
		u.Machine, strings.Join(quoted, ", "), u.AvailabilityZone)
}

// PhaseSteps returns the top level steps of the given phase.
func (p *Plan) PhaseSteps(phase Phase) []*Step {
	var result []*Step
	for _, s := range p.Steps {
		if s.Phase == phase {
			result = append(result, s)
		}
	}
	return result
}

// String renders the plan as an indented tree of step descriptions.
func (p *Plan) String() string {
	var b strings.Builder
	b.WriteString(p.Description)
	b.WriteString("\n")
	for _, s := range p.Steps {
		s.render(&b, 1)
	}
	return b.String()
}
