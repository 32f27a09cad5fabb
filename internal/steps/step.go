// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package steps holds the building blocks of an upgrade plan. Steps only
// describe what should be done; running their actions is left to the
// caller.
package steps

import (
	"context"
	"fmt"
	"strings"
)

// Phase orders steps within a plan. Every pre-upgrade step of every
// application comes before any upgrade step, and so on.
type Phase int

const (
	PreUpgrade Phase = iota
	Upgrade
	PostUpgrade
)

// Phases lists the phases in execution order.
var Phases = []Phase{PreUpgrade, Upgrade, PostUpgrade}

func (p Phase) String() string {
	switch p {
	case PreUpgrade:
		return "pre-upgrade"
	case Upgrade:
		return "upgrade"
	case PostUpgrade:
		return "post-upgrade"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Action is the deferred operation of a step.
type Action func(ctx context.Context) error

// Step is a planned action. A step without an action only groups its
// sub-steps.
type Step struct {
	Description string
	Phase       Phase
	Action      Action
	SubSteps    []*Step
}

// New returns a step running action.
func New(phase Phase, description string, action Action) *Step {
	return &Step{
		Description: description,
		Phase:       phase,
		Action:      action,
	}
}

// NewGroup returns a step grouping subSteps. Empty sub-steps are dropped.
func NewGroup(phase Phase, description string, subSteps ...*Step) *Step {
	group := &Step{
		Description: description,
		Phase:       phase,
	}
	group.Add(subSteps...)
	return group
}

// Add appends the non-empty steps to the sub-steps of s.
func (s *Step) Add(subSteps ...*Step) {
	for _, sub := range subSteps {
		if sub == nil || sub.IsEmpty() {
			continue
		}
		s.SubSteps = append(s.SubSteps, sub)
	}
}

// IsEmpty reports whether the step would do nothing.
func (s *Step) IsEmpty() bool {
	if s.Action != nil {
		return false
	}
	for _, sub := range s.SubSteps {
		if !sub.IsEmpty() {
			return false
		}
	}
	return true
}

// Walk calls fn for s and every sub-step, depth first, with the depth of
// the step relative to s.
func (s *Step) Walk(fn func(step *Step, depth int)) {
	s.walk(fn, 0)
}

func (s *Step) walk(fn func(step *Step, depth int), depth int) {
	fn(s, depth)
	for _, sub := range s.SubSteps {
		sub.walk(fn, depth+1)
	}
}

// String renders the step and its sub-steps as an indented tree.
func (s *Step) String() string {
	var b strings.Builder
	s.render(&b, 0)
	return b.String()
}

const indent = "    "

func (s *Step) render(b *strings.Builder, depth int) {
	s.Walk(func(step *Step, d int) {
		b.WriteString(strings.Repeat(indent, depth+d))
		b.WriteString(step.Description)
		b.WriteString("\n")
	})
}
