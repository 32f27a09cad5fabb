// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package planner turns a snapshot of a cloud into the plan upgrading it
// to a target OpenStack release.
package planner

import (
	"context"
	"fmt"

	"github.com/juju/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/canonical/charmed-openstack-upgrader/core/openstack"
	"github.com/canonical/charmed-openstack-upgrader/internal/apps"
	"github.com/canonical/charmed-openstack-upgrader/internal/snapshot"
	"github.com/canonical/charmed-openstack-upgrader/internal/steps"
)

// Planner generates upgrade plans.
type Planner struct {
	config Config
	tracer trace.Tracer
	guard  workloadGuard
}

// New returns a Planner using config.
func New(config Config) (*Planner, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Planner{
		config: config,
		tracer: config.tracer(),
		guard: workloadGuard{
			workloads:   config.Workloads,
			clock:       config.Clock,
			timeout:     config.readTimeout(),
			concurrency: config.readConcurrency(),
			tracer:      config.tracer(),
			logger:      config.Logger,
		},
	}, nil
}

// plannedApp is an application that has to be upgraded.
type plannedApp struct {
	state snapshot.Application
	app   apps.Application
}

// Generate returns the plan upgrading the applications of snap to target.
// The first application that cannot be planned aborts the generation; units
// that still host workloads are left out and reported in the plan.
func (p *Planner) Generate(ctx context.Context, snap *snapshot.Snapshot, target openstack.Release) (*steps.Plan, error) {
	ctx, span := p.tracer.Start(ctx, "planner.Generate", trace.WithAttributes(
		attribute.String("model", snap.Model),
		attribute.String("target", target.Codename()),
	))
	defer span.End()

	plan, planned, err := p.generate(ctx, snap, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.config.Metrics.recordFailure()
		return nil, errors.Trace(err)
	}
	span.SetAttributes(
		attribute.Int("planned-applications", planned),
		attribute.Int("skipped-units", len(plan.Skipped)),
	)
	p.config.Metrics.recordSuccess(planned, len(plan.Skipped))
	return plan, nil
}

// generate returns the plan and the number of applications with steps in it.
func (p *Planner) generate(ctx context.Context, snap *snapshot.Snapshot, target openstack.Release) (*steps.Plan, int, error) {
	planned, err := p.resolve(snap, target)
	if err != nil {
		return nil, 0, errors.Trace(err)
	}

	var hosts []snapshot.Application
	for _, pa := range planned {
		if host, ok := pa.app.(apps.WorkloadHost); ok && host.HostsWorkloads() {
			hosts = append(hosts, pa.state)
		}
	}
	plan := &steps.Plan{
		Description: fmt.Sprintf("Upgrade cloud to '%s'", target),
	}
	if len(hosts) > 0 {
		guarded, err := p.guard.check(ctx, snap, hosts)
		if err != nil {
			return nil, 0, errors.Trace(err)
		}
		// Hosts are planned again with the units that are safe to upgrade.
		for i, pa := range planned {
			if !isHost(hosts, pa.state.Name) {
				continue
			}
			state := pa.state
			state.Units = guarded.kept[state.Name]
			app, err := p.config.Registry.Create(state, p.config.Model)
			if err != nil {
				return nil, 0, errors.Trace(err)
			}
			planned[i] = plannedApp{state: state, app: app}
		}
		plan.Skipped = guarded.skipped
	}

	var withSteps int
	phases := map[steps.Phase][]*steps.Step{}
	for _, pa := range planned {
		groups, err := p.applicationSteps(pa, target)
		if err != nil {
			return nil, 0, errors.Trace(err)
		}
		contributed := false
		for _, phase := range steps.Phases {
			if group := groups[phase]; !group.IsEmpty() {
				phases[phase] = append(phases[phase], group)
				contributed = true
			}
		}
		if contributed {
			withSteps++
		}
	}
	for _, phase := range steps.Phases {
		plan.Steps = append(plan.Steps, phases[phase]...)
	}
	return plan, withSteps, nil
}

// resolve creates the planning logic of every application and keeps the
// ones that need an upgrade, in declaration order.
func (p *Planner) resolve(snap *snapshot.Snapshot, target openstack.Release) ([]plannedApp, error) {
	var planned []plannedApp
	for _, state := range snap.Applications {
		app, err := p.config.Registry.Create(state, p.config.Model)
		if err != nil {
			return nil, errors.Trace(err)
		}
		needed, err := app.NeedsUpgrade(target)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if !needed {
			p.config.Logger.Debugf("no upgrade needed for %q", state.Name)
			continue
		}
		planned = append(planned, plannedApp{state: state, app: app})
	}
	return planned, nil
}

// applicationSteps returns one group of steps per phase for pa.
func (p *Planner) applicationSteps(pa plannedApp, target openstack.Release) (map[steps.Phase]*steps.Step, error) {
	name := pa.app.Name()
	pre, err := pa.app.PreUpgradeSteps(target)
	if err != nil {
		return nil, errors.Trace(err)
	}
	upgrade, err := pa.app.UpgradeSteps(target, pa.state.Units)
	if err != nil {
		return nil, errors.Trace(err)
	}
	post, err := pa.app.PostUpgradeSteps(target, pa.state.Units)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return map[steps.Phase]*steps.Step{
		steps.PreUpgrade: steps.NewGroup(steps.PreUpgrade,
			fmt.Sprintf("Prepare '%s' for upgrade to '%s'", name, target), pre...),
		steps.Upgrade: steps.NewGroup(steps.Upgrade,
			fmt.Sprintf("Upgrade '%s' to '%s'", name, target), upgrade...),
		steps.PostUpgrade: steps.NewGroup(steps.PostUpgrade,
			fmt.Sprintf("Verify '%s' after upgrade to '%s'", name, target), post...),
	}, nil
}

func isHost(hosts []snapshot.Application, name string) bool {
	for _, host := range hosts {
		if host.Name == name {
			return true
		}
	}
	return false
}
