// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package planner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/naturalsort"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/canonical/charmed-openstack-upgrader/internal/snapshot"
	"github.com/canonical/charmed-openstack-upgrader/internal/steps"
)

// workloadGuard keeps units that still host workloads out of the plan.
type workloadGuard struct {
	workloads   WorkloadReader
	clock       clock.Clock
	timeout     time.Duration
	concurrency int
	tracer      trace.Tracer
	logger      Logger
}

// guardResult holds the units of every guarded application that are safe
// to upgrade, and the report of those that are not.
type guardResult struct {
	kept    map[string][]snapshot.Unit
	skipped []steps.SkippedUnit
}

// check queries the instance count of every unit of applications, at most
// concurrency at a time, and waits for all of them. A unit with instances is
// skipped; a failed query fails the whole check.
func (g workloadGuard) check(ctx context.Context, snap *snapshot.Snapshot, applications []snapshot.Application) (guardResult, error) {
	type query struct {
		application string
		unit        snapshot.Unit
		count       int
	}
	var queries []*query
	for _, app := range applications {
		for _, u := range app.Units {
			queries = append(queries, &query{application: app.Name, unit: u})
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for _, q := range queries {
		eg.Go(func() error {
			ctx, span := g.tracer.Start(ctx, "planner.InstanceCount",
				trace.WithAttributes(attribute.String("unit", q.unit.Name)))
			defer span.End()

			what := fmt.Sprintf("reading instance count of unit %q", q.unit.Name)
			count, err := snapshot.TimedRead(ctx, g.clock, g.timeout, what, func(ctx context.Context) (int, error) {
				return g.workloads.InstanceCount(ctx, q.unit.Name)
			})
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			span.SetAttributes(attribute.Int("instance-count", count))
			q.count = count
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return guardResult{}, errors.Trace(err)
	}

	result := guardResult{kept: make(map[string][]snapshot.Unit)}
	for _, q := range queries {
		if q.count == 0 {
			result.kept[q.application] = append(result.kept[q.application], q.unit)
			continue
		}
		g.logger.Debugf("unit %q hosts %d instances", q.unit.Name, q.count)
		result.skipped = append(result.skipped, steps.SkippedUnit{
			Unit:             q.unit.Name,
			Machine:          q.unit.Machine,
			Applications:     snap.ColocatedApplications(q.unit.Machine),
			AvailabilityZone: snap.Machines[q.unit.Machine].AvailabilityZone,
			InstanceCount:    q.count,
		})
	}
	sortSkipped(result.skipped)
	if len(result.skipped) > 0 {
		g.logger.Infof("%s", skipReport(result.skipped))
	}
	return result, nil
}

// sortSkipped orders the report by unit name, in natural order.
func sortSkipped(skipped []steps.SkippedUnit) {
	byUnit := make(map[string]steps.SkippedUnit, len(skipped))
	unitNames := make([]string, len(skipped))
	for i, s := range skipped {
		byUnit[s.Unit] = s
		unitNames[i] = s.Unit
	}
	for i, name := range naturalsort.Sort(unitNames) {
		skipped[i] = byUnit[name]
	}
}

func skipReport(skipped []steps.SkippedUnit) string {
	entries := make([]string, len(skipped))
	for i, s := range skipped {
		entries[i] = strconv.Quote(s.String())
	}
	return fmt.Sprintf("Skipped (non-empty) hypervisors: [%s]", strings.Join(entries, ", "))
}
