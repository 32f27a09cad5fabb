// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package planner

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/canonical/charmed-openstack-upgrader/internal/apps"
	"github.com/canonical/charmed-openstack-upgrader/internal/snapshot"
)

// DefaultReadConcurrency is the number of workload queries run at the
// same time when Config.ReadConcurrency is zero.
const DefaultReadConcurrency = 8

// Logger represents the logging methods called.
type Logger interface {
	Warningf(message string, args ...any)
	Infof(message string, args ...any)
	Debugf(message string, args ...any)
	Tracef(message string, args ...any)
}

// WorkloadReader reports how many workloads, such as virtual machines, run
// on a unit.
type WorkloadReader interface {
	InstanceCount(ctx context.Context, unit string) (int, error)
}

// Config holds the dependencies of a Planner.
type Config struct {
	// Registry resolves applications to their planning logic.
	Registry *apps.Registry

	// Model is captured by the actions of the planned steps. Planning
	// never calls it.
	Model apps.Model

	// Workloads is queried for the units of applications hosting
	// workloads.
	Workloads WorkloadReader

	Clock clock.Clock

	// ReadTimeout bounds every workload query. Zero means
	// snapshot.DefaultReadTimeout.
	ReadTimeout time.Duration

	// ReadConcurrency bounds the number of workload queries in flight.
	// Zero means DefaultReadConcurrency.
	ReadConcurrency int

	Logger Logger

	// Metrics is optional.
	Metrics *Metrics

	// Tracer is optional; the global tracer provider is used when nil.
	Tracer trace.Tracer
}

// Validate ensures all the required values are set.
func (config Config) Validate() error {
	if config.Registry == nil {
		return errors.NotValidf("nil Registry")
	}
	if config.Model == nil {
		return errors.NotValidf("nil Model")
	}
	if config.Workloads == nil {
		return errors.NotValidf("nil Workloads")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.ReadTimeout < 0 {
		return errors.NotValidf("negative ReadTimeout")
	}
	if config.ReadConcurrency < 0 {
		return errors.NotValidf("negative ReadConcurrency")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

func (config Config) readTimeout() time.Duration {
	if config.ReadTimeout == 0 {
		return snapshot.DefaultReadTimeout
	}
	return config.ReadTimeout
}

func (config Config) readConcurrency() int {
	if config.ReadConcurrency == 0 {
		return DefaultReadConcurrency
	}
	return config.ReadConcurrency
}

func (config Config) tracer() trace.Tracer {
	if config.Tracer == nil {
		return otel.Tracer("cou.planner")
	}
	return config.Tracer
}

// ModelWorkloads returns a WorkloadReader running the instance-count
// action of nova-compute through model.
func ModelWorkloads(model apps.Model) WorkloadReader {
	return modelWorkloads{model: model}
}

type modelWorkloads struct {
	model apps.Model
}

func (w modelWorkloads) InstanceCount(ctx context.Context, unit string) (int, error) {
	return apps.InstanceCount(ctx, w.model, unit)
}
