// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultReadTimeout bounds every individual read from the model.
const DefaultReadTimeout = 30 * time.Second

// Reader reads the state of a model. Every method is a single, side-effect
// free read and may be called concurrently.
type Reader interface {
	// ModelName returns the name of the model.
	ModelName(ctx context.Context) (string, error)

	// Applications returns the deployed applications, without units, in
	// the order the model reports them.
	Applications(ctx context.Context) ([]Application, error)

	// Units returns the units of the named application.
	Units(ctx context.Context, application string) ([]Unit, error)

	// Machines returns the machines of the model.
	Machines(ctx context.Context) ([]Machine, error)
}

// AcquireConfig holds what Acquire needs to read a snapshot.
type AcquireConfig struct {
	Reader      Reader
	Clock       clock.Clock
	ReadTimeout time.Duration

	// Tracer is optional; the global tracer provider is used when nil.
	Tracer trace.Tracer
}

// Validate returns an error if the config cannot be used.
func (cfg AcquireConfig) Validate() error {
	if cfg.Reader == nil {
		return errors.NotValidf("nil Reader")
	}
	if cfg.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if cfg.ReadTimeout < 0 {
		return errors.NotValidf("negative ReadTimeout")
	}
	return nil
}

// Acquire reads the whole model. The model level reads and then the units
// of every application are read concurrently; Acquire returns once all of
// them are done, or with the first error.
func Acquire(ctx context.Context, cfg AcquireConfig) (*Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("cou.snapshot")
	}
	ctx, span := tracer.Start(ctx, "snapshot.Acquire")
	defer span.End()

	snap, err := acquire(ctx, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Trace(err)
	}
	span.SetAttributes(
		attribute.String("model", snap.Model),
		attribute.Int("applications", len(snap.Applications)),
	)
	return snap, nil
}

func acquire(ctx context.Context, cfg AcquireConfig) (*Snapshot, error) {
	timeout := cfg.ReadTimeout
	if timeout == 0 {
		timeout = DefaultReadTimeout
	}

	var (
		modelName string
		apps      []Application
		machines  []Machine
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		modelName, err = TimedRead(gctx, cfg.Clock, timeout, "reading model name", cfg.Reader.ModelName)
		return err
	})
	g.Go(func() (err error) {
		apps, err = TimedRead(gctx, cfg.Clock, timeout, "reading applications", cfg.Reader.Applications)
		return err
	})
	g.Go(func() (err error) {
		machines, err = TimedRead(gctx, cfg.Clock, timeout, "reading machines", cfg.Reader.Machines)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Trace(err)
	}

	// Each goroutine only writes its own element.
	g, gctx = errgroup.WithContext(ctx)
	for i := range apps {
		app := &apps[i]
		g.Go(func() error {
			what := fmt.Sprintf("reading units of application %q", app.Name)
			units, err := TimedRead(gctx, cfg.Clock, timeout, what, func(ctx context.Context) ([]Unit, error) {
				return cfg.Reader.Units(ctx, app.Name)
			})
			if err != nil {
				return err
			}
			SortUnits(units)
			app.Units = units
			if app.Origin == "" {
				app.Origin = CharmHub
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Trace(err)
	}

	snap := &Snapshot{
		Model:        modelName,
		Applications: apps,
		Machines:     make(map[string]Machine, len(machines)),
	}
	for _, m := range machines {
		snap.Machines[m.ID] = m
	}
	if err := snap.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return snap, nil
}

// TimedRead runs read and waits at most timeout for it to finish. A read
// that takes too long fails with an error satisfying [errors.Timeout] which
// names what was being read; the read's context is cancelled.
func TimedRead[T any](
	ctx context.Context, clk clock.Clock, timeout time.Duration, what string,
	read func(context.Context) (T, error),
) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := read(ctx)
		done <- result{value: value, err: err}
	}()

	var zero T
	select {
	case res := <-done:
		if res.err != nil {
			return zero, errors.Annotate(res.err, what)
		}
		return res.value, nil
	case <-clk.After(timeout):
		return zero, errors.NewTimeout(nil, fmt.Sprintf("%s: timed out after %s", what, timeout))
	case <-ctx.Done():
		return zero, errors.Annotate(ctx.Err(), what)
	}
}
