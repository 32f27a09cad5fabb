// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/juju/ansiterm"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/canonical/charmed-openstack-upgrader/cmd"
	"github.com/canonical/charmed-openstack-upgrader/core/openstack"
	"github.com/canonical/charmed-openstack-upgrader/internal/apps"
	"github.com/canonical/charmed-openstack-upgrader/internal/planner"
	"github.com/canonical/charmed-openstack-upgrader/internal/snapshot"
	"github.com/canonical/charmed-openstack-upgrader/internal/steps"
)

const defaultLoggingConfig = "<root>=WARNING;cou=INFO"

const planHelp = `
Reads a model snapshot and prints the steps upgrading the cloud to the
target OpenStack release. Units of nova-compute that still host instances
are left out of the plan and reported.

The snapshot is a YAML document:

    model: production
    machines:
      "0": {az: az-0}
    applications:
      keystone:
        series: focal
        channel: ussuri/stable
        config: {openstack-origin: distro}
        units:
          keystone/0: {machine: "0", workload-version: 17.0.1}

Examples:

    cou-plan --snapshot model.yaml --target victoria
    cou-plan --snapshot model.yaml --target 2023.1 --format yaml -o plan.yaml
`

type planCommand struct {
	out cmd.Output

	snapshotFile  cmd.FileVar
	target        string
	timeout       time.Duration
	loggingConfig string
	metricsFile   string

	release openstack.Release
}

func newPlanCommand() *planCommand {
	return &planCommand{}
}

// Info is part of the cmd.Command interface.
func (c *planCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "cou-plan",
		Args:    "--snapshot <file> --target <release>",
		Purpose: "Plan the upgrade of a charmed OpenStack cloud.",
		Doc:     planHelp,
	}
}

// SetFlags is part of the cmd.Command interface.
func (c *planCommand) SetFlags(f *gnuflag.FlagSet) {
	c.out.AddFlags(f, "text", map[string]cmd.Formatter{
		"text": formatText,
		"yaml": formatYaml,
	})
	f.Var(&c.snapshotFile, "snapshot", "Model snapshot to plan for, - for stdin")
	f.StringVar(&c.target, "target", "", "Target OpenStack release, as a codename or a year track")
	f.DurationVar(&c.timeout, "timeout", snapshot.DefaultReadTimeout, "Maximum duration of every read")
	f.StringVar(&c.loggingConfig, "logging-config", defaultLoggingConfig, "Logging configuration")
	f.StringVar(&c.metricsFile, "metrics-file", "", "Write planning metrics to this file in the Prometheus text format")
}

// Init is part of the cmd.Command interface.
func (c *planCommand) Init(args []string) error {
	if c.snapshotFile.Path == "" {
		return errors.New("--snapshot is required")
	}
	if c.target == "" {
		return errors.New("--target is required")
	}
	release, err := openstack.ParseRelease(c.target)
	if err != nil {
		return errors.Trace(err)
	}
	c.release = release
	if c.timeout <= 0 {
		return errors.NotValidf("timeout %v", c.timeout)
	}
	return cmd.CheckEmpty(args)
}

// Run is part of the cmd.Command interface.
func (c *planCommand) Run(ctx *cmd.Context) error {
	if err := loggo.ConfigureLoggers(c.loggingConfig); err != nil {
		return errors.Annotate(err, "configuring loggers")
	}

	reader, err := c.loadSnapshot(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	snap, err := snapshot.Acquire(ctx, snapshot.AcquireConfig{
		Reader:      reader,
		Clock:       clock.WallClock,
		ReadTimeout: c.timeout,
	})
	if err != nil {
		return errors.Trace(err)
	}

	metrics := planner.NewMetrics()
	p, err := planner.New(planner.Config{
		Registry:    apps.NewRegistry(),
		Model:       refusingModel{name: snap.Model},
		Workloads:   reader,
		Clock:       clock.WallClock,
		ReadTimeout: c.timeout,
		Logger:      loggo.GetLogger("cou.planner"),
		Metrics:     metrics,
	})
	if err != nil {
		return errors.Trace(err)
	}
	plan, planErr := p.Generate(ctx, snap, c.release)
	if err := c.writeMetrics(metrics); err != nil {
		return errors.Trace(err)
	}
	if planErr != nil {
		return errors.Annotate(planErr, "cannot plan upgrade")
	}
	return errors.Trace(c.out.Write(ctx, plan))
}

func (c *planCommand) loadSnapshot(ctx *cmd.Context) (*snapshot.StaticReader, error) {
	f, err := c.snapshotFile.Open(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	reader, err := snapshot.Load(f)
	if err != nil {
		return nil, errors.Annotatef(err, "loading %s", c.snapshotFile.Path)
	}
	return reader, nil
}

func (c *planCommand) writeMetrics(metrics *planner.Metrics) error {
	if c.metricsFile == "" {
		return nil
	}
	registry := prometheus.NewRegistry()
	if err := registry.Register(metrics); err != nil {
		return errors.Trace(err)
	}
	return errors.Annotate(prometheus.WriteToTextfile(c.metricsFile, registry), "writing metrics")
}

// formatText writes the plan tree followed by a table of the skipped
// units.
func formatText(w io.Writer, value any) error {
	plan, ok := value.(*steps.Plan)
	if !ok {
		return errors.Errorf("expected *steps.Plan, got %T", value)
	}
	if _, err := io.WriteString(w, plan.String()); err != nil {
		return errors.Trace(err)
	}
	if len(plan.Skipped) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Units skipped because they still host instances:")
	tw := ansiterm.NewTabWriter(w, 0, 1, 2, ' ', 0)
	fmt.Fprintln(tw, "Unit\tMachine\tAZ\tInstances\tApplications")
	for _, u := range plan.Skipped {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			u.Unit, u.Machine, u.AvailabilityZone, u.InstanceCount, strings.Join(u.Applications, ","))
	}
	return errors.Trace(tw.Flush())
}

type planDoc struct {
	Description string       `yaml:"description"`
	Steps       []stepDoc    `yaml:"steps,omitempty"`
	Skipped     []skippedDoc `yaml:"skipped,omitempty"`
}

type stepDoc struct {
	Description string    `yaml:"description"`
	Phase       string    `yaml:"phase"`
	Steps       []stepDoc `yaml:"steps,omitempty"`
}

type skippedDoc struct {
	Unit             string   `yaml:"unit"`
	Machine          string   `yaml:"machine"`
	AvailabilityZone string   `yaml:"az,omitempty"`
	InstanceCount    int      `yaml:"instance-count"`
	Applications     []string `yaml:"applications"`
}

func newStepDoc(s *steps.Step) stepDoc {
	doc := stepDoc{
		Description: s.Description,
		Phase:       s.Phase.String(),
	}
	for _, sub := range s.SubSteps {
		doc.Steps = append(doc.Steps, newStepDoc(sub))
	}
	return doc
}

func formatYaml(w io.Writer, value any) error {
	plan, ok := value.(*steps.Plan)
	if !ok {
		return errors.Errorf("expected *steps.Plan, got %T", value)
	}
	doc := planDoc{Description: plan.Description}
	for _, s := range plan.Steps {
		doc.Steps = append(doc.Steps, newStepDoc(s))
	}
	for _, u := range plan.Skipped {
		doc.Skipped = append(doc.Skipped, skippedDoc{
			Unit:             u.Unit,
			Machine:          u.Machine,
			AvailabilityZone: u.AvailabilityZone,
			InstanceCount:    u.InstanceCount,
			Applications:     u.Applications,
		})
	}
	return cmd.FormatYaml(w, doc)
}

// refusingModel stands in for the model when only planning: the steps of
// the printed plan are never run.
type refusingModel struct {
	name string
}

func (m refusingModel) Name() string {
	return m.name
}

func (m refusingModel) UpgradeCharm(_ context.Context, application, _ string, _ bool) error {
	return errors.NotSupportedf("refreshing %q while planning", application)
}

func (m refusingModel) SetApplicationConfig(_ context.Context, application string, _ map[string]string) error {
	return errors.NotSupportedf("configuring %q while planning", application)
}

func (m refusingModel) WaitForIdle(context.Context, time.Duration, []string) error {
	return errors.NotSupportedf("waiting for model %q while planning", m.name)
}

func (m refusingModel) RunAction(_ context.Context, unit, action string, _ map[string]any) (map[string]any, error) {
	return nil, errors.NotSupportedf("running %s on %q while planning", action, unit)
}

func (m refusingModel) RunOnUnit(_ context.Context, unit, _ string) (string, error) {
	return "", errors.NotSupportedf("running commands on %q while planning", unit)
}

func (m refusingModel) WorkloadVersions(_ context.Context, application string) (map[string]string, error) {
	return nil, errors.NotSupportedf("reading workload versions of %q while planning", application)
}
