// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package snapshot

import (
	"context"
	"io"
	"sort"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// StaticReader serves a model description loaded from a YAML document.
// It implements [Reader] and answers instance count queries for the units
// that host workloads.
type StaticReader struct {
	model          string
	apps           []Application
	machines       []Machine
	instanceCounts map[string]int
}

type modelDoc struct {
	Model        string                `yaml:"model"`
	Machines     map[string]machineDoc `yaml:"machines"`
	Applications yaml.Node             `yaml:"applications"`
}

type machineDoc struct {
	AZ string `yaml:"az"`
}

type applicationDoc struct {
	Charm       string             `yaml:"charm"`
	Series      string             `yaml:"series"`
	Channel     string             `yaml:"channel"`
	Origin      string             `yaml:"origin"`
	Subordinate bool               `yaml:"subordinate"`
	Config      map[string]string  `yaml:"config"`
	Units       map[string]unitDoc `yaml:"units"`
}

type unitDoc struct {
	Machine         string `yaml:"machine"`
	WorkloadVersion string `yaml:"workload-version"`
	InstanceCount   int    `yaml:"instance-count"`
}

// Load parses a YAML model description:
//
//	model: test-model
//	machines:
//	  "0": {az: az-0}
//	applications:
//	  keystone:
//	    charm: keystone
//	    series: focal
//	    channel: ussuri/stable
//	    config: {openstack-origin: distro}
//	    units:
//	      keystone/0: {machine: "0", workload-version: 17.0.1}
//
// Applications keep the order in which they appear in the document.
func Load(r io.Reader) (*StaticReader, error) {
	var doc modelDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Annotate(err, "decoding model description")
	}

	s := &StaticReader{
		model:          doc.Model,
		instanceCounts: make(map[string]int),
	}
	for id, m := range doc.Machines {
		s.machines = append(s.machines, Machine{ID: id, AvailabilityZone: m.AZ})
	}
	sort.Slice(s.machines, func(i, j int) bool {
		return s.machines[i].ID < s.machines[j].ID
	})

	if doc.Applications.Kind == 0 {
		return s, nil
	}
	if doc.Applications.Kind != yaml.MappingNode {
		return nil, errors.NotValidf("applications on line %d", doc.Applications.Line)
	}
	content := doc.Applications.Content
	for i := 0; i+1 < len(content); i += 2 {
		name := content[i].Value
		var appDoc applicationDoc
		if err := content[i+1].Decode(&appDoc); err != nil {
			return nil, errors.Annotatef(err, "decoding application %q", name)
		}
		app := Application{
			Name:        name,
			Charm:       appDoc.Charm,
			Series:      appDoc.Series,
			Channel:     appDoc.Channel,
			Origin:      Origin(appDoc.Origin),
			Subordinate: appDoc.Subordinate,
			Config:      appDoc.Config,
		}
		if app.Origin == "" {
			app.Origin = CharmHub
		}
		if app.Charm == "" {
			app.Charm = name
		}
		for unitName, u := range appDoc.Units {
			app.Units = append(app.Units, Unit{
				Name:            unitName,
				Machine:         u.Machine,
				WorkloadVersion: u.WorkloadVersion,
			})
			s.instanceCounts[unitName] = u.InstanceCount
		}
		SortUnits(app.Units)
		s.apps = append(s.apps, app)
	}
	return s, nil
}

// ModelName is part of the [Reader] interface.
func (s *StaticReader) ModelName(context.Context) (string, error) {
	return s.model, nil
}

// Applications is part of the [Reader] interface.
func (s *StaticReader) Applications(context.Context) ([]Application, error) {
	result := make([]Application, len(s.apps))
	for i, app := range s.apps {
		app.Units = nil
		result[i] = app
	}
	return result, nil
}

// Units is part of the [Reader] interface.
func (s *StaticReader) Units(_ context.Context, application string) ([]Unit, error) {
	for _, app := range s.apps {
		if app.Name == application {
			return append([]Unit(nil), app.Units...), nil
		}
	}
	return nil, errors.NotFoundf("application %q", application)
}

// Machines is part of the [Reader] interface.
func (s *StaticReader) Machines(context.Context) ([]Machine, error) {
	return append([]Machine(nil), s.machines...), nil
}

// InstanceCount returns the number of instances recorded for the unit.
func (s *StaticReader) InstanceCount(_ context.Context, unit string) (int, error) {
	count, ok := s.instanceCounts[unit]
	if !ok {
		return 0, errors.NotFoundf("unit %q", unit)
	}
	return count, nil
}
