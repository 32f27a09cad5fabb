// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package snapshot describes the state of the applications deployed in a
// Juju model, as read once at planning time.
package snapshot

import (
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/names/v5"
	"github.com/juju/naturalsort"
)

// Origin is where an application's charm was installed from.
type Origin string

const (
	// CharmHub is the default store.
	CharmHub Origin = "ch"
	// CharmStore is the legacy store; charms installed from it have no
	// channel that can be related to an OpenStack release.
	CharmStore Origin = "cs"
)

// Snapshot is the read-only state of a model.
type Snapshot struct {
	// Model is the model name.
	Model string

	// Applications are kept in the order the model reported them.
	Applications []Application

	// Machines is keyed by machine id.
	Machines map[string]Machine
}

// Application is a deployed application.
type Application struct {
	Name        string
	Charm       string
	Series      string
	Channel     string
	Origin      Origin
	Subordinate bool

	// Config holds the charm config values that the planner cares about,
	// such as the origin setting and action-managed-upgrade.
	Config map[string]string

	// Units are sorted by name in natural order.
	Units []Unit
}

// IsFromCharmStore reports whether the charm was installed from the legacy
// charm store.
func (a Application) IsFromCharmStore() bool {
	return a.Origin == CharmStore
}

// UnitNames returns the names of the application's units.
func (a Application) UnitNames() []string {
	result := make([]string, len(a.Units))
	for i, u := range a.Units {
		result[i] = u.Name
	}
	return result
}

// Unit is a unit of an application.
type Unit struct {
	Name            string
	Machine         string
	WorkloadVersion string
}

// Machine is a machine hosting units.
type Machine struct {
	ID               string
	AvailabilityZone string
}

// Application returns the application with the given name.
func (s *Snapshot) Application(name string) (Application, bool) {
	for _, app := range s.Applications {
		if app.Name == name {
			return app, true
		}
	}
	return Application{}, false
}

// ColocatedApplications returns the sorted names of the applications with a
// unit on the machine, subordinates included.
func (s *Snapshot) ColocatedApplications(machineID string) []string {
	apps := set.NewStrings()
	for _, app := range s.Applications {
		for _, u := range app.Units {
			if u.Machine == machineID {
				apps.Add(app.Name)
			}
		}
	}
	return apps.SortedValues()
}

// Validate checks the names and references of the snapshot.
func (s *Snapshot) Validate() error {
	seen := set.NewStrings()
	for _, app := range s.Applications {
		if !names.IsValidApplication(app.Name) {
			return errors.NotValidf("application name %q", app.Name)
		}
		if seen.Contains(app.Name) {
			return errors.NotValidf("duplicate application %q", app.Name)
		}
		seen.Add(app.Name)
		if app.Charm == "" {
			return errors.NotValidf("application %q without charm", app.Name)
		}
		if app.Origin != CharmHub && app.Origin != CharmStore {
			return errors.NotValidf("origin %q of application %q", app.Origin, app.Name)
		}
		for _, u := range app.Units {
			if !names.IsValidUnit(u.Name) {
				return errors.NotValidf("unit name %q", u.Name)
			}
			owner, err := names.UnitApplication(u.Name)
			if err != nil {
				return errors.Trace(err)
			}
			if owner != app.Name {
				return errors.NotValidf("unit %q of application %q", u.Name, app.Name)
			}
			if u.Machine == "" {
				continue
			}
			if !names.IsValidMachine(u.Machine) {
				return errors.NotValidf("machine %q of unit %q", u.Machine, u.Name)
			}
			if _, ok := s.Machines[u.Machine]; !ok {
				return errors.NotFoundf("machine %q of unit %q", u.Machine, u.Name)
			}
		}
	}
	return nil
}

// SortUnits sorts units by name in natural order, so that "app/10" comes
// after "app/9".
func SortUnits(units []Unit) {
	byName := make(map[string]Unit, len(units))
	unitNames := make([]string, len(units))
	for i, u := range units {
		byName[u.Name] = u
		unitNames[i] = u.Name
	}
	for i, name := range naturalsort.Sort(unitNames) {
		units[i] = byName[name]
	}
}
