// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apps

import (
	"fmt"

	"github.com/canonical/charmed-openstack-upgrader/core/openstack"
)

const charmDeliveryDocs = "https://docs.openstack.org/charm-guide/latest/project/charm-delivery.html"

// ApplicationError halts the planning of an application, and with it the
// whole plan.
type ApplicationError struct {
	Application string
	Message     string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("application %q: %s", e.Application, e.Message)
}

func applicationErrorf(application, format string, args ...any) error {
	return &ApplicationError{
		Application: application,
		Message:     fmt.Sprintf(format, args...),
	}
}

// ChannelResolutionError is returned when no charm channel is known for a
// charm, series and release combination.
type ChannelResolutionError struct {
	Charm   string
	Series  string
	Release openstack.Release
}

func (e *ChannelResolutionError) Error() string {
	return fmt.Sprintf(
		"cannot find a suitable %q charm channel for %s on series %q. Please take a look at the documentation: %s",
		e.Charm, e.Release, e.Series, charmDeliveryDocs)
}

// UnsupportedWorkloadVersionError is returned when a unit runs a workload
// version that cannot be upgraded.
type UnsupportedWorkloadVersionError struct {
	Charm   string
	Unit    string
	Version string
	Minimum string
}

func (e *UnsupportedWorkloadVersionError) Error() string {
	return fmt.Sprintf(
		"unit %q of %q runs workload version %q which is not supported; the minimum supported version is %s",
		e.Unit, e.Charm, e.Version, e.Minimum)
}
