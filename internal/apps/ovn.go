// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apps

import (
	"github.com/Masterminds/semver/v3"
	"github.com/juju/errors"

	"github.com/canonical/charmed-openstack-upgrader/core/openstack"
	"github.com/canonical/charmed-openstack-upgrader/internal/snapshot"
	"github.com/canonical/charmed-openstack-upgrader/internal/steps"
)

// MinimumOVNVersion is the oldest OVN the charms can upgrade from.
const MinimumOVNVersion = "22.03"

var minimumOVN = semver.MustParse(MinimumOVNVersion)

// validateOVNSupport fails if any unit runs an OVN older than
// MinimumOVNVersion.
func validateOVNSupport(charmName string, units []snapshot.Unit) error {
	for _, u := range units {
		version, err := semver.NewVersion(u.WorkloadVersion)
		if err != nil {
			return errors.Annotatef(err, "parsing OVN version %q of unit %q", u.WorkloadVersion, u.Name)
		}
		if version.LessThan(minimumOVN) {
			return &UnsupportedWorkloadVersionError{
				Charm:   charmName,
				Unit:    u.Name,
				Version: u.WorkloadVersion,
				Minimum: MinimumOVNVersion,
			}
		}
	}
	return nil
}

// OvnPrincipal is ovn-central or ovn-dedicated-chassis. Upgrading OVN
// disrupts the connectivity of the whole cloud.
type OvnPrincipal struct {
	*appInfo
	auxiliaryTracks
}

// NewOvnPrincipal returns an OvnPrincipal for app.
func NewOvnPrincipal(app snapshot.Application, model Model) (Application, error) {
	info := newAppInfo(app, model)
	info.wait = modelWait
	return &OvnPrincipal{
		appInfo:         info,
		auxiliaryTracks: auxiliaryTracks{info: info},
	}, nil
}

// WaitPolicy returns how the upgrade waits for the application to settle.
func (a *OvnPrincipal) WaitPolicy() WaitPolicy {
	return a.wait
}

// NeedsUpgrade is part of the Application interface.
func (a *OvnPrincipal) NeedsUpgrade(target openstack.Release) (bool, error) {
	return checkTarget(a.appInfo, a, target)
}

// PreUpgradeSteps is part of the Application interface.
func (a *OvnPrincipal) PreUpgradeSteps(openstack.Release) ([]*steps.Step, error) {
	if err := validateOVNSupport(a.app.Charm, a.app.Units); err != nil {
		return nil, errors.Trace(err)
	}
	return principalPreUpgradeSteps(a.appInfo, a)
}

// UpgradeSteps is part of the Application interface.
func (a *OvnPrincipal) UpgradeSteps(target openstack.Release, _ []snapshot.Unit) ([]*steps.Step, error) {
	return principalUpgradeSteps(a.appInfo, a, target)
}

// PostUpgradeSteps is part of the Application interface.
func (a *OvnPrincipal) PostUpgradeSteps(target openstack.Release, units []snapshot.Unit) ([]*steps.Step, error) {
	return verifyWorkloadSteps(a.appInfo, target, units), nil
}

// OvnSubordinate is ovn-chassis, deployed next to nova-compute.
type OvnSubordinate struct {
	*appInfo
	auxiliaryTracks
}

// NewOvnSubordinate returns an OvnSubordinate for app.
func NewOvnSubordinate(app snapshot.Application, model Model) (Application, error) {
	info := newAppInfo(app, model)
	return &OvnSubordinate{
		appInfo:         info,
		auxiliaryTracks: auxiliaryTracks{info: info},
	}, nil
}

// NeedsUpgrade is part of the Application interface.
func (a *OvnSubordinate) NeedsUpgrade(target openstack.Release) (bool, error) {
	return checkTarget(a.appInfo, a, target)
}

// PreUpgradeSteps is part of the Application interface.
func (a *OvnSubordinate) PreUpgradeSteps(openstack.Release) ([]*steps.Step, error) {
	if err := validateOVNSupport(a.app.Charm, a.app.Units); err != nil {
		return nil, errors.Trace(err)
	}
	return subordinatePreUpgradeSteps(a.appInfo, a)
}

// UpgradeSteps is part of the Application interface.
func (a *OvnSubordinate) UpgradeSteps(target openstack.Release, _ []snapshot.Unit) ([]*steps.Step, error) {
	return subordinateUpgradeSteps(a.appInfo, a, target)
}

// PostUpgradeSteps is part of the Application interface.
func (a *OvnSubordinate) PostUpgradeSteps(openstack.Release, []snapshot.Unit) ([]*steps.Step, error) {
	return nil, nil
}
