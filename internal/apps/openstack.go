// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apps

import (
	"github.com/canonical/charmed-openstack-upgrader/core/openstack"
	"github.com/canonical/charmed-openstack-upgrader/internal/snapshot"
	"github.com/canonical/charmed-openstack-upgrader/internal/steps"
)

// OpenStackApplication is a principal OpenStack charm publishing one track
// per OpenStack release.
type OpenStackApplication struct {
	*appInfo
	openStackTracks
}

// NewOpenStackApplication returns an OpenStackApplication for app.
func NewOpenStackApplication(app snapshot.Application, model Model) (Application, error) {
	info := newAppInfo(app, model)
	return &OpenStackApplication{
		appInfo:         info,
		openStackTracks: openStackTracks{info: info},
	}, nil
}

// NeedsUpgrade is part of the Application interface.
func (a *OpenStackApplication) NeedsUpgrade(target openstack.Release) (bool, error) {
	return checkTarget(a.appInfo, a, target)
}

// PreUpgradeSteps is part of the Application interface.
func (a *OpenStackApplication) PreUpgradeSteps(openstack.Release) ([]*steps.Step, error) {
	return principalPreUpgradeSteps(a.appInfo, a)
}

// UpgradeSteps is part of the Application interface.
func (a *OpenStackApplication) UpgradeSteps(target openstack.Release, _ []snapshot.Unit) ([]*steps.Step, error) {
	return principalUpgradeSteps(a.appInfo, a, target)
}

// PostUpgradeSteps is part of the Application interface.
func (a *OpenStackApplication) PostUpgradeSteps(target openstack.Release, units []snapshot.Unit) ([]*steps.Step, error) {
	return verifyWorkloadSteps(a.appInfo, target, units), nil
}

// OpenStackSubordinate is a subordinate OpenStack charm, such as
// cinder-ceph. Only its charm is upgraded.
type OpenStackSubordinate struct {
	*appInfo
	openStackTracks
}

// NewOpenStackSubordinate returns an OpenStackSubordinate for app.
func NewOpenStackSubordinate(app snapshot.Application, model Model) (Application, error) {
	info := newAppInfo(app, model)
	return &OpenStackSubordinate{
		appInfo:         info,
		openStackTracks: openStackTracks{info: info},
	}, nil
}

// NeedsUpgrade is part of the Application interface.
func (a *OpenStackSubordinate) NeedsUpgrade(target openstack.Release) (bool, error) {
	return checkTarget(a.appInfo, a, target)
}

// PreUpgradeSteps is part of the Application interface.
func (a *OpenStackSubordinate) PreUpgradeSteps(openstack.Release) ([]*steps.Step, error) {
	return subordinatePreUpgradeSteps(a.appInfo, a)
}

// UpgradeSteps is part of the Application interface.
func (a *OpenStackSubordinate) UpgradeSteps(target openstack.Release, _ []snapshot.Unit) ([]*steps.Step, error) {
	return subordinateUpgradeSteps(a.appInfo, a, target)
}

// PostUpgradeSteps is part of the Application interface.
func (a *OpenStackSubordinate) PostUpgradeSteps(openstack.Release, []snapshot.Unit) ([]*steps.Step, error) {
	return nil, nil
}
