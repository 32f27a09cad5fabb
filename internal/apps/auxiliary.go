// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apps

import (
	"github.com/canonical/charmed-openstack-upgrader/core/openstack"
	"github.com/canonical/charmed-openstack-upgrader/internal/snapshot"
	"github.com/canonical/charmed-openstack-upgrader/internal/steps"
)

// AuxiliaryApplication is a principal charm that is part of the cloud but
// not of OpenStack itself (rabbitmq-server, vault, ceph, mysql). Its tracks
// follow its workload version and are mapped to OpenStack releases by the
// track mapping tables.
type AuxiliaryApplication struct {
	*appInfo
	auxiliaryTracks
}

// AuxiliaryOption customises an AuxiliaryApplication.
type AuxiliaryOption func(*appInfo)

// WithWaitPolicy sets how the upgrade waits for the application to settle.
func WithWaitPolicy(policy WaitPolicy) AuxiliaryOption {
	return func(a *appInfo) {
		a.wait = policy
	}
}

// WithHeldPackages holds packages while the software packages of the units
// are upgraded.
func WithHeldPackages(packages ...string) AuxiliaryOption {
	return func(a *appInfo) {
		a.packagesToHold = packages
	}
}

// NewAuxiliaryApplication returns a constructor of AuxiliaryApplication
// values customised by options.
func NewAuxiliaryApplication(options ...AuxiliaryOption) Constructor {
	return func(app snapshot.Application, model Model) (Application, error) {
		info := newAppInfo(app, model)
		for _, option := range options {
			option(info)
		}
		return &AuxiliaryApplication{
			appInfo:         info,
			auxiliaryTracks: auxiliaryTracks{info: info},
		}, nil
	}
}

// WaitPolicy returns how the upgrade waits for the application to settle.
func (a *AuxiliaryApplication) WaitPolicy() WaitPolicy {
	return a.wait
}

// NeedsUpgrade is part of the Application interface.
func (a *AuxiliaryApplication) NeedsUpgrade(target openstack.Release) (bool, error) {
	return checkTarget(a.appInfo, a, target)
}

// PreUpgradeSteps is part of the Application interface.
func (a *AuxiliaryApplication) PreUpgradeSteps(openstack.Release) ([]*steps.Step, error) {
	return principalPreUpgradeSteps(a.appInfo, a)
}

// UpgradeSteps is part of the Application interface.
func (a *AuxiliaryApplication) UpgradeSteps(target openstack.Release, _ []snapshot.Unit) ([]*steps.Step, error) {
	return principalUpgradeSteps(a.appInfo, a, target)
}

// PostUpgradeSteps is part of the Application interface.
func (a *AuxiliaryApplication) PostUpgradeSteps(target openstack.Release, units []snapshot.Unit) ([]*steps.Step, error) {
	return verifyWorkloadSteps(a.appInfo, target, units), nil
}

// AuxiliarySubordinate is a subordinate auxiliary charm, such as
// mysql-router or hacluster.
type AuxiliarySubordinate struct {
	*appInfo
	auxiliaryTracks
}

// NewAuxiliarySubordinate returns an AuxiliarySubordinate for app.
func NewAuxiliarySubordinate(app snapshot.Application, model Model) (Application, error) {
	info := newAppInfo(app, model)
	return &AuxiliarySubordinate{
		appInfo:         info,
		auxiliaryTracks: auxiliaryTracks{info: info},
	}, nil
}

// NeedsUpgrade is part of the Application interface.
func (a *AuxiliarySubordinate) NeedsUpgrade(target openstack.Release) (bool, error) {
	return checkTarget(a.appInfo, a, target)
}

// PreUpgradeSteps is part of the Application interface.
func (a *AuxiliarySubordinate) PreUpgradeSteps(openstack.Release) ([]*steps.Step, error) {
	return subordinatePreUpgradeSteps(a.appInfo, a)
}

// UpgradeSteps is part of the Application interface.
func (a *AuxiliarySubordinate) UpgradeSteps(target openstack.Release, _ []snapshot.Unit) ([]*steps.Step, error) {
	return subordinateUpgradeSteps(a.appInfo, a, target)
}

// PostUpgradeSteps is part of the Application interface.
func (a *AuxiliarySubordinate) PostUpgradeSteps(openstack.Release, []snapshot.Unit) ([]*steps.Step, error) {
	return nil, nil
}
