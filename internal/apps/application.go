// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apps

import (
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/canonical/charmed-openstack-upgrader/core/openstack"
	"github.com/canonical/charmed-openstack-upgrader/internal/snapshot"
	"github.com/canonical/charmed-openstack-upgrader/internal/steps"
)

var logger = loggo.GetLogger("cou.apps")

// Application plans the upgrade of one deployed application. Planning only
// reads the snapshot the application was created from.
type Application interface {
	// Name returns the application name.
	Name() string

	// Charm returns the charm name, which selects the implementation.
	Charm() string

	// IsValidTrack reports whether the track of channel is known for the
	// application's charm and series. Charms installed from the charm
	// store are always valid.
	IsValidTrack(channel string) bool

	// CurrentRelease returns the OpenStack release of the application as
	// read from its channel.
	CurrentRelease() (openstack.Release, error)

	// PossibleCurrentChannels returns the channels the application may
	// use for its current release.
	PossibleCurrentChannels() ([]string, error)

	// TargetChannel returns the channel to use for target.
	TargetChannel(target openstack.Release) (string, error)

	// NeedsUpgrade reports whether the application has to be upgraded to
	// reach target. It fails when target cannot be reached in one step.
	NeedsUpgrade(target openstack.Release) (bool, error)

	// PreUpgradeSteps returns the steps preparing the upgrade.
	PreUpgradeSteps(target openstack.Release) ([]*steps.Step, error)

	// UpgradeSteps returns the steps upgrading the application. Units
	// are the units to upgrade, which may be a subset of all units.
	UpgradeSteps(target openstack.Release, units []snapshot.Unit) ([]*steps.Step, error)

	// PostUpgradeSteps returns the steps verifying the upgrade of units.
	PostUpgradeSteps(target openstack.Release, units []snapshot.Unit) ([]*steps.Step, error)
}

// WorkloadHost is implemented by applications whose units host workloads,
// such as virtual machines, that must be gone before a unit is upgraded.
type WorkloadHost interface {
	Application

	// HostsWorkloads reports whether units must be checked for running
	// workloads.
	HostsWorkloads() bool
}

// Origin config keys, in order of preference.
const (
	openstackOriginKey = "openstack-origin"
	sourceKey          = "source"
)

// appInfo is the state shared by every implementation.
type appInfo struct {
	app snapshot.Application

	model          Model
	originKey      string
	wait           WaitPolicy
	packagesToHold []string
}

func newAppInfo(app snapshot.Application, model Model) *appInfo {
	info := &appInfo{
		app:   app,
		model: model,
		wait:  defaultWait,
	}
	for _, key := range []string{openstackOriginKey, sourceKey} {
		if _, ok := app.Config[key]; ok {
			info.originKey = key
			break
		}
	}
	return info
}

func (a *appInfo) Name() string {
	return a.app.Name
}

func (a *appInfo) Charm() string {
	return a.app.Charm
}

// originRelease returns the release installed by the origin setting. The
// second result is false when the application has no origin setting.
func (a *appInfo) originRelease() (openstack.Release, bool, error) {
	if a.originKey == "" {
		return openstack.Release{}, false, nil
	}
	release, err := openstack.ParseOrigin(a.app.Series, a.app.Config[a.originKey])
	if err != nil {
		return openstack.Release{}, false, errors.Annotatef(err, "%s of %q", a.originKey, a.app.Name)
	}
	return release, true, nil
}

// needsUpgrade compares the releases of the application with target. An
// application is up to date when both its channel and its origin are at or
// beyond target. Going forward more than one release is refused.
func (a *appInfo) needsUpgrade(current, target openstack.Release) (bool, error) {
	if !openstack.IsSupported(a.app.Series, target) {
		return false, applicationErrorf(a.app.Name,
			"OpenStack %s is not supported on series %q", target, a.app.Series)
	}

	oldest := current
	origin, hasOrigin, err := a.originRelease()
	if err != nil {
		return false, errors.Trace(err)
	}
	if hasOrigin {
		oldest = openstack.Min(current, origin)
	}
	if !oldest.Before(target) {
		logger.Infof("%q is already at %s or later", a.app.Name, target)
		return false, nil
	}
	if previous, ok := target.Previous(); ok && oldest.Before(previous) {
		return false, applicationErrorf(a.app.Name,
			"cannot upgrade from %s to %s; upgrade to %s first", oldest, target, previous)
	}
	return true, nil
}
