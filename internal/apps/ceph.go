// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apps

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/kballard/go-shellquote"

	"github.com/canonical/charmed-openstack-upgrader/core/openstack"
	"github.com/canonical/charmed-openstack-upgrader/internal/snapshot"
	"github.com/canonical/charmed-openstack-upgrader/internal/steps"
)

// CephMon is the ceph-mon charm. Before its upgrade the cluster wide
// require-osd-release option has to match the release of the running OSDs
// (LP#1929254), otherwise the monitors refuse OSDs after the upgrade.
type CephMon struct {
	*appInfo
	auxiliaryTracks
}

// NewCephMon returns a CephMon for app.
func NewCephMon(app snapshot.Application, model Model) (Application, error) {
	info := newAppInfo(app, model)
	info.wait = modelWait
	return &CephMon{
		appInfo:         info,
		auxiliaryTracks: auxiliaryTracks{info: info},
	}, nil
}

// NeedsUpgrade is part of the Application interface.
func (a *CephMon) NeedsUpgrade(target openstack.Release) (bool, error) {
	return checkTarget(a.appInfo, a, target)
}

// PreUpgradeSteps is part of the Application interface. The
// require-osd-release step follows the common pre-upgrade steps.
func (a *CephMon) PreUpgradeSteps(openstack.Release) ([]*steps.Step, error) {
	if len(a.app.Units) == 0 {
		return nil, applicationErrorf(a.app.Name, "no units to run ceph commands on")
	}
	result, err := principalPreUpgradeSteps(a.appInfo, a)
	if err != nil {
		return nil, errors.Trace(err)
	}
	unit := a.app.Units[0].Name
	return append(result, steps.New(steps.PreUpgrade,
		"Ensure that the 'require-osd-release' option matches the 'ceph-osd' version",
		func(ctx context.Context) error {
			return setRequireOSDRelease(ctx, a.model, unit)
		},
	)), nil
}

// UpgradeSteps is part of the Application interface.
func (a *CephMon) UpgradeSteps(target openstack.Release, _ []snapshot.Unit) ([]*steps.Step, error) {
	return principalUpgradeSteps(a.appInfo, a, target)
}

// PostUpgradeSteps is part of the Application interface.
func (a *CephMon) PostUpgradeSteps(target openstack.Release, units []snapshot.Unit) ([]*steps.Step, error) {
	return verifyWorkloadSteps(a.appInfo, target, units), nil
}

type cephVersions struct {
	OSD map[string]int `json:"osd"`
}

type cephOSDDump struct {
	RequireOSDRelease string `json:"require_osd_release"`
}

// osdReleases extracts the release codenames from the keys of the
// "ceph versions" output, which look like
// "ceph version 15.2.17 (8a82819d84c) octopus (stable)".
func osdReleases(output string) ([]string, error) {
	var versions cephVersions
	if err := json.Unmarshal([]byte(output), &versions); err != nil {
		return nil, errors.Annotate(err, "parsing ceph versions")
	}
	releases := set.NewStrings()
	for version := range versions.OSD {
		fields := strings.Fields(version)
		if len(fields) < 5 {
			return nil, errors.NotValidf("ceph version %q", version)
		}
		releases.Add(fields[4])
	}
	return releases.SortedValues(), nil
}

// setRequireOSDRelease sets require-osd-release to the release of the OSDs
// when they all run the same release.
func setRequireOSDRelease(ctx context.Context, model Model, unit string) error {
	output, err := model.RunOnUnit(ctx, unit, "ceph versions -f json")
	if err != nil {
		return errors.Trace(err)
	}
	releases, err := osdReleases(output)
	if err != nil {
		return errors.Trace(err)
	}
	if len(releases) != 1 {
		return errors.Errorf("cannot determine the ceph-osd release, found %q", releases)
	}
	osdRelease := releases[0]

	output, err = model.RunOnUnit(ctx, unit, "ceph osd dump -f json")
	if err != nil {
		return errors.Trace(err)
	}
	var dump cephOSDDump
	if err := json.Unmarshal([]byte(output), &dump); err != nil {
		return errors.Annotate(err, "parsing ceph osd dump")
	}
	if dump.RequireOSDRelease == osdRelease {
		return nil
	}
	logger.Debugf("setting require-osd-release from %q to %q", dump.RequireOSDRelease, osdRelease)
	_, err = model.RunOnUnit(ctx, unit, shellquote.Join("ceph", "osd", "require-osd-release", osdRelease))
	return errors.Trace(err)
}
