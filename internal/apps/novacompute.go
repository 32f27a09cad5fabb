// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apps

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/mitchellh/mapstructure"

	"github.com/canonical/charmed-openstack-upgrader/core/openstack"
	"github.com/canonical/charmed-openstack-upgrader/internal/snapshot"
	"github.com/canonical/charmed-openstack-upgrader/internal/steps"
)

const actionManagedUpgradeKey = "action-managed-upgrade"

// NovaCompute is the nova-compute charm. Its units host virtual machines,
// so they are upgraded one by one through the openstack-upgrade action,
// and only when they host no instance.
type NovaCompute struct {
	*appInfo
	openStackTracks
}

// NewNovaCompute returns a NovaCompute for app.
func NewNovaCompute(app snapshot.Application, model Model) (Application, error) {
	info := newAppInfo(app, model)
	return &NovaCompute{
		appInfo:         info,
		openStackTracks: openStackTracks{info: info},
	}, nil
}

// HostsWorkloads is part of the WorkloadHost interface.
func (a *NovaCompute) HostsWorkloads() bool {
	return true
}

// NeedsUpgrade is part of the Application interface.
func (a *NovaCompute) NeedsUpgrade(target openstack.Release) (bool, error) {
	return checkTarget(a.appInfo, a, target)
}

// PreUpgradeSteps is part of the Application interface.
func (a *NovaCompute) PreUpgradeSteps(openstack.Release) ([]*steps.Step, error) {
	return principalPreUpgradeSteps(a.appInfo, a)
}

// UpgradeSteps is part of the Application interface. The charm is switched
// to action managed upgrades first, so that changing the origin does not
// upgrade every unit at once; then every unit in units is upgraded on its
// own.
func (a *NovaCompute) UpgradeSteps(target openstack.Release, units []snapshot.Unit) ([]*steps.Step, error) {
	channel, err := channelUpgradeStep(a.appInfo, a, target)
	if err != nil {
		return nil, errors.Trace(err)
	}
	origin, err := originChangeStep(a.appInfo, target)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if channel == nil && origin == nil {
		return nil, nil
	}

	var result []*steps.Step
	if managed, _ := strconv.ParseBool(a.app.Config[actionManagedUpgradeKey]); !managed {
		result = append(result, configChangeStep(a.appInfo, actionManagedUpgradeKey, "True"))
	}
	result = append(result, nonEmpty(channel, origin)...)
	for _, u := range units {
		result = append(result, a.unitUpgradeStep(u))
	}
	return append(result, waitStep(a.appInfo)), nil
}

func (a *NovaCompute) unitUpgradeStep(u snapshot.Unit) *steps.Step {
	unit := u.Name
	runAction := func(action string) steps.Action {
		return func(ctx context.Context) error {
			_, err := a.model.RunAction(ctx, unit, action, nil)
			return errors.Annotatef(err, "running %s on %q", action, unit)
		}
	}
	return steps.NewGroup(steps.Upgrade,
		fmt.Sprintf("Upgrade plan for unit '%s'", unit),
		steps.New(steps.Upgrade,
			fmt.Sprintf("Disable nova-compute scheduler from unit: '%s'", unit), runAction("disable")),
		steps.New(steps.Upgrade,
			fmt.Sprintf("Verify that unit '%s' has no VMs running", unit),
			func(ctx context.Context) error {
				return verifyEmptyHypervisor(ctx, a.model, unit)
			}),
		steps.New(steps.Upgrade,
			fmt.Sprintf("Upgrade the unit: '%s'", unit), runAction("openstack-upgrade")),
		steps.New(steps.Upgrade,
			fmt.Sprintf("Enable nova-compute scheduler from unit: '%s'", unit), runAction("enable")),
	)
}

// PostUpgradeSteps is part of the Application interface.
func (a *NovaCompute) PostUpgradeSteps(target openstack.Release, units []snapshot.Unit) ([]*steps.Step, error) {
	return verifyWorkloadSteps(a.appInfo, target, units), nil
}

// InstanceCountAction is the nova-compute action reporting the number of
// instances on a unit.
const InstanceCountAction = "instance-count"

// InstanceCount runs the instance-count action on a nova-compute unit.
func InstanceCount(ctx context.Context, model Model, unit string) (int, error) {
	results, err := model.RunAction(ctx, unit, InstanceCountAction, nil)
	if err != nil {
		return 0, errors.Trace(err)
	}
	raw, ok := results[InstanceCountAction]
	if !ok {
		return 0, errors.NotFoundf("%s result of %q", InstanceCountAction, unit)
	}
	if value, ok := raw.(string); ok {
		raw = strings.TrimSpace(value)
	}
	var count int
	if err := mapstructure.WeakDecode(raw, &count); err != nil {
		return 0, errors.NewNotValid(err, fmt.Sprintf("%s result %v of %q", InstanceCountAction, raw, unit))
	}
	return count, nil
}

// verifyEmptyHypervisor checks again, right before the upgrade, that no
// instance was started on the unit since the plan was made.
func verifyEmptyHypervisor(ctx context.Context, model Model, unit string) error {
	count, err := InstanceCount(ctx, model, unit)
	if err != nil {
		return errors.Trace(err)
	}
	if count != 0 {
		return errors.Errorf("unit %q has %d VMs running", unit, count)
	}
	return nil
}
