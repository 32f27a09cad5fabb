// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apps

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/kballard/go-shellquote"

	"github.com/canonical/charmed-openstack-upgrader/core/openstack"
	"github.com/canonical/charmed-openstack-upgrader/internal/charm"
	"github.com/canonical/charmed-openstack-upgrader/internal/snapshot"
	"github.com/canonical/charmed-openstack-upgrader/internal/steps"
)

// channelResolver is the channel half of the Application interface.
type channelResolver interface {
	CurrentRelease() (openstack.Release, error)
	PossibleCurrentChannels() ([]string, error)
	TargetChannel(openstack.Release) (string, error)
}

// checkTarget implements Application.NeedsUpgrade for every variant.
func checkTarget(a *appInfo, ch channelResolver, target openstack.Release) (bool, error) {
	current, err := ch.CurrentRelease()
	if err != nil {
		return false, errors.Trace(err)
	}
	return a.needsUpgrade(current, target)
}

const aptUpgradeCommand = "sudo apt-get update && " +
	"sudo DEBIAN_FRONTEND=noninteractive apt-get dist-upgrade -y " +
	"-o Dpkg::Options::=--force-confdef -o Dpkg::Options::=--force-confold && " +
	"sudo apt-get autoremove -y"

func aptCommand(held []string) string {
	if len(held) == 0 {
		return aptUpgradeCommand
	}
	hold := shellquote.Join(append([]string{"sudo", "apt-mark", "hold"}, held...)...)
	unhold := shellquote.Join(append([]string{"sudo", "apt-mark", "unhold"}, held...)...)
	return fmt.Sprintf("%s && %s ; %s", hold, aptUpgradeCommand, unhold)
}

// packageUpgradeStep upgrades the packages of every unit from the
// repositories currently configured.
func packageUpgradeStep(a *appInfo) *steps.Step {
	group := steps.NewGroup(steps.PreUpgrade,
		fmt.Sprintf("Upgrade software packages of '%s' from the current APT repositories", a.app.Name))
	command := aptCommand(a.packagesToHold)
	for _, u := range a.app.Units {
		description := fmt.Sprintf("Upgrade software packages on unit '%s'", u.Name)
		if len(a.packagesToHold) > 0 {
			description += fmt.Sprintf(" (holding %s)", strings.Join(a.packagesToHold, ", "))
		}
		unit := u.Name
		group.Add(steps.New(steps.PreUpgrade, description, func(ctx context.Context) error {
			_, err := a.model.RunOnUnit(ctx, unit, command)
			return errors.Annotatef(err, "upgrading packages on %q", unit)
		}))
	}
	return group
}

// refreshCharmStep brings the charm to the latest revision of a channel
// valid for the current release. Charms from the charm store are migrated
// to charmhub.
func refreshCharmStep(a *appInfo, ch channelResolver) (*steps.Step, error) {
	channels, err := ch.PossibleCurrentChannels()
	if err != nil {
		return nil, errors.Trace(err)
	}
	channel := channels[len(channels)-1]

	var description string
	switch {
	case a.app.IsFromCharmStore():
		description = fmt.Sprintf("Migrate '%s' from charmstore to charmhub", a.app.Name)
	case !contains(channels, currentChannel(a)):
		description = fmt.Sprintf(
			"WARNING: Changing '%s' channel from %s to %s. This may be a charm downgrade, which is generally not supported.",
			a.app.Name, a.app.Channel, channel)
	default:
		channel = currentChannel(a)
		description = fmt.Sprintf("Refresh '%s' to the latest revision of '%s'", a.app.Name, channel)
	}
	switchStore := a.app.IsFromCharmStore()
	return steps.New(steps.PreUpgrade, description, func(ctx context.Context) error {
		return errors.Trace(a.model.UpgradeCharm(ctx, a.app.Name, channel, switchStore))
	}), nil
}

// refreshedChannel is the channel the application uses once the refresh
// step has run.
func refreshedChannel(a *appInfo, ch channelResolver) (string, error) {
	channels, err := ch.PossibleCurrentChannels()
	if err != nil {
		return "", errors.Trace(err)
	}
	if current := currentChannel(a); !a.app.IsFromCharmStore() && contains(channels, current) {
		return current, nil
	}
	return channels[len(channels)-1], nil
}

// currentChannel returns the application channel in its normalized form.
func currentChannel(a *appInfo) string {
	ch, err := charm.ParseChannel(a.app.Channel)
	if err != nil {
		return a.app.Channel
	}
	return ch.String()
}

// principalPreUpgradeSteps are the pre-upgrade steps shared by every
// principal application.
func principalPreUpgradeSteps(a *appInfo, ch channelResolver) ([]*steps.Step, error) {
	refresh, err := refreshCharmStep(a, ch)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return nonEmpty(packageUpgradeStep(a), refresh), nil
}

// subordinatePreUpgradeSteps are the pre-upgrade steps of subordinates,
// which have no packages of their own to upgrade.
func subordinatePreUpgradeSteps(a *appInfo, ch channelResolver) ([]*steps.Step, error) {
	refresh, err := refreshCharmStep(a, ch)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return []*steps.Step{refresh}, nil
}

// channelUpgradeStep moves the charm to the target channel, or returns nil
// if it is already there.
func channelUpgradeStep(a *appInfo, ch channelResolver, target openstack.Release) (*steps.Step, error) {
	from, err := refreshedChannel(a, ch)
	if err != nil {
		return nil, errors.Trace(err)
	}
	to, err := ch.TargetChannel(target)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if from == to {
		return nil, nil
	}
	return steps.New(steps.Upgrade,
		fmt.Sprintf("Upgrade '%s' from '%s' to the new channel: '%s'", a.app.Name, from, to),
		func(ctx context.Context) error {
			return errors.Trace(a.model.UpgradeCharm(ctx, a.app.Name, to, false))
		},
	), nil
}

// originChangeStep points the origin setting at target, or returns nil if
// the application has no origin setting or already uses target.
func originChangeStep(a *appInfo, target openstack.Release) (*steps.Step, error) {
	if a.originKey == "" {
		return nil, nil
	}
	origin, err := openstack.Origin(a.app.Series, target)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if a.app.Config[a.originKey] == origin {
		return nil, nil
	}
	return configChangeStep(a, a.originKey, origin), nil
}

func configChangeStep(a *appInfo, key, value string) *steps.Step {
	return steps.New(steps.Upgrade,
		fmt.Sprintf("Change charm config of '%s' '%s' to '%s'", a.app.Name, key, value),
		func(ctx context.Context) error {
			return errors.Trace(a.model.SetApplicationConfig(ctx, a.app.Name, map[string]string{key: value}))
		},
	)
}

// waitStep waits for the application, or the whole model, to settle.
func waitStep(a *appInfo) *steps.Step {
	subject := fmt.Sprintf("app '%s'", a.app.Name)
	applications := []string{a.app.Name}
	if a.wait.WholeModel {
		subject = fmt.Sprintf("model '%s'", a.model.Name())
		applications = nil
	}
	timeout := a.wait.Timeout
	return steps.New(steps.Upgrade,
		fmt.Sprintf("Wait for up to %ds for %s to reach the idle state", int(timeout.Seconds()), subject),
		func(ctx context.Context) error {
			return errors.Trace(a.model.WaitForIdle(ctx, timeout, applications))
		},
	)
}

// principalUpgradeSteps changes the channel and the origin of a principal
// application and waits for it to settle.
func principalUpgradeSteps(a *appInfo, ch channelResolver, target openstack.Release) ([]*steps.Step, error) {
	channel, err := channelUpgradeStep(a, ch, target)
	if err != nil {
		return nil, errors.Trace(err)
	}
	origin, err := originChangeStep(a, target)
	if err != nil {
		return nil, errors.Trace(err)
	}
	result := nonEmpty(channel, origin)
	if len(result) == 0 {
		return nil, nil
	}
	return append(result, waitStep(a)), nil
}

// subordinateUpgradeSteps only changes the channel; subordinates follow
// the origin of their principal.
func subordinateUpgradeSteps(a *appInfo, ch channelResolver, target openstack.Release) ([]*steps.Step, error) {
	channel, err := channelUpgradeStep(a, ch, target)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return nonEmpty(channel), nil
}

// verifyWorkloadSteps checks that the workload version of every upgraded
// unit changed. Only applications with an origin setting upgrade their
// workload.
func verifyWorkloadSteps(a *appInfo, target openstack.Release, units []snapshot.Unit) []*steps.Step {
	if a.originKey == "" || len(units) == 0 {
		return nil
	}
	unitNames := make([]string, len(units))
	for i, u := range units {
		unitNames[i] = u.Name
	}
	return []*steps.Step{steps.New(steps.PostUpgrade,
		fmt.Sprintf("Verify that the workload of '%s' has been upgraded on units: %s",
			a.app.Name, strings.Join(unitNames, ", ")),
		func(ctx context.Context) error {
			versions, err := a.model.WorkloadVersions(ctx, a.app.Name)
			if err != nil {
				return errors.Trace(err)
			}
			var stale []string
			for _, u := range units {
				if versions[u.Name] == u.WorkloadVersion {
					stale = append(stale, u.Name)
				}
			}
			if len(stale) > 0 {
				return applicationErrorf(a.app.Name,
					"cannot upgrade units '%s' to %s", strings.Join(stale, ", "), target)
			}
			return nil
		},
	)}
}

func nonEmpty(candidates ...*steps.Step) []*steps.Step {
	var result []*steps.Step
	for _, s := range candidates {
		if s != nil && !s.IsEmpty() {
			result = append(result, s)
		}
	}
	return result
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
