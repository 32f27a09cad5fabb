// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apps

import (
	"github.com/juju/collections/transform"
	"github.com/juju/errors"

	"github.com/canonical/charmed-openstack-upgrader/core/openstack"
	"github.com/canonical/charmed-openstack-upgrader/internal/charm"
	"github.com/canonical/charmed-openstack-upgrader/internal/openstack/trackmapping"
)

// charmStoreRelease is assumed for charms installed from the charm store,
// whose channels carry no release information.
func charmStoreRelease(a *appInfo) openstack.Release {
	release := openstack.Oldest()
	logger.Debugf("%q installed from the charm store; assuming %s as the underlying version", a.app.Name, release)
	return release
}

func warnCharmStore(a *appInfo) {
	logger.Warningf("%q has been installed from the charm store; its channel %q is not validated", a.app.Name, a.app.Channel)
}

func stableChannel(track string) string {
	return charm.MakeStableChannel(track).String()
}

// openStackTracks reads channels of charms that publish one track per
// OpenStack release, e.g. "ussuri/stable" or "2023.1/stable".
type openStackTracks struct {
	info *appInfo
}

// IsValidTrack is part of the Application interface.
func (t openStackTracks) IsValidTrack(channel string) bool {
	if t.info.app.IsFromCharmStore() {
		warnCharmStore(t.info)
		return true
	}
	track, err := charm.TrackOf(channel)
	if err != nil {
		return false
	}
	release, err := openstack.ParseRelease(track)
	if err != nil {
		return false
	}
	return openstack.IsSupported(t.info.app.Series, release)
}

// CurrentRelease is part of the Application interface.
func (t openStackTracks) CurrentRelease() (openstack.Release, error) {
	if t.info.app.IsFromCharmStore() {
		return charmStoreRelease(t.info), nil
	}
	track, err := charm.TrackOf(t.info.app.Channel)
	if err != nil {
		return openstack.Release{}, errors.Annotatef(err, "channel of %q", t.info.app.Name)
	}
	release, err := openstack.ParseRelease(track)
	if err != nil {
		return openstack.Release{}, errors.Annotatef(err, "channel of %q", t.info.app.Name)
	}
	return release, nil
}

// PossibleCurrentChannels is part of the Application interface.
func (t openStackTracks) PossibleCurrentChannels() ([]string, error) {
	current, err := t.CurrentRelease()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !openstack.IsSupported(t.info.app.Series, current) {
		return nil, &ChannelResolutionError{Charm: t.info.app.Charm, Series: t.info.app.Series, Release: current}
	}
	return []string{stableChannel(current.Track())}, nil
}

// TargetChannel is part of the Application interface.
func (t openStackTracks) TargetChannel(target openstack.Release) (string, error) {
	if !openstack.IsSupported(t.info.app.Series, target) {
		return "", &ChannelResolutionError{Charm: t.info.app.Charm, Series: t.info.app.Series, Release: target}
	}
	return stableChannel(target.Track()), nil
}

// auxiliaryTracks reads channels of charms whose tracks follow the version
// of their workload. A track may be compatible with several releases.
type auxiliaryTracks struct {
	info *appInfo
}

// IsValidTrack is part of the Application interface.
func (t auxiliaryTracks) IsValidTrack(channel string) bool {
	if t.info.app.IsFromCharmStore() {
		warnCharmStore(t.info)
		return true
	}
	track, err := charm.TrackOf(channel)
	if err != nil {
		return false
	}
	return trackmapping.Known(t.info.app.Charm, t.info.app.Series, track)
}

// CurrentRelease is part of the Application interface. When the track is
// compatible with several releases the most recent one is returned.
func (t auxiliaryTracks) CurrentRelease() (openstack.Release, error) {
	if t.info.app.IsFromCharmStore() {
		return charmStoreRelease(t.info), nil
	}
	track, err := charm.TrackOf(t.info.app.Channel)
	if err != nil {
		return openstack.Release{}, errors.Annotatef(err, "channel of %q", t.info.app.Name)
	}
	releases, err := trackmapping.ReleasesFor(t.info.app.Charm, t.info.app.Series, track)
	if err != nil {
		return openstack.Release{}, errors.Annotatef(err, "channel of %q", t.info.app.Name)
	}
	return openstack.Max(releases[0], releases[1:]...), nil
}

// PossibleCurrentChannels is part of the Application interface.
func (t auxiliaryTracks) PossibleCurrentChannels() ([]string, error) {
	current, err := t.CurrentRelease()
	if err != nil {
		return nil, errors.Trace(err)
	}
	tracks, err := trackmapping.TracksFor(t.info.app.Charm, t.info.app.Series, current)
	if err != nil {
		return nil, &ChannelResolutionError{Charm: t.info.app.Charm, Series: t.info.app.Series, Release: current}
	}
	return transform.Slice(tracks, stableChannel), nil
}

// TargetChannel is part of the Application interface. The last track
// listed for target is the one to use.
func (t auxiliaryTracks) TargetChannel(target openstack.Release) (string, error) {
	tracks, err := trackmapping.TracksFor(t.info.app.Charm, t.info.app.Series, target)
	if err != nil {
		return "", &ChannelResolutionError{Charm: t.info.app.Charm, Series: t.info.app.Series, Release: target}
	}
	return stableChannel(tracks[len(tracks)-1]), nil
}
