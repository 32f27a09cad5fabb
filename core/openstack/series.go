// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package openstack

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// DistroOrigin is the value of an origin setting that installs packages
// from the Ubuntu archive rather than the Ubuntu Cloud Archive.
const DistroOrigin = "distro"

// seriesInfo describes the OpenStack releases available on an Ubuntu series.
// The distro release ships in the archive, later releases come from the
// cloud archive.
type seriesInfo struct {
	distro string
	last   string
}

var seriesReleases = map[string]seriesInfo{
	"focal": {distro: "ussuri", last: "yoga"},
	"jammy": {distro: "yoga", last: "caracal"},
	"noble": {distro: "caracal", last: "caracal"},
}

// SeriesReleases returns the releases supported on series, oldest first.
func SeriesReleases(series string) ([]Release, error) {
	info, ok := seriesReleases[series]
	if !ok {
		return nil, &UnknownSeriesError{Series: series}
	}
	first, last := byCodename[info.distro], byCodename[info.last]
	return Releases()[first.ordinal-1 : last.ordinal], nil
}

// IsSupported reports whether release can be deployed on series.
func IsSupported(series string, release Release) bool {
	info, ok := seriesReleases[series]
	if !ok || release.IsZero() {
		return false
	}
	return !release.Before(byCodename[info.distro]) && !release.After(byCodename[info.last])
}

// DistroRelease returns the release shipped in the archive of series.
func DistroRelease(series string) (Release, error) {
	info, ok := seriesReleases[series]
	if !ok {
		return Release{}, &UnknownSeriesError{Series: series}
	}
	return byCodename[info.distro], nil
}

// Origin returns the value an application's origin setting (source or
// openstack-origin) must hold to install release on series.
func Origin(series string, release Release) (string, error) {
	distro, err := DistroRelease(series)
	if err != nil {
		return "", err
	}
	if !IsSupported(series, release) {
		return "", errors.NotSupportedf("OpenStack %s on series %q", release, series)
	}
	if release == distro {
		return DistroOrigin, nil
	}
	return fmt.Sprintf("cloud:%s-%s", series, release.Codename()), nil
}

// ParseOrigin returns the release installed by an origin setting on series:
// "distro" or "cloud:<series>-<codename>", optionally followed by a pocket
// such as "/proposed".
func ParseOrigin(series, origin string) (Release, error) {
	if origin == DistroOrigin {
		return DistroRelease(series)
	}
	value, _, _ := strings.Cut(origin, "/")
	rest, ok := strings.CutPrefix(value, "cloud:")
	if !ok {
		return Release{}, errors.NotValidf("origin %q", origin)
	}
	originSeries, codename, ok := strings.Cut(rest, "-")
	if !ok || originSeries != series {
		return Release{}, errors.NotValidf("origin %q on series %q", origin, series)
	}
	release, err := ParseRelease(codename)
	if err != nil {
		return Release{}, errors.Trace(err)
	}
	return release, nil
}
