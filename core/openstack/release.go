// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package openstack

import (
	"fmt"
	"strings"
)

// Release is an OpenStack release known to the upgrader. Releases are
// ordered by their position in the catalog, not by their codename.
// The zero value is not a valid release.
type Release struct {
	codename string
	track    string
	ordinal  int
}

// catalog holds every release the upgrader can plan for, oldest first.
// From antelope onwards the charm tracks use the year based release name.
var catalog = []Release{
	{codename: "ussuri", track: "ussuri"},
	{codename: "victoria", track: "victoria"},
	{codename: "wallaby", track: "wallaby"},
	{codename: "xena", track: "xena"},
	{codename: "yoga", track: "yoga"},
	{codename: "zed", track: "zed"},
	{codename: "antelope", track: "2023.1"},
	{codename: "bobcat", track: "2023.2"},
	{codename: "caracal", track: "2024.1"},
}

var (
	byCodename = make(map[string]Release, len(catalog))
	byTrack    = make(map[string]Release, len(catalog))
)

func init() {
	for i := range catalog {
		catalog[i].ordinal = i + 1
		byCodename[catalog[i].codename] = catalog[i]
		byTrack[catalog[i].track] = catalog[i]
	}
}

// ParseRelease returns the release with the given codename. The year based
// name used as a charm track (e.g. "2023.1") is accepted too. An error
// satisfying [UnknownReleaseError] is returned for anything else.
func ParseRelease(name string) (Release, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if r, ok := byCodename[key]; ok {
		return r, nil
	}
	if r, ok := byTrack[key]; ok {
		return r, nil
	}
	return Release{}, &UnknownReleaseError{Codename: name}
}

// MustParseRelease is like ParseRelease but panics on error.
func MustParseRelease(name string) Release {
	r, err := ParseRelease(name)
	if err != nil {
		panic(err)
	}
	return r
}

// Releases returns all known releases, oldest first.
func Releases() []Release {
	result := make([]Release, len(catalog))
	copy(result, catalog)
	return result
}

// Oldest returns the oldest release in the catalog.
func Oldest() Release {
	return catalog[0]
}

// Latest returns the most recent release in the catalog.
func Latest() Release {
	return catalog[len(catalog)-1]
}

// Codename returns the release codename, e.g. "ussuri".
func (r Release) Codename() string {
	return r.codename
}

// Track returns the charm track used by OpenStack charms for this release.
func (r Release) Track() string {
	return r.track
}

// IsZero reports whether r is the zero value.
func (r Release) IsZero() bool {
	return r.ordinal == 0
}

// Compare returns a negative number when r is older than other, zero when
// they are the same release and a positive number when r is newer.
func (r Release) Compare(other Release) int {
	return r.ordinal - other.ordinal
}

// Before reports whether r is older than other.
func (r Release) Before(other Release) bool {
	return r.ordinal < other.ordinal
}

// After reports whether r is newer than other.
func (r Release) After(other Release) bool {
	return r.ordinal > other.ordinal
}

// Next returns the release following r. The second result is false if r
// is the latest known release.
func (r Release) Next() (Release, bool) {
	if r.IsZero() || r.ordinal >= len(catalog) {
		return Release{}, false
	}
	return catalog[r.ordinal], true
}

// Previous returns the release preceding r. The second result is false if
// r is the oldest known release.
func (r Release) Previous() (Release, bool) {
	if r.ordinal <= 1 {
		return Release{}, false
	}
	return catalog[r.ordinal-2], true
}

func (r Release) String() string {
	return r.codename
}

// GoString implements fmt.GoStringer so check failures print something
// readable.
func (r Release) GoString() string {
	return fmt.Sprintf("openstack.Release(%q)", r.codename)
}

// Compare compares two releases, see [Release.Compare].
func Compare(a, b Release) int {
	return a.Compare(b)
}

// Max returns the most recent of the given releases.
func Max(first Release, rest ...Release) Release {
	result := first
	for _, r := range rest {
		if r.After(result) {
			result = r
		}
	}
	return result
}

// Min returns the oldest of the given releases.
func Min(first Release, rest ...Release) Release {
	result := first
	for _, r := range rest {
		if r.Before(result) {
			result = r
		}
	}
	return result
}
