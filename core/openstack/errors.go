// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package openstack

import "fmt"

// UnknownReleaseError is returned when a release name is not part of the
// release catalog.
type UnknownReleaseError struct {
	Codename string
}

func (e *UnknownReleaseError) Error() string {
	return fmt.Sprintf("unknown OpenStack release %q", e.Codename)
}

// UnknownSeriesError is returned when a series has no OpenStack releases
// associated with it.
type UnknownSeriesError struct {
	Series string
}

func (e *UnknownSeriesError) Error() string {
	return fmt.Sprintf("series %q does not support any known OpenStack release", e.Series)
}
