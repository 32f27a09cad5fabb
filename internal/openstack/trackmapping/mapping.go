// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package trackmapping holds the relation between the charmhub tracks of
// auxiliary charms and the OpenStack releases they can be deployed with.
//
// Auxiliary charms (ceph, ovn, rabbitmq-server, vault, ...) do not publish a
// track per OpenStack release; a single track can be compatible with several
// releases and a release can be served by several tracks. The tables are
// built once from an embedded CSV file and are read-only afterwards.
package trackmapping

import (
	_ "embed"
	"encoding/csv"
	"io"
	"strings"

	"github.com/juju/errors"

	"github.com/canonical/charmed-openstack-upgrader/core/openstack"
)

//go:embed openstack_to_track_mapping.csv
var mappingCSV string

var header = []string{"series", "charm", "track", "openstack_release"}

type releaseKey struct {
	charm, series string
	release       openstack.Release
}

type trackKey struct {
	charm, series, track string
}

// Tables is the pair of lookup tables built from the mapping file. The
// forward table gives the tracks a charm can use for an OpenStack release,
// the reverse table gives the releases a track is compatible with.
type Tables struct {
	tracks   map[releaseKey][]string
	releases map[trackKey][]openstack.Release
}

// Parse reads a mapping file. Rows are kept in file order, which is the
// order in which tracks and releases are reported.
func Parse(r io.Reader) (*Tables, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(header)
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if err != nil {
		return nil, errors.Annotate(err, "reading track mapping header")
	}
	for i, name := range header {
		if strings.TrimSpace(first[i]) != name {
			return nil, errors.NotValidf("track mapping header %q", strings.Join(first, ","))
		}
	}

	t := &Tables{
		tracks:   make(map[releaseKey][]string),
		releases: make(map[trackKey][]openstack.Release),
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Annotate(err, "reading track mapping")
		}
		series, charmName, track := record[0], record[1], record[2]
		release, err := openstack.ParseRelease(record[3])
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, errors.Annotatef(err, "track mapping line %d", line)
		}
		t.add(charmName, series, track, release)
	}
	return t, nil
}

func (t *Tables) add(charmName, series, track string, release openstack.Release) {
	rk := releaseKey{charm: charmName, series: series, release: release}
	if !containsString(t.tracks[rk], track) {
		t.tracks[rk] = append(t.tracks[rk], track)
	}
	tk := trackKey{charm: charmName, series: series, track: track}
	if !containsRelease(t.releases[tk], release) {
		t.releases[tk] = append(t.releases[tk], release)
	}
}

// TracksFor returns the tracks the charm can use on series for release, in
// table order. The last one is the most recent. An error satisfying
// [errors.NotFound] is returned if there are none.
func (t *Tables) TracksFor(charmName, series string, release openstack.Release) ([]string, error) {
	tracks, ok := t.tracks[releaseKey{charm: charmName, series: series, release: release}]
	if !ok {
		return nil, errors.NotFoundf("tracks of %q on %q for OpenStack %s", charmName, series, release)
	}
	return append([]string(nil), tracks...), nil
}

// ReleasesFor returns the OpenStack releases compatible with the track of
// charm on series. An error satisfying [errors.NotFound] is returned if the
// combination is unknown.
func (t *Tables) ReleasesFor(charmName, series, track string) ([]openstack.Release, error) {
	releases, ok := t.releases[trackKey{charm: charmName, series: series, track: track}]
	if !ok {
		return nil, errors.NotFoundf("OpenStack releases of %q track %q on %q", charmName, track, series)
	}
	return append([]openstack.Release(nil), releases...), nil
}

// Known reports whether track is a recognised track of charm on series.
func (t *Tables) Known(charmName, series, track string) bool {
	_, ok := t.releases[trackKey{charm: charmName, series: series, track: track}]
	return ok
}

func containsString(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

func containsRelease(values []openstack.Release, v openstack.Release) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

var defaultTables = mustParse(mappingCSV)

func mustParse(content string) *Tables {
	t, err := Parse(strings.NewReader(content))
	if err != nil {
		panic(errors.Annotate(err, "embedded track mapping"))
	}
	return t
}

// Default returns the tables built from the mapping shipped with the
// upgrader.
func Default() *Tables {
	return defaultTables
}

// TracksFor looks up the default tables, see [Tables.TracksFor].
func TracksFor(charmName, series string, release openstack.Release) ([]string, error) {
	return defaultTables.TracksFor(charmName, series, release)
}

// ReleasesFor looks up the default tables, see [Tables.ReleasesFor].
func ReleasesFor(charmName, series, track string) ([]openstack.Release, error) {
	return defaultTables.ReleasesFor(charmName, series, track)
}

// Known looks up the default tables, see [Tables.Known].
func Known(charmName, series, track string) bool {
	return defaultTables.Known(charmName, series, track)
}
