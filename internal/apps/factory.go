// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apps

import (
	"sort"

	"github.com/juju/errors"

	"github.com/canonical/charmed-openstack-upgrader/internal/snapshot"
)

// Constructor creates the Application for a deployed application.
type Constructor func(app snapshot.Application, model Model) (Application, error)

// Registry maps charm names to the Application implementation that knows
// how to upgrade them. It is filled before planning and only read after.
type Registry struct {
	constructors map[string]Constructor
}

// NewEmptyRegistry returns a registry without any charm.
func NewEmptyRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// NewRegistry returns a registry holding every charm the upgrader supports.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	for _, entry := range defaultRegistrations() {
		if err := r.Register(entry.constructor, entry.charms...); err != nil {
			panic(err)
		}
	}
	return r
}

// Register associates constructor with charms. Registering a charm twice
// fails with an error satisfying [errors.AlreadyExists].
func (r *Registry) Register(constructor Constructor, charms ...string) error {
	if constructor == nil {
		return errors.NotValidf("nil constructor")
	}
	for _, charmName := range charms {
		if _, ok := r.constructors[charmName]; ok {
			return errors.AlreadyExistsf("charm %q", charmName)
		}
	}
	for _, charmName := range charms {
		r.constructors[charmName] = constructor
	}
	return nil
}

// Resolve returns the constructor of charm. An unregistered charm fails
// with an error satisfying [errors.NotSupported].
func (r *Registry) Resolve(charmName string) (Constructor, error) {
	constructor, ok := r.constructors[charmName]
	if !ok {
		return nil, errors.NotSupportedf("charm %q", charmName)
	}
	return constructor, nil
}

// Create returns the Application for app, after checking that its channel
// is valid for its charm and series.
func (r *Registry) Create(app snapshot.Application, model Model) (Application, error) {
	constructor, err := r.Resolve(app.Charm)
	if err != nil {
		return nil, errors.Annotatef(err, "application %q", app.Name)
	}
	result, err := constructor(app, model)
	if err != nil {
		return nil, errors.Annotatef(err, "application %q", app.Name)
	}
	if !result.IsValidTrack(app.Channel) {
		return nil, applicationErrorf(app.Name,
			"channel %q is not supported for charm %q on series %q", app.Channel, app.Charm, app.Series)
	}
	return result, nil
}

// Charms returns the registered charm names, sorted.
func (r *Registry) Charms() []string {
	result := make([]string, 0, len(r.constructors))
	for charmName := range r.constructors {
		result = append(result, charmName)
	}
	sort.Strings(result)
	return result
}

type registration struct {
	constructor Constructor
	charms      []string
}

// defaultRegistrations lists the supported charms.
func defaultRegistrations() []registration {
	return []registration{{
		constructor: NewOpenStackApplication,
		charms: []string{
			"aodh", "barbican", "ceilometer", "cinder", "designate", "glance",
			"gnocchi", "heat", "keystone", "magnum", "manila", "neutron-api",
			"nova-cloud-controller", "octavia", "openstack-dashboard",
			"placement", "swift-proxy", "swift-storage",
		},
	}, {
		constructor: NewOpenStackSubordinate,
		charms:      []string{"cinder-ceph", "keystone-ldap", "neutron-api-plugin-ovn"},
	}, {
		constructor: NewNovaCompute,
		charms:      []string{"nova-compute"},
	}, {
		constructor: NewAuxiliaryApplication(),
		charms:      []string{"vault", "ceph-fs", "ceph-radosgw", "ceph-osd"},
	}, {
		constructor: NewAuxiliaryApplication(WithWaitPolicy(modelWait)),
		charms:      []string{"rabbitmq-server"},
	}, {
		// Holding mysql-server-core-8.0 keeps mysqld from restarting during
		// the package upgrade, which would cause an outage.
		constructor: NewAuxiliaryApplication(
			WithWaitPolicy(WaitPolicy{Timeout: LongIdleTimeout}),
			WithHeldPackages("mysql-server-core-8.0"),
		),
		charms: []string{"mysql-innodb-cluster"},
	}, {
		constructor: NewCephMon,
		charms:      []string{"ceph-mon"},
	}, {
		constructor: NewOvnPrincipal,
		charms:      []string{"ovn-central", "ovn-dedicated-chassis"},
	}, {
		constructor: NewOvnSubordinate,
		charms:      []string{"ovn-chassis"},
	}, {
		constructor: NewAuxiliarySubordinate,
		charms:      []string{"mysql-router", "hacluster"},
	}}
}
