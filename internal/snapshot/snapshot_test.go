// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package snapshot_test

import (
	"context"
	"os"
	"strings"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/charmed-openstack-upgrader/internal/snapshot"
)

type snapshotSuite struct{}

var _ = gc.Suite(&snapshotSuite{})

func loadFile(c *gc.C, path string) *snapshot.StaticReader {
	f, err := os.Open(path)
	c.Assert(err, jc.ErrorIsNil)
	defer f.Close()
	reader, err := snapshot.Load(f)
	c.Assert(err, jc.ErrorIsNil)
	return reader
}

func (*snapshotSuite) TestLoadKeepsApplicationOrder(c *gc.C) {
	reader := loadFile(c, "testdata/model.yaml")

	name, err := reader.ModelName(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(name, gc.Equals, "test-model")

	apps, err := reader.Applications(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	var appNames []string
	for _, app := range apps {
		appNames = append(appNames, app.Name)
		c.Check(app.Units, gc.HasLen, 0)
	}
	c.Check(appNames, jc.DeepEquals, []string{"rabbitmq-server", "nova-compute", "ovn-chassis", "keystone"})

	c.Check(apps[0].Charm, gc.Equals, "rabbitmq-server")
	c.Check(apps[0].Origin, gc.Equals, snapshot.CharmHub)
	c.Check(apps[0].Config, jc.DeepEquals, map[string]string{"source": "distro"})
	c.Check(apps[2].Subordinate, jc.IsTrue)
	c.Check(apps[3].IsFromCharmStore(), jc.IsTrue)
}

func (*snapshotSuite) TestLoadSortsUnits(c *gc.C) {
	reader := loadFile(c, "testdata/model.yaml")

	units, err := reader.Units(context.Background(), "nova-compute")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(units, jc.DeepEquals, []snapshot.Unit{
		{Name: "nova-compute/0", Machine: "0", WorkloadVersion: "21.2.4"},
		{Name: "nova-compute/1", Machine: "1", WorkloadVersion: "21.2.4"},
		{Name: "nova-compute/10", Machine: "10", WorkloadVersion: "21.2.4"},
	})

	_, err = reader.Units(context.Background(), "glance")
	c.Check(err, jc.Satisfies, errors.IsNotFound)
}

func (*snapshotSuite) TestInstanceCount(c *gc.C) {
	reader := loadFile(c, "testdata/model.yaml")

	count, err := reader.InstanceCount(context.Background(), "nova-compute/1")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(count, gc.Equals, 2)

	count, err = reader.InstanceCount(context.Background(), "nova-compute/0")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(count, gc.Equals, 0)

	_, err = reader.InstanceCount(context.Background(), "nova-compute/7")
	c.Check(err, jc.Satisfies, errors.IsNotFound)
}

func (*snapshotSuite) TestLoadInvalid(c *gc.C) {
	_, err := snapshot.Load(strings.NewReader("applications: [keystone]"))
	c.Check(err, jc.Satisfies, errors.IsNotValid)

	_, err = snapshot.Load(strings.NewReader("model: [unterminated"))
	c.Check(err, gc.ErrorMatches, `decoding model description: .*`)
}

func (*snapshotSuite) TestColocatedApplications(c *gc.C) {
	snap := &snapshot.Snapshot{
		Applications: []snapshot.Application{
			{Name: "ovn-chassis", Units: []snapshot.Unit{{Name: "ovn-chassis/0", Machine: "1"}}},
			{Name: "nova-compute", Units: []snapshot.Unit{{Name: "nova-compute/0", Machine: "1"}}},
			{Name: "keystone", Units: []snapshot.Unit{{Name: "keystone/0", Machine: "2"}}},
		},
	}
	c.Check(snap.ColocatedApplications("1"), jc.DeepEquals, []string{"nova-compute", "ovn-chassis"})
	c.Check(snap.ColocatedApplications("3"), gc.HasLen, 0)

	app, ok := snap.Application("keystone")
	c.Assert(ok, jc.IsTrue)
	c.Check(app.UnitNames(), jc.DeepEquals, []string{"keystone/0"})
	_, ok = snap.Application("glance")
	c.Check(ok, jc.IsFalse)
}

func (*snapshotSuite) TestValidate(c *gc.C) {
	valid := func() *snapshot.Snapshot {
		return &snapshot.Snapshot{
			Applications: []snapshot.Application{{
				Name:   "keystone",
				Charm:  "keystone",
				Origin: snapshot.CharmHub,
				Units:  []snapshot.Unit{{Name: "keystone/0", Machine: "0"}},
			}},
			Machines: map[string]snapshot.Machine{"0": {ID: "0"}},
		}
	}
	c.Check(valid().Validate(), jc.ErrorIsNil)

	snap := valid()
	snap.Applications[0].Name = "Keystone"
	c.Check(snap.Validate(), jc.Satisfies, errors.IsNotValid)

	snap = valid()
	snap.Applications = append(snap.Applications, snap.Applications[0])
	c.Check(snap.Validate(), gc.ErrorMatches, `duplicate application "keystone" not valid`)

	snap = valid()
	snap.Applications[0].Origin = "local"
	c.Check(snap.Validate(), jc.Satisfies, errors.IsNotValid)

	snap = valid()
	snap.Applications[0].Units[0].Name = "glance/0"
	c.Check(snap.Validate(), gc.ErrorMatches, `unit "glance/0" of application "keystone" not valid`)

	snap = valid()
	snap.Applications[0].Units[0].Machine = "3"
	c.Check(snap.Validate(), jc.Satisfies, errors.IsNotFound)
}

func (*snapshotSuite) TestSortUnits(c *gc.C) {
	units := []snapshot.Unit{{Name: "app/10"}, {Name: "app/2"}, {Name: "app/1"}}
	snapshot.SortUnits(units)
	c.Check(units, jc.DeepEquals, []snapshot.Unit{{Name: "app/1"}, {Name: "app/2"}, {Name: "app/10"}})
}
