// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apps

import (
	"context"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"
)

type actionsSuite struct {
	model *MockModel
}

var _ = gc.Suite(&actionsSuite{})

func (s *actionsSuite) setupMocks(c *gc.C) *gomock.Controller {
	ctrl := gomock.NewController(c)
	s.model = NewMockModel(ctrl)
	return ctrl
}

const cephVersionsOutput = `{
    "mon": {"ceph version 15.2.17 (8a82819d84cf) octopus (stable)": 3},
    "osd": {
        "ceph version 15.2.17 (8a82819d84cf) octopus (stable)": 6,
        "ceph version 15.2.16 (d46a73d6d0a6) octopus (stable)": 2
    }
}`

func (s *actionsSuite) TestOSDReleases(c *gc.C) {
	releases, err := osdReleases(cephVersionsOutput)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(releases, jc.DeepEquals, []string{"octopus"})

	_, err = osdReleases(`{"osd": {"ceph version": 1}}`)
	c.Check(err, jc.Satisfies, errors.IsNotValid)

	_, err = osdReleases(`not json`)
	c.Check(err, gc.ErrorMatches, `parsing ceph versions: .*`)
}

func (s *actionsSuite) TestSetRequireOSDRelease(c *gc.C) {
	defer s.setupMocks(c).Finish()

	gomock.InOrder(
		s.model.EXPECT().RunOnUnit(gomock.Any(), "ceph-mon/0", "ceph versions -f json").Return(cephVersionsOutput, nil),
		s.model.EXPECT().RunOnUnit(gomock.Any(), "ceph-mon/0", "ceph osd dump -f json").Return(`{"require_osd_release": "nautilus"}`, nil),
		s.model.EXPECT().RunOnUnit(gomock.Any(), "ceph-mon/0", "ceph osd require-osd-release octopus").Return("", nil),
	)

	err := setRequireOSDRelease(context.Background(), s.model, "ceph-mon/0")
	c.Assert(err, jc.ErrorIsNil)
}

func (s *actionsSuite) TestSetRequireOSDReleaseQuotesRelease(c *gc.C) {
	defer s.setupMocks(c).Finish()

	gomock.InOrder(
		s.model.EXPECT().RunOnUnit(gomock.Any(), "ceph-mon/0", "ceph versions -f json").
			Return(`{"osd": {"ceph version 15.2.17 (8a82819d84cf) octopus;reboot (stable)": 3}}`, nil),
		s.model.EXPECT().RunOnUnit(gomock.Any(), "ceph-mon/0", "ceph osd dump -f json").Return(`{"require_osd_release": "nautilus"}`, nil),
		s.model.EXPECT().RunOnUnit(gomock.Any(), "ceph-mon/0", `ceph osd require-osd-release octopus\;reboot`).Return("", nil),
	)

	err := setRequireOSDRelease(context.Background(), s.model, "ceph-mon/0")
	c.Assert(err, jc.ErrorIsNil)
}

func (s *actionsSuite) TestAptCommandQuotesHeldPackages(c *gc.C) {
	c.Check(aptCommand(nil), gc.Equals, aptUpgradeCommand)
	c.Check(aptCommand([]string{"mysql-server-core-8.0", "pkg; reboot"}), gc.Equals,
		"sudo apt-mark hold mysql-server-core-8.0 'pkg; reboot' && "+aptUpgradeCommand+
			" ; sudo apt-mark unhold mysql-server-core-8.0 'pkg; reboot'")
}

func (s *actionsSuite) TestSetRequireOSDReleaseAlreadySet(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.model.EXPECT().RunOnUnit(gomock.Any(), "ceph-mon/0", "ceph versions -f json").Return(cephVersionsOutput, nil)
	s.model.EXPECT().RunOnUnit(gomock.Any(), "ceph-mon/0", "ceph osd dump -f json").Return(`{"require_osd_release": "octopus"}`, nil)

	err := setRequireOSDRelease(context.Background(), s.model, "ceph-mon/0")
	c.Assert(err, jc.ErrorIsNil)
}

func (s *actionsSuite) TestSetRequireOSDReleaseMixedReleases(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.model.EXPECT().RunOnUnit(gomock.Any(), "ceph-mon/0", "ceph versions -f json").Return(`{"osd": {
        "ceph version 15.2.17 (8a82819d84cf) octopus (stable)": 6,
        "ceph version 16.2.9 (4c3647a322c0) pacific (stable)": 2
    }}`, nil)

	err := setRequireOSDRelease(context.Background(), s.model, "ceph-mon/0")
	c.Check(err, gc.ErrorMatches, `cannot determine the ceph-osd release, found .*`)
}

func (s *actionsSuite) TestInstanceCount(c *gc.C) {
	defer s.setupMocks(c).Finish()

	gomock.InOrder(
		s.model.EXPECT().RunAction(gomock.Any(), "nova-compute/0", "instance-count", nil).
			Return(map[string]any{"instance-count": "3"}, nil),
		s.model.EXPECT().RunAction(gomock.Any(), "nova-compute/0", "instance-count", nil).
			Return(map[string]any{"instance-count": float64(0)}, nil),
		s.model.EXPECT().RunAction(gomock.Any(), "nova-compute/0", "instance-count", nil).
			Return(map[string]any{}, nil),
		s.model.EXPECT().RunAction(gomock.Any(), "nova-compute/0", "instance-count", nil).
			Return(map[string]any{"instance-count": "many"}, nil),
		s.model.EXPECT().RunAction(gomock.Any(), "nova-compute/0", "instance-count", nil).
			Return(map[string]any{"instance-count": " 5\n"}, nil),
		s.model.EXPECT().RunAction(gomock.Any(), "nova-compute/0", "instance-count", nil).
			Return(map[string]any{"instance-count": 2}, nil),
	)

	count, err := InstanceCount(context.Background(), s.model, "nova-compute/0")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(count, gc.Equals, 3)

	count, err = InstanceCount(context.Background(), s.model, "nova-compute/0")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(count, gc.Equals, 0)

	_, err = InstanceCount(context.Background(), s.model, "nova-compute/0")
	c.Check(err, jc.Satisfies, errors.IsNotFound)

	_, err = InstanceCount(context.Background(), s.model, "nova-compute/0")
	c.Check(err, jc.Satisfies, errors.IsNotValid)
	c.Check(err, gc.ErrorMatches, `instance-count result many of "nova-compute/0": .*`)

	count, err = InstanceCount(context.Background(), s.model, "nova-compute/0")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(count, gc.Equals, 5)

	count, err = InstanceCount(context.Background(), s.model, "nova-compute/0")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(count, gc.Equals, 2)
}

func (s *actionsSuite) TestVerifyEmptyHypervisor(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.model.EXPECT().RunAction(gomock.Any(), "nova-compute/1", "instance-count", nil).
		Return(map[string]any{"instance-count": "2"}, nil)

	err := verifyEmptyHypervisor(context.Background(), s.model, "nova-compute/1")
	c.Check(err, gc.ErrorMatches, `unit "nova-compute/1" has 2 VMs running`)
}

func (s *actionsSuite) TestVerifyWorkloadUpgraded(c *gc.C) {
	defer s.setupMocks(c).Finish()

	app := makeApp("keystone", "keystone", "ussuri/stable", map[string]string{"openstack-origin": "distro"}, 2)
	keystone, err := NewRegistry().Create(app, s.model)
	c.Assert(err, jc.ErrorIsNil)
	post, err := keystone.PostUpgradeSteps(victoria, app.Units)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(post, gc.HasLen, 1)

	gomock.InOrder(
		s.model.EXPECT().WorkloadVersions(gomock.Any(), "keystone").Return(map[string]string{
			"keystone/0": "18.0.0",
			"keystone/1": "17.0.1",
		}, nil),
		s.model.EXPECT().WorkloadVersions(gomock.Any(), "keystone").Return(map[string]string{
			"keystone/0": "18.0.0",
			"keystone/1": "18.0.0",
		}, nil),
	)

	err = post[0].Action(context.Background())
	c.Check(err, gc.ErrorMatches, `application "keystone": cannot upgrade units 'keystone/1' to victoria`)
	c.Check(post[0].Action(context.Background()), jc.ErrorIsNil)
}
