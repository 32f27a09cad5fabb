// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apps

import (
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type registrySuite struct{}

var _ = gc.Suite(&registrySuite{})

func (*registrySuite) TestDefaultCharms(c *gc.C) {
	charms := set.NewStrings(NewRegistry().Charms()...)
	for _, expected := range []string{
		"keystone", "nova-compute", "rabbitmq-server", "mysql-innodb-cluster",
		"ceph-mon", "ceph-osd", "ovn-central", "ovn-chassis", "hacluster",
		"cinder-ceph", "vault", "mysql-router",
	} {
		c.Check(charms.Contains(expected), jc.IsTrue, gc.Commentf("charm %q", expected))
	}
}

func (*registrySuite) TestResolveUnknown(c *gc.C) {
	_, err := NewRegistry().Resolve("landscape-client")
	c.Check(err, jc.Satisfies, errors.IsNotSupported)
}

func (*registrySuite) TestCreateUnknown(c *gc.C) {
	_, err := NewRegistry().Create(makeApp("landscape", "landscape-client", "latest/stable", nil, 1), nil)
	c.Check(err, jc.Satisfies, errors.IsNotSupported)
	c.Check(err, gc.ErrorMatches, `application "landscape": charm "landscape-client" not supported`)
}

func (*registrySuite) TestRegisterTwice(c *gc.C) {
	r := NewEmptyRegistry()
	c.Assert(r.Register(NewOpenStackApplication, "keystone"), jc.ErrorIsNil)

	err := r.Register(NewOpenStackApplication, "glance", "keystone")
	c.Check(err, jc.Satisfies, errors.IsAlreadyExists)
	c.Check(r.Charms(), jc.DeepEquals, []string{"keystone"})
}

func (*registrySuite) TestCreateInvalidChannel(c *gc.C) {
	_, err := NewRegistry().Create(makeApp("keystone", "keystone", "2023.1/stable", nil, 1), nil)
	var appErr *ApplicationError
	c.Assert(errors.As(err, &appErr), jc.IsTrue)
	c.Check(err, gc.ErrorMatches, `application "keystone": channel "2023.1/stable" is not supported for charm "keystone" on series "focal"`)

	_, err = NewRegistry().Create(makeApp("keystone", "keystone", "zed/stable", nil, 1), nil)
	c.Check(err, gc.ErrorMatches, `application "keystone": channel "zed/stable" is not supported .*`)
}

func (*registrySuite) TestWaitPolicies(c *gc.C) {
	r := NewRegistry()

	rabbit, err := r.Create(makeApp("rabbitmq-server", "rabbitmq-server", "3.8/stable", nil, 1), nil)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(rabbit.(*AuxiliaryApplication).WaitPolicy(), gc.Equals, WaitPolicy{Timeout: LongIdleTimeout, WholeModel: true})

	vault, err := r.Create(makeApp("vault", "vault", "1.7/stable", nil, 1), nil)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(vault.(*AuxiliaryApplication).WaitPolicy(), gc.Equals, WaitPolicy{Timeout: DefaultIdleTimeout})

	ovn, err := r.Create(makeApp("ovn-central", "ovn-central", "22.03/stable", nil, 1), nil)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(ovn.(*OvnPrincipal).WaitPolicy(), gc.Equals, WaitPolicy{Timeout: LongIdleTimeout, WholeModel: true})
}
