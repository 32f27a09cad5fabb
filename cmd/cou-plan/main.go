// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// cou-plan prints the plan upgrading a charmed OpenStack cloud, described
// by a YAML model snapshot, to a target OpenStack release.
package main

import (
	"context"
	"os"

	"github.com/canonical/charmed-openstack-upgrader/cmd"
)

func main() {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	ctx := &cmd.Context{
		Context: context.Background(),
		Dir:     dir,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	os.Exit(cmd.Main(newPlanCommand(), ctx, os.Args[1:]))
}
