// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apps

import (
	"context"
	"time"
)

// Model runs operations against the Juju model. Planning never calls it;
// it is captured by the actions of the planned steps.
type Model interface {
	// Name returns the model name.
	Name() string

	// UpgradeCharm refreshes the application's charm to the latest
	// revision of channel. switchStore is set when the charm moves from
	// the charm store to charmhub.
	UpgradeCharm(ctx context.Context, application, channel string, switchStore bool) error

	// SetApplicationConfig updates the application's charm config.
	SetApplicationConfig(ctx context.Context, application string, config map[string]string) error

	// WaitForIdle waits for the applications to become idle. An empty
	// application list waits for the whole model.
	WaitForIdle(ctx context.Context, timeout time.Duration, applications []string) error

	// RunAction runs a charm action on a unit and returns its results.
	RunAction(ctx context.Context, unit, action string, params map[string]any) (map[string]any, error)

	// RunOnUnit runs a shell command on a unit and returns its output.
	RunOnUnit(ctx context.Context, unit, command string) (string, error)

	// WorkloadVersions returns the workload version of every unit of the
	// application, keyed by unit name.
	WorkloadVersions(ctx context.Context, application string) (map[string]string, error)
}

// WaitPolicy says how long to wait for an upgrade to settle and whether
// the whole model, not just the application, has to become idle.
type WaitPolicy struct {
	Timeout    time.Duration
	WholeModel bool
}

const (
	// DefaultIdleTimeout is used for most applications.
	DefaultIdleTimeout = 5 * time.Minute

	// LongIdleTimeout is used for applications whose upgrade takes long
	// or disturbs the connectivity of the whole cloud.
	LongIdleTimeout = 40 * time.Minute
)

var (
	defaultWait = WaitPolicy{Timeout: DefaultIdleTimeout}
	modelWait   = WaitPolicy{Timeout: LongIdleTimeout, WholeModel: true}
)
