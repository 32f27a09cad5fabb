// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"strings"

	"github.com/juju/errors"
)

// Risk describes the risk level of a charm channel.
type Risk string

const (
	Stable    Risk = "stable"
	Candidate Risk = "candidate"
	Beta      Risk = "beta"
	Edge      Risk = "edge"
)

// Risks is a list of the available channel risks, most stable first.
var Risks = []Risk{
	Stable,
	Candidate,
	Beta,
	Edge,
}

func isRisk(potential string) bool {
	for _, risk := range Risks {
		if potential == string(risk) {
			return true
		}
	}
	return false
}

// LatestTrack is the track implied by a channel that only names a risk.
const LatestTrack = "latest"

// Channel identifies a charmhub channel.
//
// The complete channel name has up to three parts separated by slashes:
//
//	<track>/<risk>/<branch>
//
// OpenStack charms publish one track per OpenStack release (e.g.
// "ussuri/stable"), while auxiliary charms publish one track per upstream
// version of their workload (e.g. "3.8/stable" for rabbitmq-server).
type Channel struct {
	Track  string
	Risk   Risk
	Branch string
}

// MakeStableChannel returns the stable channel of track.
func MakeStableChannel(track string) Channel {
	return Channel{Track: track, Risk: Stable}
}

// ParseChannel parses a channel string. A missing risk defaults to stable
// and a missing track defaults to "latest".
func ParseChannel(s string) (Channel, error) {
	if s == "" {
		return Channel{}, errors.NotValidf("empty channel")
	}

	parts := strings.Split(s, "/")
	var ch Channel
	switch len(parts) {
	case 1:
		if isRisk(parts[0]) {
			ch.Risk = Risk(parts[0])
		} else {
			ch.Track = parts[0]
		}
	case 2:
		if isRisk(parts[0]) {
			ch.Risk, ch.Branch = Risk(parts[0]), parts[1]
		} else {
			ch.Track, ch.Risk = parts[0], Risk(parts[1])
		}
	case 3:
		ch.Track, ch.Risk, ch.Branch = parts[0], Risk(parts[1]), parts[2]
	default:
		return Channel{}, errors.Errorf("channel is malformed and has too many components %q", s)
	}

	if ch.Risk != "" && !isRisk(string(ch.Risk)) {
		return Channel{}, errors.NotValidf("risk in channel %q", s)
	}
	if len(parts) > 1 && !isRisk(parts[0]) && ch.Track == "" {
		return Channel{}, errors.NotValidf("track in channel %q", s)
	}
	if (len(parts) == 3 || (len(parts) == 2 && isRisk(parts[0]))) && ch.Branch == "" {
		return Channel{}, errors.NotValidf("branch in channel %q", s)
	}
	return ch.Normalize(), nil
}

// MustParseChannel is like ParseChannel but panics on error.
func MustParseChannel(s string) Channel {
	ch, err := ParseChannel(s)
	if err != nil {
		panic(err)
	}
	return ch
}

// TrackOf returns the track of the channel string s.
func TrackOf(s string) (string, error) {
	ch, err := ParseChannel(s)
	if err != nil {
		return "", errors.Trace(err)
	}
	return ch.Track, nil
}

// Normalize fills in the default track and risk.
func (ch Channel) Normalize() Channel {
	if ch.Risk == "" {
		ch.Risk = Stable
	}
	if ch.Track == "" {
		ch.Track = LatestTrack
	}
	return ch
}

func (ch Channel) String() string {
	path := string(ch.Risk)
	if ch.Track != "" {
		path = ch.Track + "/" + path
	}
	if ch.Branch != "" {
		path = path + "/" + ch.Branch
	}
	return path
}
