// Package model defines shared data structures.
package model

import "time"

// Role selects how a session sets up its opponent link.
type Role int

const (
	// RoleSolo plays without an opponent.
	RoleSolo Role = iota
	// RoleHost listens for exactly one client.
	RoleHost
	// RoleClient connects to a host.
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleSolo:
		return "solo"
	case RoleHost:
		return "host"
	case RoleClient:
		return "client"
	default:
		return "unknown"
	}
}

// Multiplayer reports whether the role exchanges scores with a peer.
func (r Role) Multiplayer() bool {
	return r == RoleHost || r == RoleClient
}

// Outcome is the result of a finished multiplayer race.
type Outcome int

const (
	// OutcomeTie means both players finished on the same WPM.
	OutcomeTie Outcome = iota
	// OutcomeWin means the local player finished ahead.
	OutcomeWin
	// OutcomeLose means the opponent finished ahead.
	OutcomeLose
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "You win!"
	case OutcomeLose:
		return "You lose"
	default:
		return "It's a tie"
	}
}

// Config defines race settings.
type Config struct {
	Lang         string
	WordListPath string
	Words        int
	TimeLimit    int
}

// NetConfig defines peer connection settings.
type NetConfig struct {
	Port           int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	SyncInterval   time.Duration
}

// LogConfig defines where and how verbosely to log.
type LogConfig struct {
	Level string
	File  string
}

// HostEntry is a previously joined host address.
type HostEntry struct {
	Address  string
	LastUsed time.Time
	Joins    int
}
