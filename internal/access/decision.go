// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package access

import (
	"errors"
	"fmt"
)

// # Decisions

// Decision is the result of the authorization predicate.
//
// The zero value is [Unauthenticated], so an unset decision denies.
type Decision int

const (
	Unauthenticated Decision = iota
	Allowed
	Unauthorized
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unauthenticated"
	}
}

/*
Resolve is the single authorization predicate shared by every adapter.

Description: Any verification error, including a timeout or a malformed
body, resolves to [Unauthenticated]. A verified identity whose role is not
in the allow-set resolves to [Unauthorized].

Parameters:
  - identity: *Identity (nil when verification did not succeed)
  - verifyErr: error
  - roles: RoleSet

Returns:
  - Decision
*/
func Resolve(identity *Identity, verifyErr error, roles RoleSet) Decision {
	if verifyErr != nil || identity == nil {
		return Unauthenticated
	}
	if !roles.Allows(identity.RoleID()) {
		return Unauthorized
	}
	return Allowed
}

// # Navigation State Machine

// State is the lifecycle position of one navigation attempt.
type State int

const (
	StateUnchecked State = iota
	StateChecking
	StateAllowed
	StateRedirectedUnauth
	StateRedirectedForbidden
)

var stateNames = [...]string{
	StateUnchecked:           "unchecked",
	StateChecking:            "checking",
	StateAllowed:             "allowed",
	StateRedirectedUnauth:    "redirected-unauth",
	StateRedirectedForbidden: "redirected-forbidden",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether the state ends the navigation.
func (s State) Terminal() bool {
	return s == StateAllowed || s == StateRedirectedUnauth || s == StateRedirectedForbidden
}

// ErrIllegalTransition is returned when a navigation is moved along an edge
// that does not exist.
var ErrIllegalTransition = errors.New("access: illegal navigation transition")

var transitions = map[State][]State{
	StateUnchecked: {StateChecking, StateAllowed, StateRedirectedUnauth},
	StateChecking:  {StateAllowed, StateRedirectedUnauth, StateRedirectedForbidden},
}

// Navigation tracks a single navigation attempt.
//
// A navigation is owned by one request and never re-enters a state. A fresh
// navigation always starts at [StateUnchecked].
type Navigation struct {
	state State
}

// NewNavigation starts a navigation in [StateUnchecked].
func NewNavigation() *Navigation {
	return &Navigation{state: StateUnchecked}
}

// State returns the current state.
func (navigation *Navigation) State() State {
	return navigation.state
}

// Transition moves the navigation to the next state.
func (navigation *Navigation) Transition(next State) error {
	for _, allowed := range transitions[navigation.state] {
		if allowed == next {
			navigation.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, navigation.state, next)
}

// settle maps a decision onto its terminal state.
func settle(decision Decision) State {
	switch decision {
	case Allowed:
		return StateAllowed
	case Unauthorized:
		return StateRedirectedForbidden
	default:
		return StateRedirectedUnauth
	}
}
