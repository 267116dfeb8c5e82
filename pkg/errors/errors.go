package errors

import (
	"errors"
)

// Representation of errors surfaced to the invoking pipeline. These
// are divided into a small number of categories, essentially
// distinguished by what the caller can do about them; i.e., is this
// error:
//  - a transient problem with a remote, so worth re-running the promotion?
//  - a conflict with a concurrent write, so worth re-fetching first?
//  - not going to work until the configuration is fixed?
//  - a half-completed review-gated promotion needing manual remediation?
type Error struct {
	Type Type
	// a message that can be printed out for the operator
	Help string `json:"help"`
	// the underlying error that can be e.g., logged for developers to look at
	Err error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Type string

const (
	// The operation looked fine on paper, but something went wrong
	// talking to a remote; trying the whole run again is safe.
	Server Type = "server"
	// The configuration given cannot be acted on (unknown environment
	// strategy, missing credentials); nothing was mutated.
	Config = "config"
	// The remote advanced past our baseline while we were working;
	// the caller should re-fetch and re-run rather than re-push.
	Conflict = "conflict"
	// A review-gated promotion completed some, but not all, of its
	// externally visible steps. The Help text names what exists so a
	// human can remediate; retrying blindly is not safe.
	Partial = "partial"
)

func IsConflict(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == Conflict
	}
	return false
}

func IsConfig(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == Config
	}
	return false
}

func IsPartial(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == Partial
	}
	return false
}
