package assessment

import "errors"

var (
	// ErrInvalidConfiguration rejects malformed session parameters. No
	// session is created.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidState rejects an operation the current state does not
	// permit. The session is left untouched.
	ErrInvalidState = errors.New("invalid state")

	// ErrEmptyAnswer rejects a blank answer. The outstanding item stays
	// outstanding.
	ErrEmptyAnswer = errors.New("empty answer")

	// ErrProviderUnavailable means the item provider could not supply an
	// item within the retry budget. The session is aborted.
	ErrProviderUnavailable = errors.New("item provider unavailable")

	// ErrDuplicateSkillCode means the provider returned an item whose skill
	// code was in the exclusion set.
	ErrDuplicateSkillCode = errors.New("duplicate skill code")

	// ErrPersistenceFailure wraps recorder errors. It never ends a session.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrSessionNotFound is returned by Manager for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
)
