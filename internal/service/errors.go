// Package service holds the workflows that touch the store: registration,
// voting, tallying, moderation and issue reports
package service

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrEmailTaken     = errors.New("email is already registered")
	ErrCarnetApproved = errors.New("carnet number is already verified on another account")
	ErrCarnetPending  = errors.New("carnet number is already waiting for verification on another account")
	ErrPhotoDuplicate = errors.New("this photo was already submitted")
	ErrDuplicate      = errors.New("duplicate registration")

	ErrBadCredentials  = errors.New("invalid email or password")
	ErrAlreadyApproved = errors.New("carnet is already verified")

	ErrNotVerified      = errors.New("account is not verified")
	ErrAlreadyVoted     = errors.New("already voted")
	ErrBallotIncomplete = errors.New("a candidate must be selected for every position")
	ErrUnknownCandidate = errors.New("unknown candidate")
	ErrUnknownPosition  = errors.New("unknown position")
)

// IsConflict reports whether err is one of the duplicate registration errors
func IsConflict(err error) bool {
	return errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrCarnetApproved) ||
		errors.Is(err, ErrCarnetPending) ||
		errors.Is(err, ErrPhotoDuplicate) ||
		errors.Is(err, ErrDuplicate)
}
