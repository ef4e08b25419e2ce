package sdjson

import (
	"errors"
	"fmt"
)

// Embedded response codes from the SD-JSON API. The service reports these in
// the JSON body, independently of the HTTP status line.
// Reference: https://github.com/SchedulesDirect/JSON-Service/wiki/API-20141201
const (
	codeOK             = 0
	codeInvalidJSON    = 1001
	codeTokenMissing   = 1004
	codeLineupNotFound = 2101
	codeUnknownLineup  = 2102
	codeInvalidLineup  = 2105
	codeLineupDeleted  = 2106
	codeServiceOffline = 3000
	codeAccountExpired = 4001
	codeInvalidHash    = 4002
	codeInvalidUser    = 4003
	codeAccountLockout = 4004
	codeAccountDisabled = 4005
	codeTokenExpired   = 4006
	codeInvalidProgram = 6000
)

var (
	// ErrAuth marks credential or account failures: bad username/hash, an
	// expired or disabled account, or a token that could not be refreshed.
	ErrAuth = errors.New("schedules direct authentication failed")

	// ErrLineupNotFound marks a lineup code the service does not know.
	// User-correctable: the configured lineup is wrong or was deleted.
	ErrLineupNotFound = errors.New("lineup not found")

	// ErrScheduleFetch and ErrProgramFetch mark whole-stage failures. Both
	// stages are all-or-nothing: a single failed chunk discards every
	// partial result, so a half-populated guide is never emitted.
	ErrScheduleFetch = errors.New("schedule fetch failed")
	ErrProgramFetch  = errors.New("program fetch failed")
)

// APIError is a service-reported application error, carrying the embedded
// code/message pair for diagnostics. Application errors are never retried.
type APIError struct {
	Code     int
	Message  string
	Endpoint string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sd api %s: code %d: %s", e.Endpoint, e.Code, e.Message)
}

// isAuthCode reports whether an embedded code means the account or
// credentials are bad (as opposed to a stale token, which is refreshable).
func isAuthCode(code int) bool {
	switch code {
	case codeAccountExpired, codeInvalidHash, codeInvalidUser,
		codeAccountLockout, codeAccountDisabled:
		return true
	}
	return false
}

// isTokenCode reports whether an embedded code means the session token is
// stale or missing and a transparent re-auth should be attempted.
func isTokenCode(code int) bool {
	return code == codeTokenExpired || code == codeTokenMissing
}

// isLineupCode reports whether an embedded code means the requested lineup
// is unknown to the service.
func isLineupCode(code int) bool {
	switch code {
	case codeLineupNotFound, codeUnknownLineup, codeInvalidLineup, codeLineupDeleted:
		return true
	}
	return false
}

// classify wraps an APIError with the matching sentinel so callers can use
// errors.Is without inspecting raw codes.
func classify(e *APIError) error {
	switch {
	case isAuthCode(e.Code):
		return fmt.Errorf("%w: %w", ErrAuth, e)
	case isLineupCode(e.Code):
		return fmt.Errorf("%w: %w", ErrLineupNotFound, e)
	default:
		return e
	}
}
