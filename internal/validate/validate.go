// Package validate provides pure value validators for operator-supplied
// launch-profile fields.
//
// Each validator checks a raw value against its enumerated domain and
// returns the normalized form. Validators carry no instance context; callers
// wrap failures with the source server (and device, where relevant) they
// were validating for.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/protera/launchsync/internal/errors"
)

// Normalized enum values. These match the DRS API sentinels.
const (
	LaunchStateStarted = "STARTED"
	LaunchStateStopped = "STOPPED"

	RightsizingNone  = "NONE"
	RightsizingBasic = "BASIC"
	RightsizingInAWS = "IN_AWS"
)

// FieldError reports a value outside its declared domain.
type FieldError struct {
	errors.BaseError
	// Field is the desired-state field being validated.
	Field string
	// Value is the offending raw token.
	Value string
	// Allowed lists the accepted tokens, when the domain is enumerable.
	Allowed []string
}

func newFieldError(field, value string, allowed ...string) *FieldError {
	e := &FieldError{Field: field, Value: value, Allowed: allowed}
	e.BaseError = *errors.Newf(errors.CategoryValidation,
		"invalid %s value %q", field, value)
	return e
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.Allowed) > 0 {
		return fmt.Sprintf("invalid %s value %q, valid options: <%s>",
			e.Field, e.Value, strings.Join(e.Allowed, "|"))
	}
	return fmt.Sprintf("invalid %s value %q", e.Field, e.Value)
}

var _ errors.AppError = (*FieldError)(nil)

// LaunchState normalizes a launch-state token. Accepted case-insensitively:
// STARTED, STOPPED.
func LaunchState(raw string) (string, error) {
	switch v := strings.ToUpper(strings.TrimSpace(raw)); v {
	case LaunchStateStarted, LaunchStateStopped:
		return v, nil
	default:
		return "", newFieldError("launch state", raw, LaunchStateStarted, LaunchStateStopped)
	}
}

// CopyPrivateIP normalizes a copy-private-IP token. Accepted
// case-insensitively: TRUE, FALSE.
func CopyPrivateIP(raw string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	default:
		return false, newFieldError("copy private IP", raw, "TRUE", "FALSE")
	}
}

// RightsizingMode normalizes a rightsizing token. Accepted
// case-insensitively: NO, BASIC, IN_AWS. NO maps to the DRS sentinel NONE.
func RightsizingMode(raw string) (string, error) {
	switch v := strings.ToUpper(strings.TrimSpace(raw)); v {
	case "NO":
		return RightsizingNone, nil
	case RightsizingBasic, RightsizingInAWS:
		return v, nil
	default:
		return "", newFieldError("rightsizing", raw, "NO", RightsizingBasic, RightsizingInAWS)
	}
}

// NonNegativeInt parses a numeric field that must be a non-negative integer.
// The field name appears in the error so callers can add device context.
func NonNegativeInt(field, raw string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil || n < 0 {
		return 0, newFieldError(field, raw)
	}
	return int32(n), nil
}
