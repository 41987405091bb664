package reconcile

import (
	"fmt"

	"github.com/protera/launchsync/internal/errors"
)

// LookupError reports a missing entity during patch construction: a volume
// patch naming a device the launch template does not map, a server with no
// desired-state record, or an unavailable actual-state snapshot.
type LookupError struct {
	errors.BaseError
	SourceServerID string
	// Device is set when a volume patch referenced an unknown device name.
	Device string
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("server %s: device %q not present in launch template block device mappings",
			e.SourceServerID, e.Device)
	}
	return fmt.Sprintf("server %s: %s", e.SourceServerID, e.BaseError.Error())
}

var _ errors.AppError = (*LookupError)(nil)

func newDeviceLookupError(serverID, device string) *LookupError {
	e := &LookupError{SourceServerID: serverID, Device: device}
	e.BaseError = *errors.Newf(errors.CategoryLookup, "unknown device %q", device)
	return e
}

func newMissingRecordError(serverID string) *LookupError {
	e := &LookupError{SourceServerID: serverID}
	e.BaseError = *errors.New(errors.CategoryLookup, "no desired-state record")
	return e
}

func newMissingSnapshotError(serverID string) *LookupError {
	e := &LookupError{SourceServerID: serverID}
	e.BaseError = *errors.New(errors.CategoryLookup, "no actual state available")
	return e
}

// validationError scopes a field validation failure to one server. The
// underlying validate error names the field and token.
func validationError(serverID string, cause error) error {
	return errors.Wrapf(cause, errors.CategoryValidation, "server %s", serverID)
}
