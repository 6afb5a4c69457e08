// Package source contains the clients for the two remote record sources
// and the shared failure taxonomy.
package source

import (
	"errors"
	"fmt"

	"github.com/bluefin-ops/healthdeck/internal/models"
)

// UnavailableError reports a transport, auth, or HTTP-status failure
// reaching a remote source. Retrying the user action later may succeed.
type UnavailableError struct {
	Source models.SourceKind
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// MalformedError reports a reachable source whose response shape is
// unusable. This indicates a configuration or query-definition bug, not
// a transient outage.
type MalformedError struct {
	Source models.SourceKind
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("source %s returned a malformed response: %s", e.Source, e.Reason)
}

// IsUnavailable reports whether err is an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// IsMalformed reports whether err is a MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}
