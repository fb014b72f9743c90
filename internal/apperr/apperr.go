package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput covers malformed caller arguments: missing source
	// text, unsupported artifact kinds, empty index lists and the like.
	// Jobs are never mutated when a call fails with this sentinel.
	ErrInvalidInput = errors.New("invalid input")
)

// PreconditionError is returned when a stage is invoked against a job that
// is not in the status the stage expects. The job is left untouched; the
// caller should re-read the job and re-sync its view. A stale in-flight
// invocation racing a rollback fails with this error instead of writing.
type PreconditionError struct {
	JobID    uuid.UUID
	Expected []string
	Actual   string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("job %s: expected status %v, got %q", e.JobID, e.Expected, e.Actual)
}

// IsPrecondition reports whether err is a stage precondition failure.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// MalformedOutputError is returned when a generative call succeeded at the
// transport level but its output could not be parsed as the structured data
// the prompt asked for. Kept distinct from transport failures so operators
// can tell a bad-output failure from a transient one.
type MalformedOutputError struct {
	Detail string
	Err    error
}

func (e *MalformedOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed model output: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("malformed model output: %s", e.Detail)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// IsMalformedOutput reports whether err is a parse failure of model output.
func IsMalformedOutput(err error) bool {
	var me *MalformedOutputError
	return errors.As(err, &me)
}
