package store

import (
	"errors"
	"strings"

	"github.com/dronreef2/3dPot2-sub000/core/validation"
)

// ErrJobActive is returned when an action requires the active slot to be
// free but a job is still pending or running.
var ErrJobActive = errors.New("a simulation is already active")

// ErrNoActiveJob is returned by actions that need an active job.
var ErrNoActiveJob = errors.New("no active simulation")

// ValidationError blocks a submission whose parameters failed local
// validation. The user can recover by editing the parameters.
type ValidationError struct {
	Outcome validation.Outcome
}

func (e *ValidationError) Error() string {
	return "invalid parameters: " + strings.Join(e.Outcome.Errors, "; ")
}

// AsValidationError unwraps err into a ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
