package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oakes/tender-pipeline/internal/models"
)

// ErrPersistence marks store failures surfaced by the service. The deal was
// not changed; callers may retry.
var ErrPersistence = errors.New("persistence failure")

// ValidationError reports a gate submitted with required answers missing or
// malformed. No state was changed.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "gate incomplete: " + strings.Join(e.Missing, ", ")
}

// IllegalTransitionError reports a stage move the state machine forbids.
// No state was changed.
type IllegalTransitionError struct {
	From   models.Stage
	To     models.Stage
	Reason string
}

func (e *IllegalTransitionError) Error() string {
	msg := fmt.Sprintf("illegal transition %s to %s", e.From.Label(), e.To.Label())
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
