package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oakes/tender-pipeline/internal/models"
)

// Store is the slice of the record store the transition service needs. The
// deal update and audit insert behind CommitTransition are one logical write:
// a deal must never advance stage without its audit record.
type Store interface {
	GetDeal(ctx context.Context, id uuid.UUID) (models.Deal, error)
	ListAudit(ctx context.Context, dealID uuid.UUID) ([]models.AuditEntry, error)
	// CommitTransition persists the deal and its audit entry atomically.
	// snapshot is the updated_at the caller read; a mismatch means a
	// concurrent edit and nothing is written.
	CommitTransition(ctx context.Context, deal models.Deal, snapshot time.Time, entry models.AuditEntry) (models.Deal, error)
}

// Service drives gated stage transitions against a store with optimistic
// concurrency: read a snapshot, run the pure engine, attempt the atomic
// write, and surface any write failure as retryable with no side effects.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// RequestTransition moves a deal to the target stage. Validation and
// state-machine errors come back typed and unchanged; store failures are
// wrapped in ErrPersistence so callers know the deal was left untouched and
// the request can be retried.
func (s *Service) RequestTransition(ctx context.Context, dealID uuid.UUID, target models.Stage, answers GateAnswers) (TransitionOutcome, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return TransitionOutcome{}, fmt.Errorf("%w: load deal: %v", ErrPersistence, err)
	}

	history, err := s.store.ListAudit(ctx, dealID)
	if err != nil {
		return TransitionOutcome{}, fmt.Errorf("%w: load audit trail: %v", ErrPersistence, err)
	}

	outcome, err := Transition(deal, target, answers, history, s.now().UTC())
	if err != nil {
		return TransitionOutcome{}, err
	}

	committed, err := s.store.CommitTransition(ctx, outcome.Deal, deal.UpdatedAt, outcome.Audit)
	if err != nil {
		return TransitionOutcome{}, fmt.Errorf("%w: commit transition: %v", ErrPersistence, err)
	}
	outcome.Deal = committed

	return outcome, nil
}
