package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oakes/tender-pipeline/internal/models"
)

type fakeStore struct {
	deal       models.Deal
	audits     []models.AuditEntry
	failCommit error
	commits    int
}

func (f *fakeStore) GetDeal(_ context.Context, id uuid.UUID) (models.Deal, error) {
	if id != f.deal.ID {
		return models.Deal{}, errors.New("not found")
	}
	return f.deal, nil
}

func (f *fakeStore) ListAudit(_ context.Context, _ uuid.UUID) ([]models.AuditEntry, error) {
	return f.audits, nil
}

func (f *fakeStore) CommitTransition(_ context.Context, deal models.Deal, snapshot time.Time, entry models.AuditEntry) (models.Deal, error) {
	if f.failCommit != nil {
		return models.Deal{}, f.failCommit
	}
	if !snapshot.Equal(f.deal.UpdatedAt) {
		return models.Deal{}, errors.New("conflict")
	}
	f.deal = deal
	f.audits = append(f.audits, entry)
	f.commits++
	return deal, nil
}

func TestService_CommitsDealAndAuditTogether(t *testing.T) {
	store := &fakeStore{deal: dealAt(models.StageReceived)}
	svc := NewService(store)

	out, err := svc.RequestTransition(context.Background(), store.deal.ID, models.StageQualified, completeQualification())
	if err != nil {
		t.Fatal(err)
	}
	if store.commits != 1 {
		t.Fatalf("expected exactly one commit, got %d", store.commits)
	}
	if store.deal.Stage != models.StageQualified {
		t.Fatalf("expected stored deal qualified, got %s", store.deal.Stage)
	}
	if len(store.audits) != 1 || store.audits[0].ID != out.Audit.ID {
		t.Fatalf("expected the audit entry persisted with the deal")
	}
}

func TestService_CommitFailureLeavesNoAudit(t *testing.T) {
	store := &fakeStore{
		deal:       dealAt(models.StageReceived),
		failCommit: errors.New("connection reset"),
	}
	svc := NewService(store)

	_, err := svc.RequestTransition(context.Background(), store.deal.ID, models.StageQualified, completeQualification())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if len(store.audits) != 0 {
		t.Fatal("failed commit must leave no audit entry behind")
	}
	if store.deal.Stage != models.StageReceived {
		t.Fatalf("failed commit must leave the deal untouched, got %s", store.deal.Stage)
	}
}

func TestService_IllegalTransitionNeverHitsTheStore(t *testing.T) {
	store := &fakeStore{deal: dealAt(models.StageNoTender)}
	svc := NewService(store)

	_, err := svc.RequestTransition(context.Background(), store.deal.ID, models.StageQualified, completeQualification())
	var illegal *IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected IllegalTransitionError, got %v", err)
	}
	if store.commits != 0 {
		t.Fatal("rejected transitions must not write anything")
	}
}

func TestService_QuoteVersionCountsStoredHistory(t *testing.T) {
	deal := dealAt(models.StageInReview)
	store := &fakeStore{
		deal: deal,
		audits: []models.AuditEntry{
			{DealID: deal.ID, Action: "Quote v1"},
		},
	}
	svc := NewService(store)

	out, err := svc.RequestTransition(context.Background(), deal.ID, models.StageQuoteSubmitted, completeQuote())
	if err != nil {
		t.Fatal(err)
	}
	if out.Audit.Action != "Quote v2" {
		t.Fatalf("expected Quote v2, got %q", out.Audit.Action)
	}
}
