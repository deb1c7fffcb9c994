package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/oakes/tender-pipeline/internal/models"
)

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the deal changed underneath the caller's snapshot.
	// Nothing was written; re-read and retry.
	ErrConflict = errors.New("deal was modified concurrently")
)

// notesPolicy strips unsafe markup from free-text fields before persisting.
// Notes often arrive pasted from rich-text editors.
var notesPolicy = bluemonday.UGCPolicy()

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// dealCols is the column list shared by every deal query. Numeric columns are
// read as text so money survives the round trip without float conversion.
const dealCols = `id, ap_number, company_id, salesperson, stage, probability,
	tender_value::text, tender_cost::text, tender_margin::text, tender_margin_pct::text,
	enquiry_date, tender_return_date, estimated_start_date, notes, created_at, updated_at`

func scanDeal(scan func(dest ...any) error) (models.Deal, error) {
	var d models.Deal
	var stage string
	var probability, value, cost, margin, marginPct *string

	err := scan(
		&d.ID, &d.APNumber, &d.CompanyID, &d.Salesperson, &stage, &probability,
		&value, &cost, &margin, &marginPct,
		&d.EnquiryDate, &d.TenderReturnDate, &d.EstimatedStartDate,
		&d.Notes, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return d, err
	}

	d.Stage = models.Stage(stage)
	if probability != nil {
		d.Probability = models.Probability(*probability)
	}
	if d.TenderValue, err = parseNumeric(value); err != nil {
		return d, err
	}
	if d.TenderCost, err = parseNumeric(cost); err != nil {
		return d, err
	}
	if d.TenderMargin, err = parseNumeric(margin); err != nil {
		return d, err
	}
	if d.TenderMarginPct, err = parseNumeric(marginPct); err != nil {
		return d, err
	}

	return d, nil
}

func parseNumeric(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	dec, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("bad numeric column value %q: %w", *s, err)
	}
	return &dec, nil
}

func numericParam(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func textOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DealFilter narrows ListDeals. Zero values mean "no constraint"; a zero
// Limit returns everything, since reports need the full set.
type DealFilter struct {
	Stage       models.Stage
	Salesperson string
	CompanyID   *uuid.UUID
	APNumber    *int
	EnquiryFrom *time.Time
	EnquiryTo   *time.Time
	Limit       int
	Offset      int
}

// buildDealFilter renders the WHERE clause and args for a DealFilter.
func buildDealFilter(f DealFilter) (string, []any) {
	where := "WHERE 1=1"
	var args []any
	argIdx := 1

	if f.Stage != "" {
		where += fmt.Sprintf(" AND stage = $%d", argIdx)
		args = append(args, string(f.Stage))
		argIdx++
	}
	if f.Salesperson != "" {
		where += fmt.Sprintf(" AND salesperson = $%d", argIdx)
		args = append(args, f.Salesperson)
		argIdx++
	}
	if f.CompanyID != nil {
		where += fmt.Sprintf(" AND company_id = $%d", argIdx)
		args = append(args, *f.CompanyID)
		argIdx++
	}
	if f.APNumber != nil {
		where += fmt.Sprintf(" AND ap_number = $%d", argIdx)
		args = append(args, *f.APNumber)
		argIdx++
	}
	if f.EnquiryFrom != nil {
		where += fmt.Sprintf(" AND enquiry_date >= $%d", argIdx)
		args = append(args, *f.EnquiryFrom)
		argIdx++
	}
	if f.EnquiryTo != nil {
		where += fmt.Sprintf(" AND enquiry_date <= $%d", argIdx)
		args = append(args, *f.EnquiryTo)
		argIdx++
	}

	return where, args
}

func (s *Store) ListDeals(ctx context.Context, filter DealFilter) ([]models.Deal, error) {
	where, args := buildDealFilter(filter)

	query := fmt.Sprintf(`SELECT %s FROM deals %s ORDER BY enquiry_date DESC NULLS LAST, created_at DESC`, dealCols, where)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		d, err := scanDeal(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (s *Store) GetDeal(ctx context.Context, id uuid.UUID) (models.Deal, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM deals WHERE id = $1", dealCols), id)
	d, err := scanDeal(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return d, ErrNotFound
	}
	return d, err
}

// CreateDeal inserts a new deal. Stage defaults to received; IDs missing from
// the input are generated here so callers can supply their own for imports.
func (s *Store) CreateDeal(ctx context.Context, deal models.Deal) (models.Deal, error) {
	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	if deal.Stage == "" {
		deal.Stage = models.StageReceived
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO deals (id, ap_number, company_id, salesperson, stage, probability,
			tender_value, tender_cost, tender_margin, tender_margin_pct,
			enquiry_date, tender_return_date, estimated_start_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11, $12, $13, $14)
		RETURNING %s`, dealCols),
		deal.ID, deal.APNumber, deal.CompanyID, deal.Salesperson,
		string(deal.Stage), textOrNil(string(deal.Probability)),
		numericParam(deal.TenderValue), numericParam(deal.TenderCost),
		numericParam(deal.TenderMargin), numericParam(deal.TenderMarginPct),
		deal.EnquiryDate, deal.TenderReturnDate, deal.EstimatedStartDate,
		notesPolicy.Sanitize(deal.Notes),
	)

	created, err := scanDeal(row.Scan)
	if err != nil {
		return created, fmt.Errorf("insert deal: %w", err)
	}
	return created, nil
}

// DealPatch is a plain (ungated) field edit. Nil fields are left untouched;
// stage and financials can only change through a transition.
type DealPatch struct {
	APNumber    *int
	CompanyID   *uuid.UUID
	Salesperson *string
	Probability *models.Probability // set to empty to clear
	EnquiryDate *time.Time
	Notes       *string
}

// UpdateDealFields applies a patch with optimistic concurrency: snapshot is
// the updated_at the caller last read, and a mismatch writes nothing.
func (s *Store) UpdateDealFields(ctx context.Context, id uuid.UUID, patch DealPatch, snapshot time.Time) (models.Deal, error) {
	var sets []string
	var args []any
	argIdx := 1

	add := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, v)
		argIdx++
	}

	if patch.APNumber != nil {
		add("ap_number", *patch.APNumber)
	}
	if patch.CompanyID != nil {
		add("company_id", *patch.CompanyID)
	}
	if patch.Salesperson != nil {
		add("salesperson", *patch.Salesperson)
	}
	if patch.Probability != nil {
		add("probability", textOrNil(string(*patch.Probability)))
	}
	if patch.EnquiryDate != nil {
		add("enquiry_date", *patch.EnquiryDate)
	}
	if patch.Notes != nil {
		add("notes", notesPolicy.Sanitize(*patch.Notes))
	}
	if len(sets) == 0 {
		return s.GetDeal(ctx, id)
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE deals SET %s WHERE id = $%d AND updated_at = $%d RETURNING %s`,
		strings.Join(sets, ", "), argIdx, argIdx+1, dealCols)
	args = append(args, id, snapshot)

	row := s.pool.QueryRow(ctx, query, args...)
	updated, err := scanDeal(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return updated, s.missOrConflict(ctx, id)
	}
	if err != nil {
		return updated, fmt.Errorf("update deal: %w", err)
	}
	return updated, nil
}

// CommitTransition persists a stage change and its audit entry in one
// transaction. Either both land or neither does: a deal must never advance
// stage without the matching audit record.
func (s *Store) CommitTransition(ctx context.Context, deal models.Deal, snapshot time.Time, entry models.AuditEntry) (models.Deal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Deal{}, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE deals SET
			stage = $1,
			probability = $2,
			tender_value = $3::numeric,
			tender_cost = $4::numeric,
			tender_margin = $5::numeric,
			tender_margin_pct = $6::numeric,
			tender_return_date = $7,
			estimated_start_date = $8,
			updated_at = NOW()
		WHERE id = $9 AND updated_at = $10
		RETURNING %s`, dealCols),
		string(deal.Stage), textOrNil(string(deal.Probability)),
		numericParam(deal.TenderValue), numericParam(deal.TenderCost),
		numericParam(deal.TenderMargin), numericParam(deal.TenderMarginPct),
		deal.TenderReturnDate, deal.EstimatedStartDate,
		deal.ID, snapshot,
	)

	updated, err := scanDeal(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return updated, s.missOrConflict(ctx, deal.ID)
	}
	if err != nil {
		return updated, fmt.Errorf("update deal stage: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO audit_entries (id, deal_id, action, notes, file_link, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.DealID, entry.Action, notesPolicy.Sanitize(entry.Notes),
		textOrNil(entry.FileLink), entry.CreatedAt,
	); err != nil {
		return models.Deal{}, fmt.Errorf("insert audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Deal{}, fmt.Errorf("commit transition: %w", err)
	}
	return updated, nil
}

// missOrConflict classifies an optimistic update that matched no row.
func (s *Store) missOrConflict(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM deals WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("check deal existence: %w", err)
	}
	if exists {
		return ErrConflict
	}
	return ErrNotFound
}

// AppendAudit writes a standalone audit entry, e.g. a free-text note added
// outside any stage transition.
func (s *Store) AppendAudit(ctx context.Context, entry models.AuditEntry) (models.AuditEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.Notes = notesPolicy.Sanitize(entry.Notes)

	err := s.pool.QueryRow(ctx, `
		INSERT INTO audit_entries (id, deal_id, action, notes, file_link)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		entry.ID, entry.DealID, entry.Action, entry.Notes, textOrNil(entry.FileLink),
	).Scan(&entry.CreatedAt)
	if err != nil {
		return entry, fmt.Errorf("insert audit entry: %w", err)
	}
	return entry, nil
}

func (s *Store) ListAudit(ctx context.Context, dealID uuid.UUID) ([]models.AuditEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, deal_id, action, notes, file_link, created_at
		FROM audit_entries WHERE deal_id = $1 ORDER BY created_at ASC, id ASC`, dealID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var fileLink *string
		if err := rows.Scan(&e.ID, &e.DealID, &e.Action, &e.Notes, &fileLink, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if fileLink != nil {
			e.FileLink = *fileLink
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) ListCompanies(ctx context.Context) ([]models.Company, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, town, created_at FROM companies ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Town, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *Store) CreateCompany(ctx context.Context, name, town string) (models.Company, error) {
	c := models.Company{ID: uuid.New(), Name: name, Town: town}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO companies (id, name, town) VALUES ($1, $2, $3)
		RETURNING created_at`, c.ID, c.Name, c.Town,
	).Scan(&c.CreatedAt)
	if err != nil {
		return c, fmt.Errorf("insert company: %w", err)
	}
	return c, nil
}
