package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-timetable-api/internal/models"
)

// AcademicTermRepository handles persistence for academic terms and their sub-terms.
type AcademicTermRepository struct {
	db *sqlx.DB
}

// NewAcademicTermRepository instantiates an academic term repository.
func NewAcademicTermRepository(db *sqlx.DB) *AcademicTermRepository {
	return &AcademicTermRepository{db: db}
}

// CreateWithSubTerms persists a term and its three sub-terms atomically.
func (r *AcademicTermRepository) CreateWithSubTerms(ctx context.Context, term *models.AcademicTerm) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create term: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if term.CreatedAt.IsZero() {
		term.CreatedAt = now
	}
	term.UpdatedAt = now

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO academic_terms (id, academic_year_id, created_at, updated_at) VALUES (:id, :academic_year_id, :created_at, :updated_at)`, term); err != nil {
		return fmt.Errorf("create academic term: %w", err)
	}

	for i := range term.SubTerms {
		sub := &term.SubTerms[i]
		if sub.ID == "" {
			sub.ID = uuid.NewString()
		}
		sub.AcademicTermID = term.ID
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO sub_terms (id, academic_term_id, name, start_date, end_date, is_current) VALUES (:id, :academic_term_id, :name, :start_date, :end_date, :is_current)`, sub); err != nil {
			return fmt.Errorf("create sub term %s: %w", sub.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create term: %w", err)
	}
	return nil
}

// ListByYear returns all terms of a year with sub-terms attached.
func (r *AcademicTermRepository) ListByYear(ctx context.Context, yearID string) ([]models.AcademicTerm, error) {
	const query = `SELECT id, academic_year_id, created_at, updated_at FROM academic_terms WHERE academic_year_id = $1 ORDER BY created_at ASC`
	var terms []models.AcademicTerm
	if err := r.db.SelectContext(ctx, &terms, query, yearID); err != nil {
		return nil, fmt.Errorf("list academic terms: %w", err)
	}

	for i := range terms {
		subs, err := r.listSubTerms(ctx, terms[i].ID)
		if err != nil {
			return nil, err
		}
		terms[i].SubTerms = subs
	}
	return terms, nil
}

func (r *AcademicTermRepository) listSubTerms(ctx context.Context, termID string) ([]models.SubTerm, error) {
	const query = `SELECT id, academic_term_id, name, start_date, end_date, is_current FROM sub_terms WHERE academic_term_id = $1 ORDER BY start_date ASC`
	var subs []models.SubTerm
	if err := r.db.SelectContext(ctx, &subs, query, termID); err != nil {
		return nil, fmt.Errorf("list sub terms: %w", err)
	}
	return subs, nil
}

// SetSubTermCurrent persists the current flag on a single sub-term.
func (r *AcademicTermRepository) SetSubTermCurrent(ctx context.Context, subTermID string, current bool) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE sub_terms SET is_current = $1 WHERE id = $2`, current, subTermID); err != nil {
		return fmt.Errorf("set sub term current: %w", err)
	}
	return nil
}
