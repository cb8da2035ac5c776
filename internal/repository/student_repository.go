package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-timetable-api/internal/models"
)

// StudentRepository reads student placements and writes the derived attendance rate.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository instantiates a student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = "id, full_name, class_level_id, subclass_letter, attendance_rate, created_at, updated_at"

// FindByID loads a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListIDsBySubclass returns the ids of students placed in the given subclass.
func (r *StudentRepository) ListIDsBySubclass(ctx context.Context, classLevelID, subclassLetter string) ([]string, error) {
	const query = `SELECT id FROM students WHERE class_level_id = $1 AND subclass_letter = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, classLevelID, subclassLetter); err != nil {
		return nil, fmt.Errorf("list students by subclass: %w", err)
	}
	return ids, nil
}

// UpdateAttendanceRate writes the derived rate back onto the student record.
func (r *StudentRepository) UpdateAttendanceRate(ctx context.Context, id string, rate float64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE students SET attendance_rate = $1, updated_at = $2 WHERE id = $3`, rate, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update attendance rate: %w", err)
	}
	return nil
}
