package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-timetable-api/internal/models"
)

// SubjectRepository reads subjects and the subject/teacher assignment registry.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository instantiates a subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID loads a subject by identifier.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, name, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListAssignments returns the registry rows for a subject within one class
// level/subclass. Empty means the subject is not taught there.
func (r *SubjectRepository) ListAssignments(ctx context.Context, subjectID, classLevelID, subclassLetter string) ([]models.SubjectAssignment, error) {
	const query = `SELECT id, subject_id, class_level_id, subclass_letter, teacher_id FROM subject_assignments WHERE subject_id = $1 AND class_level_id = $2 AND subclass_letter = $3`
	var assignments []models.SubjectAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, subjectID, classLevelID, subclassLetter); err != nil {
		return nil, fmt.Errorf("list subject assignments: %w", err)
	}
	return assignments, nil
}

// TeacherHasAssignments reports whether the teacher appears anywhere in the registry.
func (r *SubjectRepository) TeacherHasAssignments(ctx context.Context, teacherID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subject_assignments WHERE teacher_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, teacherID); err != nil {
		return false, fmt.Errorf("check teacher assignments: %w", err)
	}
	return exists, nil
}
