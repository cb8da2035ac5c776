package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-timetable-api/internal/models"
)

// ClassLevelRepository reads class levels and their subclasses.
type ClassLevelRepository struct {
	db *sqlx.DB
}

// NewClassLevelRepository instantiates a class level repository.
func NewClassLevelRepository(db *sqlx.DB) *ClassLevelRepository {
	return &ClassLevelRepository{db: db}
}

// FindByID loads a class level with its subclasses.
func (r *ClassLevelRepository) FindByID(ctx context.Context, id string) (*models.ClassLevel, error) {
	const query = `SELECT id, section, name, created_at, updated_at FROM class_levels WHERE id = $1`
	var level models.ClassLevel
	if err := r.db.GetContext(ctx, &level, query, id); err != nil {
		return nil, err
	}

	const subQuery = `SELECT id, class_level_id, letter FROM subclasses WHERE class_level_id = $1 ORDER BY letter ASC`
	if err := r.db.SelectContext(ctx, &level.Subclasses, subQuery, id); err != nil {
		return nil, fmt.Errorf("list subclasses: %w", err)
	}
	return &level, nil
}

// List returns all class levels ordered by section and name.
func (r *ClassLevelRepository) List(ctx context.Context) ([]models.ClassLevel, error) {
	const query = `SELECT id, section, name, created_at, updated_at FROM class_levels ORDER BY section ASC, name ASC`
	var levels []models.ClassLevel
	if err := r.db.SelectContext(ctx, &levels, query); err != nil {
		return nil, fmt.Errorf("list class levels: %w", err)
	}
	return levels, nil
}
