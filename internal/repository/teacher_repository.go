package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// TeacherRepository resolves teacher IDs to display names for the export
// renderers. Roster assignment itself flows through ClassSubjectRepository's
// join against the same teachers table; this repository exists purely as a
// read-side directory lookup for timetable sheets that only carry a raw
// TeacherID on each slot.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByID fetches a teacher's display name by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, full_name FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ListByIDs resolves a batch of teacher IDs to display names in one round
// trip, keyed by ID. IDs with no matching row are simply absent from the
// result so callers can fall back to the raw ID.
func (r *TeacherRepository) ListByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query, args, err := sqlx.In(`SELECT id, full_name FROM teachers WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build teacher directory query: %w", err)
	}
	query = r.db.Rebind(query)

	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, fmt.Errorf("list teacher directory: %w", err)
	}
	for _, t := range teachers {
		names[t.ID] = t.FullName
	}
	return names, nil
}
