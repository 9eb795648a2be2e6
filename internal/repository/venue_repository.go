package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// VenueRepository handles persistence for the venue catalogue.
type VenueRepository struct {
	db *sqlx.DB
}

// NewVenueRepository creates a new repository instance.
func NewVenueRepository(db *sqlx.DB) *VenueRepository {
	return &VenueRepository{db: db}
}

// List returns venues matching filters with pagination metadata.
func (r *VenueRepository) List(ctx context.Context, filter models.VenueFilter) ([]models.Venue, int, error) {
	base := "FROM venues WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "name"
	}
	allowedSorts := map[string]bool{"name": true, "created_at": true, "updated_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, capacity, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var venues []models.Venue
	if err := r.db.SelectContext(ctx, &venues, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list venues: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count venues: %w", err)
	}

	return venues, total, nil
}

// FindByID returns a venue by id.
func (r *VenueRepository) FindByID(ctx context.Context, id string) (*models.Venue, error) {
	const query = `SELECT id, name, capacity, created_at, updated_at FROM venues WHERE id = $1`
	var venue models.Venue
	if err := r.db.GetContext(ctx, &venue, query, id); err != nil {
		return nil, err
	}
	return &venue, nil
}

// ListAll returns the full venue catalogue in name order, for the scheduler
// to search through on every practical placement attempt.
func (r *VenueRepository) ListAll(ctx context.Context) ([]models.Venue, error) {
	const query = `SELECT id, name, capacity, created_at, updated_at FROM venues ORDER BY name ASC`
	var venues []models.Venue
	if err := r.db.SelectContext(ctx, &venues, query); err != nil {
		return nil, fmt.Errorf("list all venues: %w", err)
	}
	return venues, nil
}

// ExistsByName checks uniqueness of venue name.
func (r *VenueRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM venues WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check venue name: %w", err)
	}
	return true, nil
}

// Create persists a new venue.
func (r *VenueRepository) Create(ctx context.Context, venue *models.Venue) error {
	if venue.ID == "" {
		venue.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if venue.CreatedAt.IsZero() {
		venue.CreatedAt = now
	}
	venue.UpdatedAt = now

	const query = `INSERT INTO venues (id, name, capacity, created_at, updated_at) VALUES (:id, :name, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, venue); err != nil {
		return fmt.Errorf("create venue: %w", err)
	}
	return nil
}

// Update modifies a venue.
func (r *VenueRepository) Update(ctx context.Context, venue *models.Venue) error {
	venue.UpdatedAt = time.Now().UTC()
	const query = `UPDATE venues SET name = :name, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, venue); err != nil {
		return fmt.Errorf("update venue: %w", err)
	}
	return nil
}

// Delete removes a venue record.
func (r *VenueRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM venues WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete venue: %w", err)
	}
	return nil
}
