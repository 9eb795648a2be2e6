package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func newVenueRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestVenueRepositoryList(t *testing.T) {
	db, mock, cleanup := newVenueRepoMock(t)
	defer cleanup()
	repo := NewVenueRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "capacity", "created_at", "updated_at"}).
		AddRow("LAB1", "Networking Lab", 30, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, capacity, created_at, updated_at FROM venues WHERE 1=1 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM venues WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.VenueFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newVenueRepoMock(t)
	defer cleanup()
	repo := NewVenueRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "capacity", "created_at", "updated_at"}).
		AddRow("LAB1", "Networking Lab", 30, time.Now(), time.Now()).
		AddRow("LAB2", "Physics Lab", 25, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, capacity, created_at, updated_at FROM venues ORDER BY name ASC")).
		WillReturnRows(rows)

	venues, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, venues, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newVenueRepoMock(t)
	defer cleanup()
	repo := NewVenueRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO venues")).WillReturnResult(sqlmock.NewResult(1, 1))

	venue := &models.Venue{Name: "Chemistry Lab", Capacity: 20}
	err := repo.Create(context.Background(), venue)
	require.NoError(t, err)
	assert.NotEmpty(t, venue.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
