package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTeacherRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTeacherRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name"}).AddRow("t1", "Teacher A")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name FROM teachers WHERE id = $1")).
		WithArgs("t1").
		WillReturnRows(rows)

	teacher, err := repo.FindByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Teacher A", teacher.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListByIDsEmpty(t *testing.T) {
	db, _, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	names, err := repo.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestTeacherRepositoryListByIDs(t *testing.T) {
	db, mock, cleanup := newTeacherRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name"}).
		AddRow("t1", "Teacher A").
		AddRow("t2", "Teacher B")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name FROM teachers WHERE id IN (?, ?)")).
		WithArgs("t1", "t2").
		WillReturnRows(rows)

	names, err := repo.ListByIDs(context.Background(), []string{"t1", "t2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"t1": "Teacher A", "t2": "Teacher B"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}
