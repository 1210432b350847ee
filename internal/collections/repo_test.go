package collections

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepo(db), mock
}

func TestRepo_ByID(t *testing.T) {
	repo, mock := setupRepo(t)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(`select id, foreign_id, label`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "foreign_id", "label", "created_at", "updated_at"}).
				AddRow(int64(7), "leaks", "Leaks", now, now))

		c, err := repo.ByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "leaks", c.ForeignID)
		assert.True(t, c.Namespace().Verify(c.Namespace().Sign("x")))
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery(`select id, foreign_id, label`).
			WithArgs(int64(8)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.ByID(ctx, 8)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Touch(t *testing.T) {
	repo, mock := setupRepo(t)
	ctx := context.Background()

	mock.ExpectExec(`update collections`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Touch(ctx, 7))

	mock.ExpectExec(`update collections`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Touch(ctx, 9), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Permission(t *testing.T) {
	repo, mock := setupRepo(t)
	ctx := context.Background()

	t.Run("write implies read", func(t *testing.T) {
		mock.ExpectQuery(`select read, write`).
			WithArgs("role-1", int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"read", "write"}).AddRow(false, true))

		p, err := repo.Permission(ctx, "role-1", 7)
		require.NoError(t, err)
		assert.Equal(t, Permission{Read: true, Write: true}, p)
	})

	t.Run("no grant", func(t *testing.T) {
		mock.ExpectQuery(`select read, write`).
			WithArgs("role-2", int64(7)).
			WillReturnError(sql.ErrNoRows)

		p, err := repo.Permission(ctx, "role-2", 7)
		require.NoError(t, err)
		assert.Equal(t, Permission{}, p)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_TouchedSince(t *testing.T) {
	repo, mock := setupRepo(t)
	since := time.Now().Add(-time.Minute)

	mock.ExpectQuery(`select id\s+from collections`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)).AddRow(int64(5)))

	ids, err := repo.TouchedSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Now(t *testing.T) {
	repo, mock := setupRepo(t)
	dbNow := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select now\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"now"}).AddRow(dbNow))

	got, err := repo.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dbNow, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
