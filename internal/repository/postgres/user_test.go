package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guardkit/internal/domain"
	"github.com/guardkit/guardkit/pkg/database"
	apperrors "github.com/guardkit/guardkit/pkg/errors"
)

func newUserRepo(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock := database.NewMockPool(t)
	return NewUserRepository(mock), mock
}

func sampleUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:           42,
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdHNhbHRzYWx0c2Fs$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// userRow builds a mock result row in the column order scanUser expects.
func userRow(u *domain.User) *pgxmock.Rows {
	cols := []string{"id", "email", "password_hash", "is_active", "created_at", "updated_at"}
	return pgxmock.NewRows(cols).AddRow(u.ID, u.Email, u.PasswordHash, u.IsActive, u.CreatedAt, u.UpdatedAt)
}

func TestUserRepository_Create_Success(t *testing.T) {
	repo, mock := newUserRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &domain.User{Email: "alice@example.com", PasswordHash: "hash-abc", IsActive: true}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(u.Email, u.PasswordHash, u.IsActive).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, now, u.CreatedAt)
	assert.Equal(t, now, u.UpdatedAt)
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	repo, mock := newUserRepo(t)

	u := &domain.User{Email: "taken@example.com", PasswordHash: "hash-abc", IsActive: true}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(u.Email, u.PasswordHash, u.IsActive).
		WillReturnError(fmt.Errorf("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestUserRepository_Create_OtherError(t *testing.T) {
	repo, mock := newUserRepo(t)

	u := &domain.User{Email: "alice@example.com", PasswordHash: "hash-abc", IsActive: true}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(u.Email, u.PasswordHash, u.IsActive).
		WillReturnError(errors.New("connection refused"))

	err := repo.Create(context.Background(), u)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestUserRepository_Lookups(t *testing.T) {
	u := sampleUser()

	cases := []struct {
		name    string
		pattern string
		arg     any
		lookup  func(context.Context, *UserRepository) (*domain.User, error)
	}{
		{
			name:    "by id",
			pattern: "SELECT .+ FROM users WHERE id =",
			arg:     u.ID,
			lookup: func(ctx context.Context, r *UserRepository) (*domain.User, error) {
				return r.GetByID(ctx, u.ID)
			},
		},
		{
			name:    "by email",
			pattern: "SELECT .+ FROM users WHERE email =",
			arg:     u.Email,
			lookup: func(ctx context.Context, r *UserRepository) (*domain.User, error) {
				return r.GetByEmail(ctx, u.Email)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name+" found", func(t *testing.T) {
			repo, mock := newUserRepo(t)
			mock.ExpectQuery(tc.pattern).WithArgs(tc.arg).WillReturnRows(userRow(u))

			got, err := tc.lookup(context.Background(), repo)
			require.NoError(t, err)
			assert.Equal(t, u.ID, got.ID)
			assert.Equal(t, u.Email, got.Email)
			assert.Equal(t, u.PasswordHash, got.PasswordHash)
			assert.True(t, got.IsActive)
		})

		t.Run(tc.name+" not found", func(t *testing.T) {
			repo, mock := newUserRepo(t)
			mock.ExpectQuery(tc.pattern).WithArgs(tc.arg).WillReturnError(pgx.ErrNoRows)

			got, err := tc.lookup(context.Background(), repo)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, apperrors.ErrNotFound)
		})
	}
}

func TestUserRepository_GetByID_ScanError(t *testing.T) {
	repo, mock := newUserRepo(t)

	// A row with the wrong column shape must surface as a scan error, not a
	// silent partial read.
	bad := pgxmock.NewRows([]string{"id", "email"}).AddRow(int64(1), "alice@example.com")
	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").WithArgs(int64(1)).WillReturnRows(bad)

	got, err := repo.GetByID(context.Background(), 1)
	assert.Nil(t, got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "scan user")
}
