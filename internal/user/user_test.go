package user

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/tripsplit/pkg/validation"
)

var columns = []string{"id", "display_name", "email", "avatar_url", "created_at"}

func NewMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestRepository_GetByID(t *testing.T) {
	db, mock := NewMock(t)
	repo := NewRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("u1", "Ana", "ana@example.com", nil, now))

	user, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Ana", user.DisplayName)
	assert.Nil(t, user.AvatarURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	db, mock := NewMock(t)
	repo := NewRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	user, err := repo.GetByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestRepository_DisplayNames(t *testing.T) {
	db, mock := NewMock(t)
	repo := NewRepository(db)

	mock.ExpectQuery("SELECT id, display_name FROM users WHERE id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name"}).
			AddRow("a", "Ana").
			AddRow("b", "Bo"))

	names, err := repo.DisplayNames(context.Background(), []string{"a", "b", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "Ana", "b": "Bo"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DisplayNames_Empty(t *testing.T) {
	db, mock := NewMock(t)

	names, err := NewRepository(db).DisplayNames(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Create_DuplicateEmail(t *testing.T) {
	db, mock := NewMock(t)
	svc := NewService(NewRepository(db))

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("u1", "Ana", "ana@example.com", nil, time.Now()))

	_, err := svc.Create(context.Background(), &CreateUserRequest{DisplayName: "Ana", Email: "ana@example.com"})
	assert.ErrorIs(t, err, ErrEmailAlreadyInUse)
}

func TestRepository_Create_UniqueViolation(t *testing.T) {
	db, mock := NewMock(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "Ana", "ana@example.com", nil).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := NewRepository(db).Create(context.Background(), &CreateUserRequest{DisplayName: "Ana", Email: "ana@example.com"})
	assert.ErrorIs(t, err, ErrEmailAlreadyInUse)
}

func TestService_Delete_NotFound(t *testing.T) {
	db, mock := NewMock(t)
	svc := NewService(NewRepository(db))

	mock.ExpectExec("DELETE FROM users").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, svc.Delete(context.Background(), "u1"), ErrUserNotFound)
}

func newRouter(db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Mount("/users", NewHandler(NewService(NewRepository(db)), validation.New()).Routes())
	return r
}

func TestHandler_Create(t *testing.T) {
	db, mock := NewMock(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("ana@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "Ana", "ana@example.com", nil).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(uuid.NewString(), "Ana", "ana@example.com", nil, now))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"displayName":"  Ana ","email":"Ana@Example.com"}`))
	newRouter(db).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"displayName":"Ana"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Create_Invalid(t *testing.T) {
	db, _ := NewMock(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"displayName":"","email":"not-an-email"}`))
	newRouter(db).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	assert.Contains(t, rec.Body.String(), `"email"`)
	assert.Contains(t, rec.Body.String(), `"displayName"`)
}

func TestHandler_GetByID_InvalidID(t *testing.T) {
	db, _ := NewMock(t)

	rec := httptest.NewRecorder()
	newRouter(db).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
