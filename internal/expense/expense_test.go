package expense

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/tripsplit/internal/expense/split"
	"github.com/fkhayef/tripsplit/internal/notification"
	"github.com/fkhayef/tripsplit/internal/trip"
	"github.com/fkhayef/tripsplit/pkg/middleware"
	"github.com/fkhayef/tripsplit/pkg/validation"
)

var (
	expenseCols = []string{"id", "trip_id", "description", "amount", "category", "paid_by", "split_type", "split_among", "created_at"}
	shareCols   = []string{"expense_id", "participant_id", "amount", "percentage"}
)

type fakeDirectory struct {
	trips map[string][]string
	err   error
}

func (f *fakeDirectory) ListParticipantIDs(_ context.Context, tripID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	ids, ok := f.trips[tripID]
	if !ok {
		return nil, trip.ErrTripNotFound
	}
	return ids, nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newDirectory() *fakeDirectory {
	return &fakeDirectory{trips: map[string][]string{"t1": {"a", "b", "c"}}}
}

func newValidator(dir ParticipantDirectory) *Validator {
	return NewValidator(validation.New(), dir, split.NewFactory())
}

func NewMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newService(db *sql.DB, dir ParticipantDirectory) *Service {
	factory := split.NewFactory()
	repo := NewRepository(db, notification.NewPublisher("trip_changes"))
	return NewService(repo, NewValidator(validation.New(), dir, factory), factory)
}

func validRequest() *CreateExpenseRequest {
	return &CreateExpenseRequest{
		TripID:      "t1",
		Description: "  Dinner  ",
		Amount:      d("10.00"),
		Category:    CategoryFood,
		PaidBy:      "a",
	}
}

func TestValidator_DefaultsToEqualSplitAmongEveryone(t *testing.T) {
	req := validRequest()

	result, err := newValidator(newDirectory()).Validate(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.IsValid, result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "Dinner", req.Description)
	assert.Equal(t, split.TypeEqual, req.SplitType)
	assert.Equal(t, []string{"a", "b", "c"}, req.SplitAmong)
}

func TestValidator_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CreateExpenseRequest)
		field  string
	}{
		{"blank description", func(r *CreateExpenseRequest) { r.Description = "   " }, "description"},
		{"description too long", func(r *CreateExpenseRequest) { r.Description = strings.Repeat("x", 101) }, "description"},
		{"zero amount", func(r *CreateExpenseRequest) { r.Amount = decimal.Zero }, "amount"},
		{"negative amount", func(r *CreateExpenseRequest) { r.Amount = d("-5") }, "amount"},
		{"amount over the limit", func(r *CreateExpenseRequest) { r.Amount = d("10000.01") }, "amount"},
		{"fractional cents", func(r *CreateExpenseRequest) { r.Amount = d("10.005") }, "amount"},
		{"unknown category", func(r *CreateExpenseRequest) { r.Category = "gifts" }, "category"},
		{"unknown trip", func(r *CreateExpenseRequest) { r.TripID = "ghost" }, "tripId"},
		{"missing trip", func(r *CreateExpenseRequest) { r.TripID = "" }, "tripId"},
		{"payer not on trip", func(r *CreateExpenseRequest) { r.PaidBy = "zed" }, "paidBy"},
		{"beneficiary not on trip", func(r *CreateExpenseRequest) { r.SplitAmong = []string{"a", "zed"} }, "splitAmong"},
		{"duplicate beneficiary", func(r *CreateExpenseRequest) { r.SplitAmong = []string{"a", "a"} }, "splitAmong"},
		{"unknown split type", func(r *CreateExpenseRequest) { r.SplitType = "shares" }, "splitType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			result, err := newValidator(newDirectory()).Validate(context.Background(), req)
			require.NoError(t, err)

			assert.False(t, result.IsValid)
			assert.Contains(t, result.Errors, tt.field)
		})
	}
}

func TestValidator_ReportsEveryInvalidField(t *testing.T) {
	req := validRequest()
	req.Description = ""
	req.Amount = decimal.Zero
	req.PaidBy = "zed"

	result, err := newValidator(newDirectory()).Validate(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors, "description")
	assert.Contains(t, result.Errors, "amount")
	assert.Contains(t, result.Errors, "paidBy")
}

func TestValidator_CustomShares(t *testing.T) {
	tests := []struct {
		name   string
		shares map[string]decimal.Decimal
		valid  bool
	}{
		{"exact sum", map[string]decimal.Decimal{"a": d("5.00"), "b": d("3.00"), "c": d("2.00")}, true},
		{"one cent short", map[string]decimal.Decimal{"a": d("5.00"), "b": d("3.00"), "c": d("1.99")}, false},
		{"one cent over", map[string]decimal.Decimal{"a": d("5.00"), "b": d("3.00"), "c": d("2.01")}, false},
		{"missing share", map[string]decimal.Decimal{"a": d("5.00"), "b": d("5.00")}, false},
		{"share for someone outside the split", map[string]decimal.Decimal{"a": d("5.00"), "b": d("3.00"), "c": d("2.00"), "zed": d("0")}, false},
		{"negative share", map[string]decimal.Decimal{"a": d("12.00"), "b": d("-2.00"), "c": d("0")}, false},
		{"no shares at all", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			req.SplitType = split.TypeCustom
			req.Shares = tt.shares

			result, err := newValidator(newDirectory()).Validate(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, tt.valid, result.IsValid, result.Errors)
			if !tt.valid {
				assert.Contains(t, result.Errors, "shares")
			}
		})
	}
}

func TestValidator_CustomSharesMismatchMessage(t *testing.T) {
	req := validRequest()
	req.SplitType = split.TypeCustom
	req.Shares = map[string]decimal.Decimal{"a": d("5.00"), "b": d("3.00"), "c": d("1.99")}

	result, err := newValidator(newDirectory()).Validate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "shares must add up to the expense amount (got 9.99, expected 10.00)", result.Errors["shares"])
}

func TestValidator_Percentages(t *testing.T) {
	req := validRequest()
	req.SplitType = split.TypePercentage
	req.SplitAmong = []string{"a", "b"}
	req.Percentages = map[string]decimal.Decimal{"a": d("60"), "b": d("30")}

	result, err := newValidator(newDirectory()).Validate(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	assert.Equal(t, split.ErrInvalidPercentages.Error(), result.Errors["percentages"])

	req.Percentages["b"] = d("40")
	result, err = newValidator(newDirectory()).Validate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsValid, result.Errors)
}

func TestValidator_DirectoryFailure(t *testing.T) {
	_, err := newValidator(&fakeDirectory{err: errors.New("connection reset")}).Validate(context.Background(), validRequest())
	assert.Error(t, err)
}

func TestService_CreateExpense(t *testing.T) {
	db, mock := NewMock(t)
	svc := newService(db, newDirectory())

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO expenses").
		WithArgs(sqlmock.AnyArg(), "t1", "Dinner", sqlmock.AnyArg(), "food", "a", "equal", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(expenseCols).AddRow("e1", "t1", "Dinner", "10.00", "food", "a", "equal", "{a,b,c}", time.Now()))
	for _, id := range []string{"a", "b", "c"} {
		mock.ExpectExec("INSERT INTO expense_shares").
			WithArgs(sqlmock.AnyArg(), id, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("SELECT pg_notify").
		WithArgs("trip_changes", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	expense, err := svc.CreateExpense(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, expense.SplitAmong)
	assert.Equal(t, "3.34", expense.ShareOf("a").StringFixed(2))
	assert.Equal(t, "3.33", expense.ShareOf("b").StringFixed(2))
	assert.Equal(t, "3.33", expense.ShareOf("c").StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CreateExpense_RollsBackWhenShareInsertFails(t *testing.T) {
	db, mock := NewMock(t)
	svc := newService(db, newDirectory())

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO expenses").
		WillReturnRows(sqlmock.NewRows(expenseCols).AddRow("e1", "t1", "Dinner", "10.00", "food", "a", "equal", "{a,b,c}", time.Now()))
	mock.ExpectExec("INSERT INTO expense_shares").WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, err := svc.CreateExpense(context.Background(), validRequest())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CreateExpense_InvalidInputNeverReachesTheStore(t *testing.T) {
	db, mock := NewMock(t)
	svc := newService(db, newDirectory())

	req := validRequest()
	req.SplitType = split.TypeCustom
	req.Shares = map[string]decimal.Decimal{"a": d("5.00"), "b": d("3.00"), "c": d("1.99")}

	_, err := svc.CreateExpense(context.Background(), req)

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Fields, "shares")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_DeleteExpense_OnlyPayer(t *testing.T) {
	db, mock := NewMock(t)
	svc := newService(db, newDirectory())

	mock.ExpectQuery("FROM expenses e WHERE e.id").
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows(expenseCols).AddRow("e1", "t1", "Dinner", "10.00", "food", "a", "equal", "{a,b}", time.Now()))
	mock.ExpectQuery("FROM expense_shares").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(shareCols).AddRow("e1", "a", "5.00", nil).AddRow("e1", "b", "5.00", nil))

	err := svc.DeleteExpense(context.Background(), "e1", "b")
	assert.ErrorIs(t, err, ErrNotPayer)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_DeleteExpense_NotFound(t *testing.T) {
	db, mock := NewMock(t)

	mock.ExpectQuery("FROM expenses e WHERE e.id").WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	err := newService(db, newDirectory()).DeleteExpense(context.Background(), "ghost", "a")
	assert.ErrorIs(t, err, ErrExpenseNotFound)
}

func TestRepository_ListByTrip_GroupsSharesInSplitOrder(t *testing.T) {
	db, mock := NewMock(t)
	repo := NewRepository(db, notification.NewPublisher("trip_changes"))
	now := time.Now()

	cols := append(append([]string{}, expenseCols...), "participant_id", "share_amount", "percentage")
	mock.ExpectQuery("LEFT JOIN expense_shares").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("e1", "t1", "Taxi", "10.00", "transport", "b", "equal", "{c,a,b}", now, "a", "3.33", nil).
			AddRow("e1", "t1", "Taxi", "10.00", "transport", "b", "equal", "{c,a,b}", now, "b", "3.33", nil).
			AddRow("e1", "t1", "Taxi", "10.00", "transport", "b", "equal", "{c,a,b}", now, "c", "3.34", nil).
			AddRow("e2", "t1", "Hotel", "90.00", "accommodation", "a", "percentage", "{a,b}", now, "a", "45.00", "50").
			AddRow("e2", "t1", "Hotel", "90.00", "accommodation", "a", "percentage", "{a,b}", now, "b", "45.00", "50"))

	expenses, err := repo.ListByTrip(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, expenses, 2)

	assert.Equal(t, []string{"c", "a", "b"}, expenses[0].SplitAmong)
	require.Len(t, expenses[0].Shares, 3)
	assert.Equal(t, "c", expenses[0].Shares[0].ParticipantID)
	assert.Equal(t, "3.34", expenses[0].Shares[0].Amount.StringFixed(2))

	assert.Equal(t, split.TypePercentage, expenses[1].SplitType)
	require.NotNil(t, expenses[1].Shares[0].Percentage)
	assert.Equal(t, "50", expenses[1].Shares[0].Percentage.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByTrip_Empty(t *testing.T) {
	db, mock := NewMock(t)
	repo := NewRepository(db, notification.NewPublisher("trip_changes"))

	cols := append(append([]string{}, expenseCols...), "participant_id", "share_amount", "percentage")
	mock.ExpectQuery("LEFT JOIN expense_shares").WithArgs("t1").WillReturnRows(sqlmock.NewRows(cols))

	expenses, err := repo.ListByTrip(context.Background(), "t1")
	require.NoError(t, err)
	assert.NotNil(t, expenses)
	assert.Empty(t, expenses)
}

func newRouter(db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Identify)
	r.Mount("/expenses", NewHandler(newService(db, newDirectory())).Routes())
	return r
}

func TestHandler_CreateReportsFieldErrors(t *testing.T) {
	db, _ := NewMock(t)

	body := `{"tripId":"t1","description":"Dinner","amount":10,"category":"food","paidBy":"a",
		"splitType":"custom","shares":{"a":5,"b":3,"c":1.99}}`
	rec := httptest.NewRecorder()
	newRouter(db).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"VALIDATION_ERROR"`)
	assert.Contains(t, rec.Body.String(), `"shares"`)
}

func TestHandler_ValidateEndpoint(t *testing.T) {
	db, _ := NewMock(t)

	body := `{"tripId":"t1","description":"Dinner","amount":10,"category":"food","paidBy":"zed"}`
	rec := httptest.NewRecorder()
	newRouter(db).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/expenses/validate", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isValid":false`)
	assert.Contains(t, rec.Body.String(), `"paidBy"`)
}

func TestHandler_MalformedBody(t *testing.T) {
	db, _ := NewMock(t)

	rec := httptest.NewRecorder()
	newRouter(db).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(`{"amount":`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetByID_InvalidID(t *testing.T) {
	db, _ := NewMock(t)

	rec := httptest.NewRecorder()
	newRouter(db).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_DeleteRequiresCaller(t *testing.T) {
	db, _ := NewMock(t)

	rec := httptest.NewRecorder()
	newRouter(db).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/expenses/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
