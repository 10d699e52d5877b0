package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighttracking/internal/domain"
)

var (
	jan1 = domain.MustParseDate("2024-01-01")
	jan2 = domain.MustParseDate("2024-01-02")
)

func seed(t *testing.T) (*DB, *domain.Employee, domain.Resident, domain.Resident) {
	t.Helper()
	db := New()
	u, err := db.Create(context.Background(), "nurse", "")
	require.NoError(t, err)
	emp, err := db.AddEmployee(u.ID, "cna")
	require.NoError(t, err)
	r1 := db.AddResident("Ada", "Lovelace", 101)
	r2 := db.AddResident("Alan", "Turing", 102)
	return db, emp, r1, r2
}

func TestCreateWeightSheetUniquePerResidentAndDate(t *testing.T) {
	db, emp, r1, _ := seed(t)
	ctx := context.Background()

	ws := &domain.WeightSheet{Employee: emp, Resident: r1, Date: jan1}
	w, err := db.CreateWeightSheet(ctx, ws, 150)
	require.NoError(t, err)
	assert.NotZero(t, ws.ID)
	require.NotNil(t, w.WeightSheetID)
	assert.Equal(t, ws.ID, *w.WeightSheetID)

	_, err = db.CreateWeightSheet(ctx, &domain.WeightSheet{Employee: emp, Resident: r1, Date: jan1}, 160)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	sheets, _ := db.ListWeightSheets(ctx, domain.SheetFilter{})
	weights, _ := db.ListWeights(ctx, domain.WeightFilter{})
	assert.Len(t, sheets, 1)
	assert.Len(t, weights, 1)
}

func TestListWeightSheetsFilters(t *testing.T) {
	db, emp, r1, r2 := seed(t)
	ctx := context.Background()
	for _, ws := range []*domain.WeightSheet{
		{Employee: emp, Resident: r1, Date: jan1},
		{Employee: emp, Resident: r2, Date: jan1},
		{Employee: emp, Resident: r1, Date: jan2},
	} {
		_, err := db.CreateWeightSheet(ctx, ws, 0)
		require.NoError(t, err)
	}

	all, _ := db.ListWeightSheets(ctx, domain.SheetFilter{})
	assert.Len(t, all, 3)
	assert.Equal(t, "nurse", all[0].Employee.User.Username)
	assert.Equal(t, "Lovelace", all[0].Resident.LastName)

	byDate, _ := db.ListWeightSheets(ctx, domain.SheetFilter{Date: &jan1})
	assert.Len(t, byDate, 2)

	rid := r1.ID
	byResident, _ := db.ListWeightSheets(ctx, domain.SheetFilter{ResidentID: &rid})
	assert.Len(t, byResident, 2)

	both, _ := db.ListWeightSheets(ctx, domain.SheetFilter{ResidentID: &rid, Date: &jan2})
	require.Len(t, both, 1)
	assert.Equal(t, "2024-01-02", both[0].Date.String())
}

func TestCreateMissingWeightSheetsIsIdempotent(t *testing.T) {
	db, emp, r1, _ := seed(t)
	ctx := context.Background()
	_, err := db.CreateWeightSheet(ctx, &domain.WeightSheet{Employee: emp, Resident: r1, Date: jan1}, 150)
	require.NoError(t, err)

	n, err := db.CreateMissingWeightSheets(ctx, jan1, emp.ID, domain.DefaultSheetFlags())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.CreateMissingWeightSheets(ctx, jan1, emp.ID, domain.DefaultSheetFlags())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	sheets, _ := db.ListWeightSheets(ctx, domain.SheetFilter{Date: &jan1})
	require.Len(t, sheets, 2)
	assert.True(t, sheets[1].ShowAlert)
	assert.False(t, sheets[1].Final)
}

func TestDeleteByDateAndFinalToggle(t *testing.T) {
	db, emp, _, _ := seed(t)
	ctx := context.Background()
	_, _ = db.CreateMissingWeightSheets(ctx, jan1, emp.ID, domain.DefaultSheetFlags())
	_, _ = db.CreateMissingWeightSheets(ctx, jan2, emp.ID, domain.DefaultSheetFlags())

	n, err := db.SetFinalByDate(ctx, jan1, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	final, _ := db.ListDates(ctx, true)
	require.Len(t, final, 1)
	assert.Equal(t, "2024-01-01", final[0].String())

	all, _ := db.ListDates(ctx, false)
	require.Len(t, all, 2)
	assert.Equal(t, "2024-01-02", all[0].String())

	require.NoError(t, db.DeleteByDate(ctx, jan1))
	left, _ := db.ListWeightSheets(ctx, domain.SheetFilter{})
	assert.Len(t, left, 2)
	weights, _ := db.ListWeights(ctx, domain.WeightFilter{Date: &jan1})
	assert.Empty(t, weights)

	require.NoError(t, db.DeleteByDate(ctx, jan1))
}

func TestDetailedViewInnerJoin(t *testing.T) {
	db, emp, r1, r2 := seed(t)
	ctx := context.Background()

	_, err := db.CreateWeightSheet(ctx, &domain.WeightSheet{Employee: emp, Resident: r1, Date: jan1}, 150)
	require.NoError(t, err)
	require.NoError(t, db.AddWeight(ctx, &domain.Weight{ResidentID: r2.ID, Date: jan1, Weight: 180}))

	rows, err := db.DetailedView(ctx, jan1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada", rows[0].FirstName)
	assert.Equal(t, 101, rows[0].RoomNum)
	assert.Equal(t, 150.0, rows[0].Weight)
	assert.False(t, rows[0].Final)

	empty, err := db.DetailedView(ctx, jan2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDeleteWeightSheetKeepsWeight(t *testing.T) {
	db, emp, r1, _ := seed(t)
	ctx := context.Background()
	ws := &domain.WeightSheet{Employee: emp, Resident: r1, Date: jan1}
	w, err := db.CreateWeightSheet(ctx, ws, 150)
	require.NoError(t, err)

	require.NoError(t, db.DeleteWeightSheet(ctx, ws.ID))
	assert.ErrorIs(t, db.DeleteWeightSheet(ctx, ws.ID), domain.ErrWeightSheetNotFound)

	kept, err := db.GetWeight(ctx, w.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.WeightSheetID)
}

func TestUpdateWeightSheetRejectsDuplicateResident(t *testing.T) {
	db, emp, r1, r2 := seed(t)
	ctx := context.Background()
	a := &domain.WeightSheet{Employee: emp, Resident: r1, Date: jan1}
	b := &domain.WeightSheet{Employee: emp, Resident: r2, Date: jan1}
	_, _ = db.CreateWeightSheet(ctx, a, 0)
	_, _ = db.CreateWeightSheet(ctx, b, 0)

	b.Resident = r1
	assert.ErrorIs(t, db.UpdateWeightSheet(ctx, b), domain.ErrAlreadyExists)
}

func TestWeightRepository(t *testing.T) {
	db, _, r1, _ := seed(t)
	ctx := context.Background()

	w := &domain.Weight{ResidentID: r1.ID, Date: jan1, Weight: 150}
	require.NoError(t, db.AddWeight(ctx, w))
	require.NoError(t, db.AddWeight(ctx, &domain.Weight{ResidentID: r1.ID, Date: jan2, Weight: 151}))
	assert.ErrorIs(t, db.AddWeight(ctx, &domain.Weight{ResidentID: 999, Date: jan1}), domain.ErrResidentNotFound)

	list, _ := db.ListWeights(ctx, domain.WeightFilter{Limit: 1})
	require.Len(t, list, 1)
	assert.Equal(t, "2024-01-02", list[0].Date.String())

	require.NoError(t, db.UpdateWeightValue(ctx, w.ID, 149.5))
	got, _ := db.GetWeight(ctx, w.ID)
	assert.Equal(t, 149.5, got.Weight)

	require.NoError(t, db.DeleteWeight(ctx, w.ID))
	_, err := db.GetWeight(ctx, w.ID)
	assert.ErrorIs(t, err, domain.ErrWeightNotFound)
}

func TestUserAndEmployee(t *testing.T) {
	db := New()
	ctx := context.Background()

	u, err := db.Create(ctx, "bob", "hash")
	require.NoError(t, err)
	_, err = db.Create(ctx, "bob", "hash")
	assert.Error(t, err)

	_, err = db.GetEmployeeByUserID(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)

	_, err = db.AddEmployee(u.ID, "rn")
	require.NoError(t, err)
	emp, err := db.GetEmployeeByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", emp.User.Username)

	_, err = db.AddEmployee(u.ID, "rn")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	_, err = db.AddEmployee(42, "rn")
	assert.Error(t, err)

	sso, err := db.Create(ctx, "sso@example.com", "")
	require.NoError(t, err)
	created, err := db.CreateEmployee(ctx, sso.ID, "cna")
	require.NoError(t, err)
	assert.Equal(t, "cna", created.Role)
	_, err = db.CreateEmployee(ctx, sso.ID, "cna")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestSessionRepository(t *testing.T) {
	db := New()
	repo := db.NewSessionRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, 1, "token123", "agent", "127.0.0.1", time.Now().Add(time.Hour)))
	sess, err := repo.GetByToken(ctx, "token123")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "agent", sess.UserAgent)

	require.NoError(t, repo.Create(ctx, 1, "old", "agent", "", time.Now().Add(-time.Hour)))
	require.NoError(t, repo.DeleteExpired(ctx))
	old, _ := repo.GetByToken(ctx, "old")
	assert.Nil(t, old)

	_ = repo.Delete(ctx, "token123")
	sess, _ = repo.GetByToken(ctx, "token123")
	assert.Nil(t, sess)
}
