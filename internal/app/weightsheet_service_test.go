package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"weighttracking/internal/adapter/memory"
	"weighttracking/internal/app"
	"weighttracking/internal/domain"
)

var (
	jan1 = domain.MustParseDate("2024-01-01")
	jan2 = domain.MustParseDate("2024-01-02")
)

type roster struct {
	db  *memory.DB
	emp *domain.Employee
	r1  domain.Resident
	r2  domain.Resident
}

func newRoster(t *testing.T) roster {
	t.Helper()
	db := memory.New()
	u, err := db.Create(context.Background(), "nurse", "")
	require.NoError(t, err)
	emp, err := db.AddEmployee(u.ID, "cna")
	require.NoError(t, err)
	return roster{
		db:  db,
		emp: emp,
		r1:  db.AddResident("Ada", "Lovelace", 101),
		r2:  db.AddResident("Alan", "Turing", 102),
	}
}

// countingCache records invalidations and can be told to fail.
type countingCache struct {
	invalidations int
	err           error
}

func (c *countingCache) GetDates(context.Context, bool) ([]domain.Date, int64, bool, error) {
	return nil, 0, false, nil
}

func (c *countingCache) SetDates(context.Context, bool, int64, []domain.Date) error { return nil }

func (c *countingCache) Invalidate(context.Context) error {
	c.invalidations++
	return c.err
}

func TestCreate_ExactlyOneSheetAndWeight(t *testing.T) {
	r := newRoster(t)
	svc := app.NewWeightSheetService(r.db, r.db)
	ctx := context.Background()

	ws, err := svc.Create(ctx, r.emp, app.SheetInput{ResidentID: r.r1.ID, Date: jan1, Weight: 150})
	require.NoError(t, err)
	assert.NotZero(t, ws.ID)
	assert.Equal(t, r.emp.ID, ws.Employee.ID)

	_, err = svc.Create(ctx, r.emp, app.SheetInput{ResidentID: r.r1.ID, Date: jan1, Weight: 160})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	sheets, _ := r.db.ListWeightSheets(ctx, domain.SheetFilter{})
	weights, _ := r.db.ListWeights(ctx, domain.WeightFilter{})
	require.Len(t, sheets, 1)
	require.Len(t, weights, 1)
	assert.Equal(t, 150.0, weights[0].Weight)
	require.NotNil(t, weights[0].WeightSheetID)
	assert.Equal(t, ws.ID, *weights[0].WeightSheetID)
}

func TestCreate_Errors(t *testing.T) {
	r := newRoster(t)
	svc := app.NewWeightSheetService(r.db, r.db)
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, app.SheetInput{ResidentID: r.r1.ID, Date: jan1})
	assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)

	_, err = svc.Create(ctx, r.emp, app.SheetInput{ResidentID: 999, Date: jan1})
	assert.ErrorIs(t, err, domain.ErrResidentNotFound)

	_, err = svc.Create(ctx, r.emp, app.SheetInput{ResidentID: r.r1.ID})
	assert.ErrorIs(t, err, domain.ErrDateRequired)

	_, err = svc.Create(ctx, r.emp, app.SheetInput{ResidentID: r.r1.ID, Date: jan1, Weight: -1})
	assert.ErrorIs(t, err, app.ErrInvalidWeight)

	sheets, _ := r.db.ListWeightSheets(ctx, domain.SheetFilter{})
	assert.Empty(t, sheets)
	weights, _ := r.db.ListWeights(ctx, domain.WeightFilter{})
	assert.Empty(t, weights)
}

func TestUpdate_LockPolicy(t *testing.T) {
	tests := []struct {
		name    string
		policy  app.LockPolicy
		final   bool
		wantErr error
	}{
		{"advisory open", app.LockAdvisory, false, nil},
		{"advisory final", app.LockAdvisory, true, nil},
		{"enforced open", app.LockEnforced, false, nil},
		{"enforced final", app.LockEnforced, true, domain.ErrSheetLocked},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newRoster(t)
			ctx := context.Background()
			svc := app.NewWeightSheetService(r.db, r.db, app.WithLockPolicy(tc.policy))
			assert.Equal(t, tc.policy, svc.LockPolicy())

			ws, err := svc.Create(ctx, r.emp, app.SheetInput{
				ResidentID: r.r1.ID, Date: jan1, Flags: domain.SheetFlags{Final: tc.final},
			})
			require.NoError(t, err)

			err = svc.Update(ctx, r.emp, ws.ID, app.SheetUpdate{
				ResidentID: r.r1.ID,
				Flags:      domain.SheetFlags{Refused: true, ScaleType: "bed"},
			})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				got, _ := svc.Get(ctx, ws.ID)
				assert.False(t, got.Refused)
				return
			}
			require.NoError(t, err)
			got, err := svc.Get(ctx, ws.ID)
			require.NoError(t, err)
			assert.True(t, got.Refused)
			assert.Equal(t, "bed", got.ScaleType)
			assert.Equal(t, "2024-01-01", got.Date.String())
		})
	}
}

func TestUpdate_Errors(t *testing.T) {
	r := newRoster(t)
	svc := app.NewWeightSheetService(r.db, r.db)
	ctx := context.Background()
	ws, err := svc.Create(ctx, r.emp, app.SheetInput{ResidentID: r.r1.ID, Date: jan1})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Update(ctx, r.emp, 999, app.SheetUpdate{ResidentID: r.r1.ID}), domain.ErrWeightSheetNotFound)
	assert.ErrorIs(t, svc.Update(ctx, nil, ws.ID, app.SheetUpdate{ResidentID: r.r1.ID}), domain.ErrEmployeeNotFound)
	assert.ErrorIs(t, svc.Update(ctx, r.emp, ws.ID, app.SheetUpdate{ResidentID: 999}), domain.ErrResidentNotFound)
}

func TestDestroy(t *testing.T) {
	r := newRoster(t)
	svc := app.NewWeightSheetService(r.db, r.db)
	ctx := context.Background()
	ws, err := svc.Create(ctx, r.emp, app.SheetInput{ResidentID: r.r1.ID, Date: jan1, Weight: 150})
	require.NoError(t, err)

	require.NoError(t, svc.Destroy(ctx, ws.ID))
	assert.ErrorIs(t, svc.Destroy(ctx, ws.ID), domain.ErrWeightSheetNotFound)

	weights, _ := r.db.ListWeights(ctx, domain.WeightFilter{})
	require.Len(t, weights, 1)
	assert.Nil(t, weights[0].WeightSheetID)
}

func TestBulkCreateForDate_Idempotent(t *testing.T) {
	r := newRoster(t)
	core, logs := observer.New(zap.InfoLevel)
	svc := app.NewWeightSheetService(r.db, r.db, app.WithLogger(zap.New(core)))
	ctx := context.Background()

	n, err := svc.BulkCreateForDate(ctx, r.emp, jan1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.BulkCreateForDate(ctx, r.emp, jan1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	sheets, _ := r.db.ListWeightSheets(ctx, domain.SheetFilter{Date: &jan1})
	require.Len(t, sheets, 2)
	for _, ws := range sheets {
		assert.Equal(t, domain.DefaultSheetFlags(), ws.SheetFlags)
		assert.Equal(t, r.emp.ID, ws.Employee.ID)
	}
	weights, _ := r.db.ListWeights(ctx, domain.WeightFilter{Date: &jan1})
	require.Len(t, weights, 2)
	for _, w := range weights {
		assert.Zero(t, w.Weight)
	}

	entries := logs.FilterMessage("weight sheets created").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].ContextMap()["created"])
	assert.Equal(t, "2024-01-01", entries[0].ContextMap()["date"])

	_, err = svc.BulkCreateForDate(ctx, nil, jan1)
	assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)
	_, err = svc.BulkCreateForDate(ctx, r.emp, domain.Date{})
	assert.ErrorIs(t, err, domain.ErrDateRequired)
}

func TestLockThenUnlockRestoresOnlyThatDate(t *testing.T) {
	r := newRoster(t)
	svc := app.NewWeightSheetService(r.db, r.db)
	ctx := context.Background()
	_, _ = svc.BulkCreateForDate(ctx, r.emp, jan1)
	_, _ = svc.BulkCreateForDate(ctx, r.emp, jan2)
	_, err := svc.LockAllByDate(ctx, jan2)
	require.NoError(t, err)

	n, err := svc.LockAllByDate(ctx, jan1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = svc.UnlockAllByDate(ctx, jan1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	day1, _ := svc.List(ctx, domain.SheetFilter{Date: &jan1})
	for _, ws := range day1 {
		assert.False(t, ws.Final)
	}
	day2, _ := svc.List(ctx, domain.SheetFilter{Date: &jan2})
	for _, ws := range day2 {
		assert.True(t, ws.Final)
	}
}

func TestDateRequiredMutatesNothing(t *testing.T) {
	r := newRoster(t)
	svc := app.NewWeightSheetService(r.db, r.db)
	ctx := context.Background()
	_, _ = svc.BulkCreateForDate(ctx, r.emp, jan1)

	assert.ErrorIs(t, svc.DeleteAllByDate(ctx, domain.Date{}), domain.ErrDateRequired)
	_, err := svc.LockAllByDate(ctx, domain.Date{})
	assert.ErrorIs(t, err, domain.ErrDateRequired)
	_, err = svc.UnlockAllByDate(ctx, domain.Date{})
	assert.ErrorIs(t, err, domain.ErrDateRequired)

	sheets, _ := svc.List(ctx, domain.SheetFilter{})
	require.Len(t, sheets, 2)
	for _, ws := range sheets {
		assert.False(t, ws.Final)
	}
}

func TestDeleteAllByDate(t *testing.T) {
	r := newRoster(t)
	svc := app.NewWeightSheetService(r.db, r.db)
	ctx := context.Background()
	_, _ = svc.BulkCreateForDate(ctx, r.emp, jan1)
	_, _ = svc.BulkCreateForDate(ctx, r.emp, jan2)

	require.NoError(t, svc.DeleteAllByDate(ctx, jan1))
	require.NoError(t, svc.DeleteAllByDate(ctx, jan1))

	left, _ := svc.List(ctx, domain.SheetFilter{})
	require.Len(t, left, 2)
	for _, ws := range left {
		assert.Equal(t, "2024-01-02", ws.Date.String())
	}
	gone, _ := r.db.ListWeights(ctx, domain.WeightFilter{Date: &jan1})
	assert.Empty(t, gone)
	kept, _ := r.db.ListWeights(ctx, domain.WeightFilter{Date: &jan2})
	assert.Len(t, kept, 2)
}

func TestMutationsInvalidateDateCache(t *testing.T) {
	r := newRoster(t)
	cache := &countingCache{}
	svc := app.NewWeightSheetService(r.db, r.db, app.WithDateCache(cache))
	ctx := context.Background()

	ws, err := svc.Create(ctx, r.emp, app.SheetInput{ResidentID: r.r1.ID, Date: jan1})
	require.NoError(t, err)
	_, err = svc.BulkCreateForDate(ctx, r.emp, jan1)
	require.NoError(t, err)
	_, err = svc.BulkCreateForDate(ctx, r.emp, jan1)
	require.NoError(t, err)
	_, err = svc.LockAllByDate(ctx, jan1)
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, r.emp, ws.ID, app.SheetUpdate{ResidentID: r.r1.ID}))
	require.NoError(t, svc.Destroy(ctx, ws.ID))
	require.NoError(t, svc.DeleteAllByDate(ctx, jan1))

	// The idempotent second bulk create changes nothing and keeps the cache.
	assert.Equal(t, 6, cache.invalidations)
}

func TestCacheFailureIsNotFatal(t *testing.T) {
	r := newRoster(t)
	core, logs := observer.New(zap.WarnLevel)
	cache := &countingCache{err: errors.New("redis down")}
	svc := app.NewWeightSheetService(r.db, r.db, app.WithDateCache(cache), app.WithLogger(zap.New(core)))

	_, err := svc.Create(context.Background(), r.emp, app.SheetInput{ResidentID: r.r1.ID, Date: jan1})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("date cache invalidation failed").Len())
}
