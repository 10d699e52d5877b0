package app

import (
	"context"

	"go.uber.org/zap"

	"weighttracking/internal/domain"
)

// LockPolicy decides whether finalized sheets may still be edited.
type LockPolicy int

const (
	// LockAdvisory lets staff overwrite finalized sheets.
	LockAdvisory LockPolicy = iota
	// LockEnforced rejects updates to finalized sheets with ErrSheetLocked.
	LockEnforced
)

// SheetInput is the payload of a single weight sheet creation.
type SheetInput struct {
	ResidentID int64
	Date       domain.Date
	Flags      domain.SheetFlags
	Weight     float64
}

// SheetUpdate is the payload of a weight sheet update. The date is not
// editable.
type SheetUpdate struct {
	ResidentID int64
	Flags      domain.SheetFlags
}

// WeightSheetService manages the weight sheet lifecycle: creation (single
// and bulk), updates, deletion and the finalize lock.
type WeightSheetService struct {
	sheets    domain.WeightSheetRepository
	residents domain.ResidentRepository
	dates     domain.DateCache
	lock      LockPolicy
	logger    *zap.Logger
}

// WeightSheetOption configures a WeightSheetService.
type WeightSheetOption func(*WeightSheetService)

// WithLockPolicy sets the policy applied by Update.
func WithLockPolicy(p LockPolicy) WeightSheetOption {
	return func(s *WeightSheetService) { s.lock = p }
}

// WithDateCache sets the cache invalidated after every mutation.
func WithDateCache(c domain.DateCache) WeightSheetOption {
	return func(s *WeightSheetService) {
		if c != nil {
			s.dates = c
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) WeightSheetOption {
	return func(s *WeightSheetService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewWeightSheetService creates a WeightSheetService backed by the given
// repositories.
func NewWeightSheetService(sheets domain.WeightSheetRepository, residents domain.ResidentRepository, opts ...WeightSheetOption) *WeightSheetService {
	s := &WeightSheetService{
		sheets:    sheets,
		residents: residents,
		dates:     noDateCache{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LockPolicy returns the policy in effect.
func (s *WeightSheetService) LockPolicy() LockPolicy {
	return s.lock
}

// List returns the sheets matching every set field of f.
func (s *WeightSheetService) List(ctx context.Context, f domain.SheetFilter) ([]domain.WeightSheet, error) {
	return s.sheets.ListWeightSheets(ctx, f)
}

// Get returns one sheet or ErrWeightSheetNotFound.
func (s *WeightSheetService) Get(ctx context.Context, id int64) (*domain.WeightSheet, error) {
	return s.sheets.GetWeightSheet(ctx, id)
}

// Create stores a new sheet for in.ResidentID on in.Date together with its
// companion weight. A second sheet for the same resident and date fails with
// ErrAlreadyExists and writes nothing.
func (s *WeightSheetService) Create(ctx context.Context, caller *domain.Employee, in SheetInput) (*domain.WeightSheet, error) {
	if caller == nil {
		return nil, domain.ErrEmployeeNotFound
	}
	if in.Date.IsZero() {
		return nil, domain.ErrDateRequired
	}
	if in.Weight < 0 {
		return nil, ErrInvalidWeight
	}
	resident, err := s.residents.GetResident(ctx, in.ResidentID)
	if err != nil {
		return nil, err
	}

	ws := &domain.WeightSheet{
		Employee:   caller,
		Resident:   *resident,
		Date:       in.Date,
		SheetFlags: in.Flags,
	}
	if _, err := s.sheets.CreateWeightSheet(ctx, ws, in.Weight); err != nil {
		return nil, err
	}
	s.invalidateDates(ctx)
	return ws, nil
}

// Update overwrites the editor, resident and flags of sheet id.
func (s *WeightSheetService) Update(ctx context.Context, caller *domain.Employee, id int64, in SheetUpdate) error {
	ws, err := s.sheets.GetWeightSheet(ctx, id)
	if err != nil {
		return err
	}
	if caller == nil {
		return domain.ErrEmployeeNotFound
	}
	resident, err := s.residents.GetResident(ctx, in.ResidentID)
	if err != nil {
		return err
	}
	if s.lock == LockEnforced && ws.Final {
		return domain.ErrSheetLocked
	}

	ws.Employee = caller
	ws.Resident = *resident
	ws.SheetFlags = in.Flags
	if err := s.sheets.UpdateWeightSheet(ctx, ws); err != nil {
		return err
	}
	s.invalidateDates(ctx)
	return nil
}

// Destroy deletes one sheet. Its companion weight is kept.
func (s *WeightSheetService) Destroy(ctx context.Context, id int64) error {
	if err := s.sheets.DeleteWeightSheet(ctx, id); err != nil {
		return err
	}
	s.invalidateDates(ctx)
	return nil
}

// BulkCreateForDate gives every resident without a sheet on date a baseline
// sheet and a zero weight. Re-running it for the same date creates nothing.
func (s *WeightSheetService) BulkCreateForDate(ctx context.Context, caller *domain.Employee, date domain.Date) (int, error) {
	if caller == nil {
		return 0, domain.ErrEmployeeNotFound
	}
	if date.IsZero() {
		return 0, domain.ErrDateRequired
	}
	n, err := s.sheets.CreateMissingWeightSheets(ctx, date, caller.ID, domain.DefaultSheetFlags())
	if err != nil {
		return 0, err
	}
	s.logger.Info("weight sheets created",
		zap.String("date", date.String()),
		zap.Int("created", n),
		zap.Int64("employee_id", caller.ID),
	)
	if n > 0 {
		s.invalidateDates(ctx)
	}
	return n, nil
}

// DeleteAllByDate removes every sheet and every weight on date. Nothing
// matching is not an error.
func (s *WeightSheetService) DeleteAllByDate(ctx context.Context, date domain.Date) error {
	if date.IsZero() {
		return domain.ErrDateRequired
	}
	if err := s.sheets.DeleteByDate(ctx, date); err != nil {
		return err
	}
	s.logger.Info("weight sheets deleted", zap.String("date", date.String()))
	s.invalidateDates(ctx)
	return nil
}

// LockAllByDate finalizes every sheet on date.
func (s *WeightSheetService) LockAllByDate(ctx context.Context, date domain.Date) (int64, error) {
	return s.setFinal(ctx, date, true)
}

// UnlockAllByDate makes every sheet on date editable again.
func (s *WeightSheetService) UnlockAllByDate(ctx context.Context, date domain.Date) (int64, error) {
	return s.setFinal(ctx, date, false)
}

func (s *WeightSheetService) setFinal(ctx context.Context, date domain.Date, final bool) (int64, error) {
	if date.IsZero() {
		return 0, domain.ErrDateRequired
	}
	n, err := s.sheets.SetFinalByDate(ctx, date, final)
	if err != nil {
		return 0, err
	}
	s.logger.Info("weight sheets finalize toggled",
		zap.String("date", date.String()),
		zap.Bool("final", final),
		zap.Int64("updated", n),
	)
	s.invalidateDates(ctx)
	return n, nil
}

func (s *WeightSheetService) invalidateDates(ctx context.Context) {
	if err := s.dates.Invalidate(ctx); err != nil {
		s.logger.Warn("date cache invalidation failed", zap.Error(err))
	}
}
