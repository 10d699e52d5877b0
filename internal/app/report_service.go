package app

import (
	"context"

	"go.uber.org/zap"

	"weighttracking/internal/domain"
)

// ReportService is the read-only reporting side over weight sheets and
// weights.
type ReportService struct {
	sheets domain.WeightSheetRepository
	dates  domain.DateCache
	logger *zap.Logger
}

// NewReportService creates a ReportService. cache and logger may be nil.
func NewReportService(sheets domain.WeightSheetRepository, cache domain.DateCache, logger *zap.Logger) *ReportService {
	if cache == nil {
		cache = noDateCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{sheets: sheets, dates: cache, logger: logger}
}

// DetailedView returns one row per resident having both a weight and a weight
// sheet on date, joined with the resident's name and room.
func (s *ReportService) DetailedView(ctx context.Context, date domain.Date) ([]domain.DetailedRow, error) {
	if date.IsZero() {
		return nil, domain.ErrDateRequired
	}
	rows, err := s.sheets.DetailedView(ctx, date)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.DetailedRow{}
	}
	return rows, nil
}

// Dates returns every date having at least one sheet, newest first.
func (s *ReportService) Dates(ctx context.Context) ([]domain.Date, error) {
	return s.listDates(ctx, false)
}

// FinalizedDates returns every date having at least one finalized sheet,
// newest first.
func (s *ReportService) FinalizedDates(ctx context.Context) ([]domain.Date, error) {
	return s.listDates(ctx, true)
}

func (s *ReportService) listDates(ctx context.Context, finalOnly bool) ([]domain.Date, error) {
	cached, gen, ok, err := s.dates.GetDates(ctx, finalOnly)
	if err != nil {
		s.logger.Warn("date cache read failed", zap.Error(err))
	}
	if ok {
		return cached, nil
	}

	dates, err := s.sheets.ListDates(ctx, finalOnly)
	if err != nil {
		return nil, err
	}
	dates = domain.SortDatesDesc(dates)
	if err := s.dates.SetDates(ctx, finalOnly, gen, dates); err != nil {
		s.logger.Warn("date cache write failed", zap.Error(err))
	}
	return dates, nil
}

type noDateCache struct{}

func (noDateCache) GetDates(context.Context, bool) ([]domain.Date, int64, bool, error) {
	return nil, 0, false, nil
}
func (noDateCache) SetDates(context.Context, bool, int64, []domain.Date) error { return nil }
func (noDateCache) Invalidate(context.Context) error                          { return nil }
