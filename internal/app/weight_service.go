package app

import (
	"context"
	"errors"

	"weighttracking/internal/domain"
)

var (
	// ErrInvalidWeight indicates a negative weight value.
	ErrInvalidWeight = errors.New("weight must be >= 0")
	// ErrInvalidUnit indicates a unit other than "kg" or "lb".
	ErrInvalidUnit = errors.New("unit must be \"kg\" or \"lb\"")
)

// WeightService encapsulates the weight record use cases.
type WeightService struct {
	weights   domain.WeightRepository
	residents domain.ResidentRepository
}

// NewWeightService creates a WeightService backed by the given repositories.
func NewWeightService(weights domain.WeightRepository, residents domain.ResidentRepository) *WeightService {
	return &WeightService{weights: weights, residents: residents}
}

// List returns weights matching f, newest date first.
func (s *WeightService) List(ctx context.Context, f domain.WeightFilter) ([]domain.Weight, error) {
	return s.weights.ListWeights(ctx, f)
}

// Get returns one weight or ErrWeightNotFound.
func (s *WeightService) Get(ctx context.Context, id int64) (*domain.Weight, error) {
	return s.weights.GetWeight(ctx, id)
}

// Record validates and stores a standalone weight for a resident.
func (s *WeightService) Record(ctx context.Context, residentID int64, date domain.Date, value float64) (*domain.Weight, error) {
	if value < 0 {
		return nil, ErrInvalidWeight
	}
	if date.IsZero() {
		return nil, domain.ErrDateRequired
	}
	if _, err := s.residents.GetResident(ctx, residentID); err != nil {
		return nil, err
	}
	w := &domain.Weight{ResidentID: residentID, Date: date, Weight: value}
	if err := s.weights.AddWeight(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Correct replaces the value of an existing weight and returns the result.
func (s *WeightService) Correct(ctx context.Context, id int64, value float64) (*domain.Weight, error) {
	if value < 0 {
		return nil, ErrInvalidWeight
	}
	if err := s.weights.UpdateWeightValue(ctx, id, value); err != nil {
		return nil, err
	}
	return s.weights.GetWeight(ctx, id)
}

// Delete removes one weight.
func (s *WeightService) Delete(ctx context.Context, id int64) error {
	return s.weights.DeleteWeight(ctx, id)
}

// WeightPoint is one entry of a resident's weight history.
type WeightPoint struct {
	ID    int64       `json:"id"`
	Date  domain.Date `json:"date"`
	Value float64     `json:"value"`
	Unit  string      `json:"unit"`
}

// History returns up to limit of a resident's most recent weights, newest
// first, converted to unit. Zero weights (placeholders from bulk creation) are
// skipped.
func (s *WeightService) History(ctx context.Context, residentID int64, limit int, unit string) ([]WeightPoint, error) {
	if !domain.ValidUnit(unit) {
		return nil, ErrInvalidUnit
	}
	if limit <= 0 {
		limit = 30
	}
	if limit > 366 {
		limit = 366
	}
	if _, err := s.residents.GetResident(ctx, residentID); err != nil {
		return nil, err
	}

	items, err := s.weights.ListWeights(ctx, domain.WeightFilter{ResidentID: &residentID})
	if err != nil {
		return nil, err
	}
	points := make([]WeightPoint, 0, limit)
	for _, w := range items {
		if w.Weight == 0 {
			continue
		}
		points = append(points, WeightPoint{
			ID:    w.ID,
			Date:  w.Date,
			Value: domain.ConvertWeight(w.Weight, domain.BaseUnit, unit),
			Unit:  unit,
		})
		if len(points) == limit {
			break
		}
	}
	return points, nil
}
