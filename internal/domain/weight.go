package domain

import "context"

// Weight is a resident's recorded weight on one date, in BaseUnit.
type Weight struct {
	ID            int64   `json:"id"`
	ResidentID    int64   `json:"resident"`
	WeightSheetID *int64  `json:"weight_sheet"`
	Date          Date    `json:"date"`
	Weight        float64 `json:"weight"`
}

// WeightFilter narrows ListWeights. Nil fields do not filter.
type WeightFilter struct {
	ResidentID *int64
	Date       *Date
	Limit      int
}

// Matches reports whether w satisfies the resident and date fields of f.
func (f WeightFilter) Matches(w Weight) bool {
	if f.ResidentID != nil && w.ResidentID != *f.ResidentID {
		return false
	}
	if f.Date != nil && !w.Date.Equal(*f.Date) {
		return false
	}
	return true
}

// WeightRepository is the port for weight persistence. ListWeights returns
// newest dates first.
type WeightRepository interface {
	ListWeights(ctx context.Context, f WeightFilter) ([]Weight, error)
	GetWeight(ctx context.Context, id int64) (*Weight, error)
	AddWeight(ctx context.Context, w *Weight) error
	UpdateWeightValue(ctx context.Context, id int64, value float64) error
	DeleteWeight(ctx context.Context, id int64) error
}
