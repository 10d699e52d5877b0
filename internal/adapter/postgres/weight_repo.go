package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"weighttracking/internal/domain"
)

const weightSelect = "SELECT id, resident_id, weight_sheet_id, date, weight FROM weights"

func scanWeight(rs rowScanner) (domain.Weight, error) {
	var (
		w       domain.Weight
		sheetID sql.NullInt64
	)
	if err := rs.Scan(&w.ID, &w.ResidentID, &sheetID, &w.Date, &w.Weight); err != nil {
		return w, err
	}
	if sheetID.Valid {
		id := sheetID.Int64
		w.WeightSheetID = &id
	}
	return w, nil
}

// ListWeights returns weights matching f, newest date first.
func (d *DB) ListWeights(ctx context.Context, f domain.WeightFilter) ([]domain.Weight, error) {
	var (
		where []string
		args  []any
	)
	if f.ResidentID != nil {
		args = append(args, *f.ResidentID)
		where = append(where, fmt.Sprintf("resident_id = $%d", len(args)))
	}
	if f.Date != nil {
		args = append(args, *f.Date)
		where = append(where, fmt.Sprintf("date = $%d", len(args)))
	}
	q := weightSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date DESC, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := d.sql.QueryContext(ctx, q+";", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Weight, 0)
	for rows.Next() {
		w, err := scanWeight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetWeight returns one weight or ErrWeightNotFound.
func (d *DB) GetWeight(ctx context.Context, id int64) (*domain.Weight, error) {
	w, err := scanWeight(d.sql.QueryRowContext(ctx, weightSelect+" WHERE id = $1;", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWeightNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// AddWeight inserts a weight and fills in its ID.
func (d *DB) AddWeight(ctx context.Context, w *domain.Weight) error {
	var sheetID sql.NullInt64
	if w.WeightSheetID != nil {
		sheetID = sql.NullInt64{Int64: *w.WeightSheetID, Valid: true}
	}
	err := d.sql.QueryRowContext(ctx, insertWeight, w.ResidentID, sheetID, w.Date, w.Weight).Scan(&w.ID)
	if isForeignKeyViolation(err) {
		return foreignKeyError(err)
	}
	return err
}

// UpdateWeightValue replaces the value of one weight.
func (d *DB) UpdateWeightValue(ctx context.Context, id int64, value float64) error {
	res, err := d.sql.ExecContext(ctx, "UPDATE weights SET weight = $1 WHERE id = $2;", value, id)
	if err != nil {
		return err
	}
	return expectAffected(res, domain.ErrWeightNotFound)
}

// DeleteWeight removes one weight.
func (d *DB) DeleteWeight(ctx context.Context, id int64) error {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM weights WHERE id = $1;", id)
	if err != nil {
		return err
	}
	return expectAffected(res, domain.ErrWeightNotFound)
}
