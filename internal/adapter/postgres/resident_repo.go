package postgres

import (
	"context"
	"database/sql"
	"errors"

	"weighttracking/internal/domain"
)

// ListResidents returns the roster in id order.
func (d *DB) ListResidents(ctx context.Context) ([]domain.Resident, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, first_name, last_name, room_num FROM residents ORDER BY id;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Resident
	for rows.Next() {
		var r domain.Resident
		if err := rows.Scan(&r.ID, &r.FirstName, &r.LastName, &r.RoomNum); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetResident returns one resident or ErrResidentNotFound.
func (d *DB) GetResident(ctx context.Context, id int64) (*domain.Resident, error) {
	var r domain.Resident
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, room_num FROM residents WHERE id = $1;", id,
	).Scan(&r.ID, &r.FirstName, &r.LastName, &r.RoomNum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrResidentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
