package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"weighttracking/internal/domain"
)

const sheetSelect = `SELECT ws.id, ws.date, ws.reweighed, ws.refused, ws.not_in_room, ws.daily_wts,
	ws.show_alert, ws.scale_type, ws.final,
	r.id, r.first_name, r.last_name, r.room_num,
	e.id, e.role, u.id, u.username
FROM weight_sheets ws
JOIN residents r ON r.id = ws.resident_id
LEFT JOIN employees e ON e.id = ws.employee_id
LEFT JOIN users u ON u.id = e.user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSheet(rs rowScanner) (domain.WeightSheet, error) {
	var (
		ws       domain.WeightSheet
		empID    sql.NullInt64
		empRole  sql.NullString
		userID   sql.NullInt64
		username sql.NullString
	)
	err := rs.Scan(&ws.ID, &ws.Date, &ws.Reweighed, &ws.Refused, &ws.NotInRoom, &ws.DailyWts,
		&ws.ShowAlert, &ws.ScaleType, &ws.Final,
		&ws.Resident.ID, &ws.Resident.FirstName, &ws.Resident.LastName, &ws.Resident.RoomNum,
		&empID, &empRole, &userID, &username)
	if err != nil {
		return ws, err
	}
	if empID.Valid {
		ws.Employee = &domain.Employee{
			ID:   empID.Int64,
			Role: empRole.String,
			User: domain.User{ID: userID.Int64, Username: username.String},
		}
	}
	return ws, nil
}

func employeeArg(e *domain.Employee) sql.NullInt64 {
	if e == nil || e.ID == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: e.ID, Valid: true}
}

// ListWeightSheets returns the sheets matching f in id order.
func (d *DB) ListWeightSheets(ctx context.Context, f domain.SheetFilter) ([]domain.WeightSheet, error) {
	var (
		where []string
		args  []any
	)
	if f.ResidentID != nil {
		args = append(args, *f.ResidentID)
		where = append(where, fmt.Sprintf("ws.resident_id = $%d", len(args)))
	}
	if f.Date != nil {
		args = append(args, *f.Date)
		where = append(where, fmt.Sprintf("ws.date = $%d", len(args)))
	}
	q := sheetSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY ws.id;"

	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.WeightSheet, 0)
	for rows.Next() {
		ws, err := scanSheet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// GetWeightSheet returns one sheet or ErrWeightSheetNotFound.
func (d *DB) GetWeightSheet(ctx context.Context, id int64) (*domain.WeightSheet, error) {
	ws, err := scanSheet(d.sql.QueryRowContext(ctx, sheetSelect+" WHERE ws.id = $1;", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWeightSheetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

const insertSheet = `INSERT INTO weight_sheets
	(employee_id, resident_id, date, reweighed, refused, not_in_room, daily_wts, show_alert, scale_type, final)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const insertWeight = "INSERT INTO weights (resident_id, weight_sheet_id, date, weight) VALUES ($1, $2, $3, $4) RETURNING id;"

// CreateWeightSheet inserts ws and its companion weight in one transaction.
func (d *DB) CreateWeightSheet(ctx context.Context, ws *domain.WeightSheet, weight float64) (*domain.Weight, error) {
	var w *domain.Weight
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, insertSheet+" RETURNING id;",
			employeeArg(ws.Employee), ws.Resident.ID, ws.Date,
			ws.Reweighed, ws.Refused, ws.NotInRoom, ws.DailyWts, ws.ShowAlert, ws.ScaleType, ws.Final,
		).Scan(&id)
		switch {
		case isUniqueViolation(err):
			return domain.ErrAlreadyExists
		case isForeignKeyViolation(err):
			return foreignKeyError(err)
		case err != nil:
			return err
		}

		w = &domain.Weight{ResidentID: ws.Resident.ID, WeightSheetID: &id, Date: ws.Date, Weight: weight}
		if err := tx.QueryRowContext(ctx, insertWeight, w.ResidentID, id, w.Date, w.Weight).Scan(&w.ID); err != nil {
			return err
		}
		ws.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// UpdateWeightSheet persists the editor, resident and flags of ws. The date
// is never changed.
func (d *DB) UpdateWeightSheet(ctx context.Context, ws *domain.WeightSheet) error {
	res, err := d.sql.ExecContext(ctx,
		`UPDATE weight_sheets SET employee_id = $1, resident_id = $2, reweighed = $3, refused = $4,
			not_in_room = $5, daily_wts = $6, show_alert = $7, scale_type = $8, final = $9
		WHERE id = $10;`,
		employeeArg(ws.Employee), ws.Resident.ID, ws.Reweighed, ws.Refused,
		ws.NotInRoom, ws.DailyWts, ws.ShowAlert, ws.ScaleType, ws.Final, ws.ID,
	)
	switch {
	case isUniqueViolation(err):
		return domain.ErrAlreadyExists
	case isForeignKeyViolation(err):
		return foreignKeyError(err)
	case err != nil:
		return err
	}
	return expectAffected(res, domain.ErrWeightSheetNotFound)
}

// DeleteWeightSheet deletes a sheet. Its companion weight survives with a
// null weight_sheet_id.
func (d *DB) DeleteWeightSheet(ctx context.Context, id int64) error {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM weight_sheets WHERE id = $1;", id)
	if err != nil {
		return err
	}
	return expectAffected(res, domain.ErrWeightSheetNotFound)
}

// CreateMissingWeightSheets fills in a sheet and a zero weight for every
// resident without a sheet on date. ON CONFLICT makes concurrent runs safe.
func (d *DB) CreateMissingWeightSheets(ctx context.Context, date domain.Date, employeeID int64, flags domain.SheetFlags) (int, error) {
	emp := sql.NullInt64{Int64: employeeID, Valid: employeeID != 0}
	created := 0
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		ids, err := residentIDs(ctx, tx)
		if err != nil {
			return err
		}
		for _, rid := range ids {
			var sheetID int64
			err := tx.QueryRowContext(ctx, insertSheet+" ON CONFLICT (resident_id, date) DO NOTHING RETURNING id;",
				emp, rid, date,
				flags.Reweighed, flags.Refused, flags.NotInRoom, flags.DailyWts, flags.ShowAlert, flags.ScaleType, flags.Final,
			).Scan(&sheetID)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return err
			}
			var weightID int64
			if err := tx.QueryRowContext(ctx, insertWeight, rid, sheetID, date, 0.0).Scan(&weightID); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func residentIDs(ctx context.Context, tx *sql.Tx) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM residents ORDER BY id;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteByDate removes every sheet and every weight on date.
func (d *DB) DeleteByDate(ctx context.Context, date domain.Date) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM weight_sheets WHERE date = $1;", date); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM weights WHERE date = $1;", date)
		return err
	})
}

// SetFinalByDate sets final on every sheet on date in one statement.
func (d *DB) SetFinalByDate(ctx context.Context, date domain.Date, final bool) (int64, error) {
	res, err := d.sql.ExecContext(ctx, "UPDATE weight_sheets SET final = $1 WHERE date = $2;", final, date)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListDates returns the distinct sheet dates, newest first.
func (d *DB) ListDates(ctx context.Context, finalOnly bool) ([]domain.Date, error) {
	q := "SELECT DISTINCT date FROM weight_sheets ORDER BY date DESC;"
	if finalOnly {
		q = "SELECT DISTINCT date FROM weight_sheets WHERE final ORDER BY date DESC;"
	}
	rows, err := d.sql.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Date, 0)
	for rows.Next() {
		var dt domain.Date
		if err := rows.Scan(&dt); err != nil {
			return nil, err
		}
		out = append(out, dt)
	}
	return out, rows.Err()
}

// DetailedView inner-joins the weights and sheets of date on resident.
func (d *DB) DetailedView(ctx context.Context, date domain.Date) ([]domain.DetailedRow, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT r.first_name, r.last_name, r.room_num, w.weight, w.id, ws.id, ws.resident_id,
			ws.reweighed, ws.refused, ws.not_in_room, ws.daily_wts, ws.show_alert, ws.scale_type, ws.final
		FROM weights w
		JOIN weight_sheets ws ON ws.resident_id = w.resident_id
		JOIN residents r ON r.id = ws.resident_id
		WHERE w.date = $1 AND ws.date = $1
		ORDER BY r.room_num, r.last_name, w.id;`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.DetailedRow, 0)
	for rows.Next() {
		var r domain.DetailedRow
		if err := rows.Scan(&r.FirstName, &r.LastName, &r.RoomNum, &r.Weight, &r.WeightID, &r.WeightSheetID, &r.ResidentID,
			&r.Reweighed, &r.Refused, &r.NotInRoom, &r.DailyWts, &r.ShowAlert, &r.ScaleType, &r.Final); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
