package domain

import "context"

// SheetFlags are the weighing conditions recorded on a weight sheet.
type SheetFlags struct {
	Reweighed bool   `json:"reweighed"`
	Refused   bool   `json:"refused"`
	NotInRoom bool   `json:"not_in_room"`
	DailyWts  bool   `json:"daily_wts"`
	ShowAlert bool   `json:"show_alert"`
	ScaleType string `json:"scale_type"`
	Final     bool   `json:"final"`
}

// DefaultSheetFlags is the baseline given to sheets created in bulk.
func DefaultSheetFlags() SheetFlags {
	return SheetFlags{ShowAlert: true}
}

// WeightSheet is the work record for one resident on one date. At most one
// exists per (resident, date).
type WeightSheet struct {
	ID       int64     `json:"id"`
	Employee *Employee `json:"employee"`
	Resident Resident  `json:"resident"`
	Date     Date      `json:"date"`
	SheetFlags
}

// SheetFilter narrows ListWeightSheets. Nil fields do not filter.
type SheetFilter struct {
	ResidentID *int64
	Date       *Date
}

// Matches reports whether ws satisfies every set field of f.
func (f SheetFilter) Matches(ws WeightSheet) bool {
	if f.ResidentID != nil && ws.Resident.ID != *f.ResidentID {
		return false
	}
	if f.Date != nil && !ws.Date.Equal(*f.Date) {
		return false
	}
	return true
}

// DetailedRow is one line of the detailed view report: a resident that has
// both a weight and a weight sheet on the report date.
type DetailedRow struct {
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	RoomNum       int     `json:"room_num"`
	Weight        float64 `json:"weight"`
	WeightID      int64   `json:"weight_id"`
	WeightSheetID int64   `json:"weight_sheet_id"`
	ResidentID    int64   `json:"resident_id"`
	SheetFlags
}

// WeightSheetRepository is the port for weight sheet persistence.
type WeightSheetRepository interface {
	ListWeightSheets(ctx context.Context, f SheetFilter) ([]WeightSheet, error)
	GetWeightSheet(ctx context.Context, id int64) (*WeightSheet, error)
	// CreateWeightSheet stores ws and its companion weight as one unit and
	// fills in ws.ID. It returns ErrAlreadyExists when the resident already
	// has a sheet on ws.Date.
	CreateWeightSheet(ctx context.Context, ws *WeightSheet, weight float64) (*Weight, error)
	UpdateWeightSheet(ctx context.Context, ws *WeightSheet) error
	DeleteWeightSheet(ctx context.Context, id int64) error
	// CreateMissingWeightSheets creates a sheet with flags and a zero weight
	// for every resident lacking a sheet on date, returning how many were made.
	CreateMissingWeightSheets(ctx context.Context, date Date, employeeID int64, flags SheetFlags) (int, error)
	// DeleteByDate removes every sheet and every weight on date.
	DeleteByDate(ctx context.Context, date Date) error
	SetFinalByDate(ctx context.Context, date Date, final bool) (int64, error)
	ListDates(ctx context.Context, finalOnly bool) ([]Date, error)
	DetailedView(ctx context.Context, date Date) ([]DetailedRow, error)
}

// DateCache caches the distinct date lists. Every Invalidate starts a new
// generation; a list stored for an older generation is never served.
type DateCache interface {
	// GetDates returns the cached list, the current generation and whether
	// the list was present. On a miss the generation must be read before the
	// store is queried and handed back to SetDates.
	GetDates(ctx context.Context, finalOnly bool) ([]Date, int64, bool, error)
	SetDates(ctx context.Context, finalOnly bool, gen int64, dates []Date) error
	Invalidate(ctx context.Context) error
}
