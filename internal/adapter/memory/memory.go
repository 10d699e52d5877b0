// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"weighttracking/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu        sync.Mutex
	users     []*domain.User
	sessions  map[string]*domain.Session
	employees map[int64]*employeeRow
	residents map[int64]domain.Resident
	sheets    map[int64]*sheetRow
	weights   map[int64]*domain.Weight

	userIDCounter     int64
	employeeIDCounter int64
	residentIDCounter int64
	sheetIDCounter    int64
	weightIDCounter   int64
}

type employeeRow struct {
	id     int64
	userID int64
	role   string
}

type sheetRow struct {
	id         int64
	employeeID int64
	residentID int64
	date       domain.Date
	flags      domain.SheetFlags
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions:  make(map[string]*domain.Session),
		employees: make(map[int64]*employeeRow),
		residents: make(map[int64]domain.Resident),
		sheets:    make(map[int64]*sheetRow),
		weights:   make(map[int64]*domain.Weight),
	}
}

// Ensure interfaces are met.
var (
	_ domain.UserRepository        = (*DB)(nil)
	_ domain.EmployeeRepository    = (*DB)(nil)
	_ domain.ResidentRepository    = (*DB)(nil)
	_ domain.WeightSheetRepository = (*DB)(nil)
	_ domain.WeightRepository      = (*DB)(nil)
	_ domain.SessionRepository     = (*SessionRepo)(nil)
)

// --- Roster ---

// AddResident adds a resident to the roster and returns it.
func (db *DB) AddResident(firstName, lastName string, roomNum int) domain.Resident {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.residentIDCounter++
	r := domain.Resident{ID: db.residentIDCounter, FirstName: firstName, LastName: lastName, RoomNum: roomNum}
	db.residents[r.ID] = r
	return r
}

// AddEmployee links an existing user to a new employee record.
func (db *DB) AddEmployee(userID int64, role string) (*domain.Employee, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.userByID(userID) == nil {
		return nil, errors.New("user does not exist")
	}
	for _, e := range db.employees {
		if e.userID == userID {
			return nil, domain.ErrAlreadyExists
		}
	}
	db.employeeIDCounter++
	row := &employeeRow{id: db.employeeIDCounter, userID: userID, role: role}
	db.employees[row.id] = row
	return db.expandEmployee(row.id), nil
}

// CreateEmployee is AddEmployee behind the EmployeeRepository port.
func (db *DB) CreateEmployee(ctx context.Context, userID int64, role string) (*domain.Employee, error) {
	return db.AddEmployee(userID, role)
}

// ListResidents returns the roster ordered by ID.
func (db *DB) ListResidents(ctx context.Context) ([]domain.Resident, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.sortedResidents(), nil
}

// GetResident returns one resident or ErrResidentNotFound.
func (db *DB) GetResident(ctx context.Context, id int64) (*domain.Resident, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	r, ok := db.residents[id]
	if !ok {
		return nil, domain.ErrResidentNotFound
	}
	return &r, nil
}

// GetEmployeeByUserID returns the employee linked to userID or
// ErrEmployeeNotFound.
func (db *DB) GetEmployeeByUserID(ctx context.Context, userID int64) (*domain.Employee, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, e := range db.employees {
		if e.userID == userID {
			return db.expandEmployee(e.id), nil
		}
	}
	return nil, domain.ErrEmployeeNotFound
}

func (db *DB) sortedResidents() []domain.Resident {
	out := make([]domain.Resident, 0, len(db.residents))
	for _, r := range db.residents {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (db *DB) expandEmployee(id int64) *domain.Employee {
	row, ok := db.employees[id]
	if !ok {
		return nil
	}
	emp := &domain.Employee{ID: row.id, Role: row.role}
	if u := db.userByID(row.userID); u != nil {
		emp.User = *u
	}
	return emp
}

// --- WeightSheetRepository ---

// ListWeightSheets returns sheets matching f ordered by ID.
func (db *DB) ListWeightSheets(ctx context.Context, f domain.SheetFilter) ([]domain.WeightSheet, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.WeightSheet, 0)
	for _, row := range db.sortedSheets() {
		ws := db.expandSheet(row)
		if f.Matches(ws) {
			out = append(out, ws)
		}
	}
	return out, nil
}

// GetWeightSheet returns one sheet or ErrWeightSheetNotFound.
func (db *DB) GetWeightSheet(ctx context.Context, id int64) (*domain.WeightSheet, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	row, ok := db.sheets[id]
	if !ok {
		return nil, domain.ErrWeightSheetNotFound
	}
	ws := db.expandSheet(row)
	return &ws, nil
}

// CreateWeightSheet stores ws and its companion weight.
func (db *DB) CreateWeightSheet(ctx context.Context, ws *domain.WeightSheet, weight float64) (*domain.Weight, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.residents[ws.Resident.ID]; !ok {
		return nil, domain.ErrResidentNotFound
	}
	if db.sheetFor(ws.Resident.ID, ws.Date) != nil {
		return nil, domain.ErrAlreadyExists
	}
	var employeeID int64
	if ws.Employee != nil {
		employeeID = ws.Employee.ID
	}
	row := db.insertSheet(employeeID, ws.Resident.ID, ws.Date, ws.SheetFlags)
	w := db.insertWeight(ws.Resident.ID, &row.id, ws.Date, weight)

	ws.ID = row.id
	out := *w
	return &out, nil
}

// UpdateWeightSheet persists the editor, resident and flags of ws.
func (db *DB) UpdateWeightSheet(ctx context.Context, ws *domain.WeightSheet) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	row, ok := db.sheets[ws.ID]
	if !ok {
		return domain.ErrWeightSheetNotFound
	}
	if _, ok := db.residents[ws.Resident.ID]; !ok {
		return domain.ErrResidentNotFound
	}
	if other := db.sheetFor(ws.Resident.ID, row.date); other != nil && other.id != row.id {
		return domain.ErrAlreadyExists
	}
	row.employeeID = 0
	if ws.Employee != nil {
		row.employeeID = ws.Employee.ID
	}
	row.residentID = ws.Resident.ID
	row.flags = ws.SheetFlags
	return nil
}

// DeleteWeightSheet deletes a sheet, detaching its companion weight.
func (db *DB) DeleteWeightSheet(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.sheets[id]; !ok {
		return domain.ErrWeightSheetNotFound
	}
	delete(db.sheets, id)
	for _, w := range db.weights {
		if w.WeightSheetID != nil && *w.WeightSheetID == id {
			w.WeightSheetID = nil
		}
	}
	return nil
}

// CreateMissingWeightSheets creates a baseline sheet and a zero weight for
// every resident without a sheet on date.
func (db *DB) CreateMissingWeightSheets(ctx context.Context, date domain.Date, employeeID int64, flags domain.SheetFlags) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	created := 0
	for _, r := range db.sortedResidents() {
		if db.sheetFor(r.ID, date) != nil {
			continue
		}
		row := db.insertSheet(employeeID, r.ID, date, flags)
		db.insertWeight(r.ID, &row.id, date, 0)
		created++
	}
	return created, nil
}

// DeleteByDate removes every sheet and every weight on date.
func (db *DB) DeleteByDate(ctx context.Context, date domain.Date) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for id, row := range db.sheets {
		if row.date.Equal(date) {
			delete(db.sheets, id)
		}
	}
	for id, w := range db.weights {
		if w.Date.Equal(date) {
			delete(db.weights, id)
		}
	}
	return nil
}

// SetFinalByDate sets final on every sheet on date.
func (db *DB) SetFinalByDate(ctx context.Context, date domain.Date, final bool) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var n int64
	for _, row := range db.sheets {
		if row.date.Equal(date) {
			row.flags.Final = final
			n++
		}
	}
	return n, nil
}

// ListDates returns the distinct sheet dates, newest first.
func (db *DB) ListDates(ctx context.Context, finalOnly bool) ([]domain.Date, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	dates := make([]domain.Date, 0, len(db.sheets))
	for _, row := range db.sheets {
		if finalOnly && !row.flags.Final {
			continue
		}
		dates = append(dates, row.date)
	}
	return domain.SortDatesDesc(dates), nil
}

// DetailedView joins weights and sheets on resident for one date, then joins
// the resident. Residents missing either side are left out.
func (db *DB) DetailedView(ctx context.Context, date domain.Date) ([]domain.DetailedRow, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows := make([]domain.DetailedRow, 0)
	for _, w := range db.sortedWeights() {
		if !w.Date.Equal(date) {
			continue
		}
		for _, ws := range db.sortedSheets() {
			if ws.residentID != w.ResidentID || !ws.date.Equal(date) {
				continue
			}
			r, ok := db.residents[ws.residentID]
			if !ok {
				continue
			}
			rows = append(rows, domain.DetailedRow{
				FirstName:     r.FirstName,
				LastName:      r.LastName,
				RoomNum:       r.RoomNum,
				Weight:        w.Weight,
				WeightID:      w.ID,
				WeightSheetID: ws.id,
				ResidentID:    r.ID,
				SheetFlags:    ws.flags,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].RoomNum != rows[j].RoomNum {
			return rows[i].RoomNum < rows[j].RoomNum
		}
		if rows[i].LastName != rows[j].LastName {
			return rows[i].LastName < rows[j].LastName
		}
		return rows[i].WeightID < rows[j].WeightID
	})
	return rows, nil
}

func (db *DB) sheetFor(residentID int64, date domain.Date) *sheetRow {
	for _, row := range db.sheets {
		if row.residentID == residentID && row.date.Equal(date) {
			return row
		}
	}
	return nil
}

func (db *DB) insertSheet(employeeID, residentID int64, date domain.Date, flags domain.SheetFlags) *sheetRow {
	db.sheetIDCounter++
	row := &sheetRow{
		id:         db.sheetIDCounter,
		employeeID: employeeID,
		residentID: residentID,
		date:       date,
		flags:      flags,
	}
	db.sheets[row.id] = row
	return row
}

func (db *DB) sortedSheets() []*sheetRow {
	out := make([]*sheetRow, 0, len(db.sheets))
	for _, row := range db.sheets {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (db *DB) expandSheet(row *sheetRow) domain.WeightSheet {
	ws := domain.WeightSheet{
		ID:         row.id,
		Resident:   db.residents[row.residentID],
		Date:       row.date,
		SheetFlags: row.flags,
	}
	if row.employeeID != 0 {
		ws.Employee = db.expandEmployee(row.employeeID)
	}
	return ws
}

// --- WeightRepository ---

// ListWeights returns weights matching f, newest date first.
func (db *DB) ListWeights(ctx context.Context, f domain.WeightFilter) ([]domain.Weight, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	all := db.sortedWeights()
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })

	out := make([]domain.Weight, 0)
	for _, w := range all {
		if !f.Matches(*w) {
			continue
		}
		out = append(out, *w)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// GetWeight returns one weight or ErrWeightNotFound.
func (db *DB) GetWeight(ctx context.Context, id int64) (*domain.Weight, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	w, ok := db.weights[id]
	if !ok {
		return nil, domain.ErrWeightNotFound
	}
	out := *w
	return &out, nil
}

// AddWeight stores w and fills in its ID.
func (db *DB) AddWeight(ctx context.Context, w *domain.Weight) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.residents[w.ResidentID]; !ok {
		return domain.ErrResidentNotFound
	}
	stored := db.insertWeight(w.ResidentID, w.WeightSheetID, w.Date, w.Weight)
	w.ID = stored.ID
	return nil
}

// UpdateWeightValue replaces the value of a weight.
func (db *DB) UpdateWeightValue(ctx context.Context, id int64, value float64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	w, ok := db.weights[id]
	if !ok {
		return domain.ErrWeightNotFound
	}
	w.Weight = value
	return nil
}

// DeleteWeight deletes a weight by ID.
func (db *DB) DeleteWeight(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.weights[id]; !ok {
		return domain.ErrWeightNotFound
	}
	delete(db.weights, id)
	return nil
}

func (db *DB) insertWeight(residentID int64, sheetID *int64, date domain.Date, value float64) *domain.Weight {
	db.weightIDCounter++
	var ref *int64
	if sheetID != nil {
		id := *sheetID
		ref = &id
	}
	w := &domain.Weight{
		ID:            db.weightIDCounter,
		ResidentID:    residentID,
		WeightSheetID: ref,
		Date:          date,
		Weight:        value,
	}
	db.weights[w.ID] = w
	return w
}

func (db *DB) sortedWeights() []*domain.Weight {
	out := make([]*domain.Weight, 0, len(db.weights))
	for _, w := range db.weights {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.userByID(id), nil
}

func (db *DB) userByID(id int64) *domain.User {
	for _, u := range db.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, domain.ErrAlreadyExists
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	return u, nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token. Expired sessions are returned so
// the caller can tell expiry from absence.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		out := *s
		return &out, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
