package domain

import "context"

// Resident is a member of the facility roster.
type Resident struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	RoomNum   int    `json:"room_num"`
}

// Employee is a staff member linked 1:1 to a login identity.
type Employee struct {
	ID   int64  `json:"id"`
	User User   `json:"user"`
	Role string `json:"role"`
}

// ResidentRepository is the read-only port onto the roster.
type ResidentRepository interface {
	ListResidents(ctx context.Context) ([]Resident, error)
	GetResident(ctx context.Context, id int64) (*Resident, error)
}

// EmployeeRepository resolves login identities to employees.
type EmployeeRepository interface {
	GetEmployeeByUserID(ctx context.Context, userID int64) (*Employee, error)
	// CreateEmployee links a new employee with role to userID. A user that
	// already has one gets ErrAlreadyExists.
	CreateEmployee(ctx context.Context, userID int64, role string) (*Employee, error)
}
