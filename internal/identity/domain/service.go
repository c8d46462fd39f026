package domain

import (
	"context"
	"errors"
)

// HostRefs identifies a visit host across the three directory spaces. Any
// subset of the fields may be set; zero means absent.
type HostRefs struct {
	EmpID        int64 `json:"emp_id,omitempty"`
	UserID       int64 `json:"user_id,omitempty"`
	DepartmentID int64 `json:"department_id,omitempty"`
}

// Empty reports whether no reference is carried at all.
func (r HostRefs) Empty() bool {
	return r.EmpID <= 0 && r.UserID <= 0 && r.DepartmentID <= 0
}

// NotifyTarget is where a notification for a given directory identifier
// should land. EmpID is nil when no employee could be resolved; Role then
// carries the fallback audience.
type NotifyTarget struct {
	EmpID *int64 `json:"emp_id,omitempty"`
	Role  string `json:"role,omitempty"`
}

// DepartmentAdmin is the account that approves on behalf of a department.
type DepartmentAdmin struct {
	EmpID *int64 `json:"emp_id,omitempty"`
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
}

type Service interface {
	// GetEmployee returns the active employee with the given id.
	GetEmployee(ctx context.Context, empID int64) (Employee, error)

	// ResolveDepartment picks the host's department. An explicitly
	// supplied department id wins, then the employee's department, then
	// the user account's. First hit wins.
	ResolveDepartment(ctx context.Context, refs HostRefs) (Department, error)

	// ResolveNotifyTarget maps an ambiguous directory identifier onto an
	// employee. The id may be an emp_id or a user_id whose account links
	// back to an employee through its user_code.
	ResolveNotifyTarget(ctx context.Context, candidateID int64) (NotifyTarget, error)

	// ResolveDepartmentAdmin picks the approving account for a department.
	ResolveDepartmentAdmin(ctx context.Context, departmentID int64) (DepartmentAdmin, error)

	// MapDesignationToRole maps a free-text designation onto a role token.
	MapDesignationToRole(designation string) string
}

var (
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("not_found")
	ErrInactive     = errors.New("inactive")
	ErrNoDepartment = errors.New("no_department")
)
