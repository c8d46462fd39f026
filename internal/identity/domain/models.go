package domain

import "time"

// Department is a slice of the upstream HR directory. Rows are synced from
// the directory, not owned here, so identifiers stay plain int64.
type Department struct {
	DepartmentID   int64     `gorm:"primaryKey" json:"department_id"`
	DepartmentName string    `gorm:"not null" json:"department_name"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

type Employee struct {
	EmpID        int64     `gorm:"primaryKey" json:"emp_id"`
	EmpCode      string    `gorm:"not null;uniqueIndex" json:"emp_code"`
	FirstName    string    `gorm:"not null" json:"first_name"`
	LastName     string    `json:"last_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Designation  string    `json:"designation,omitempty"`
	DepartmentID int64     `gorm:"index" json:"department_id,omitempty"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (e Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// UserAccount is a login account. UserCode carries the emp_code of the
// employee the account belongs to, when one exists.
type UserAccount struct {
	UserID       int64     `gorm:"primaryKey" json:"user_id"`
	UserCode     string    `gorm:"index" json:"user_code,omitempty"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         string    `json:"role,omitempty"`
	DepartmentID int64     `gorm:"index" json:"department_id,omitempty"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Department) TableName() string  { return "departments" }
func (Employee) TableName() string    { return "employees" }
func (UserAccount) TableName() string { return "user_accounts" }
