package domain

import (
	"context"
	"errors"
	"time"
)

// DepartmentSummary is one row of the site-wide today view.
type DepartmentSummary struct {
	DepartmentID   int64  `json:"department_id"`
	DepartmentName string `json:"department_name"`
	Pending        int64  `json:"pending"`
	Expected       int64  `json:"expected"`
	CheckedIn      int64  `json:"checked_in"`
}

type DepartmentsTodayResponse struct {
	Date        string              `json:"date"`
	Departments []DepartmentSummary `json:"departments"`
}

// VisitorToday is one expected visitor of a department with their gate
// activity so far.
type VisitorToday struct {
	GatepassID    string     `json:"gatepass_id"`
	PassCode      string     `json:"pass_code"`
	VisitorName   string     `json:"visitor_name"`
	Company       string     `json:"company,omitempty"`
	HostEmpID     int64      `json:"host_emp_id"`
	HostName      string     `json:"host_name,omitempty"`
	FirstCheckin  *time.Time `json:"first_checkin,omitempty"`
	LastCheckout  *time.Time `json:"last_checkout,omitempty"`
	VisitorStatus string     `json:"visitor_status"`
}

type DepartmentTodayResponse struct {
	Date           string         `json:"date"`
	DepartmentID   int64          `json:"department_id"`
	DepartmentName string         `json:"department_name"`
	Visitors       []VisitorToday `json:"visitors"`
}

type DepartmentTodayRequest struct {
	DepartmentID int64
}

type Service interface {
	DepartmentsToday(context.Context) (DepartmentsTodayResponse, error)
	DepartmentToday(context.Context, DepartmentTodayRequest) (DepartmentTodayResponse, error)
}

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("not_found")
)
