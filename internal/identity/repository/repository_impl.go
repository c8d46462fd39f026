package repository

import (
	"context"
	"strings"

	"github.com/sentrilane/visitgate/internal/identity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindEmployeeByID(ctx context.Context, db *gorm.DB, empID int64) (*domain.Employee, error) {
	var employee domain.Employee
	err := db.WithContext(ctx).Raw(
		`SELECT emp_id, emp_code, first_name, last_name, email, phone, designation, department_id, is_active, created_at
		 FROM employees WHERE emp_id = ?`,
		empID,
	).Scan(&employee).Error
	if err != nil {
		return nil, err
	}
	if employee.EmpID == 0 {
		return nil, nil
	}
	return &employee, nil
}

func (r *repo) FindEmployeeByCode(ctx context.Context, db *gorm.DB, empCode string) (*domain.Employee, error) {
	var employee domain.Employee
	err := db.WithContext(ctx).Raw(
		`SELECT emp_id, emp_code, first_name, last_name, email, phone, designation, department_id, is_active, created_at
		 FROM employees WHERE emp_code = ?`,
		strings.TrimSpace(empCode),
	).Scan(&employee).Error
	if err != nil {
		return nil, err
	}
	if employee.EmpID == 0 {
		return nil, nil
	}
	return &employee, nil
}

func (r *repo) FindUserByID(ctx context.Context, db *gorm.DB, userID int64) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, user_code, name, email, role, department_id, is_active, created_at
		 FROM user_accounts WHERE user_id = ?`,
		userID,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.UserID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindDepartmentByID(ctx context.Context, db *gorm.DB, departmentID int64) (*domain.Department, error) {
	var department domain.Department
	err := db.WithContext(ctx).Raw(
		`SELECT department_id, department_name, is_active, created_at
		 FROM departments WHERE department_id = ?`,
		departmentID,
	).Scan(&department).Error
	if err != nil {
		return nil, err
	}
	if department.DepartmentID == 0 {
		return nil, nil
	}
	return &department, nil
}

func (r *repo) FindDepartmentAdmin(ctx context.Context, db *gorm.DB, departmentID int64, roles []string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := db.WithContext(ctx).
		Model(&domain.UserAccount{}).
		Where("department_id = ?", departmentID).
		Where("is_active = ?", true).
		Where("role IN ?", roles).
		Order("user_id asc").
		Limit(1).
		Find(&user).Error
	if err != nil {
		return nil, err
	}
	if user.UserID == 0 {
		return nil, nil
	}
	return &user, nil
}
