package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindEmployeeByID(ctx context.Context, db *gorm.DB, empID int64) (*Employee, error)
	FindEmployeeByCode(ctx context.Context, db *gorm.DB, empCode string) (*Employee, error)
	FindUserByID(ctx context.Context, db *gorm.DB, userID int64) (*UserAccount, error)
	FindDepartmentByID(ctx context.Context, db *gorm.DB, departmentID int64) (*Department, error)
	FindDepartmentAdmin(ctx context.Context, db *gorm.DB, departmentID int64, roles []string) (*UserAccount, error)
}
