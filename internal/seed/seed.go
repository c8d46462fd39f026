package seed

import (
	"context"
	"errors"
	"time"

	"github.com/sentrilane/visitgate/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// The identity tables are synced from the upstream HR directory in real
// deployments. Development environments have no sync job, so we plant a
// minimal directory on first boot.

var Module = fx.Module("seed",
	fx.Invoke(run),
)

func run(cfg config.Config, db *gorm.DB, log *zap.Logger) error {
	if cfg.IsProduction() {
		return nil
	}
	if err := EnsureDirectory(db); err != nil {
		log.Named("seed").Warn("directory seed failed", zap.Error(err))
	}
	return nil
}

// EnsureDirectory inserts a demo department with two employees and their
// user accounts when the directory is empty. Safe to call repeatedly.
func EnsureDirectory(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Raw(`SELECT COUNT(*) FROM departments`).Scan(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()

		if err := tx.Exec(
			`INSERT INTO departments (department_id, department_name, is_active, created_at)
			 VALUES (?, ?, ?, ?)`,
			1, "General Administration", true, now,
		).Error; err != nil {
			return err
		}

		employees := []struct {
			empID       int64
			empCode     string
			firstName   string
			lastName    string
			email       string
			designation string
		}{
			{1, "EMP001", "Asha", "Nair", "asha.nair@example.com", "Head of Department"},
			{2, "EMP002", "Rohan", "Mehta", "rohan.mehta@example.com", "Engineer"},
		}
		for _, e := range employees {
			if err := tx.Exec(
				`INSERT INTO employees (emp_id, emp_code, first_name, last_name, email, phone, designation, department_id, is_active, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				e.empID, e.empCode, e.firstName, e.lastName, e.email, "", e.designation, 1, true, now,
			).Error; err != nil {
				return err
			}
		}

		accounts := []struct {
			userID   int64
			userCode string
			name     string
			email    string
			role     string
		}{
			{1, "EMP001", "Asha Nair", "asha.nair@example.com", "DEPT_HEAD"},
			{2, "EMP002", "Rohan Mehta", "rohan.mehta@example.com", "EMPLOYEE"},
			{3, "", "Front Desk", "reception@example.com", "RECEPTION"},
		}
		for _, a := range accounts {
			if err := tx.Exec(
				`INSERT INTO user_accounts (user_id, user_code, name, email, role, department_id, is_active, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				a.userID, a.userCode, a.name, a.email, a.role, 1, true, now,
			).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
