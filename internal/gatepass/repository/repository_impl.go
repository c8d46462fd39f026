package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/internal/gatepass/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const selectColumns = `gatepass_id, pass_number, pass_code, prebooking_id, visitor_name, visitor_email, visitor_phone, host_emp_id, department_id, valid_date, photo_ref, pdf_path, email_sent, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, gatepass *domain.Gatepass) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO gatepasses (gatepass_id, pass_number, pass_code, prebooking_id, visitor_name, visitor_email, visitor_phone, host_emp_id, department_id, valid_date, photo_ref, pdf_path, email_sent, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gatepass.GatepassID,
		gatepass.PassNumber,
		gatepass.PassCode,
		gatepass.PrebookingID,
		gatepass.VisitorName,
		gatepass.VisitorEmail,
		gatepass.VisitorPhone,
		gatepass.HostEmpID,
		gatepass.DepartmentID,
		gatepass.ValidDate,
		gatepass.PhotoRef,
		gatepass.PDFPath,
		gatepass.EmailSent,
		gatepass.CreatedAt,
		gatepass.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Gatepass, error) {
	var gatepass domain.Gatepass
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM gatepasses WHERE gatepass_id = ?`,
		id,
	).Scan(&gatepass).Error
	if err != nil {
		return nil, err
	}
	if gatepass.GatepassID == 0 {
		return nil, nil
	}
	return &gatepass, nil
}

func (r *repo) FindByPrebooking(ctx context.Context, db *gorm.DB, prebookingID snowflake.ID) (*domain.Gatepass, error) {
	var gatepass domain.Gatepass
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM gatepasses WHERE prebooking_id = ?`,
		prebookingID,
	).Scan(&gatepass).Error
	if err != nil {
		return nil, err
	}
	if gatepass.GatepassID == 0 {
		return nil, nil
	}
	return &gatepass, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Gatepass, error) {
	var gatepass domain.Gatepass
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM gatepasses WHERE pass_code = ?`,
		strings.TrimSpace(code),
	).Scan(&gatepass).Error
	if err != nil {
		return nil, err
	}
	if gatepass.GatepassID == 0 {
		return nil, nil
	}
	return &gatepass, nil
}

func (r *repo) MaxPassNumber(ctx context.Context, db *gorm.DB) (int64, error) {
	var max *int64
	err := db.WithContext(ctx).Raw(
		`SELECT MAX(pass_number) FROM gatepasses`,
	).Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *repo) MarkEmailSent(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE gatepasses SET email_sent = ?, updated_at = CURRENT_TIMESTAMP WHERE gatepass_id = ?`,
		true,
		id,
	).Error
}

func (r *repo) UpdatePDFPath(ctx context.Context, db *gorm.DB, id snowflake.ID, path string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE gatepasses SET pdf_path = ?, updated_at = CURRENT_TIMESTAMP WHERE gatepass_id = ?`,
		path,
		id,
	).Error
}
