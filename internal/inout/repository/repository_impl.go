package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/internal/inout/domain"
	"github.com/sentrilane/visitgate/pkg/db/option"
	"github.com/sentrilane/visitgate/pkg/db/pagination"
	"gorm.io/gorm"
)

const selectColumns = `record_id, gatepass_id, prebooking_id, visitor_phone, visitor_email, action, gate, issued_items, remarks, recorded_by, recorded_by_name, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.InoutRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO inout_records (record_id, gatepass_id, prebooking_id, visitor_phone, visitor_email, action, gate, issued_items, remarks, recorded_by, recorded_by_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RecordID,
		record.GatepassID,
		record.PrebookingID,
		record.VisitorPhone,
		record.VisitorEmail,
		record.Action,
		record.Gate,
		record.IssuedItems,
		record.Remarks,
		record.RecordedBy,
		record.RecordedByName,
		record.CreatedAt,
	).Error
}

func (r *repo) FindLastAction(ctx context.Context, db *gorm.DB, gatepassID snowflake.ID, phone, email string) (*domain.InoutRecord, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.InoutRecord{}).
		Select(selectColumns).
		Where("gatepass_id = ?", gatepassID).
		Where("action <> ?", domain.ActionReturn)

	phone = strings.TrimSpace(phone)
	email = strings.TrimSpace(email)
	switch {
	case phone != "" && email != "":
		stmt = stmt.Where("visitor_phone = ? OR visitor_email = ?", phone, email)
	case phone != "":
		stmt = stmt.Where("visitor_phone = ?", phone)
	case email != "":
		stmt = stmt.Where("visitor_email = ?", email)
	}

	var record domain.InoutRecord
	err := stmt.
		Order("created_at desc, record_id desc").
		Limit(1).
		Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.RecordID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) FindCheckinByGatepass(ctx context.Context, db *gorm.DB, gatepassID snowflake.ID) (*domain.InoutRecord, error) {
	var record domain.InoutRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+`
		 FROM inout_records
		 WHERE gatepass_id = ? AND action = ?
		 ORDER BY created_at DESC, record_id DESC
		 LIMIT 1`,
		gatepassID,
		domain.ActionCheckIn,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.RecordID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.InoutRecord, error) {
	var records []*domain.InoutRecord
	stmt := db.WithContext(ctx).
		Model(&domain.InoutRecord{})

	if filter.GatepassID > 0 {
		stmt = stmt.Where("gatepass_id = ?", filter.GatepassID)
	}

	stmt = option.ApplyPagination(page, "record_id").Apply(stmt)
	err := stmt.
		Order("created_at desc, record_id desc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
