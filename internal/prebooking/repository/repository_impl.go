package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/internal/prebooking/domain"
	"github.com/sentrilane/visitgate/pkg/db/option"
	"github.com/sentrilane/visitgate/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, prebooking *domain.Prebooking) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO prebookings (prebooking_id, visitor_name, visitor_email, visitor_phone, company, purpose, host_emp_id, host_user_id, department_id, visit_date, time_from, time_to, photo_ref, status, remarks, created_ip, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		prebooking.PrebookingID,
		prebooking.VisitorName,
		prebooking.VisitorEmail,
		prebooking.VisitorPhone,
		prebooking.Company,
		prebooking.Purpose,
		prebooking.HostEmpID,
		prebooking.HostUserID,
		prebooking.DepartmentID,
		prebooking.VisitDate,
		prebooking.TimeFrom,
		prebooking.TimeTo,
		prebooking.PhotoRef,
		prebooking.Status,
		prebooking.Remarks,
		prebooking.CreatedIP,
		prebooking.CreatedAt,
		prebooking.UpdatedAt,
	).Error
}

func (r *repo) InsertBelongings(ctx context.Context, db *gorm.DB, belongings []domain.Belonging) error {
	for _, belonging := range belongings {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO prebooking_belongings (belonging_id, prebooking_id, item_name, quantity, serial_no)
			 VALUES (?, ?, ?, ?, ?)`,
			belonging.BelongingID,
			belonging.PrebookingID,
			belonging.ItemName,
			belonging.Quantity,
			belonging.SerialNo,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Prebooking, error) {
	var prebooking domain.Prebooking
	err := db.WithContext(ctx).Raw(
		`SELECT prebooking_id, visitor_name, visitor_email, visitor_phone, company, purpose, host_emp_id, host_user_id, department_id, visit_date, time_from, time_to, photo_ref, status, decided_by, decided_at, remarks, created_ip, created_at, updated_at
		 FROM prebookings WHERE prebooking_id = ?`,
		id,
	).Scan(&prebooking).Error
	if err != nil {
		return nil, err
	}
	if prebooking.PrebookingID == 0 {
		return nil, nil
	}
	return &prebooking, nil
}

func (r *repo) FindBelongings(ctx context.Context, db *gorm.DB, prebookingID snowflake.ID) ([]domain.Belonging, error) {
	var belongings []domain.Belonging
	err := db.WithContext(ctx).Raw(
		`SELECT belonging_id, prebooking_id, item_name, quantity, serial_no
		 FROM prebooking_belongings WHERE prebooking_id = ? ORDER BY belonging_id asc`,
		prebookingID,
	).Scan(&belongings).Error
	if err != nil {
		return nil, err
	}
	return belongings, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Prebooking, error) {
	var prebookings []*domain.Prebooking
	stmt := db.WithContext(ctx).
		Model(&domain.Prebooking{})

	if filter.Status != nil {
		status := *filter.Status
		if status == domain.StatusPending {
			status = ""
		}
		stmt = stmt.Where("status = ?", status)
	}
	if filter.HostEmpID > 0 {
		stmt = stmt.Where("host_emp_id = ?", filter.HostEmpID)
	}
	if filter.VisitDate != nil {
		stmt = stmt.Where("visit_date = ?", *filter.VisitDate)
	}

	stmt = option.ApplyPagination(page, "prebooking_id").Apply(stmt)
	err := stmt.
		Order("created_at desc, prebooking_id desc").
		Find(&prebookings).Error
	if err != nil {
		return nil, err
	}
	return prebookings, nil
}

func (r *repo) UpdateDecision(ctx context.Context, db *gorm.DB, id snowflake.ID, update domain.DecisionUpdate) (bool, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Prebooking{}).
		Where("prebooking_id = ?", id).
		Where("status = ? OR status = ?", "", domain.StatusPending)

	values := map[string]interface{}{
		"status":     update.Status,
		"decided_by": update.DecidedBy,
		"decided_at": update.DecidedAt,
		"remarks":    update.Remarks,
		"updated_at": update.DecidedAt,
	}
	if update.VisitDate != nil {
		values["visit_date"] = *update.VisitDate
	}

	result := stmt.Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
