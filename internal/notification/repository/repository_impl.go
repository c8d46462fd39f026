package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/internal/notification/domain"
	"github.com/sentrilane/visitgate/pkg/db/option"
	"github.com/sentrilane/visitgate/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, notification *domain.Notification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notifications (notification_id, notif_type, title, body, target_emp_id, target_role, ref_type, ref_id, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		notification.NotificationID,
		notification.NotifType,
		notification.Title,
		notification.Body,
		notification.TargetEmpID,
		notification.TargetRole,
		notification.RefType,
		notification.RefID,
		notification.IsRead,
		notification.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Notification, error) {
	var notifications []*domain.Notification
	stmt := db.WithContext(ctx).
		Model(&domain.Notification{})

	role := strings.TrimSpace(filter.Role)
	switch {
	case filter.EmpID > 0 && role != "":
		stmt = stmt.Where("target_emp_id = ? OR target_role = ?", filter.EmpID, role)
	case filter.EmpID > 0:
		stmt = stmt.Where("target_emp_id = ?", filter.EmpID)
	case role != "":
		stmt = stmt.Where("target_role = ?", role)
	}
	if filter.UnreadOnly {
		stmt = stmt.Where("is_read = ?", false)
	}

	stmt = option.ApplyPagination(page, "notification_id").Apply(stmt)
	err := stmt.
		Order("created_at desc, notification_id desc").
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Notification, error) {
	var notification domain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT notification_id, notif_type, title, body, target_emp_id, target_role, ref_type, ref_id, is_read, created_at
		 FROM notifications WHERE notification_id = ?`,
		id,
	).Scan(&notification).Error
	if err != nil {
		return nil, err
	}
	if notification.NotificationID == 0 {
		return nil, nil
	}
	return &notification, nil
}

func (r *repo) MarkRead(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE notifications SET is_read = ? WHERE notification_id = ?`,
		true,
		id,
	).Error
}
