package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/internal/invite/domain"
	"gorm.io/gorm"
)

const selectColumns = `invite_id, token, visitor_name, visitor_email, host_emp_id, department_id, visit_date, status, email_sent, prebooking_id, expires_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invite *domain.Invite) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invites (invite_id, token, visitor_name, visitor_email, host_emp_id, department_id, visit_date, status, email_sent, prebooking_id, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invite.InviteID,
		invite.Token,
		invite.VisitorName,
		invite.VisitorEmail,
		invite.HostEmpID,
		invite.DepartmentID,
		invite.VisitDate,
		invite.Status,
		invite.EmailSent,
		invite.PrebookingID,
		invite.ExpiresAt,
		invite.CreatedAt,
		invite.UpdatedAt,
	).Error
}

func (r *repo) FindByToken(ctx context.Context, db *gorm.DB, token string) (*domain.Invite, error) {
	var invite domain.Invite
	err := db.WithContext(ctx).Raw(
		`SELECT `+selectColumns+` FROM invites WHERE token = ?`,
		strings.TrimSpace(token),
	).Scan(&invite).Error
	if err != nil {
		return nil, err
	}
	if invite.InviteID == 0 {
		return nil, nil
	}
	return &invite, nil
}

func (r *repo) MarkEmailSent(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invites SET email_sent = ?, updated_at = CURRENT_TIMESTAMP WHERE invite_id = ?`,
		true,
		id,
	).Error
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, prebookingID snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invites SET status = ?, prebooking_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE invite_id = ? AND status = ?`,
		domain.StatusCompleted,
		prebookingID,
		id,
		domain.StatusSent,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
