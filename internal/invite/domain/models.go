package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Invite statuses.
const (
	StatusSent      = "SENT"
	StatusCompleted = "COMPLETED"
	StatusExpired   = "EXPIRED"
)

// Invite lets a visitor fill in their own prebooking through a tokenized
// link. The token is the only credential; invites expire and are
// single-use.
type Invite struct {
	InviteID     snowflake.ID   `gorm:"column:invite_id;primaryKey" json:"invite_id"`
	Token        string         `gorm:"column:token;uniqueIndex" json:"token"`
	VisitorName  string         `gorm:"column:visitor_name" json:"visitor_name,omitempty"`
	VisitorEmail string         `gorm:"column:visitor_email" json:"visitor_email"`
	HostEmpID    int64          `gorm:"column:host_emp_id" json:"host_emp_id"`
	DepartmentID int64          `gorm:"column:department_id" json:"department_id,omitempty"`
	VisitDate    datatypes.Date `gorm:"column:visit_date" json:"visit_date,omitempty"`
	Status       string         `gorm:"column:status;default:'SENT'" json:"status"`
	EmailSent    bool           `gorm:"column:email_sent" json:"email_sent"`
	PrebookingID *snowflake.ID  `gorm:"column:prebooking_id" json:"prebooking_id,omitempty"`
	ExpiresAt    *time.Time     `gorm:"column:expires_at" json:"expires_at,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Invite) TableName() string {
	return "invites"
}
