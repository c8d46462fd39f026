package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Notification struct {
	NotificationID snowflake.ID `gorm:"primaryKey" json:"notification_id"`
	NotifType      string       `gorm:"column:notif_type;not null" json:"notif_type"`
	Title          string       `gorm:"not null" json:"title"`
	Body           string       `json:"body,omitempty"`
	TargetEmpID    *int64       `gorm:"index" json:"target_emp_id,omitempty"`
	TargetRole     string       `gorm:"index" json:"target_role,omitempty"`
	RefType        string       `json:"ref_type,omitempty"`
	RefID          int64        `json:"ref_id,omitempty"`
	IsRead         bool         `gorm:"not null;default:false" json:"is_read"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
