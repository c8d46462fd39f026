package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Gatepass struct {
	GatepassID   snowflake.ID   `gorm:"primaryKey" json:"gatepass_id"`
	PassNumber   int64          `gorm:"not null;uniqueIndex" json:"pass_number"`
	PassCode     string         `gorm:"not null;index" json:"pass_code"`
	PrebookingID snowflake.ID   `gorm:"not null;uniqueIndex" json:"prebooking_id"`
	VisitorName  string         `gorm:"not null" json:"visitor_name"`
	VisitorEmail string         `json:"visitor_email,omitempty"`
	VisitorPhone string         `json:"visitor_phone,omitempty"`
	HostEmpID    int64          `json:"host_emp_id,omitempty"`
	DepartmentID int64          `json:"department_id,omitempty"`
	ValidDate    datatypes.Date `gorm:"not null" json:"valid_date"`
	PhotoRef     string         `json:"photo_ref,omitempty"`
	PDFPath      string         `gorm:"column:pdf_path" json:"pdf_path,omitempty"`
	EmailSent    bool           `gorm:"not null;default:false" json:"email_sent"`
	CreatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Gatepass) TableName() string { return "gatepasses" }
