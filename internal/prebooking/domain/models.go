package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Prebooking statuses. A pending booking is stored with an empty status and
// normalized to StatusPending at the API boundary.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

type Prebooking struct {
	PrebookingID snowflake.ID   `gorm:"primaryKey" json:"prebooking_id"`
	VisitorName  string         `gorm:"not null" json:"visitor_name"`
	VisitorEmail string         `json:"visitor_email,omitempty"`
	VisitorPhone string         `json:"visitor_phone,omitempty"`
	Company      string         `json:"company,omitempty"`
	Purpose      string         `json:"purpose,omitempty"`
	HostEmpID    int64          `gorm:"index" json:"host_emp_id,omitempty"`
	HostUserID   int64          `gorm:"index" json:"host_user_id,omitempty"`
	DepartmentID int64          `json:"department_id,omitempty"`
	VisitDate    datatypes.Date `gorm:"not null" json:"visit_date"`
	TimeFrom     string         `json:"time_from,omitempty"`
	TimeTo       string         `json:"time_to,omitempty"`
	PhotoRef     string         `json:"photo_ref,omitempty"`
	Status       string         `gorm:"index;default:''" json:"status"`
	DecidedBy    *int64         `json:"decided_by,omitempty"`
	DecidedAt    *time.Time     `json:"decided_at,omitempty"`
	Remarks      string         `json:"remarks,omitempty"`
	CreatedIP    string         `gorm:"column:created_ip" json:"created_ip,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// EffectiveStatus maps the stored empty status onto StatusPending.
func (p Prebooking) EffectiveStatus() string {
	if p.Status == "" {
		return StatusPending
	}
	return p.Status
}

func (p Prebooking) IsPending() bool {
	return p.Status == "" || p.Status == StatusPending
}

// HostCandidateID is the identifier fed to the notify-target resolver: the
// employee reference when present, otherwise the user-account reference.
func (p Prebooking) HostCandidateID() int64 {
	if p.HostEmpID > 0 {
		return p.HostEmpID
	}
	return p.HostUserID
}

type Belonging struct {
	BelongingID  snowflake.ID `gorm:"primaryKey" json:"belonging_id"`
	PrebookingID snowflake.ID `gorm:"not null;index" json:"prebooking_id"`
	ItemName     string       `gorm:"not null" json:"item_name"`
	Quantity     int          `gorm:"not null;default:1" json:"quantity"`
	SerialNo     string       `json:"serial_no,omitempty"`
}

func (Prebooking) TableName() string { return "prebookings" }
func (Belonging) TableName() string  { return "prebooking_belongings" }
