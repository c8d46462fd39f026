package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Gate scan actions.
const (
	ActionCheckIn  = "CHECK_IN"
	ActionCheckOut = "CHECK_OUT"
	ActionReturn   = "RETURN"
)

// InoutRecord is one physical gate event. Rows are append-only; the
// current state of a (gatepass, visitor) pair is derived from its most
// recent CHECK_IN or CHECK_OUT row.
type InoutRecord struct {
	RecordID       snowflake.ID  `gorm:"column:record_id;primaryKey" json:"record_id"`
	GatepassID     snowflake.ID  `gorm:"column:gatepass_id" json:"gatepass_id"`
	PrebookingID   *snowflake.ID `gorm:"column:prebooking_id" json:"prebooking_id,omitempty"`
	VisitorPhone   string        `gorm:"column:visitor_phone" json:"visitor_phone,omitempty"`
	VisitorEmail   string        `gorm:"column:visitor_email" json:"visitor_email,omitempty"`
	Action         string        `gorm:"column:action" json:"action"`
	Gate           string        `gorm:"column:gate" json:"gate,omitempty"`
	IssuedItems    string        `gorm:"column:issued_items" json:"issued_items,omitempty"`
	Remarks        string        `gorm:"column:remarks" json:"remarks,omitempty"`
	RecordedBy     *int64        `gorm:"column:recorded_by" json:"recorded_by,omitempty"`
	RecordedByName string        `gorm:"column:recorded_by_name" json:"recorded_by_name,omitempty"`
	CreatedAt      time.Time     `gorm:"column:created_at" json:"created_at"`
}

func (InoutRecord) TableName() string {
	return "inout_records"
}
