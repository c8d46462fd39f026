package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	GatepassID snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *InoutRecord) error

	// FindLastAction returns the most recent non-RETURN record for the
	// (gatepass, visitor) pair, or nil when the pair has no history.
	FindLastAction(ctx context.Context, db *gorm.DB, gatepassID snowflake.ID, phone, email string) (*InoutRecord, error)

	FindCheckinByGatepass(ctx context.Context, db *gorm.DB, gatepassID snowflake.ID) (*InoutRecord, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*InoutRecord, error)
}
