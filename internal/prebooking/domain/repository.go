package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status    *string
	HostEmpID int64
	VisitDate *time.Time
}

type DecisionUpdate struct {
	Status    string
	VisitDate *time.Time
	DecidedBy int64
	DecidedAt time.Time
	Remarks   string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, prebooking *Prebooking) error
	InsertBelongings(ctx context.Context, db *gorm.DB, belongings []Belonging) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Prebooking, error)
	FindBelongings(ctx context.Context, db *gorm.DB, prebookingID snowflake.ID) ([]Belonging, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Prebooking, error)

	// UpdateDecision applies the decision only when the row is still
	// pending and reports whether it did.
	UpdateDecision(ctx context.Context, db *gorm.DB, id snowflake.ID, update DecisionUpdate) (bool, error)
}
