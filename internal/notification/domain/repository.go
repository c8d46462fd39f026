package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/sentrilane/visitgate/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	EmpID      int64
	Role       string
	UnreadOnly bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, notification *Notification) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Notification, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Notification, error)
	MarkRead(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
