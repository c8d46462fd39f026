package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, gatepass *Gatepass) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Gatepass, error)
	FindByPrebooking(ctx context.Context, db *gorm.DB, prebookingID snowflake.ID) (*Gatepass, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Gatepass, error)
	MaxPassNumber(ctx context.Context, db *gorm.DB) (int64, error)
	MarkEmailSent(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	UpdatePDFPath(ctx context.Context, db *gorm.DB, id snowflake.ID, path string) error
}
