package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invite *Invite) error
	FindByToken(ctx context.Context, db *gorm.DB, token string) (*Invite, error)
	MarkEmailSent(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// MarkCompleted flips the invite to COMPLETED only while it is
	// still SENT and reports whether it did.
	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, prebookingID snowflake.ID) (bool, error)
}
