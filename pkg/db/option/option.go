package option

import (
	"fmt"
	"time"

	"github.com/sentrilane/visitgate/pkg/db/pagination"
	"gorm.io/gorm"
)

type Option interface {
	Apply(*gorm.DB) *gorm.DB
}

type paginationOption struct {
	page     pagination.Pagination
	idColumn string
}

// ApplyPagination translates a cursor token into a keyset predicate over
// (created_at, idColumn) and fetches one row past the page boundary.
func ApplyPagination(page pagination.Pagination, idColumn string) Option {
	return paginationOption{page: page, idColumn: idColumn}
}

func (o paginationOption) Apply(stmt *gorm.DB) *gorm.DB {
	limit := o.page.PageSize
	if limit <= 0 {
		limit = 20
	}
	if limit > 250 {
		limit = 250
	}

	if o.page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(o.page.PageToken)
		if err == nil && cursor != nil {
			if at, parseErr := time.Parse(time.RFC3339, cursor.CreatedAt); parseErr == nil {
				stmt = stmt.Where(
					fmt.Sprintf("created_at < ? OR (created_at = ? AND %s < ?)", o.idColumn),
					at, at, cursor.ID,
				)
			}
		}
	}

	return stmt.Limit(limit + 1)
}
