package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tradedesk-backend/pkg/pagination"
)

// Base is embedded by the domain repositories. It carries the connection or
// the transaction the repository is bound to.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bound returns a copy of the base that runs on tx.
func (b Base) Bound(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// ForUpdate locks the selected rows until the transaction ends. Dialects
// without row locks ignore the clause.
func ForUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Paginate applies LIMIT/OFFSET for a normalized page.
func Paginate(p pagination.PageParams) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Limit <= 0 {
			return db
		}
		return db.Offset(p.Offset()).Limit(p.Limit)
	}
}

// CountAndFind counts the rows matched by query, then loads one page of them
// into dest with the named associations preloaded. query must not carry
// ordering or preloads.
func CountAndFind(query *gorm.DB, p pagination.PageParams, order string, dest any, preloads ...string) (int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	q := query.Session(&gorm.Session{})
	if order != "" {
		q = q.Order(order)
	}
	for _, assoc := range preloads {
		q = q.Preload(assoc)
	}
	if err := q.Scopes(Paginate(p)).Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}
