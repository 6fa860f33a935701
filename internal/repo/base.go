package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by the dispute and audit repositories.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB returns the connection scoped to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Model starts a query on model's table scoped to ctx.
func (b Base) Model(ctx context.Context, model any) *gorm.DB {
	return b.DB(ctx).Model(model)
}
