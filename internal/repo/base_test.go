package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/disputedesk-backend/pkg/db/models"
)

type ctxKey struct{}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	return conn
}

func TestBaseDBBindsContext(t *testing.T) {
	conn := newTestDB(t)
	base := NewBase(conn)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	scoped := base.DB(ctx)
	require.NotNil(t, scoped.Statement)
	require.Equal(t, ctx, scoped.Statement.Context)

	require.Same(t, conn, base.DB(nil))
}

func TestBaseModelTargetsTable(t *testing.T) {
	conn := newTestDB(t)
	require.NoError(t, conn.AutoMigrate(&models.Dispute{}))
	base := NewBase(conn)

	var count int64
	require.NoError(t, base.Model(context.Background(), &models.Dispute{}).Count(&count).Error)
	require.Zero(t, count)
}
