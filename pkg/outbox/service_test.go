package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/disputedesk-backend/pkg/db/models"
	"github.com/angelmondragon/disputedesk-backend/pkg/enums"
	"github.com/angelmondragon/disputedesk-backend/pkg/logger"
	"github.com/angelmondragon/disputedesk-backend/pkg/outbox/payloads"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.OutboxEvent{}))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func emitTestEvent(t *testing.T, svc *Service, db *gorm.DB) *models.OutboxEvent {
	t.Helper()
	disputeID := uuid.New()
	row, err := svc.Emit(context.Background(), db, DomainEvent{
		EventType:     enums.EventDisputeCreated,
		AggregateType: enums.AggregateDispute,
		AggregateID:   disputeID,
		Exchange:      "dispute.events",
		RoutingKey:    "dispute.created",
		Actor:         &ActorRef{UserID: "user-1"},
		Data:          payloads.DisputeEvent{DisputeID: disputeID.String(), Action: "created"},
	})
	require.NoError(t, err)
	return row
}

func TestEmitStoresEnvelope(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))

	row := emitTestEvent(t, svc, db)

	var stored models.OutboxEvent
	require.NoError(t, db.First(&stored, "id = ?", row.ID).Error)
	require.Equal(t, "dispute.created", stored.RoutingKey)
	require.Equal(t, "dispute.events", stored.Exchange)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(stored.Payload, &envelope))
	require.Equal(t, CurrentEnvelopeVersion, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.Equal(t, "user-1", envelope.Actor.UserID)

	var data payloads.DisputeEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.Equal(t, "created", data.Action)
}

func TestEmitRejectsInvalidEvents(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepository(db), nil)

	_, err := svc.Emit(context.Background(), nil, DomainEvent{})
	require.Error(t, err)

	_, err = svc.Emit(context.Background(), db, DomainEvent{EventType: "bogus", RoutingKey: "x"})
	require.Error(t, err)

	_, err = svc.Emit(context.Background(), db, DomainEvent{EventType: enums.EventDisputeCreated})
	require.Error(t, err)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	first := emitTestEvent(t, svc, db)
	second := emitTestEvent(t, svc, db)

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(db, first.ID))
	require.NoError(t, repo.MarkFailedTx(db, second.ID, errors.New("broker down")))

	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, second.ID, rows[0].ID)
	require.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	require.Equal(t, "broker down", *rows[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(db, second.ID, errors.New("gave up"), 3))
	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Empty(t, rows)
}
