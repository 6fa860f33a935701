package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/disputedesk-backend/pkg/config"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		constraint string
		column     string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgconn", err: &pgconn.PgError{Code: "23505", ConstraintName: "ux_disputes_transaction_id"}, constraint: "ux_disputes_transaction_id", want: true},
		{name: "pgconn other constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "ux_other"}, constraint: "ux_disputes_transaction_id", want: false},
		{name: "pgconn other code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "pq", err: &pq.Error{Code: "23505", Constraint: "ux_disputes_transaction_id"}, constraint: "ux_disputes_transaction_id", want: true},
		{name: "wrapped pgconn", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: disputes.transaction_id"), constraint: "ux_disputes_transaction_id", column: "disputes.transaction_id", want: true},
		{name: "sqlite primary key", err: errors.New("UNIQUE constraint failed: disputes.dispute_id"), constraint: "ux_disputes_transaction_id", column: "disputes.transaction_id", want: false},
		{name: "sqlite prefix column", err: errors.New("UNIQUE constraint failed: disputes.transaction_id_legacy"), constraint: "ux_disputes_transaction_id", column: "disputes.transaction_id", want: false},
		{name: "sqlite without column", err: errors.New("UNIQUE constraint failed: disputes.transaction_id"), constraint: "ux_disputes_transaction_id", want: false},
		{name: "sqlite any", err: errors.New("UNIQUE constraint failed: disputes.dispute_id"), want: true},
		{name: "postgres text", err: errors.New(`ERROR: duplicate key value violates unique constraint "ux_disputes_transaction_id"`), constraint: "ux_disputes_transaction_id", want: true},
		{name: "postgres text other", err: errors.New(`ERROR: duplicate key value violates unique constraint "disputes_pkey"`), constraint: "ux_disputes_transaction_id", want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err, tc.constraint, tc.column); got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}

func TestDialectorForRejectsUnknownDriver(t *testing.T) {
	if _, err := dialectorFor(config.DBConfig{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatal("expected unsupported driver error")
	}
	if _, err := dialectorFor(config.DBConfig{Driver: "sqlite", DSN: "file::memory:"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
