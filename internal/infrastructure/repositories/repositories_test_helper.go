package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createRetryStepTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE retry_steps (
		id TEXT PRIMARY KEY,
		payment_method TEXT NOT NULL,
		step_order INTEGER NOT NULL,
		acquirer TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (payment_method, acquirer)
	);`)
}

func createApiEventTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE api_events (
		id TEXT PRIMARY KEY,
		acquirer TEXT NOT NULL,
		event_type TEXT NOT NULL,
		transaction_id TEXT,
		response_time_ms INTEGER,
		error_message TEXT,
		retry_attempt INTEGER,
		created_at DATETIME NOT NULL
	);`)
}

func createChargebackTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE chargebacks (
		id TEXT PRIMARY KEY,
		transaction_ref TEXT NOT NULL,
		acquirer TEXT NOT NULL,
		amount TEXT NOT NULL,
		original_amount TEXT NOT NULL,
		reason TEXT,
		status TEXT NOT NULL,
		detected_at DATETIME NOT NULL,
		resolved_at DATETIME,
		notes TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createCircuitStateTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE circuit_states (
		acquirer TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		failure_count INTEGER NOT NULL DEFAULT 0,
		window_start DATETIME,
		opened_at DATETIME,
		updated_at DATETIME
	);`)
}
