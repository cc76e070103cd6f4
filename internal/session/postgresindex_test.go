package session

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockIndex(t *testing.T) (*PostgresIndex, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PostgresIndex{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func TestPostgresIndex_Upsert(t *testing.T) {
	idx, mock := newMockIndex(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("INSERT INTO orchestra_session_index").
		WithArgs("sess-1", "do the thing", "executing", 2, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := idx.Upsert(context.Background(), SessionSummary{
		ID: "sess-1", Task: "do the thing", Phase: "executing",
		Iteration: 2, CreatedAt: now, LastActivity: now,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresIndex_Delete(t *testing.T) {
	idx, mock := newMockIndex(t)

	mock.ExpectExec("DELETE FROM orchestra_session_index").
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := idx.Delete(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresIndex_List(t *testing.T) {
	idx, mock := newMockIndex(t)
	now := time.Unix(1700000000, 0).UTC()

	rows := sqlmock.NewRows([]string{"id", "task", "phase", "iteration", "created_at", "last_activity"}).
		AddRow("sess-1", "do the thing", "completed", 3, now, now)
	mock.ExpectQuery("SELECT id, task, phase, iteration, created_at, last_activity").
		WithArgs("completed").
		WillReturnRows(rows)

	out, err := idx.List(context.Background(), ListFilter{Status: "completed"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 || out[0].ID != "sess-1" {
		t.Fatalf("unexpected result: %+v", out)
	}
}
