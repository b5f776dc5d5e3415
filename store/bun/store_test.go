//go:build integration

package bunstore_test

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/xraph/requeue"
	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
	bunstore "github.com/xraph/requeue/store/bun"
)

// setupTestStore creates a Postgres container and returns a connected Bun Store.
func setupTestStore(t *testing.T) *bunstore.Store {
	t.Helper()

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("requeue_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	// Create Bun DB from pgdriver.
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	db := bun.NewDB(sqldb, pgdialect.New())

	t.Cleanup(func() {
		_ = db.Close()
	})

	store := bunstore.New(db, bunstore.WithLogger(slog.Default()))

	if migErr := store.Migrate(ctx); migErr != nil {
		t.Fatalf("migrate: %v", migErr)
	}

	return store
}

func newTestEntry(at time.Time) *dlq.Entry {
	return &dlq.Entry{
		ID:              id.NewDLQID(),
		JobID:           id.NewJobID(),
		DocumentID:      id.NewDocumentID(),
		OriginalMessage: `{"jobId":"x"}`,
		SchemaVersion:   job.MessageSchemaVersion,
		ErrorMessage:    "boom",
		RetryCount:      3,
		Reason:          "Max retries (3) exhausted",
		DeadLetteredAt:  at,
		Status:          dlq.StatusPending,
	}
}

// ──────────────────────────────────────────────────
// Lifecycle tests
// ──────────────────────────────────────────────────

func TestStore_Ping(t *testing.T) {
	s := setupTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestStore_MigrateIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	// Second migrate should be a no-op.
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

// ──────────────────────────────────────────────────
// Job record tests
// ──────────────────────────────────────────────────

func TestJobStore_RecordLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := &job.Record{
		ID:         id.NewJobID(),
		DocumentID: id.NewDocumentID(),
		Status:     job.StatusQueued,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.CreateRecord(ctx, r); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if err := s.CreateRecord(ctx, r); !errors.Is(err, requeue.ErrJobAlreadyExists) {
		t.Errorf("duplicate CreateRecord error = %v, want ErrJobAlreadyExists", err)
	}

	got, err := s.GetRecord(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.Status != job.StatusQueued {
		t.Errorf("Status = %q, want %q", got.Status, job.StatusQueued)
	}

	got.Status = job.StatusProcessing
	if err := s.UpdateRecord(ctx, got); err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}

	again, err := s.GetRecord(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if again.Status != job.StatusProcessing {
		t.Errorf("Status = %q, want %q", again.Status, job.StatusProcessing)
	}

	if _, err := s.GetRecord(ctx, id.NewJobID()); !errors.Is(err, requeue.ErrJobRecordNotFound) {
		t.Errorf("GetRecord unknown error = %v, want ErrJobRecordNotFound", err)
	}
}

// ──────────────────────────────────────────────────
// Dead letter entry tests
// ──────────────────────────────────────────────────

func TestDLQStore_WriteEntry_FlipsJobRecord(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	entry := newTestEntry(time.Now().UTC())
	r := &job.Record{
		ID:         entry.JobID,
		DocumentID: entry.DocumentID,
		Status:     job.StatusProcessing,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.CreateRecord(ctx, r); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	if err := s.WriteEntry(ctx, entry); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if err := s.WriteEntry(ctx, entry); !errors.Is(err, requeue.ErrEntryAlreadyExists) {
		t.Errorf("duplicate WriteEntry error = %v, want ErrEntryAlreadyExists", err)
	}

	got, err := s.GetRecord(ctx, entry.JobID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.Status != job.StatusDeadLettered {
		t.Errorf("record Status = %q, want %q", got.Status, job.StatusDeadLettered)
	}
}

func TestDLQStore_WriteEntry_MissingJobRecordSucceeds(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	entry := newTestEntry(time.Now().UTC())
	if err := s.WriteEntry(ctx, entry); err != nil {
		t.Fatalf("WriteEntry without job record: %v", err)
	}

	got, err := s.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Status != dlq.StatusPending {
		t.Errorf("Status = %q, want %q", got.Status, dlq.StatusPending)
	}
}

func TestDLQStore_UpdateEntry_VersionConflict(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	entry := newTestEntry(time.Now().UTC())
	if err := s.WriteEntry(ctx, entry); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}

	first, err := s.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	second, err := s.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}

	now := time.Now().UTC()
	first.Status = dlq.StatusReplayed
	first.ReplayedJobID = id.NewJobID()
	first.ReplayedAt = &now
	if err := s.UpdateEntry(ctx, first); err != nil {
		t.Fatalf("first UpdateEntry: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("Version after update = %d, want 1", first.Version)
	}

	second.Status = dlq.StatusDiscarded
	if err := s.UpdateEntry(ctx, second); !errors.Is(err, requeue.ErrVersionConflict) {
		t.Errorf("stale UpdateEntry error = %v, want ErrVersionConflict", err)
	}

	got, err := s.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Status != dlq.StatusReplayed {
		t.Errorf("Status = %q, want %q (stale write must not land)", got.Status, dlq.StatusReplayed)
	}
	if got.ReplayedJobID != first.ReplayedJobID {
		t.Errorf("ReplayedJobID = %s, want %s", got.ReplayedJobID, first.ReplayedJobID)
	}

	missing := newTestEntry(time.Now().UTC())
	if err := s.UpdateEntry(ctx, missing); !errors.Is(err, requeue.ErrEntryNotFound) {
		t.Errorf("UpdateEntry unknown error = %v, want ErrEntryNotFound", err)
	}
}

func TestDLQStore_ListEntries_SortFilterCount(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var entries []*dlq.Entry
	for i := range 4 {
		e := newTestEntry(base.Add(time.Duration(i) * time.Minute))
		entries = append(entries, e)
		if err := s.WriteEntry(ctx, e); err != nil {
			t.Fatalf("WriteEntry %d: %v", i, err)
		}
	}

	page, total, err := s.ListEntries(ctx, dlq.ListOpts{Limit: 2})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	if len(page) != 2 {
		t.Fatalf("len(page) = %d, want 2", len(page))
	}
	// Newest first.
	if !page[0].DeadLetteredAt.After(page[1].DeadLetteredAt) {
		t.Errorf("expected descending DeadLetteredAt, got %v then %v",
			page[0].DeadLetteredAt, page[1].DeadLetteredAt)
	}

	byJob, total, err := s.ListEntries(ctx, dlq.ListOpts{JobID: entries[0].JobID})
	if err != nil {
		t.Fatalf("ListEntries by job: %v", err)
	}
	if total != 1 || len(byJob) != 1 || byJob[0].ID != entries[0].ID {
		t.Errorf("job filter returned %d entries (total %d)", len(byJob), total)
	}
}

func TestDLQStore_EntryMetrics(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	oldest := newTestEntry(now.Add(-2 * time.Hour))
	replayed := newTestEntry(now)
	replayed.Status = dlq.StatusReplayed

	for _, e := range []*dlq.Entry{oldest, replayed} {
		if err := s.WriteEntry(ctx, e); err != nil {
			t.Fatalf("WriteEntry: %v", err)
		}
	}

	m, err := s.EntryMetrics(ctx)
	if err != nil {
		t.Fatalf("EntryMetrics: %v", err)
	}
	if m.TotalCount != 2 || m.PendingCount != 1 || m.ReplayedCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1",
			m.TotalCount, m.PendingCount, m.ReplayedCount)
	}
	if m.OldestPendingAt == nil || !m.OldestPendingAt.Equal(oldest.DeadLetteredAt) {
		t.Errorf("OldestPendingAt = %v, want %v", m.OldestPendingAt, oldest.DeadLetteredAt)
	}
}
