package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/filedrop/internal/delivery"
)

// fakeDB records queued batch statements. seen keys report 0 rows affected.
type fakeDB struct {
	mu      sync.Mutex
	execs   []string
	rows    [][]any
	seen    map[string]bool
	failErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{seen: make(map[string]bool)}
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeDB) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.mu.Lock()
	defer f.mu.Unlock()

	res := &fakeResults{err: f.failErr}
	for _, q := range b.QueuedQueries {
		key := q.Arguments[0].(uuid.UUID).String() + "/" + q.Arguments[1].(string)
		if f.seen[key] {
			res.tags = append(res.tags, pgconn.NewCommandTag("INSERT 0 0"))
			continue
		}
		f.seen[key] = true
		f.rows = append(f.rows, q.Arguments)
		res.tags = append(res.tags, pgconn.NewCommandTag("INSERT 0 1"))
	}
	return res
}

func (f *fakeDB) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeResults struct {
	tags []pgconn.CommandTag
	next int
	err  error
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	tag := r.tags[r.next]
	r.next++
	return tag, nil
}

func (r *fakeResults) Query() (pgx.Rows, error) { return nil, errors.New("not supported") }
func (r *fakeResults) QueryRow() pgx.Row { return nil }
func (r *fakeResults) Close() error { return nil }

func testEvent(outcome delivery.Outcome) delivery.Event {
	return delivery.Event{
		DeliveryID: uuid.New(),
		Target:     "Laptop",
		Filename:   "photo.png",
		Size:       17,
		Outcome:    outcome,
		At:         time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)),
	}
}

func TestJournal_Transform(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HubID = "hub-a"
	j := New(cfg, nil, nil)

	e := testEvent(delivery.OutcomeWritten)
	row := j.transform(e)

	if row.DeliveryID != e.DeliveryID {
		t.Errorf("DeliveryID = %v, want %v", row.DeliveryID, e.DeliveryID)
	}
	if row.Outcome != "written" {
		t.Errorf("Outcome = %s, want written", row.Outcome)
	}
	if row.HubID != "hub-a" {
		t.Errorf("HubID = %s, want hub-a", row.HubID)
	}
	if row.SizeBytes != 17 {
		t.Errorf("SizeBytes = %d, want 17", row.SizeBytes)
	}
	if row.RecordedAt.Location() != time.UTC || !row.RecordedAt.Equal(e.At) {
		t.Errorf("RecordedAt = %v, want %v in UTC", row.RecordedAt, e.At)
	}
}

func TestJournal_Transform_ZeroTime(t *testing.T) {
	j := New(DefaultConfig(), nil, nil)

	e := testEvent(delivery.OutcomeQueued)
	e.At = time.Time{}

	if row := j.transform(e); row.RecordedAt.IsZero() {
		t.Error("RecordedAt is zero, want current time")
	}
}

func TestJournal_Lifecycle(t *testing.T) {
	cfg := Config{
		BatchSize:     10,
		FlushInterval: 100 * time.Millisecond,
	}

	// No database: this tests the goroutine lifecycle
	j := New(cfg, nil, nil)

	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := j.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := j.Stop(stopCtx); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestJournal_FlushesFullBatch(t *testing.T) {
	db := newFakeDB()
	cfg := Config{
		HubID:         "hub-a",
		BatchSize:     3,
		FlushInterval: time.Hour,
	}
	j := New(cfg, db, nil)
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer j.Stop(context.Background())

	for i := 0; i < 3; i++ {
		j.Record(testEvent(delivery.OutcomeQueued))
	}

	deadline := time.Now().Add(2 * time.Second)
	for db.rowCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got := db.rowCount(); got != 3 {
		t.Fatalf("rows = %d, want 3", got)
	}
	stats := j.Stats()
	if stats.Inserts != 3 || stats.Flushes != 1 {
		t.Errorf("stats = %+v, want 3 inserts in 1 flush", stats)
	}
}

func TestJournal_StopFlushesRemainder(t *testing.T) {
	db := newFakeDB()
	cfg := Config{
		BatchSize:     100,
		FlushInterval: time.Hour,
	}
	j := New(cfg, db, nil)
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	j.Record(testEvent(delivery.OutcomeQueued))
	j.Record(testEvent(delivery.OutcomeWritten))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	j.Stop(stopCtx)

	if got := db.rowCount(); got != 2 {
		t.Errorf("rows = %d, want 2", got)
	}
}

func TestJournal_ConflictsCounted(t *testing.T) {
	db := newFakeDB()
	j := New(Config{BatchSize: 100, FlushInterval: time.Hour}, db, nil)

	e := testEvent(delivery.OutcomeWritten)
	j.handleEventForTest(e)
	j.handleEventForTest(e)
	j.flush(context.Background())

	stats := j.Stats()
	if stats.Inserts != 1 || stats.Conflicts != 1 {
		t.Errorf("stats = %+v, want 1 insert and 1 conflict", stats)
	}
}

func TestJournal_BatchError(t *testing.T) {
	db := newFakeDB()
	db.failErr = errors.New("connection reset")
	j := New(Config{BatchSize: 100, FlushInterval: time.Hour}, db, nil)

	j.handleEventForTest(testEvent(delivery.OutcomeQueued))
	j.flush(context.Background())

	stats := j.Stats()
	if stats.Errors != 1 || stats.Inserts != 0 {
		t.Errorf("stats = %+v, want 1 error", stats)
	}
}

func TestJournal_RecordOverflow(t *testing.T) {
	j := New(Config{BatchSize: 10, FlushInterval: time.Hour, BufferSize: 2}, nil, nil)

	for i := 0; i < 5; i++ {
		j.Record(testEvent(delivery.OutcomeQueued))
	}

	stats := j.Stats()
	if stats.Recorded != 2 || stats.Overflow != 3 {
		t.Errorf("stats = %+v, want 2 recorded and 3 overflow", stats)
	}
}

func TestJournal_IsRecorder(t *testing.T) {
	var _ delivery.Recorder = New(DefaultConfig(), nil, nil)
}

func TestEnsureSchema(t *testing.T) {
	db := newFakeDB()
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if len(db.execs) != 2 {
		t.Errorf("execs = %d, want 2", len(db.execs))
	}
}

// handleEventForTest batches e without the consume loop running.
func (j *Journal) handleEventForTest(e delivery.Event) {
	j.batchMu.Lock()
	j.batch = append(j.batch, j.transform(e))
	j.batchMu.Unlock()
}
