package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of *pgxpool.Pool the journal uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config configures the journal.
type Config struct {
	HubID         string        // Written into every row
	BatchSize     int           // Rows per flush
	FlushInterval time.Duration // Max time between flushes
	BufferSize    int           // Max events waiting to be batched
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HubID:         "filedrop-hub",
		BatchSize:     500,
		FlushInterval: time.Second,
		BufferSize:    10000,
	}
}

// Stats contains runtime statistics.
type Stats struct {
	Recorded  int64 // Events accepted by Record
	Overflow  int64 // Events discarded because the buffer was full or closed
	Inserts   int64
	Conflicts int64
	Errors    int64 // Failed batches
	Flushes   int64
}

// deliveryRow is one row of the deliveries table.
type deliveryRow struct {
	DeliveryID uuid.UUID
	Outcome    string
	HubID      string
	Target     string
	Filename   string
	SizeBytes  int64
	RecordedAt time.Time
}
