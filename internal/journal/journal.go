package journal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/filedrop/internal/delivery"
	"github.com/rickgao/filedrop/internal/queue"
)

// Journal consumes delivery events and writes them to the deliveries table.
type Journal struct {
	cfg    Config
	logger *slog.Logger

	input *queue.Growable[delivery.Event]

	db DB

	// Batching
	batch       []deliveryRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx      context.Context
	cancel   context.CancelFunc
	stopping chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	stats Stats
}

// New creates a Journal. db may be nil, in which case batches are
// counted and discarded.
func New(cfg Config, db DB, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}

	initial := 64
	if cfg.BufferSize > 0 && cfg.BufferSize < initial {
		initial = cfg.BufferSize
	}

	return &Journal{
		cfg:      cfg,
		input:    queue.NewCapped[delivery.Event](initial, cfg.BufferSize),
		db:       db,
		logger:   logger,
		batch:    make([]deliveryRow, 0, cfg.BatchSize),
		stopping: make(chan struct{}),
	}
}

// Record queues e for writing. It never blocks.
func (j *Journal) Record(e delivery.Event) {
	err := j.input.Send(e)

	j.batchMu.Lock()
	if err != nil {
		j.stats.Overflow++
	} else {
		j.stats.Recorded++
	}
	j.batchMu.Unlock()

	if errors.Is(err, queue.ErrFull) {
		j.logger.Warn("journal buffer full, event discarded",
			"delivery_id", e.DeliveryID,
			"outcome", e.Outcome,
		)
	}
}

// Start begins consuming events and writing to the database.
func (j *Journal) Start(ctx context.Context) error {
	j.ctx, j.cancel = context.WithCancel(ctx)
	j.flushTicker = time.NewTicker(j.cfg.FlushInterval)

	j.wg.Add(1)
	go j.consumeLoop()

	j.wg.Add(1)
	go j.flushLoop()

	j.logger.Info("delivery journal started",
		"batch_size", j.cfg.BatchSize,
		"flush_interval", j.cfg.FlushInterval,
	)
	return nil
}

// Stop drains pending events, writes them, and shuts down.
func (j *Journal) Stop(ctx context.Context) error {
	j.logger.Info("stopping delivery journal")

	// Closing the input lets consumeLoop drain what is left, then exit.
	j.input.Close()
	j.stopOnce.Do(func() { close(j.stopping) })

	if j.flushTicker != nil {
		j.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("delivery journal stopped")
	case <-ctx.Done():
		j.logger.Warn("delivery journal stop timed out")
	}

	if j.cancel != nil {
		j.cancel()
	}

	j.flush(ctx)

	return nil
}

// Stats returns current statistics.
func (j *Journal) Stats() Stats {
	j.batchMu.Lock()
	defer j.batchMu.Unlock()
	return j.stats
}

func (j *Journal) consumeLoop() {
	defer j.wg.Done()

	for {
		e, ok := j.input.Receive()
		if !ok {
			return
		}
		j.handleEvent(e)
	}
}

func (j *Journal) flushLoop() {
	defer j.wg.Done()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-j.stopping:
			return
		case <-j.flushTicker.C:
			j.flush(j.ctx)
		}
	}
}

func (j *Journal) handleEvent(e delivery.Event) {
	row := j.transform(e)

	j.batchMu.Lock()
	j.batch = append(j.batch, row)
	shouldFlush := len(j.batch) >= j.cfg.BatchSize
	j.batchMu.Unlock()

	if shouldFlush {
		j.flush(j.ctx)
	}
}

func (j *Journal) transform(e delivery.Event) deliveryRow {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	return deliveryRow{
		DeliveryID: e.DeliveryID,
		Outcome:    string(e.Outcome),
		HubID:      j.cfg.HubID,
		Target:     e.Target,
		Filename:   e.Filename,
		SizeBytes:  int64(e.Size),
		RecordedAt: at.UTC(),
	}
}

func (j *Journal) flush(ctx context.Context) {
	j.batchMu.Lock()
	if len(j.batch) == 0 {
		j.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := j.batch
	j.batch = make([]deliveryRow, 0, j.cfg.BatchSize)
	j.batchMu.Unlock()

	if j.db == nil {
		j.batchMu.Lock()
		j.stats.Flushes++
		j.batchMu.Unlock()
		return
	}

	start := time.Now()

	conflicts, err := j.batchInsert(ctx, batch)
	if err != nil {
		j.logger.Error("journal batch insert failed", "error", err, "count", len(batch))
		j.batchMu.Lock()
		j.stats.Errors++
		j.batchMu.Unlock()
		return
	}

	j.batchMu.Lock()
	j.stats.Inserts += int64(len(batch) - conflicts)
	j.stats.Conflicts += int64(conflicts)
	j.stats.Flushes++
	j.batchMu.Unlock()

	j.logger.Debug("flushed delivery events",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (j *Journal) batchInsert(ctx context.Context, rows []deliveryRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertDelivery,
			r.DeliveryID, r.Outcome, r.HubID, r.Target, r.Filename, r.SizeBytes, r.RecordedAt)
	}

	results := j.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
