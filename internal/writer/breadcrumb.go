package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/driftsignal/crashbridge/internal/model"
	"github.com/driftsignal/crashbridge/internal/router"
)

// BreadcrumbWriter consumes Breadcrumb records from the router buffer and
// writes them to the breadcrumbs table.
type BreadcrumbWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from the breadcrumb receiver
	input *router.GrowableBuffer[model.Breadcrumb]

	// Database
	db *pgxpool.Pool

	// Batching
	batch       []breadcrumbRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewBreadcrumbWriter creates a new BreadcrumbWriter.
func NewBreadcrumbWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[model.Breadcrumb],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *BreadcrumbWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BreadcrumbWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]breadcrumbRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming records and writing to the database.
func (w *BreadcrumbWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("breadcrumb writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *BreadcrumbWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping breadcrumb writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("breadcrumb writer stopped")
	case <-ctx.Done():
		w.logger.Warn("breadcrumb writer stop timed out")
	}

	// Final flush
	w.flush()

	return nil
}

// Stats returns current metrics.
func (w *BreadcrumbWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the input buffer and accumulates batches.
func (w *BreadcrumbWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			msg, ok := w.input.TryReceive()
			if !ok {
				// Buffer empty, wait a bit before trying again
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.handleRecord(msg)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *BreadcrumbWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

// handleRecord transforms and adds a record to the batch.
func (w *BreadcrumbWriter) handleRecord(b model.Breadcrumb) {
	row := w.transform(b)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transform converts a Breadcrumb to a breadcrumbRow.
func (w *BreadcrumbWriter) transform(b model.Breadcrumb) breadcrumbRow {
	return breadcrumbRow{
		ID:         b.ID,
		ReceivedAt: b.ReceivedAt,
		Name:       b.Name,
		Params:     paramsToJSONB(b.Params),
	}
}

// flush writes the current batch to the database.
func (w *BreadcrumbWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of the current batch
	batch := w.batch
	w.batch = make([]breadcrumbRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed breadcrumbs",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *BreadcrumbWriter) batchInsert(rows []breadcrumbRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO breadcrumbs (id, received_at, name, params)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, r.ID, r.ReceivedAt, r.Name, r.Params)
	}

	results := w.db.SendBatch(w.ctx, batch)
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
