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

// CrashEventWriter consumes CrashEvent records from the router buffer and
// writes them to the crash_events table. Crash-origin traffic is sparse
// compared to breadcrumbs, so each record flushes on the shared interval.
type CrashEventWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	input *router.GrowableBuffer[model.CrashEvent]

	db *pgxpool.Pool

	batch       []crashEventRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewCrashEventWriter creates a new CrashEventWriter.
func NewCrashEventWriter(
	cfg WriterConfig,
	input *router.GrowableBuffer[model.CrashEvent],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *CrashEventWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrashEventWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]crashEventRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming records and writing to the database.
func (w *CrashEventWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("crash event writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *CrashEventWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping crash event writer")

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
		w.logger.Info("crash event writer stopped")
	case <-ctx.Done():
		w.logger.Warn("crash event writer stop timed out")
	}

	w.flush()

	return nil
}

// Stats returns current metrics.
func (w *CrashEventWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *CrashEventWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			msg, ok := w.input.TryReceive()
			if !ok {
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

func (w *CrashEventWriter) flushLoop() {
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

func (w *CrashEventWriter) handleRecord(e model.CrashEvent) {
	row := w.transform(e)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transform converts a CrashEvent to a crashEventRow.
func (w *CrashEventWriter) transform(e model.CrashEvent) crashEventRow {
	return crashEventRow{
		ID:         e.ID,
		ReceivedAt: e.ReceivedAt,
		Name:       e.Name,
		Params:     paramsToJSONB(e.Params),
	}
}

func (w *CrashEventWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]crashEventRow, 0, w.cfg.BatchSize)
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

	w.logger.Debug("flushed crash events",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

func (w *CrashEventWriter) batchInsert(rows []crashEventRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO crash_events (id, received_at, name, params)
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
