package writer

import (
	"time"

	"github.com/google/uuid"
)

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: 5 * time.Second,
	}
}

// breadcrumbRow represents a row for the breadcrumbs table.
type breadcrumbRow struct {
	ID         uuid.UUID
	ReceivedAt int64  // Microseconds
	Name       string
	Params     []byte // JSONB
}

// crashEventRow represents a row for the crash_events table.
type crashEventRow struct {
	ID         uuid.UUID
	ReceivedAt int64  // Microseconds
	Name       string
	Params     []byte // JSONB
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}
