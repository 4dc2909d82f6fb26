package writer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/driftsignal/crashbridge/internal/model"
	"github.com/driftsignal/crashbridge/internal/router"
)

func TestCrashEventWriter_Transform(t *testing.T) {
	cfg := DefaultWriterConfig()
	input := router.NewGrowableBuffer[model.CrashEvent](10)
	w := NewCrashEventWriter(cfg, input, nil, nil)

	id := uuid.New()
	event := model.CrashEvent{
		ID:         id,
		Name:       "crash_report",
		Params:     map[string]any{"fatal": true, "_o": "clx"},
		ReceivedAt: 1705320000000000,
	}

	row := w.transform(event)

	if row.ID != id {
		t.Errorf("ID = %s, want %s", row.ID, id)
	}
	if row.Name != "crash_report" {
		t.Errorf("Name = %s, want crash_report", row.Name)
	}
	if row.ReceivedAt != 1705320000000000 {
		t.Errorf("ReceivedAt = %d, want 1705320000000000", row.ReceivedAt)
	}

	var decoded map[string]any
	if err := json.Unmarshal(row.Params, &decoded); err != nil {
		t.Fatalf("Params not valid JSON: %v", err)
	}
	if decoded["fatal"] != true {
		t.Errorf("Params fatal = %v, want true", decoded["fatal"])
	}
}

func TestCrashEventWriter_Lifecycle(t *testing.T) {
	cfg := WriterConfig{
		BatchSize:     10,
		FlushInterval: 100 * time.Millisecond,
	}
	input := router.NewGrowableBuffer[model.CrashEvent](10)
	w := NewCrashEventWriter(cfg, input, nil, nil)

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := w.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestCrashEventWriter_HandleRecord_AddsToBatch(t *testing.T) {
	cfg := WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Hour,
	}
	input := router.NewGrowableBuffer[model.CrashEvent](10)
	w := NewCrashEventWriter(cfg, input, nil, nil)

	w.handleRecord(model.CrashEvent{
		ID:         uuid.New(),
		Name:       "crash_report",
		ReceivedAt: time.Now().UnixMicro(),
	})

	w.batchMu.Lock()
	batchLen := len(w.batch)
	w.batchMu.Unlock()

	if batchLen != 1 {
		t.Errorf("batch length = %d, want 1", batchLen)
	}
}
