package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/driftsignal/crashbridge/internal/analytics"
	"github.com/driftsignal/crashbridge/internal/connection"
)

// Bridge consumes raw feed frames and delivers event notifications to a
// connector listener (normally a StreamConnector fanning out to the event
// router). Control frames and undecodable frames are counted and skipped;
// nothing on this path raises an error.
type Bridge struct {
	logger *slog.Logger

	input  <-chan connection.RawMessage
	target analytics.ConnectorListener

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	mu           sync.RWMutex
	frames       int64
	controls     int64
	decodeErrors int64
}

// BridgeStats contains runtime counters.
type BridgeStats struct {
	Frames       int64
	Controls     int64
	DecodeErrors int64
}

// New creates a Bridge reading from input and delivering to target.
func New(input <-chan connection.RawMessage, target analytics.ConnectorListener, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		logger: logger,
		input:  input,
		target: target,
	}
}

// Start begins consuming frames.
func (b *Bridge) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.consumeLoop()

	b.logger.Info("bridge started")
	return nil
}

// Stop gracefully shuts the bridge down.
func (b *Bridge) Stop(ctx context.Context) error {
	b.logger.Info("stopping bridge")

	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("bridge stopped")
	case <-ctx.Done():
		b.logger.Warn("bridge stop timed out")
	}

	return nil
}

// Stats returns current counters.
func (b *Bridge) Stats() BridgeStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BridgeStats{
		Frames:       b.frames,
		Controls:     b.controls,
		DecodeErrors: b.decodeErrors,
	}
}

// consumeLoop is the main frame-consuming goroutine.
func (b *Bridge) consumeLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		case raw, ok := <-b.input:
			if !ok {
				b.logger.Info("input channel closed")
				return
			}
			b.handle(raw)
		}
	}
}

// handle decodes one raw frame and delivers it.
func (b *Bridge) handle(raw connection.RawMessage) {
	var frame frameWire
	if err := json.Unmarshal(raw.Data, &frame); err != nil {
		b.logger.Warn("failed to decode frame", "error", err)
		b.mu.Lock()
		b.decodeErrors++
		b.mu.Unlock()
		return
	}

	// Command responses ("subscribed", "error", "ok") are not events.
	if frame.Type != "" {
		if frame.Type == "error" {
			b.logger.Warn("feed error frame", "msg", string(frame.Msg))
		}
		b.mu.Lock()
		b.controls++
		b.mu.Unlock()
		return
	}

	b.mu.Lock()
	b.frames++
	b.mu.Unlock()

	// A frame without an event payload still triggers a notification;
	// downstream treats the absent envelope as a drop signal.
	var envelope analytics.Envelope
	if frame.Event != nil {
		envelope = analytics.Envelope(frame.Event)
	}
	b.target.OnMessageTriggered(frame.ID, envelope)
}

// frameWire is the wire format of one feed frame.
type frameWire struct {
	ID    int             `json:"id"`
	Type  string          `json:"type"`
	Msg   json.RawMessage `json:"msg"`
	Event map[string]any  `json:"event"`
}
