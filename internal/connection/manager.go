package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Manager owns the feed connection lifecycle: connect, subscribe, forward
// messages, and reconnect with exponential backoff when the link drops.
type Manager interface {
	// Start connects and begins forwarding messages. Returns after the
	// first connection attempt has been scheduled; connection establishment
	// itself is retried in the background.
	Start(ctx context.Context) error

	// Stop gracefully shuts the connection down.
	Stop(ctx context.Context) error

	// Messages returns the channel of raw messages for the bridge.
	Messages() <-chan RawMessage

	// Send writes raw bytes upstream on the current connection.
	Send(data []byte) error

	// Connected returns a channel closed after the first successful
	// connect. Used to defer backend wiring until the feed is reachable.
	Connected() <-chan struct{}

	// IsConnected reports the current link state.
	IsConnected() bool

	// Stats returns connection statistics.
	Stats() ManagerStats
}

// ManagerStats provides statistics about the feed connection.
type ManagerStats struct {
	Connected         bool
	ConnectAttempts   int64
	MessagesForwarded int64
}

// manager implements the Manager interface.
type manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	out chan RawMessage

	// Current client, swapped on reconnect
	clientMu sync.RWMutex
	client   Client

	// Closed once, on the first successful connect
	firstUp     chan struct{}
	firstUpOnce sync.Once

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	attempts  atomic.Int64
	forwarded atomic.Int64
	cmdID     atomic.Int64
}

// NewManager creates a feed connection manager.
func NewManager(cfg ManagerConfig, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &manager{
		cfg:     cfg,
		logger:  logger,
		out:     make(chan RawMessage, cfg.MessageBufferSize),
		firstUp: make(chan struct{}),
	}
}

// Start begins the connect/forward/reconnect loop.
func (m *manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.run()

	m.logger.Info("connection manager started", "url", m.cfg.URL)
	return nil
}

// Stop gracefully shuts down.
func (m *manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping connection manager")

	if m.cancel != nil {
		m.cancel()
	}

	m.clientMu.RLock()
	client := m.client
	m.clientMu.RUnlock()
	if client != nil {
		client.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Safe to close only once the forward goroutine has exited
		close(m.out)
		m.logger.Info("connection manager stopped")
	case <-ctx.Done():
		m.logger.Warn("connection manager stop timed out")
	}

	return nil
}

// Messages returns the output channel.
func (m *manager) Messages() <-chan RawMessage {
	return m.out
}

// Send writes raw bytes on the current connection.
func (m *manager) Send(data []byte) error {
	m.clientMu.RLock()
	client := m.client
	m.clientMu.RUnlock()

	if client == nil {
		return ErrNotConnected
	}
	return client.Send(data)
}

// Connected returns the first-connect signal channel.
func (m *manager) Connected() <-chan struct{} {
	return m.firstUp
}

// IsConnected reports the current link state.
func (m *manager) IsConnected() bool {
	m.clientMu.RLock()
	defer m.clientMu.RUnlock()
	return m.client != nil && m.client.IsConnected()
}

// Stats returns connection statistics.
func (m *manager) Stats() ManagerStats {
	return ManagerStats{
		Connected:         m.IsConnected(),
		ConnectAttempts:   m.attempts.Load(),
		MessagesForwarded: m.forwarded.Load(),
	}
}

// run is the connect/forward/reconnect loop. Each iteration dials, subscribes,
// and forwards messages until the connection errors out, then backs off and
// retries. Backoff resets after a successful connect.
func (m *manager) run() {
	defer m.wg.Done()

	wait := m.cfg.ReconnectBaseWait

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		attempt := int(m.attempts.Add(1))

		client := NewClient(ClientConfig{
			URL:          m.cfg.URL,
			Token:        m.cfg.Token,
			PingTimeout:  m.cfg.PingTimeout,
			WriteTimeout: m.cfg.WriteTimeout,
			BufferSize:   m.cfg.MessageBufferSize,
		}, m.logger.With("attempt", attempt))

		if err := client.Connect(m.ctx); err != nil {
			m.logger.Warn("feed connection failed",
				"attempt", attempt,
				"error", err,
			)
			if !m.sleep(wait) {
				return
			}
			wait = nextWait(wait, m.cfg.ReconnectMaxWait)
			continue
		}

		m.clientMu.Lock()
		m.client = client
		m.clientMu.Unlock()

		if err := m.subscribe(client); err != nil {
			m.logger.Warn("feed subscribe failed", "error", err)
			// Continue anyway - the server streams to unsubscribed
			// clients on some deployments
		}

		m.firstUpOnce.Do(func() { close(m.firstUp) })
		m.logger.Info("feed connected", "attempt", attempt)
		wait = m.cfg.ReconnectBaseWait

		m.forward(client, attempt)

		client.Close()
		m.clientMu.Lock()
		m.client = nil
		m.clientMu.Unlock()

		select {
		case <-m.ctx.Done():
			return
		default:
			m.logger.Info("feed disconnected, reconnecting", "wait", wait)
			if !m.sleep(wait) {
				return
			}
			wait = nextWait(wait, m.cfg.ReconnectMaxWait)
		}
	}
}

// subscribe sends the subscribe command for the configured channels.
func (m *manager) subscribe(client Client) error {
	if len(m.cfg.Channels) == 0 {
		return nil
	}

	cmd := Command{
		ID:  m.cmdID.Add(1),
		Cmd: "subscribe",
		Params: SubscribeParams{
			Channels: m.cfg.Channels,
		},
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return client.Send(data)
}

// forward pumps client messages to the output channel until the connection
// errors out or the manager stops.
func (m *manager) forward(client Client, attempt int) {
	for {
		select {
		case <-m.ctx.Done():
			return
		case err := <-client.Errors():
			m.logger.Warn("feed connection error", "error", err)
			return
		case msg, ok := <-client.Messages():
			if !ok {
				return
			}
			raw := RawMessage{
				Data:       msg.Data,
				Attempt:    attempt,
				ReceivedAt: msg.ReceivedAt,
			}
			select {
			case m.out <- raw:
				m.forwarded.Add(1)
			case <-m.ctx.Done():
				return
			default:
				m.logger.Warn("output buffer full, dropping message")
			}
		}
	}
}

// sleep waits for d or manager shutdown. Returns false on shutdown.
func (m *manager) sleep(d time.Duration) bool {
	select {
	case <-m.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// nextWait doubles the backoff, capped at maxWait.
func nextWait(wait, maxWait time.Duration) time.Duration {
	wait *= 2
	if wait > maxWait {
		wait = maxWait
	}
	return wait
}
