package websocket

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edgeline/edgeline/pkg/types"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config holds odds feed connection configuration.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	MessageBufferSize     int
	Logger                *zap.Logger
}

// Feed is a resilient WebSocket client for a bookmaker odds feed. It
// keeps one connection alive, remembers which events are subscribed so
// they survive a redial, and fans parsed quote updates out on a
// buffered channel.
type Feed struct {
	cfg     Config
	logger  *zap.Logger
	backoff *Backoff

	out chan *types.QuoteMessage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.RWMutex
	conn       *websocket.Conn
	subscribed map[string]bool

	connected atomic.Bool
	lastPong  atomic.Int64
	dialedAt  atomic.Int64
}

// subscribeFrame is the feed's subscription wire format. The opening
// subscription on a fresh connection carries a type; additions and
// removals on a live connection carry an operation instead.
type subscribeFrame struct {
	EventIDs  []string `json:"event_ids"`
	Type      string   `json:"type,omitempty"`
	Operation string   `json:"operation,omitempty"`
}

// New creates an odds feed client. Call Start to connect.
func New(cfg Config) *Feed {
	ctx, cancel := context.WithCancel(context.Background())

	return &Feed{
		cfg:    cfg,
		logger: cfg.Logger,
		backoff: NewBackoff(BackoffConfig{
			InitialDelay:  cfg.ReconnectInitialDelay,
			MaxDelay:      cfg.ReconnectMaxDelay,
			Multiplier:    cfg.ReconnectBackoffMult,
			JitterPercent: 0.2,
		}),
		out:        make(chan *types.QuoteMessage, cfg.MessageBufferSize),
		ctx:        ctx,
		cancel:     cancel,
		subscribed: make(map[string]bool),
	}
}

// Start dials the feed and launches the read, ping and supervise
// loops. The supervise loop redials with backoff whenever the
// connection drops.
func (f *Feed) Start() error {
	f.logger.Info("odds-feed-starting", zap.String("url", f.cfg.URL))

	if err := f.dial(f.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	f.wg.Add(3)
	go f.readLoop()
	go f.pingLoop()
	go f.supervise()

	return nil
}

func (f *Feed) dial(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: f.cfg.DialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		f.lastPong.Store(time.Now().Unix())
		return nil
	})

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	now := time.Now().Unix()
	f.lastPong.Store(now)
	f.dialedAt.Store(now)
	f.connected.Store(true)
	ActiveConnections.Set(1)

	f.logger.Info("odds-feed-connected")

	return nil
}

// Subscribe registers interest in the given events. Already-subscribed
// events are skipped; on a write failure the newly added events are
// rolled back so a later retry sends them again.
func (f *Feed) Subscribe(ctx context.Context, eventIDs []string) error {
	f.mu.Lock()

	added := make([]string, 0, len(eventIDs))
	for _, id := range eventIDs {
		if !f.subscribed[id] {
			f.subscribed[id] = true
			added = append(added, id)
		}
	}

	if len(added) == 0 {
		f.mu.Unlock()
		return nil
	}

	frame := subscribeFrame{EventIDs: added}
	if len(f.subscribed) == len(added) {
		frame.Type = "odds"
	} else {
		frame.Operation = "subscribe"
	}

	total := len(f.subscribed)
	f.mu.Unlock()

	if err := f.writeFrame(frame); err != nil {
		f.mu.Lock()
		for _, id := range added {
			delete(f.subscribed, id)
		}
		total = len(f.subscribed)
		f.mu.Unlock()

		SubscriptionCount.Set(float64(total))
		return fmt.Errorf("write subscribe frame: %w", err)
	}

	SubscriptionCount.Set(float64(total))

	f.logger.Info("feed-subscribed",
		zap.Int("new-count", len(added)),
		zap.Int("total-count", total))

	return nil
}

// Unsubscribe drops the given events from the feed. Events that were
// never subscribed are ignored; when nothing remains to drop no frame
// is written.
func (f *Feed) Unsubscribe(ctx context.Context, eventIDs []string) error {
	f.mu.Lock()

	dropped := make([]string, 0, len(eventIDs))
	for _, id := range eventIDs {
		if f.subscribed[id] {
			delete(f.subscribed, id)
			dropped = append(dropped, id)
		}
	}

	if len(dropped) == 0 {
		f.mu.Unlock()
		return nil
	}

	total := len(f.subscribed)
	f.mu.Unlock()

	frame := subscribeFrame{EventIDs: dropped, Operation: "unsubscribe"}
	if err := f.writeFrame(frame); err != nil {
		f.mu.Lock()
		for _, id := range dropped {
			f.subscribed[id] = true
		}
		total = len(f.subscribed)
		f.mu.Unlock()

		SubscriptionCount.Set(float64(total))
		return fmt.Errorf("write unsubscribe frame: %w", err)
	}

	SubscriptionCount.Set(float64(total))
	UnsubscriptionsTotal.Inc()

	f.logger.Info("feed-unsubscribed",
		zap.Int("count", len(dropped)),
		zap.Int("remaining-count", total))

	return nil
}

func (f *Feed) writeFrame(v interface{}) error {
	f.mu.RLock()
	conn := f.conn
	f.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	return conn.WriteJSON(v)
}

func (f *Feed) readLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		f.mu.RLock()
		conn := f.conn
		f.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			f.logger.Warn("feed-read-error", zap.Error(err))
			f.markDisconnected()
			return
		}

		f.handleFrame(frame)
	}
}

// handleFrame parses one feed frame. Quote frames are JSON arrays of
// updates; anything else is a heartbeat or a control frame and is
// dropped after logging.
func (f *Feed) handleFrame(frame []byte) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("[]")) {
		f.logger.Debug("feed-heartbeat", zap.Int("bytes", len(frame)))
		return
	}

	var updates []types.QuoteMessage
	if err := json.Unmarshal(trimmed, &updates); err != nil {
		var control map[string]interface{}
		if json.Unmarshal(trimmed, &control) == nil {
			if kind, ok := control["type"].(string); ok {
				f.logger.Debug("feed-control-frame",
					zap.String("type", kind),
					zap.Int("bytes", len(frame)))
				return
			}
		}

		preview := trimmed
		if len(preview) > 100 {
			preview = preview[:100]
		}
		f.logger.Debug("feed-unparseable-frame",
			zap.Error(err),
			zap.Int("bytes", len(frame)),
			zap.String("preview", string(preview)))
		return
	}

	for i := range updates {
		f.dispatch(&updates[i])
	}
}

// dispatch hands one update to the consumer without blocking the read
// loop. A full channel drops the update rather than stalling the feed.
func (f *Feed) dispatch(msg *types.QuoteMessage) {
	start := time.Now()

	MessagesReceivedTotal.WithLabelValues(msg.EventType).Inc()

	select {
	case f.out <- msg:
	default:
		f.logger.Warn("feed-channel-full", zap.String("event-type", msg.EventType))
		MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
	}

	MessageLatencySeconds.Observe(time.Since(start).Seconds())
}

func (f *Feed) markDisconnected() {
	if dialed := f.dialedAt.Load(); dialed > 0 {
		ConnectionDuration.Observe(time.Since(time.Unix(dialed, 0)).Seconds())
	}

	f.connected.Store(false)
	ActiveConnections.Set(0)
}

func (f *Feed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			if !f.connected.Load() {
				continue
			}

			f.mu.RLock()
			conn := f.conn
			f.mu.RUnlock()

			if conn == nil {
				continue
			}

			deadline := time.Now().Add(time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				f.logger.Warn("feed-ping-error", zap.Error(err))
			}
		}
	}
}

// supervise watches for a dropped connection, redials with jittered
// exponential backoff, replays the subscription set and restarts the
// read loop.
func (f *Feed) supervise() {
	defer f.wg.Done()

	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		if f.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		f.logger.Warn("feed-connection-lost")

		if err := f.redial(); err != nil {
			return
		}

		if err := f.resubscribe(); err != nil {
			f.logger.Error("feed-resubscribe-failed", zap.Error(err))
			f.connected.Store(false)
			continue
		}

		f.logger.Info("feed-reconnected")

		f.wg.Add(1)
		go f.readLoop()
	}
}

// redial retries the dial until it succeeds or the feed is closed.
func (f *Feed) redial() error {
	for {
		delay := f.backoff.Next()

		f.logger.Info("feed-redialing", zap.Duration("backoff", delay))
		ReconnectAttemptsTotal.Inc()

		select {
		case <-f.ctx.Done():
			return f.ctx.Err()
		case <-time.After(delay):
		}

		err := f.dial(f.ctx)
		if err == nil {
			f.backoff.Reset()
			return nil
		}

		f.logger.Warn("feed-redial-failed", zap.Error(err))
		ReconnectFailuresTotal.Inc()
		f.backoff.Advance()
	}
}

// resubscribe replays the full subscription set on a fresh connection.
func (f *Feed) resubscribe() error {
	f.mu.RLock()
	ids := make([]string, 0, len(f.subscribed))
	for id := range f.subscribed {
		ids = append(ids, id)
	}
	f.mu.RUnlock()

	if len(ids) == 0 {
		return nil
	}

	frame := subscribeFrame{EventIDs: ids, Type: "odds"}
	if err := f.writeFrame(frame); err != nil {
		return fmt.Errorf("write resubscribe frame: %w", err)
	}

	f.logger.Info("feed-resubscribed", zap.Int("count", len(ids)))

	return nil
}

// MessageChan returns the channel carrying parsed quote updates.
func (f *Feed) MessageChan() <-chan *types.QuoteMessage {
	return f.out
}

// Close shuts the feed down and waits for its loops to exit. The
// message channel is closed once the read loop has stopped.
func (f *Feed) Close() error {
	f.cancel()

	f.mu.RLock()
	if f.conn != nil {
		f.conn.Close()
	}
	f.mu.RUnlock()

	f.wg.Wait()

	close(f.out)
	ActiveConnections.Set(0)

	f.logger.Info("odds-feed-closed")

	return nil
}
