package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edgeline/edgeline/pkg/types"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// feedServer is a fake odds feed. Every accepted connection is pushed
// on conns; every JSON frame a client writes is pushed on frames.
type feedServer struct {
	srv    *httptest.Server
	conns  chan *gws.Conn
	frames chan map[string]interface{}
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()

	fs := &feedServer{
		conns:  make(chan *gws.Conn, 4),
		frames: make(chan map[string]interface{}, 16),
	}

	upgrader := gws.Upgrader{}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.conns <- conn

		for {
			var frame map[string]interface{}
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			fs.frames <- frame
		}
	}))
	t.Cleanup(fs.srv.Close)

	return fs
}

func (fs *feedServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

func (fs *feedServer) recvConn(t *testing.T) *gws.Conn {
	t.Helper()

	select {
	case conn := <-fs.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection")
		return nil
	}
}

func (fs *feedServer) recvFrame(t *testing.T) map[string]interface{} {
	t.Helper()

	select {
	case frame := <-fs.frames:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func (fs *feedServer) assertNoFrame(t *testing.T) {
	t.Helper()

	select {
	case frame := <-fs.frames:
		t.Fatalf("unexpected frame: %v", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

func frameEventIDs(frame map[string]interface{}) []string {
	raw, _ := frame["event_ids"].([]interface{})
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids
}

func startTestFeed(t *testing.T, url string) *Feed {
	t.Helper()

	f := New(Config{
		URL:                   url,
		DialTimeout:           time.Second,
		PingInterval:          time.Minute,
		ReconnectInitialDelay: 10 * time.Millisecond,
		ReconnectMaxDelay:     100 * time.Millisecond,
		ReconnectBackoffMult:  2.0,
		MessageBufferSize:     16,
		Logger:                zap.NewNop(),
	})
	require.NoError(t, f.Start())

	return f
}

func recvQuote(t *testing.T, f *Feed) *types.QuoteMessage {
	t.Helper()

	select {
	case msg := <-f.MessageChan():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for quote")
		return nil
	}
}

func TestFeed_SubscribeProtocol(t *testing.T) {
	fs := newFeedServer(t)
	f := startTestFeed(t, fs.url())
	defer f.Close()
	fs.recvConn(t)

	ctx := context.Background()

	// Opening subscription on a fresh connection carries the feed type
	require.NoError(t, f.Subscribe(ctx, []string{"evt-nba-001", "evt-nba-002"}))
	frame := fs.recvFrame(t)
	assert.Equal(t, "odds", frame["type"])
	assert.ElementsMatch(t, []string{"evt-nba-001", "evt-nba-002"}, frameEventIDs(frame))

	// Additions on a live connection carry an operation instead
	require.NoError(t, f.Subscribe(ctx, []string{"evt-nba-003"}))
	frame = fs.recvFrame(t)
	assert.Equal(t, "subscribe", frame["operation"])
	assert.Equal(t, []string{"evt-nba-003"}, frameEventIDs(frame))

	// Re-subscribing an already tracked event writes nothing
	require.NoError(t, f.Subscribe(ctx, []string{"evt-nba-003"}))
	fs.assertNoFrame(t)

	require.NoError(t, f.Unsubscribe(ctx, []string{"evt-nba-001"}))
	frame = fs.recvFrame(t)
	assert.Equal(t, "unsubscribe", frame["operation"])
	assert.Equal(t, []string{"evt-nba-001"}, frameEventIDs(frame))

	// Unknown events drop silently
	require.NoError(t, f.Unsubscribe(ctx, []string{"evt-never-tracked"}))
	fs.assertNoFrame(t)
}

func TestFeed_DeliversQuoteFrames(t *testing.T) {
	fs := newFeedServer(t)
	f := startTestFeed(t, fs.url())
	defer f.Close()
	conn := fs.recvConn(t)

	payload := `[
		{"event_type":"odds_update","event_id":"evt-nba-001","outcome":"home","book_id":"pinnacle","price":-110,"timestamp":1756400000000},
		{"event_type":"odds_update","event_id":"evt-nba-001","outcome":"away","book_id":"draftkings","price":105,"timestamp":1756400000250}
	]`
	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(payload)))

	msg := recvQuote(t, f)
	assert.Equal(t, types.EventTypeOddsUpdate, msg.EventType)
	assert.Equal(t, "evt-nba-001", msg.EventID)
	assert.Equal(t, "home", msg.Outcome)
	assert.Equal(t, "pinnacle", msg.BookID)
	assert.Equal(t, float64(-110), msg.Price)

	msg = recvQuote(t, f)
	assert.Equal(t, "away", msg.Outcome)
	assert.Equal(t, "draftkings", msg.BookID)
	assert.Equal(t, float64(105), msg.Price)
}

func TestFeed_SkipsHeartbeatsAndControlFrames(t *testing.T) {
	fs := newFeedServer(t)
	f := startTestFeed(t, fs.url())
	defer f.Close()
	conn := fs.recvConn(t)

	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(`[]`)))
	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(`{"type":"subscribed","event_ids":["evt-nba-001"]}`)))
	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(`not json at all`)))
	quote := `[{"event_type":"odds_update","event_id":"evt-nba-002","outcome":"home","book_id":"fanduel","price":-115,"timestamp":0}]`
	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(quote)))

	// Only the quote frame reaches the consumer
	msg := recvQuote(t, f)
	assert.Equal(t, "evt-nba-002", msg.EventID)
	assert.Equal(t, "fanduel", msg.BookID)
}

func TestFeed_ResubscribesAfterReconnect(t *testing.T) {
	fs := newFeedServer(t)
	f := startTestFeed(t, fs.url())
	defer f.Close()
	conn := fs.recvConn(t)

	require.NoError(t, f.Subscribe(context.Background(), []string{"evt-nba-001"}))
	fs.recvFrame(t)

	// Drop the connection server-side; the feed redials and replays
	// its subscription set as a fresh opening subscription
	conn.Close()
	fs.recvConn(t)

	frame := fs.recvFrame(t)
	assert.Equal(t, "odds", frame["type"])
	assert.Equal(t, []string{"evt-nba-001"}, frameEventIDs(frame))
}

func TestFeed_SubscribeRollsBackOnWriteFailure(t *testing.T) {
	// Never started, so there is no connection to write to
	f := New(Config{URL: "ws://unused.invalid", Logger: zap.NewNop()})

	err := f.Subscribe(context.Background(), []string{"evt-nba-001"})
	require.Error(t, err)

	f.mu.RLock()
	defer f.mu.RUnlock()
	assert.Empty(t, f.subscribed, "failed subscribe must not leave events tracked")
}

func TestFeed_UnsubscribeWithoutSubscriptionsIsNoop(t *testing.T) {
	f := New(Config{URL: "ws://unused.invalid", Logger: zap.NewNop()})

	assert.NoError(t, f.Unsubscribe(context.Background(), []string{"evt-nba-001"}))
	assert.NoError(t, f.Unsubscribe(context.Background(), nil))
}

func TestFeed_CloseClosesMessageChan(t *testing.T) {
	fs := newFeedServer(t)
	f := startTestFeed(t, fs.url())
	fs.recvConn(t)

	require.NoError(t, f.Close())

	_, ok := <-f.MessageChan()
	assert.False(t, ok, "message channel must be closed after Close")
}
