package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"alert-relay/src/logger"
	"alert-relay/src/models"
	"alert-relay/src/relay"
	"alert-relay/src/utils"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

type gatewayFixture struct {
	gateway  *Gateway
	registry *relay.Registry
	recent   *utils.AlertRing
	server   *httptest.Server
}

func newFixture(t *testing.T) *gatewayFixture {
	cfg := &models.MConfig{
		Name:     "alert-relay-test",
		Host:     "127.0.0.1",
		Port:     9999,
		LogLevel: "ERROR",
		Feed:     models.MFeedConfig{Symbols: []string{"AAPL", "GOOGL"}},
		Alerts:   models.MAlertsConfig{ClientSendBuffer: 16},
	}

	log := logger.NewLogger("ERROR", "test")
	registry := relay.NewRegistry(log)
	recent := utils.NewAlertRing(16)
	registry.SetAlertSink(recent.Append)
	clock := utils.NewMarketClock(cfg.Feed.Symbols, log)

	feedStatus := func() models.MFeedStatus {
		return models.MFeedStatus{Connected: true, LastTickAt: 1700000000}
	}

	g := NewGateway(cfg, log, registry, recent, clock, feedStatus)
	srv := httptest.NewServer(g.Engine())
	t.Cleanup(srv.Close)

	return &gatewayFixture{gateway: g, registry: registry, recent: recent, server: srv}
}

// -----------------------------------------------------------------------------

func (f *gatewayFixture) dial(t *testing.T, clientID string) *websocket.Conn {
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/" + clientID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func subscribeMsg(stock string, threshold float64) []byte {
	raw, _ := json.Marshal(map[string]interface{}{
		"action":    "subscribe",
		"stock":     stock,
		"threshold": threshold,
	})
	return raw
}

func waitForSubscribers(t *testing.T, f *gatewayFixture, symbol string, want int) {
	require.Eventually(t, func() bool {
		return f.registry.SubscriberCounts()[symbol] == want
	}, 5*time.Second, 10*time.Millisecond)
}

// -----------------------------------------------------------------------------

// The full client path: subscribe to AAPL at 150, ticks 148, 152, 149
// arrive, and the client reads below/above/below with the exact wire shape.
func TestSubscribeAndReceiveAlerts(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "alice")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, subscribeMsg("AAPL", 150)))
	waitForSubscribers(t, f, "AAPL", 1)

	for _, p := range []float64{148, 152, 149} {
		f.registry.Dispatch(models.MTick{Symbol: "AAPL", Price: p})
	}

	expected := []string{
		`{"stock":"AAPL","price":148,"alert":"Price below threshold!"}`,
		`{"stock":"AAPL","price":152,"alert":"Price above threshold!"}`,
		`{"stock":"AAPL","price":149,"alert":"Price below threshold!"}`,
	}

	for _, want := range expected {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, want, string(payload))
	}

	// The emitted alerts also land in the recent buffer
	assert.Equal(t, 3, f.recent.Size())
}

// -----------------------------------------------------------------------------

func TestThresholdAcceptsNumericString(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "alice")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"action":"subscribe","stock":"AAPL","threshold":"150.5"}`)))
	waitForSubscribers(t, f, "AAPL", 1)

	f.registry.Dispatch(models.MTick{Symbol: "AAPL", Price: 150})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg models.MAlertMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, models.AlertTextBelow, msg.Alert)
}

// -----------------------------------------------------------------------------

func TestUnsubscribeStopsDelivery(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "alice")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, subscribeMsg("AAPL", 150)))
	waitForSubscribers(t, f, "AAPL", 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"action":"unsubscribe","stock":"AAPL"}`)))
	waitForSubscribers(t, f, "AAPL", 0)

	assert.Equal(t, 0, f.registry.Dispatch(models.MTick{Symbol: "AAPL", Price: 148}))
}

// -----------------------------------------------------------------------------

// A malformed command gets a structured rejection and the session survives.
func TestMalformedCommandKeepsSessionOpen(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "alice")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply models.MErrorReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "malformed command", reply.Error)

	// Session still works
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, subscribeMsg("AAPL", 150)))
	waitForSubscribers(t, f, "AAPL", 1)
}

// -----------------------------------------------------------------------------

func TestIncompleteSubscribeIsRejected(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "alice")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"action":"subscribe","stock":"AAPL"}`)))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply models.MErrorReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "subscribe requires a threshold", reply.Error)
	assert.Equal(t, 0, f.registry.SubscriberCounts()["AAPL"])
}

// -----------------------------------------------------------------------------

// Unknown actions are silently ignored.
func TestUnknownActionIgnored(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "alice")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"action":"dance","stock":"AAPL"}`)))

	// Follow with a valid subscribe; only its effect shows up
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, subscribeMsg("AAPL", 150)))
	waitForSubscribers(t, f, "AAPL", 1)
	assert.Equal(t, 1, f.registry.SessionCount())
}

// -----------------------------------------------------------------------------

// A second connection reusing a live client id is rejected, not hijacked.
func TestClientIDCollisionRejected(t *testing.T) {
	f := newFixture(t)
	first := f.dial(t, "alice")
	_ = first

	require.Eventually(t, func() bool {
		return f.registry.SessionCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	second := f.dial(t, "alice")
	second.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := second.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation),
		"expected policy violation close, got %v", err)

	// The original session is untouched
	assert.Equal(t, 1, f.registry.SessionCount())
}

// -----------------------------------------------------------------------------

// After a disconnect the registry holds nothing for the client.
func TestDisconnectCleansUp(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "alice")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, subscribeMsg("AAPL", 150)))
	waitForSubscribers(t, f, "AAPL", 1)

	conn.Close()

	require.Eventually(t, func() bool {
		return f.registry.SessionCount() == 0
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 0, f.registry.Dispatch(models.MTick{Symbol: "AAPL", Price: 1}))
}

// -----------------------------------------------------------------------------
// REST surface
// -----------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["feed_connected"])
	assert.Equal(t, float64(0), body["connections"])
}

// -----------------------------------------------------------------------------

func TestConfigEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/api/config")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Symbols []string `json:"symbols"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"AAPL", "GOOGL"}, body.Symbols)
}

// -----------------------------------------------------------------------------

func TestRecentAlertsEndpoint(t *testing.T) {
	f := newFixture(t)

	f.recent.Append(models.MAlertEvent{ClientID: "alice", Symbol: "AAPL", Price: 148, Threshold: 150, Direction: models.DirectionBelow})

	resp, err := http.Get(f.server.URL + "/api/alerts/recent?limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Alerts []models.MAlertEvent `json:"alerts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Alerts, 1)
	assert.Equal(t, "AAPL", body.Alerts[0].Symbol)
}

// -----------------------------------------------------------------------------

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "alice")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, subscribeMsg("AAPL", 150)))
	waitForSubscribers(t, f, "AAPL", 1)

	resp, err := http.Get(f.server.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Connections   int             `json:"connections"`
		Subscriptions map[string]int  `json:"subscriptions"`
		MarketsOpen   map[string]bool `json:"markets_open"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Connections)
	assert.Equal(t, 1, body.Subscriptions["AAPL"])
	assert.Contains(t, body.MarketsOpen, "AAPL")
}
