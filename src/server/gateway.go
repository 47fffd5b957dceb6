package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"alert-relay/src/logger"
	"alert-relay/src/models"
	"alert-relay/src/relay"
	"alert-relay/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Gateway
// -----------------------------------------------------------------------------

// Gateway is the composition root for client traffic: it accepts websocket
// connections, builds one Client session per connection, and serves the
// REST status surface. It owns no alerting logic itself.
type Gateway struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	engine   *gin.Engine
	Registry *relay.Registry
	Recent   *utils.AlertRing
	Clock    *utils.MarketClock

	// FeedStatus reports the upstream connector state for /api/health.
	FeedStatus func() models.MFeedStatus
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewGateway(
	cfg *models.MConfig,
	log *logger.Logger,
	registry *relay.Registry,
	recent *utils.AlertRing,
	clock *utils.MarketClock,
	feedStatus func() models.MFeedStatus,
) *Gateway {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	g := &Gateway{
		Config:     cfg,
		Logger:     log,
		engine:     gin.Default(),
		Registry:   registry,
		Recent:     recent,
		Clock:      clock,
		FeedStatus: feedStatus,
	}

	// Add CORS Middleware
	g.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	g.setupRoutes()
	return g
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (g *Gateway) setupRoutes() {
	// REST API endpoints
	g.engine.GET("/api/health", g.getHealth)
	g.engine.GET("/api/config", g.getConfig)
	g.engine.GET("/api/status", g.getStatus)
	g.engine.GET("/api/alerts/recent", g.getRecentAlerts)

	// WebSocket endpoint; client identity comes from the path
	g.engine.GET("/ws/:client_id", g.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.Config.Host, g.Config.Port)
	g.Logger.Info("Starting gateway on %s", addr)
	return g.engine.Run(addr)
}

// -----------------------------------------------------------------------------

// Engine exposes the router for tests.
func (g *Gateway) Engine() *gin.Engine {
	return g.engine
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (g *Gateway) handleWebSocket(c *gin.Context) {
	clientID := c.Param("client_id")
	if clientID == "" {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		gateway: g,
		id:      clientID,
		conn:    conn,
		// Buffered channel so fan-out never blocks on a slow peer
		send: make(chan interface{}, g.Config.Alerts.ClientSendBuffer),
	}

	if err := g.Registry.AddSession(client); err != nil {
		// A colliding id is rejected instead of hijacking the live session.
		g.Logger.Warning("Rejected connection for %s: %v", clientID, err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (g *Gateway) handleClientMessage(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		g.Logger.Debug("Malformed command from %s: %v", client.id, err)
		client.reply("malformed command")
		return
	}

	switch cmd.Action {
	case "subscribe":
		if cmd.Stock == "" {
			client.reply("subscribe requires a stock")
			return
		}
		if cmd.Threshold == nil {
			client.reply("subscribe requires a threshold")
			return
		}
		g.Registry.Subscribe(client.id, cmd.Stock, cmd.Threshold.InexactFloat64())

	case "unsubscribe":
		if cmd.Stock == "" {
			client.reply("unsubscribe requires a stock")
			return
		}
		g.Registry.Unsubscribe(client.id, cmd.Stock)

	default:
		// Unknown actions are ignored
	}
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (g *Gateway) getHealth(c *gin.Context) {
	status := g.FeedStatus()

	c.JSON(200, gin.H{
		"status":         "ok",
		"connections":    g.Registry.SessionCount(),
		"feed_connected": status.Connected,
		"latest_tick":    status.LastTickAt,
	})
}

// -----------------------------------------------------------------------------

func (g *Gateway) getConfig(c *gin.Context) {
	// Return the tracked instrument universe
	c.JSON(200, gin.H{
		"symbols": g.Config.Feed.Symbols,
	})
}

// -----------------------------------------------------------------------------

func (g *Gateway) getStatus(c *gin.Context) {
	c.JSON(200, gin.H{
		"connections":   g.Registry.SessionCount(),
		"subscriptions": g.Registry.SubscriberCounts(),
		"markets_open":  g.Clock.OpenMarkets(),
	})
}

// -----------------------------------------------------------------------------

func (g *Gateway) getRecentAlerts(c *gin.Context) {
	limit := utils.DefaultRecentAlertLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	c.JSON(200, gin.H{
		"alerts": g.Recent.Latest(limit),
	})
}
