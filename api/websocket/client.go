package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu    sync.Mutex
	runID string
}

type IncomingMessage struct {
	Type  string `json:"type"`
	RunID string `json:"run_id,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, runID string) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, 256),
		runID: runID,
	}
}

// wantsRun reports whether a message tagged with runID should reach
// this client. Clients with no filter follow every run.
func (c *Client) wantsRun(runID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID == "" || runID == "" || c.runID == runID
}

func (c *Client) setRun(runID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous := c.runID
	c.runID = runID
	return previous
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Fold queued messages into the same frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		if msg.RunID != "" {
			c.setRun(msg.RunID)
			logger.Infof("Client subscribed to run %s", msg.RunID)
			c.sendConfirmation("subscribed", msg.RunID)
		}
	case "unsubscribe":
		previous := c.setRun("")
		logger.Info("Client unsubscribed, following all runs")
		c.sendConfirmation("unsubscribed", previous)
	}
}

func (c *Client) sendConfirmation(action, runID string) {
	update := SubscriptionUpdate{
		Type:      "subscription_update",
		Action:    action,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(update)
	if err != nil {
		logger.Errorf("Failed to marshal confirmation: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Warn("Client send channel full, dropping confirmation")
	}
}

func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn, c.Query("run_id"))
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
