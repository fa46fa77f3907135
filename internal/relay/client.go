package relay

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shinyyama/boilagbe-backend/internal/service"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
)

// Client is one push channel connection. Inbound frames are handled sequentially, so
// messages sent over a single connection are persisted in arrival order.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	svc    service.MessageService
	logger *zap.Logger

	// verifiedUID is the identity proven by the HTTP upgrade, if auth is enabled.
	verifiedUID string
	// userID is written only under hub.mu, from this client's read loop.
	userID string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, svc service.MessageService, verifiedUID string) *Client {
	id := uuid.NewString()
	return &Client{
		id:          id,
		hub:         hub,
		conn:        conn,
		svc:         svc,
		logger:      hub.logger.With(zap.String("conn", id)),
		verifiedUID: verifiedUID,
		send:        make(chan []byte, hub.sendBuf),
		done:        make(chan struct{}),
	}
}

// ID returns the connection id used in logs.
func (c *Client) ID() string { return c.id }

// Run serves the connection until either side closes it.
func (c *Client) Run(ctx context.Context) {
	if !c.hub.attach(c) {
		_ = c.conn.Close()
		return
	}
	c.logger.Info("push connection opened", zap.String("remote", c.conn.RemoteAddr().String()))
	go c.writeLoop()
	c.readLoop(ctx)
}

func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) readLoop(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.shutdown()
		c.logger.Info("push connection closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Warn("push connection read failed", zap.Error(err))
			}
			return
		}
		c.handle(ctx, data)
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Warn("push write failed", zap.Error(err))
				c.shutdown()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// handle dispatches one inbound frame. Nothing is reported back to the peer;
// malformed or unauthorized frames are logged and dropped.
func (c *Client) handle(ctx context.Context, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("malformed frame dropped", zap.Error(err))
		return
	}

	switch env.Event {
	case EventAuthenticate:
		var uid string
		if err := json.Unmarshal(env.Data, &uid); err != nil || strings.TrimSpace(uid) == "" {
			c.logger.Warn("authenticate without user id dropped")
			return
		}
		uid = strings.TrimSpace(uid)
		if c.verifiedUID != "" && uid != c.verifiedUID {
			c.logger.Warn("authenticate for a different identity dropped",
				zap.String("claimed", uid), zap.String("verified", c.verifiedUID))
			return
		}
		c.hub.Authenticate(c, uid)

	case EventSendMessage:
		if c.userID == "" {
			c.logger.Warn("sendMessage before authenticate dropped")
			return
		}
		var p sendMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.logger.Warn("malformed sendMessage dropped", zap.Error(err))
			return
		}
		if p.Sender == "" {
			p.Sender = c.userID
		}
		if p.Sender != c.userID {
			c.logger.Warn("sendMessage for another sender dropped",
				zap.String("sender", p.Sender), zap.String("user", c.userID))
			return
		}
		// Send logs its own validation and persistence failures.
		_, _ = c.svc.Send(ctx, service.SendInput{
			SenderID:   p.Sender,
			ReceiverID: p.Receiver,
			Text:       p.Text,
			Via:        "socket",
		})

	case EventMessageRead:
		if c.userID == "" {
			c.logger.Warn("messageRead before authenticate dropped")
			return
		}
		var id messageID
		if err := json.Unmarshal(env.Data, &id); err != nil {
			c.logger.Warn("malformed messageRead dropped", zap.Error(err))
			return
		}
		if err := c.svc.MarkMessageRead(ctx, uint64(id), c.userID); err != nil {
			c.logger.Warn("messageRead failed", zap.Uint64("message", uint64(id)), zap.Error(err))
		}

	default:
		c.logger.Debug("unknown event ignored", zap.String("event", env.Event))
	}
}
