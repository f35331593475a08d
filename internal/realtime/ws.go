package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// WSConn はwebsocket 1本。書き込みはwritePumpだけが行う
type WSConn struct {
	id        string
	ws        *websocket.Conn
	send      chan Message
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

func NewWSConn(ws *websocket.Conn, logger *zap.Logger) *WSConn {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &WSConn{
		id:     id,
		ws:     ws,
		send:   make(chan Message, sendBuffer),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("conn_id", id)),
	}
}

func (c *WSConn) ID() string { return c.id }

func (c *WSConn) Send(msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *WSConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *WSConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// クライアントからの受信は読み捨て（切断検知とpong用）
func (c *WSConn) readPump() {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("unexpected close", zap.Error(err))
			}
			return
		}
	}
}

// Serve は接続をuserIDのチャネルに登録し、切れるまでブロックする
func (h *Hub) Serve(ws *websocket.Conn, userID int64) {
	c := NewWSConn(ws, h.logger)
	h.Register(userID, c)
	h.logger.Info("client connected", zap.Int64("user_id", userID), zap.String("conn_id", c.ID()))

	go c.writePump()
	c.readPump()

	h.Unregister(userID, c.ID())
	h.logger.Info("client disconnected", zap.Int64("user_id", userID), zap.String("conn_id", c.ID()))
}
