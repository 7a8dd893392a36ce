package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/app"
	"github.com/matthewbaird/ioncon/internal/eventbus"
)

// ClientMessage is the envelope of client-to-server stream messages.
type ClientMessage struct {
	Type string          `json:"type"` // "ping", "refresh"
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is the envelope of server-to-client stream messages.
type ServerMessage struct {
	Type      string `json:"type"` // "state", "pong", "error"
	RequestID string `json:"request_id,omitempty"`
	Version   uint64 `json:"version,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Stream upgrades to a WebSocket and pushes the view state of the session
// whenever it changes. Changes that arrive while a push is pending are
// folded into it.
func (h *ScreenHandler) Stream(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	changed := make(chan struct{}, 1)
	unsubscribe := h.events.Subscribe("stream."+c.ID(), eventbus.HandlerFunc(func(_ context.Context, evt eventbus.Event) error {
		if evt.SessionID != c.ID() {
			return nil
		}
		select {
		case changed <- struct{}{}:
		default:
		}
		return nil
	}))
	defer unsubscribe()

	go h.readLoop(ctx, cancel, conn, c)

	sent := c.Version()
	if !h.pushState(ctx, conn, c, "") {
		return
	}
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-changed:
			v := c.Version()
			if v == sent {
				continue
			}
			if !h.pushState(ctx, conn, c, "") {
				return
			}
			sent = v
		}
	}
}

func (h *ScreenHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *app.Controller) {
	defer cancel()
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				h.log.Debug("stream read", zap.Error(err))
			}
			return
		}
		switch msg.Type {
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		case "refresh":
			h.pushState(ctx, conn, c, msg.ID)
		default:
			h.send(ctx, conn, ServerMessage{
				Type:      "error",
				RequestID: msg.ID,
				Data:      errorBody{Code: "unknown_type", Error: "unknown message type: " + msg.Type},
			})
		}
	}
}

func (h *ScreenHandler) pushState(ctx context.Context, conn *websocket.Conn, c *app.Controller, requestID string) bool {
	s := c.Snapshot()
	return h.send(ctx, conn, ServerMessage{Type: "state", RequestID: requestID, Version: s.Version, Data: s})
}

func (h *ScreenHandler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) bool {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		if ctx.Err() == nil {
			h.log.Debug("stream write", zap.Error(err))
		}
		return false
	}
	return true
}
