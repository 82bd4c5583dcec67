package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"jobagent/internal/events"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

type WSHandler struct {
	Hub      *events.Hub
	Log      *slog.Logger
	Upgrader websocket.Upgrader
}

// Serve streams every job_updates frame to the client. Client messages are
// read and discarded; the hub closing the subscription ends the connection.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.Log.Debug("ws upgrade failed", "request_id", RequestIDFrom(r.Context()), "err", err)
		return
	}
	ch := h.Hub.Subscribe()
	reqID := RequestIDFrom(r.Context())
	h.Log.Info("ws connected", "request_id", reqID, "subscribers", h.Hub.Len())

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(4096)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer func() {
		ping.Stop()
		h.Hub.Unsubscribe(ch)
		conn.Close()
		<-closed
		h.Log.Info("ws disconnected", "request_id", reqID)
	}()

	for {
		select {
		case <-closed:
			return
		case msg, ok := <-ch:
			if !ok {
				h.Log.Warn("ws subscriber evicted", "request_id", reqID)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"),
					time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
