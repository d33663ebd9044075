package websocket

import (
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"tierank/realtime"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	bufferSize = 256
)

// Handler returns an http.Handler that upgrades to WebSocket and streams events from the hub.
// Repeated ?leaderboard= query values restrict the stream to those boards.
func Handler(hub *realtime.Hub) http.Handler {
	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		boards := r.URL.Query()["leaderboard"]
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		id, ch := hub.Subscribe(bufferSize, boards...)
		defer hub.Unsubscribe(id)

		// the read loop only services control frames and notices the peer leaving
		closed := make(chan struct{})
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(gorillaws.TextMessage, realtime.MarshalJSON(ev)); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(gorillaws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	})
}
