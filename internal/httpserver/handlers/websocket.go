package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/localdrop/internal/broadcast"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
	"github.com/MrSnakeDoc/localdrop/internal/logger"
	"github.com/MrSnakeDoc/localdrop/internal/utils"
)

// Viewers never send data; only control frames are expected.
const wsReadLimit = 512

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocket streams notices as JSON text frames. Pings go out on the
// keep-alive interval and a peer that misses two pongs is dropped.
func WebSocket(d deps.Deps) http.HandlerFunc {
	pongWait := 2 * d.KeepAliveInterval

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied with an error status.
			d.Logger.Debug("websocket upgrade failed", logger.Error(err))
			return
		}
		defer conn.Close()

		sub := broadcast.NewChannelSubscriber(utils.ClientIP(r, d.TrustProxy), d.SubscriberBuffer)
		d.Service.Subscribe(sub)
		defer d.Service.Unsubscribe(sub.ID())

		log := d.Logger.With(logger.String("subscriber", sub.ID()), logger.String("remote", sub.Remote()))
		log.Debug("websocket client connected")

		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		// The read loop processes control frames and notices the peer leaving.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(d.KeepAliveInterval)
		defer ping.Stop()

		for {
			select {
			case <-gone:
				log.Debug("websocket client disconnected")
				return
			case <-sub.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
					time.Now().Add(time.Second))
				return
			case n := <-sub.Notices():
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
				if err := conn.WriteJSON(n); err != nil {
					log.Debug("websocket write failed", logger.Error(err))
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
					log.Debug("websocket ping failed", logger.Error(err))
					return
				}
			}
		}
	}
}
