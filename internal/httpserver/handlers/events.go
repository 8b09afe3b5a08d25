package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/localdrop/internal/broadcast"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
	"github.com/MrSnakeDoc/localdrop/internal/logger"
	"github.com/MrSnakeDoc/localdrop/internal/utils"
)

// streamWriteTimeout bounds a single write to a live connection.
const streamWriteTimeout = 10 * time.Second

// Events streams notices as server-sent events: one "data: {json}" frame
// per notice, with comment lines as keep-alive.
func Events(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		// ResponseController unwraps middleware writers to reach the Flusher.
		rc := http.NewResponseController(w)
		_ = rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			d.Logger.Warn("streaming not supported", logger.Error(err))
			return
		}

		sub := broadcast.NewChannelSubscriber(utils.ClientIP(r, d.TrustProxy), d.SubscriberBuffer)
		d.Service.Subscribe(sub)
		defer d.Service.Unsubscribe(sub.ID())

		log := d.Logger.With(logger.String("subscriber", sub.ID()), logger.String("remote", sub.Remote()))
		log.Debug("sse client connected")

		keepAlive := time.NewTicker(d.KeepAliveInterval)
		defer keepAlive.Stop()

		write := func(frame string) error {
			_ = rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if _, err := fmt.Fprint(w, frame); err != nil {
				return err
			}
			return rc.Flush()
		}

		for {
			select {
			case <-r.Context().Done():
				log.Debug("sse client disconnected")
				return
			case <-sub.Done():
				log.Debug("sse subscriber closed by server")
				return
			case n := <-sub.Notices():
				data, err := json.Marshal(n)
				if err != nil {
					log.Error("failed to encode notice", logger.Error(err))
					continue
				}
				if err := write(fmt.Sprintf("data: %s\n\n", data)); err != nil {
					log.Debug("sse write failed", logger.Error(err))
					return
				}
			case <-keepAlive.C:
				if err := write(": keep-alive\n\n"); err != nil {
					log.Debug("sse keep-alive failed", logger.Error(err))
					return
				}
			}
		}
	}
}
