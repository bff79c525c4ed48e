package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sweeney/contact-sensor/internal/status"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMsgSize      = 1 << 12
	defaultInterval = 1 * time.Second
	maxInterval     = 10 * time.Second
)

// wsEnvelope wraps every websocket message.
type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// The status page is served from the same host; any origin is accepted so
// dashboards on the LAN can subscribe too.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// parseInterval reads ?interval=2s, falling back to the default when the
// value is missing, invalid or out of range.
func parseInterval(r *http.Request) time.Duration {
	if s := r.URL.Query().Get("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}
	return defaultInterval
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	interval := parseInterval(r)
	log := s.log.With().Str("session", uuid.NewString()).Logger()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	log.Debug().Dur("interval", interval).Msg("Websocket client connected")

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	if err := s.sendStatus(conn); err != nil {
		log.Debug().Err(err).Msg("Websocket initial write failed")
		return
	}

	for {
		select {
		case <-done:
			log.Debug().Msg("Websocket client disconnected")
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Msg("Websocket ping failed")
				return
			}
		case <-ticker.C:
			if err := s.sendStatus(conn); err != nil {
				log.Debug().Err(err).Msg("Websocket write failed")
				return
			}
		}
	}
}

func (s *Server) sendStatus(conn *websocket.Conn) error {
	data := status.FormatJSON(s.tracker.Snapshot())
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: "status", Data: data})
}
