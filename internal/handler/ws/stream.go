package ws

import (
	"net/http"
	"strings"
	"time"

	"ChartMarks/internal/domain/models"
	"ChartMarks/internal/service/annotations"
	"ChartMarks/internal/service/metrics"
	xlogger "ChartMarks/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is one annotation write pushed to stream clients.
type Message struct {
	Kind  models.EventKind `json:"kind"`
	Entry interface{}      `json:"entry"`
}

// StreamHandler pushes every levels and overlays write to WebSocket clients.
// Clients may pass ?symbols=BTC,ETH to filter.
type StreamHandler struct {
	logger   *xlogger.Logger
	levels   *annotations.LevelsCache
	overlays *annotations.OverlaysCache
	buffer   int
	upgrader websocket.Upgrader
}

func NewStreamHandler(logger *xlogger.Logger, levels *annotations.LevelsCache, overlays *annotations.OverlaysCache, buffer int) *StreamHandler {
	metrics.Register()
	return &StreamHandler{
		logger:   logger,
		levels:   levels,
		overlays: overlays,
		buffer:   buffer,
		upgrader: websocket.Upgrader{
			CheckOrigin:       func(*http.Request) bool { return true },
			EnableCompression: true,
		},
	}
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/annotations", h.Serve)
}

func (h *StreamHandler) Serve(c echo.Context) error {
	filter := parseSymbols(c.QueryParam("symbols"))

	// subscribe before the handshake so no write after it is missed
	levelsCh, cancelLevels := h.levels.Subscribe(h.buffer)
	defer cancelLevels()
	overlaysCh, cancelOverlays := h.overlays.Subscribe(h.buffer)
	defer cancelOverlays()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		metrics.StreamErrors.WithLabelValues("upgrade").Inc()
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()
	h.logger.Debug("stream client connected", xlogger.String("remote", c.RealIP()))

	done := make(chan struct{})
	go readPump(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		var msg Message
		select {
		case u, ok := <-levelsCh:
			if !ok {
				return nil
			}
			if !filter.allows(u.Key) {
				continue
			}
			msg = Message{Kind: models.EventLevels, Entry: models.NewLevelsEntry(u.Key, u.Entry.Value, u.Entry.Timestamp)}
		case u, ok := <-overlaysCh:
			if !ok {
				return nil
			}
			if !filter.allows(u.Key) {
				continue
			}
			msg = Message{Kind: models.EventOverlays, Entry: models.NewOverlaysEntry(u.Key, u.Entry.Value, u.Entry.Timestamp)}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.StreamErrors.WithLabelValues("ping").Inc()
				return nil
			}
			continue
		case <-done:
			return nil
		case <-c.Request().Context().Done():
			return nil
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			metrics.StreamErrors.WithLabelValues("write").Inc()
			h.logger.Debug("stream write failed", xlogger.Error(err))
			return nil
		}
		metrics.StreamMessages.WithLabelValues(string(msg.Kind)).Inc()
	}
}

// readPump drains client frames so control messages are processed, and
// closes done when the connection goes away.
func readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type symbolFilter map[string]struct{}

func parseSymbols(raw string) symbolFilter {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	f := symbolFilter{}
	for _, s := range strings.Split(raw, ",") {
		if key := models.NormalizeSymbol(s); key != "" {
			f[key] = struct{}{}
		}
	}
	return f
}

func (f symbolFilter) allows(key string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[key]
	return ok
}
