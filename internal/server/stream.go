package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/screener/internal/events"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	streamBuffer       = 100
	streamWriteTimeout = 5 * time.Second
	streamPingInterval = 30 * time.Second
)

// VerdictStreamHandler streams recorded verdicts and batch completions over
// a websocket.
type VerdictStreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewVerdictStreamHandler creates a new stream handler
func NewVerdictStreamHandler(bus *events.Bus, log zerolog.Logger) *VerdictStreamHandler {
	return &VerdictStreamHandler{
		bus: bus,
		log: log.With().Str("component", "verdict_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/verdicts/stream?types=VERDICT_RECORDED,BATCH_COMPLETED
func (h *VerdictStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	types := []events.EventType{events.VerdictRecorded, events.BatchCompleted}
	if filter := r.URL.Query().Get("types"); filter != "" {
		types = types[:0]
		for _, t := range strings.Split(filter, ",") {
			types = append(types, events.EventType(strings.TrimSpace(t)))
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	// Clients only listen; reading in the background handles control frames
	// and cancels ctx when the client goes away.
	ctx := conn.CloseRead(r.Context())

	eventsCh, unsubscribe := h.bus.Subscribe(streamBuffer, types...)
	defer unsubscribe()

	h.log.Info().Int("types", len(types)).Msg("Client connected to verdict stream")

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from verdict stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case event, ok := <-eventsCh:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to marshal event")
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Failed to write to verdict stream")
				return
			}
		}
	}
}
