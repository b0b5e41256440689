package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/walletbridge/link-server-go/internal/errors"
	"github.com/walletbridge/link-server-go/internal/notify"
	"github.com/walletbridge/link-server-go/internal/service"
)

const heartbeatInterval = 30 * time.Second

// EventsHandler streams handshake lifecycle events to the chat layer over
// SSE, so a bot waiting on a connection learns the outcome without polling.
type EventsHandler struct {
	broker         *notify.Broker
	connectService *service.ConnectService
}

func NewEventsHandler(broker *notify.Broker, connectService *service.ConnectService) *EventsHandler {
	return &EventsHandler{
		broker:         broker,
		connectService: connectService,
	}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, apperrors.InvalidInput("userId", "must be a positive integer"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(userID)
	defer h.broker.Unsubscribe(client)

	ctx := r.Context()

	// Opening event carries the current state so clients don't have to race
	// the stream against a status poll.
	status, statusErr := h.connectService.CheckConnectionStatus(ctx, userID)
	if statusErr == nil {
		h.sendEvent(w, flusher, "status", status)
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-client.Done:
			return

		case event := <-client.Events:
			if err := h.sendRawEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return h.sendRawEvent(w, flusher, notify.Event{Type: eventType, Data: jsonData})
}

func (h *EventsHandler) sendRawEvent(w http.ResponseWriter, flusher http.Flusher, event notify.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
