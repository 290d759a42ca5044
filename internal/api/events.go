package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vrtelolleva/platform/internal/domain"
)

// eventBuffer bounds the per-connection queue. A client that cannot keep
// up loses notifications rather than blocking the bus.
const eventBuffer = 64

// HandleEvents streams notifications over Server-Sent Events. Clients pass
// one or more role query params (e.g. ?role=CLIENT&role=BUSINESS); with no
// role param every notification is forwarded, which is what the admin
// dashboard uses.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	roles := make(map[domain.Role]bool)
	for _, role := range r.URL.Query()["role"] {
		roles[domain.Role(role)] = true
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := make(chan domain.Notification, eventBuffer)
	unsubscribe := h.bus.Subscribe(func(n domain.Notification) {
		if len(roles) > 0 && !roles[n.Role] {
			return
		}
		select {
		case events <- n:
		default:
			h.logger.Warn("dropping notification for slow event stream", "notification_id", n.ID)
		}
	})
	defer unsubscribe()

	h.logger.Info("event stream opened", "remote", r.RemoteAddr, "roles", r.URL.Query()["role"])

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("event stream closed", "remote", r.RemoteAddr)
			return
		case n := <-events:
			data, err := json.Marshal(n)
			if err != nil {
				h.logger.Error("failed to encode notification", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
