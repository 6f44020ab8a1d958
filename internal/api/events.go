package api

import (
	"encoding/json"
	"net/http"
)

// Events streams session events (skips, mute transitions, toasts, engine
// commands, state changes) as server-sent events. Subscribers attached
// late miss events emitted before they connected.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Streaming not supported")
		return
	}

	ch, cancel := h.bus.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("event subscriber attached")

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug().Str("remote", r.RemoteAddr).Msg("event subscriber detached")
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error().Err(err).Msg("failed to marshal event")
				continue
			}
			if _, err := w.Write([]byte("event: " + string(ev.Type) + "\ndata: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
