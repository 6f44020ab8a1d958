// Package engine bridges the playback core to a remote player frontend.
// The frontend reports position and duration over the HTTP API; outbound
// commands travel back to it as events on the session bus.
package engine

import (
	"sync"

	"github.com/rs/zerolog"

	"playkeeper/internal/player"
)

// Remote implements player.Engine for a frontend that is not in-process.
// Queries answer from the last reported telemetry; commands are published
// on the event bus for the frontend to execute.
type Remote struct {
	mu       sync.RWMutex
	position float64
	duration float64

	bus    *player.Bus
	logger zerolog.Logger
}

func NewRemote(bus *player.Bus, logger zerolog.Logger) *Remote {
	return &Remote{bus: bus, logger: logger}
}

// ReportTelemetry records the frontend's current position and duration in
// seconds. Called from the HTTP API on every position report.
func (r *Remote) ReportTelemetry(position, duration float64) {
	r.mu.Lock()
	r.position = position
	if duration > 0 {
		r.duration = duration
	}
	r.mu.Unlock()
}

func (r *Remote) Position() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.position
}

func (r *Remote) Duration() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.duration
}

func (r *Remote) command(name string, seekTo float64) {
	r.logger.Debug().Str("command", name).Msg("issuing engine command")
	r.bus.Publish(player.Event{
		Type:    player.EventCommand,
		Command: name,
		SeekTo:  seekTo,
	})
}

func (r *Remote) SeekTo(seconds float64) {
	// The frontend observes the seek before the next report lands; keep the
	// cached position consistent with it immediately.
	r.mu.Lock()
	r.position = seconds
	r.mu.Unlock()
	r.command("seek", seconds)
}

func (r *Remote) SeekToLiveEdge() {
	r.command("seek_live_edge", 0)
}

func (r *Remote) Prepare() {
	r.command("prepare", 0)
}

func (r *Remote) Stop() {
	r.command("stop", 0)
}

func (r *Remote) ClearMediaItems() {
	r.command("clear_media_items", 0)
}

func (r *Remote) SetMuted(muted bool) {
	if muted {
		r.command("mute", 0)
	} else {
		r.command("unmute", 0)
	}
}
