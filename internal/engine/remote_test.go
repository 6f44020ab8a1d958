package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playkeeper/internal/player"
)

func newTestRemote() (*Remote, <-chan player.Event, func()) {
	bus := player.NewBus()
	events, cancel := bus.Subscribe()
	return NewRemote(bus, zerolog.Nop()), events, cancel
}

func drainCommands(ch <-chan player.Event) []string {
	var cmds []string
	for len(ch) > 0 {
		ev := <-ch
		if ev.Type == player.EventCommand {
			cmds = append(cmds, ev.Command)
		}
	}
	return cmds
}

func TestTelemetryCaching(t *testing.T) {
	r, _, cancel := newTestRemote()
	defer cancel()

	assert.Equal(t, 0.0, r.Position())

	r.ReportTelemetry(42.5, 1200)
	assert.Equal(t, 42.5, r.Position())
	assert.Equal(t, 1200.0, r.Duration())

	// Unknown duration does not clobber the last known one.
	r.ReportTelemetry(43.0, 0)
	assert.Equal(t, 43.0, r.Position())
	assert.Equal(t, 1200.0, r.Duration())
}

func TestSeekUpdatesCachedPositionImmediately(t *testing.T) {
	r, events, cancel := newTestRemote()
	defer cancel()

	r.ReportTelemetry(12, 1200)
	r.SeekTo(20)

	assert.Equal(t, 20.0, r.Position(), "position reflects the seek before the next report")

	ev := <-events
	require.Equal(t, player.EventCommand, ev.Type)
	assert.Equal(t, "seek", ev.Command)
	assert.Equal(t, 20.0, ev.SeekTo)
}

func TestCommandsReachTheBus(t *testing.T) {
	r, events, cancel := newTestRemote()
	defer cancel()

	r.Prepare()
	r.Stop()
	r.ClearMediaItems()
	r.SeekToLiveEdge()
	r.SetMuted(true)
	r.SetMuted(false)

	assert.Equal(t,
		[]string{"prepare", "stop", "clear_media_items", "seek_live_edge", "mute", "unmute"},
		drainCommands(events))
}
