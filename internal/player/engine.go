package player

// Engine is the narrow command/query surface of the external media engine.
// Its internal buffering and decoding are a black box; only this surface
// matters to the control core.
type Engine interface {
	// Position returns the current playback position in seconds.
	Position() float64
	// Duration returns the media duration in seconds, 0 when unknown.
	Duration() float64
	// SeekTo moves playback to the given position in seconds.
	SeekTo(seconds float64)
	// SeekToLiveEdge repositions a live stream to its live edge.
	SeekToLiveEdge()
	// Prepare (re-)prepares the current media for playback. Idempotent.
	Prepare()
	// Stop halts playback.
	Stop()
	// ClearMediaItems drops the loaded media from the engine.
	ClearMediaItems()
	// SetMuted toggles audio mute.
	SetMuted(muted bool)
}
