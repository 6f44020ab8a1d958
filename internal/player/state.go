package player

import "time"

// Phase is the session-level recovery state machine. ShutDown is terminal:
// further engine errors are ignored until a new video starts a fresh session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlaying
	PhaseBuffering
	PhaseRecovering
	PhaseDowngrading
	PhaseShutDown
)

func (p Phase) String() string {
	switch p {
	case PhasePlaying:
		return "playing"
	case PhaseBuffering:
		return "buffering"
	case PhaseRecovering:
		return "recovering"
	case PhaseDowngrading:
		return "downgrading"
	case PhaseShutDown:
		return "shut_down"
	default:
		return "idle"
	}
}

// SessionState is the single mutable record for the current playback
// attempt. It is owned by the session actor; everything outside the actor
// sees immutable Snapshots.
type SessionState struct {
	VideoID string
	Phase   Phase

	VideoStream *StreamDescriptor
	AudioStream *StreamDescriptor

	AvailableVideo []StreamDescriptor
	AvailableAudio []StreamDescriptor

	Quality QualityMode

	Buffering bool
	Playing   bool

	// Error is set only for terminal failures; empty otherwise.
	Error string

	RecoveryAttempted bool
	StreamErrorCount  int
}

// SetVideoStream substitutes the active video stream and resets the
// per-stream error counter in the same step. The counter is meaningless
// once the stream it was counted against changes.
func (s *SessionState) SetVideoStream(d StreamDescriptor) {
	s.VideoStream = &d
	s.StreamErrorCount = 0
}

// SetAudioStream substitutes the active audio stream and resets the
// per-stream error counter.
func (s *SessionState) SetAudioStream(d StreamDescriptor) {
	s.AudioStream = &d
	s.StreamErrorCount = 0
}

// Snapshot is the published, immutable view of a session handed to
// concurrent readers such as the HTTP API.
type Snapshot struct {
	VideoID           string            `json:"video_id"`
	Phase             string            `json:"phase"`
	VideoStream       *StreamDescriptor `json:"video_stream,omitempty"`
	AudioStream       *StreamDescriptor `json:"audio_stream,omitempty"`
	Quality           QualityMode       `json:"quality"`
	Buffering         bool              `json:"buffering"`
	Playing           bool              `json:"playing"`
	Error             string            `json:"error,omitempty"`
	RecoveryAttempted bool              `json:"recovery_attempted"`
	StreamErrorCount  int               `json:"stream_error_count"`
	FailedStreams     int               `json:"failed_streams"`
	SponsorEnabled    bool              `json:"sponsor_enabled"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (s *SessionState) snapshot(failedStreams int, sponsorEnabled bool) *Snapshot {
	snap := &Snapshot{
		VideoID:           s.VideoID,
		Phase:             s.Phase.String(),
		Quality:           s.Quality,
		Buffering:         s.Buffering,
		Playing:           s.Playing,
		Error:             s.Error,
		RecoveryAttempted: s.RecoveryAttempted,
		StreamErrorCount:  s.StreamErrorCount,
		FailedStreams:     failedStreams,
		SponsorEnabled:    sponsorEnabled,
		UpdatedAt:         time.Now(),
	}
	if s.VideoStream != nil {
		v := *s.VideoStream
		snap.VideoStream = &v
	}
	if s.AudioStream != nil {
		a := *s.AudioStream
		snap.AudioStream = &a
	}
	return snap
}
