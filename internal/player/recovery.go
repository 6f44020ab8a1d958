package player

import (
	"github.com/rs/zerolog"
)

// SessionControl is the capability surface recovery needs from the owning
// session: record position, issue idempotent commands, substitute streams.
// The commands do not retry by themselves; retry bookkeeping lives entirely
// in SessionState.StreamErrorCount and the Registry.
type SessionControl interface {
	// RecordPosition persists the current playback position for resume.
	RecordPosition()
	// Reload re-prepares the current media. manualRetry tags a same-stream
	// retry issued because the user pinned quality manually.
	Reload(manualRetry bool)
	// Downgrade requests one quality step down through the shared
	// downgrade path. Idempotent per failure.
	Downgrade(reason string)
	// SwitchAudio substitutes the active audio stream and reloads.
	SwitchAudio(alt StreamDescriptor)
	// SeekToLive repositions to the live edge.
	SeekToLive()
	// Shutdown stops the engine and tears the media down.
	Shutdown()
}

// Recovery classifies raw engine errors and drives recovery actions.
// All outcomes are communicated through session-state mutation and the
// SessionControl commands; nothing is returned to callers beyond a boolean
// that is true only when the error was absorbed without any visible
// disruption (the live-window case).
type Recovery struct {
	maxStreamErrors int
	logger          zerolog.Logger
}

func NewRecovery(maxStreamErrors int, logger zerolog.Logger) *Recovery {
	if maxStreamErrors <= 0 {
		maxStreamErrors = 3
	}
	return &Recovery{maxStreamErrors: maxStreamErrors, logger: logger}
}

// Handle processes one raw engine error against the session. The caller
// (the session actor) guarantees serialization; Handle completes all state
// and registry mutation before returning, so a position tick never sees a
// half-updated failure set.
func (r *Recovery) Handle(err EngineError, st *SessionState, reg *Registry, ctl SessionControl) bool {
	if st.Phase == PhaseShutDown {
		r.logger.Debug().Int("code", int(err.Code)).Msg("engine error after shutdown, ignored")
		return false
	}

	ctl.RecordPosition()

	c := Classify(err)
	log := r.logger.With().
		Str("bucket", c.Bucket.String()).
		Int("code", int(err.Code)).
		Str("video_id", st.VideoID).
		Logger()

	switch c.Bucket {
	case BucketLiveWindowExpired:
		log.Info().Msg("position fell behind live window, seeking to live edge")
		st.Error = ""
		st.Phase = PhasePlaying
		ctl.SeekToLive()
		return true

	case BucketFormatUnsupported:
		if st.VideoStream != nil {
			reg.MarkFailed(st.VideoStream.ContentKey)
		}
		st.RecoveryAttempted = true
		st.Phase = PhaseDowngrading
		log.Warn().Msg("stream format unsupported, marking failed and downgrading")
		ctl.Downgrade(c.Bucket.String())
		return false

	case BucketStreamCorrupted, BucketNetworkFailure:
		r.countedRecovery(c.Bucket, st, reg, ctl, log)
		return false

	case BucketDecoderFailure:
		if c.AudioTrack && st.AudioStream != nil {
			if alt, ok := PickAlternateAudio(st.AvailableAudio, reg, *st.AudioStream); ok {
				reg.MarkFailed(st.AudioStream.ContentKey)
				st.RecoveryAttempted = true
				st.Phase = PhaseRecovering
				log.Warn().
					Str("failed_key", st.AudioStream.ContentKey).
					Str("alternate_key", alt.ContentKey).
					Msg("audio pipeline failure, switching to alternate audio stream")
				ctl.SwitchAudio(alt)
				return false
			}
		}
		r.fatal(st, ctl, "Playback device failure. Try a different video or restart the player.", log)
		return false

	case BucketDrmFailure:
		r.fatal(st, ctl, "This content is protected and cannot be played on this device.", log)
		return false

	default:
		st.RecoveryAttempted = true
		st.Phase = PhaseRecovering
		log.Warn().Str("cause", err.Cause).Msg("unclassified engine error, attempting generic reload")
		ctl.Reload(false)
		return false
	}
}

// countedRecovery handles the buckets that tolerate a limited number of
// failures per stream before giving up on it.
func (r *Recovery) countedRecovery(bucket Bucket, st *SessionState, reg *Registry, ctl SessionControl, log zerolog.Logger) {
	st.StreamErrorCount++
	st.RecoveryAttempted = true

	if st.StreamErrorCount < r.maxStreamErrors {
		st.Phase = PhaseRecovering
		log.Info().
			Int("stream_errors", st.StreamErrorCount).
			Int("max", r.maxStreamErrors).
			Msg("transient stream failure, reloading")
		ctl.Reload(false)
		return
	}

	if st.Quality.Manual {
		// The user pinned this quality; never substitute behind their back.
		st.Phase = PhaseRecovering
		log.Warn().
			Int("stream_errors", st.StreamErrorCount).
			Msg("stream error threshold reached in manual mode, retrying same stream")
		ctl.Reload(true)
		return
	}

	if st.VideoStream != nil {
		reg.MarkFailed(st.VideoStream.ContentKey)
	}
	st.Phase = PhaseDowngrading
	log.Warn().
		Int("stream_errors", st.StreamErrorCount).
		Msg("stream error threshold reached, marking stream failed and downgrading")
	ctl.Downgrade(bucket.String())
}

func (r *Recovery) fatal(st *SessionState, ctl SessionControl, message string, log zerolog.Logger) {
	st.Error = message
	st.Playing = false
	st.Buffering = false
	st.Phase = PhaseShutDown
	log.Error().Str("error", message).Msg("unrecoverable playback failure, shutting down session")
	ctl.Shutdown()
}
