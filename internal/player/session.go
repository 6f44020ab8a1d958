package player

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"playkeeper/internal/config"
	"playkeeper/internal/metrics"
	"playkeeper/internal/sponsor"
)

// Store is what the session needs from persistence: resume positions and
// the durable stream-failure history.
type Store interface {
	SaveResumePosition(videoID string, position, duration float64) error
	RecordStreamFailure(videoID, contentKey, bucket string) error
	GetFailedContentKeys(videoID string, maxAge time.Duration) ([]string, error)
	RecordSessionEvent(videoID, kind, detail string) error
}

// SegmentSource fetches the ordered segment list for a video. Failures are
// logged and treated as "no segments available", never as fatal.
type SegmentSource interface {
	FetchSegments(ctx context.Context, videoID string) ([]sponsor.Segment, error)
}

const (
	resumeSaveInterval = 5 * time.Second
	failureHistoryAge  = 6 * time.Hour
)

// Session owns all mutable playback state for one logical player. Every
// mutation is funneled through its actor goroutine: engine callbacks and
// API calls post closures to the command channel, and the position and
// bandwidth tickers run in the same select loop. Concurrent readers get
// immutable snapshots.
type Session struct {
	id      string
	cfg     config.PlaybackConfig
	logger  zerolog.Logger
	engine  Engine
	bus     *Bus
	store   Store
	source  SegmentSource
	metrics *metrics.Metrics

	policy   *AdaptationPolicy
	recovery *Recovery

	st  *SessionState
	reg *Registry

	skipper        *sponsor.Skipper
	sponsorEnabled bool
	fetchGen       int
	fetchCancel    context.CancelFunc

	bufferingStreak  int
	lastBandwidth    int64
	haveBandwidth    bool
	pendingReload    bool
	pendingDowngrade bool
	lastSaved        time.Time

	cmds chan func()
	done chan struct{}
	snap atomic.Pointer[Snapshot]
}

func NewSession(cfg config.PlaybackConfig, engine Engine, bus *Bus, store Store, source SegmentSource, m *metrics.Metrics, logger zerolog.Logger) *Session {
	id := uuid.NewString()
	s := &Session{
		id:       id,
		cfg:      cfg,
		logger:   logger.With().Str("session_id", id).Logger(),
		engine:   engine,
		bus:      bus,
		store:    store,
		source:   source,
		metrics:  m,
		policy:   NewAdaptationPolicy(cfg),
		st:       &SessionState{},
		reg:      NewRegistry(),
		skipper:  sponsor.NewSkipper(),
		cmds:     make(chan func(), 64),
		done:     make(chan struct{}),
	}
	s.recovery = NewRecovery(cfg.MaxStreamErrors, s.logger)
	s.snap.Store(s.st.snapshot(0, false))
	return s
}

// Run executes the actor loop until ctx is cancelled. All state mutation
// happens on this goroutine.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	defer s.cancelFetch()

	posTicker := time.NewTicker(s.cfg.PositionInterval)
	defer posTicker.Stop()
	bwTicker := time.NewTicker(s.cfg.BandwidthInterval)
	defer bwTicker.Stop()

	s.logger.Info().
		Dur("position_interval", s.cfg.PositionInterval).
		Dur("bandwidth_interval", s.cfg.BandwidthInterval).
		Msg("session actor started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("session actor stopping")
			return
		case fn := <-s.cmds:
			fn()
		case <-posTicker.C:
			s.onPositionTick()
		case <-bwTicker.C:
			s.onBandwidthTick()
		}
	}
}

// do posts fn to the actor. It never runs fn after Run has returned.
func (s *Session) do(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.done:
	}
}

// Snapshot returns the latest published immutable state.
func (s *Session) Snapshot() *Snapshot {
	return s.snap.Load()
}

func (s *Session) publish() {
	s.snap.Store(s.st.snapshot(s.reg.FailedCount(), s.sponsorEnabled))
}

func (s *Session) publishState() {
	s.publish()
	s.bus.Publish(Event{
		Type:    EventState,
		VideoID: s.st.VideoID,
		Message: s.st.Phase.String(),
	})
}

// Load starts playback of a new video with the given stream variants.
// SessionState and the failure registry are reset together; the skip engine
// is reset before any new segment fetch is issued.
func (s *Session) Load(videoID string, video, audio []StreamDescriptor) {
	s.do(func() { s.handleLoad(videoID, video, audio) })
}

func (s *Session) handleLoad(videoID string, video, audio []StreamDescriptor) {
	s.cancelFetch()
	s.clearActiveMute()
	s.skipper.Reset()

	quality := s.st.Quality // manual pin survives video changes
	s.reg.Reset(videoID)
	s.warmRegistry(videoID)

	s.st = &SessionState{
		VideoID:        videoID,
		Phase:          PhaseBuffering,
		AvailableVideo: append([]StreamDescriptor(nil), video...),
		AvailableAudio: append([]StreamDescriptor(nil), audio...),
		Quality:        quality,
		Buffering:      true,
		Playing:        true,
	}
	s.bufferingStreak = 0
	s.pendingReload = false
	s.pendingDowngrade = false

	target := 0
	switch {
	case quality.Manual:
		target = quality.Height
	case s.haveBandwidth:
		target = s.policy.InitialTierFor(s.lastBandwidth)
	}

	var picked bool
	var vs StreamDescriptor
	if target > 0 {
		vs, picked = PickVideoAtOrBelow(s.st.AvailableVideo, s.reg, target)
	}
	if !picked {
		vs, picked = PickBestVideo(s.st.AvailableVideo, s.reg)
	}
	if picked {
		s.st.SetVideoStream(vs)
		s.metrics.SetQualityHeight(vs.Height)
	}
	if as, ok := PickBestAudio(s.st.AvailableAudio, s.reg); ok {
		s.st.SetAudioStream(as)
	}

	s.engine.ClearMediaItems()
	s.engine.Prepare()

	ev := s.logger.Info().Str("video_id", videoID).Int("video_variants", len(video)).Int("audio_variants", len(audio))
	if s.st.VideoStream != nil {
		ev = ev.Int("height", s.st.VideoStream.Height)
	}
	ev.Msg("loading video")

	if s.sponsorEnabled {
		s.startFetch(videoID)
	}
	s.publishState()
}

// warmRegistry seeds the in-memory registry from recent persisted failures
// so a re-load of the same video does not retry variants known to be bad.
func (s *Session) warmRegistry(videoID string) {
	keys, err := s.store.GetFailedContentKeys(videoID, failureHistoryAge)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load stream failure history")
		return
	}
	for _, k := range keys {
		s.reg.MarkFailed(k)
	}
	if len(keys) > 0 {
		s.logger.Debug().Int("count", len(keys)).Msg("warmed registry from failure history")
	}
}

// Stop ends the session without an error: user-initiated teardown.
func (s *Session) Stop() {
	s.do(func() {
		s.cancelFetch()
		s.clearActiveMute()
		s.skipper.Reset()
		s.st.Playing = false
		s.st.Buffering = false
		s.st.Phase = PhaseIdle
		s.engine.Stop()
		s.engine.ClearMediaItems()
		s.logger.Info().Str("video_id", s.st.VideoID).Msg("session stopped")
		s.publishState()
	})
}

// HandleEngineError feeds one raw engine error signal into recovery.
func (s *Session) HandleEngineError(err EngineError) {
	s.do(func() { s.handleEngineError(err) })
}

func (s *Session) handleEngineError(err EngineError) {
	// A fresh failure gets a fresh command budget: the idempotence guards
	// protect against duplicate commands for the same failure only.
	s.pendingReload = false
	s.pendingDowngrade = false

	c := Classify(err)
	s.metrics.IncRecovery(c.Bucket.String())
	if s.st.VideoID != "" {
		if serr := s.store.RecordSessionEvent(s.st.VideoID, c.Bucket.String(), err.Cause); serr != nil {
			s.logger.Debug().Err(serr).Msg("failed to log session event")
		}
	}

	before := make(map[string]struct{}, s.reg.FailedCount())
	for _, k := range s.reg.FailedKeys() {
		before[k] = struct{}{}
	}

	handled := s.recovery.Handle(err, s.st, s.reg, s)

	for _, k := range s.reg.FailedKeys() {
		if _, ok := before[k]; ok {
			continue
		}
		if serr := s.store.RecordStreamFailure(s.st.VideoID, k, c.Bucket.String()); serr != nil {
			s.logger.Warn().Err(serr).Str("content_key", k).Msg("failed to persist stream failure")
		}
	}

	if s.st.Phase == PhaseShutDown {
		s.metrics.IncFatalError()
	}

	s.logger.Debug().Bool("handled", handled).Str("bucket", c.Bucket.String()).Msg("engine error processed")
	s.publishState()
}

// ReportBuffering records a buffering transition from the engine.
func (s *Session) ReportBuffering(buffering bool) {
	s.do(func() { s.handleBuffering(buffering) })
}

func (s *Session) handleBuffering(buffering bool) {
	if s.st.Phase == PhaseShutDown || s.st.Phase == PhaseIdle {
		return
	}
	s.st.Buffering = buffering
	if buffering {
		s.st.Phase = PhaseBuffering
		s.bufferingStreak++
		if s.cfg.MaxBufferingEvents > 0 && s.bufferingStreak >= s.cfg.MaxBufferingEvents && !s.st.Quality.Manual {
			s.logger.Warn().Int("events", s.bufferingStreak).Msg("buffering threshold reached, downgrading")
			s.bufferingStreak = 0
			s.Downgrade("buffering")
		}
	} else {
		s.st.Phase = PhasePlaying
		s.st.Playing = true
		// A clean resume closes out the recovery attempt.
		s.st.RecoveryAttempted = false
		s.st.Error = ""
		s.pendingReload = false
		s.pendingDowngrade = false
	}
	s.publish()
}

// ReportBandwidth records the latest bandwidth estimate in bits per second.
// Samples are consumed by the next bandwidth tick, not retained beyond it.
func (s *Session) ReportBandwidth(bps int64) {
	s.do(func() {
		if bps <= 0 {
			return
		}
		s.lastBandwidth = bps
		s.haveBandwidth = true
	})
}

// SetQualityMode switches between adaptive and user-pinned quality.
func (s *Session) SetQualityMode(mode QualityMode) {
	s.do(func() { s.handleSetQuality(mode) })
}

func (s *Session) handleSetQuality(mode QualityMode) {
	if s.st.Phase == PhaseShutDown {
		return
	}
	s.st.Quality = mode
	if s.st.Phase == PhaseIdle || s.st.VideoID == "" {
		// Nothing loaded; the mode takes effect on the next Load.
		s.logger.Info().Bool("manual", mode.Manual).Int("height", mode.Height).Msg("quality mode recorded for next load")
		s.publish()
		return
	}
	if mode.Manual {
		s.logger.Info().Int("height", mode.Height).Msg("quality pinned manually")
		s.applyQuality(mode.Height, "manual")
	} else {
		s.logger.Info().Msg("quality switched to adaptive")
		if s.haveBandwidth {
			s.applyQuality(s.policy.TierFor(s.lastBandwidth), "adaptive")
		}
	}
	s.publish()
}

// SetSponsorEnabled toggles the segment skip feature. Disabling cancels any
// in-flight fetch and clears segment state before the cancellation can
// race a late fetch result back in.
func (s *Session) SetSponsorEnabled(enabled bool) {
	s.do(func() { s.handleSetSponsor(enabled) })
}

func (s *Session) handleSetSponsor(enabled bool) {
	if enabled == s.sponsorEnabled {
		return
	}
	s.sponsorEnabled = enabled
	if enabled {
		s.skipper.Reset()
		if s.st.VideoID != "" {
			s.startFetch(s.st.VideoID)
		}
		s.logger.Info().Msg("segment skipping enabled")
	} else {
		s.cancelFetch()
		s.clearActiveMute()
		s.skipper.Reset()
		s.logger.Info().Msg("segment skipping disabled")
	}
	s.publish()
}

// startFetch kicks off an asynchronous segment fetch for videoID. The
// generation counter guards against a stale fetch completing after a
// disable or video change has already reset the skip state.
func (s *Session) startFetch(videoID string) {
	s.fetchGen++
	gen := s.fetchGen
	ctx, cancel := context.WithCancel(context.Background())
	s.fetchCancel = cancel

	go func() {
		segs, err := s.source.FetchSegments(ctx, videoID)
		s.do(func() {
			if gen != s.fetchGen || !s.sponsorEnabled {
				return // stale result, state was reset after cancellation
			}
			if err != nil {
				s.metrics.IncSegmentFetchFailure()
				s.logger.Warn().Err(err).Str("video_id", videoID).Msg("segment fetch failed, continuing without segments")
				return
			}
			s.skipper.SetSegments(segs)
			s.logger.Info().Str("video_id", videoID).Int("segments", len(segs)).Msg("segment list loaded")
			s.publish()
		})
	}()
}

func (s *Session) cancelFetch() {
	s.fetchGen++
	if s.fetchCancel != nil {
		s.fetchCancel()
		s.fetchCancel = nil
	}
}

// clearActiveMute lifts an engine mute owned by the skip engine, emitting
// the paired mute-off event.
func (s *Session) clearActiveMute() {
	if seg, ok := s.skipper.ActiveMute(); ok {
		s.engine.SetMuted(false)
		s.bus.Publish(Event{
			Type:        EventMuteOff,
			VideoID:     s.st.VideoID,
			SegmentUUID: seg.UUID,
			Category:    seg.Category,
		})
	}
}

func (s *Session) onPositionTick() {
	if s.st.Phase == PhaseShutDown || s.st.Phase == PhaseIdle {
		return
	}
	pos := s.engine.Position()

	if time.Since(s.lastSaved) >= resumeSaveInterval && s.st.VideoID != "" {
		if err := s.store.SaveResumePosition(s.st.VideoID, pos, s.engine.Duration()); err != nil {
			s.logger.Debug().Err(err).Msg("failed to save resume position")
		}
		s.lastSaved = time.Now()
	}

	if !s.sponsorEnabled || s.skipper.SegmentCount() == 0 {
		return
	}

	res := s.skipper.Evaluate(pos)
	for _, ev := range res.Events {
		switch ev.Kind {
		case sponsor.EventSkip:
			s.metrics.IncSkip(ev.Segment.Category)
			s.bus.Publish(Event{
				Type:        EventSkip,
				VideoID:     s.st.VideoID,
				SegmentUUID: ev.Segment.UUID,
				Category:    ev.Segment.Category,
				SeekTo:      ev.Segment.End,
			})
		case sponsor.EventMuteOn:
			s.metrics.IncMuteEvent()
			s.engine.SetMuted(true)
			s.bus.Publish(Event{
				Type:        EventMuteOn,
				VideoID:     s.st.VideoID,
				SegmentUUID: ev.Segment.UUID,
				Category:    ev.Segment.Category,
			})
		case sponsor.EventMuteOff:
			s.engine.SetMuted(false)
			s.bus.Publish(Event{
				Type:        EventMuteOff,
				VideoID:     s.st.VideoID,
				SegmentUUID: ev.Segment.UUID,
				Category:    ev.Segment.Category,
			})
		case sponsor.EventToast:
			s.bus.Publish(Event{
				Type:        EventToast,
				VideoID:     s.st.VideoID,
				SegmentUUID: ev.Segment.UUID,
				Category:    ev.Segment.Category,
				Message:     "Skipped segment: " + ev.Segment.Category,
			})
		}
	}
	if res.Seek {
		s.engine.SeekTo(res.SeekTo)
	}
}

func (s *Session) onBandwidthTick() {
	// Each decision window starts with a clean command budget.
	s.pendingReload = false
	s.pendingDowngrade = false

	if s.st.Phase == PhaseShutDown || s.st.Phase == PhaseIdle {
		return
	}
	if s.st.Quality.Manual || !s.haveBandwidth || s.st.VideoStream == nil {
		return
	}

	sustained := s.policy.ReferenceBitrate(s.st.VideoStream.Height)
	decision := s.policy.Evaluate(s.lastBandwidth, sustained)

	switch decision {
	case DecisionRaise:
		target := s.policy.TierFor(s.lastBandwidth)
		if target > s.st.VideoStream.Height {
			s.logger.Info().
				Int64("bandwidth", s.lastBandwidth).
				Int("from", s.st.VideoStream.Height).
				Int("to", target).
				Msg("bandwidth headroom available, raising quality")
			s.applyQuality(target, "bandwidth")
			s.publish()
		}
	case DecisionLower:
		s.logger.Info().
			Int64("bandwidth", s.lastBandwidth).
			Int64("sustained", sustained).
			Msg("bandwidth below sustain threshold, lowering quality")
		s.Downgrade("bandwidth")
		s.publish()
	}
}

// applyQuality switches the active video stream to the best non-failed
// variant at or below target height and reloads. No-op when the selection
// lands on the already-active stream.
func (s *Session) applyQuality(target int, reason string) {
	vs, ok := PickVideoAtOrBelow(s.st.AvailableVideo, s.reg, target)
	if !ok {
		// No variant at or below the target. Keep the current stream while
		// it is still playable; substituting upward would undo the downgrade.
		if s.st.VideoStream != nil && !s.reg.IsFailed(s.st.VideoStream.ContentKey) {
			return
		}
		vs, ok = PickLowestVideo(s.st.AvailableVideo, s.reg)
	}
	if !ok {
		s.st.Error = "No playable streams remain for this video."
		s.st.Playing = false
		s.st.Buffering = false
		s.st.Phase = PhaseShutDown
		s.metrics.IncFatalError()
		s.logger.Error().Str("video_id", s.st.VideoID).Msg("stream candidates exhausted, shutting down")
		s.engine.Stop()
		s.engine.ClearMediaItems()
		s.publishState()
		return
	}
	if s.st.VideoStream != nil && vs.ContentKey == s.st.VideoStream.ContentKey {
		return
	}
	s.st.SetVideoStream(vs)
	s.bufferingStreak = 0
	s.st.Buffering = true
	s.st.Phase = PhaseBuffering
	s.metrics.SetQualityHeight(vs.Height)
	s.logger.Info().
		Str("reason", reason).
		Int("height", vs.Height).
		Str("content_key", vs.ContentKey).
		Msg("switching video stream")
	s.engine.Prepare()
}

// SessionControl implementation (called by Recovery on the actor goroutine).

func (s *Session) RecordPosition() {
	if s.st.VideoID == "" {
		return
	}
	if err := s.store.SaveResumePosition(s.st.VideoID, s.engine.Position(), s.engine.Duration()); err != nil {
		s.logger.Debug().Err(err).Msg("failed to record position before recovery")
	}
}

func (s *Session) Reload(manualRetry bool) {
	if s.pendingReload {
		return
	}
	s.pendingReload = true
	s.metrics.IncReload()
	s.st.Buffering = true
	s.logger.Info().Bool("manual_retry", manualRetry).Msg("reloading current media")
	s.engine.Prepare()
}

func (s *Session) Downgrade(reason string) {
	if s.pendingDowngrade {
		return
	}
	s.pendingDowngrade = true
	s.metrics.IncDowngrade(reason)

	height := 0
	if s.st.VideoStream != nil {
		height = s.st.VideoStream.Height
	}
	if next, ok := s.policy.NextLower(height); ok {
		s.applyQuality(next, reason)
		return
	}
	// Already at the lowest tier; select whatever non-failed variant is left.
	s.applyQuality(height, reason)
}

func (s *Session) SwitchAudio(alt StreamDescriptor) {
	s.st.SetAudioStream(alt)
	s.st.Buffering = true
	s.logger.Info().Str("content_key", alt.ContentKey).Int64("bitrate", alt.Bitrate).Msg("switching audio stream")
	s.engine.Prepare()
}

func (s *Session) SeekToLive() {
	s.engine.SeekToLiveEdge()
}

func (s *Session) Shutdown() {
	s.cancelFetch()
	s.engine.Stop()
	s.engine.ClearMediaItems()
}
