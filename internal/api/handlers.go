package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"playkeeper/internal/engine"
	"playkeeper/internal/player"
	"playkeeper/internal/storage"
)

const Version = "0.1.0"

// SessionAPI is the slice of the session the handlers drive. Everything is
// fire-and-forget into the session actor except Snapshot, which reads the
// published immutable state.
type SessionAPI interface {
	Load(videoID string, video, audio []player.StreamDescriptor)
	Stop()
	SetQualityMode(mode player.QualityMode)
	SetSponsorEnabled(enabled bool)
	HandleEngineError(err player.EngineError)
	ReportBuffering(buffering bool)
	ReportBandwidth(bps int64)
	Snapshot() *player.Snapshot
}

type ResumeStore interface {
	GetResumePosition(videoID string) (*storage.ResumePosition, error)
	GetSessionEvents(videoID string, limit int) ([]storage.SessionEvent, error)
}

type Handler struct {
	session SessionAPI
	remote  *engine.Remote
	bus     *player.Bus
	resume  ResumeStore
	logger  zerolog.Logger
}

func NewHandler(session SessionAPI, remote *engine.Remote, bus *player.Bus, resume ResumeStore, logger zerolog.Logger) *Handler {
	return &Handler{
		session: session,
		remote:  remote,
		bus:     bus,
		resume:  resume,
		logger:  logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// GetSession returns the latest published session snapshot.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// LoadSession starts playback of a new video.
func (h *Handler) LoadSession(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	if req.VideoID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "video_id is required")
		return
	}
	if len(req.VideoStreams) == 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "at least one video stream is required")
		return
	}

	h.session.Load(req.VideoID, req.VideoStreams, req.AudioStreams)
	writeJSON(w, http.StatusAccepted, AcceptedResponse{Status: "loading"})
}

// StopSession tears the session down without an error.
func (h *Handler) StopSession(w http.ResponseWriter, r *http.Request) {
	h.session.Stop()
	writeJSON(w, http.StatusAccepted, AcceptedResponse{Status: "stopping"})
}

// SetQuality switches between adaptive and manually pinned quality.
func (h *Handler) SetQuality(w http.ResponseWriter, r *http.Request) {
	var req QualityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	switch req.Mode {
	case "adaptive":
		h.session.SetQualityMode(player.Adaptive())
	case "manual":
		if req.Height <= 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "height is required for manual mode")
			return
		}
		h.session.SetQualityMode(player.ManualQuality(req.Height))
	default:
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "mode must be \"adaptive\" or \"manual\"")
		return
	}

	writeJSON(w, http.StatusAccepted, AcceptedResponse{Status: "accepted"})
}

// SetSponsor enables or disables segment skipping.
func (h *Handler) SetSponsor(w http.ResponseWriter, r *http.Request) {
	var req SponsorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	h.session.SetSponsorEnabled(req.Enabled)
	writeJSON(w, http.StatusAccepted, AcceptedResponse{Status: "accepted"})
}

// GetResume returns the persisted resume position for a video.
func (h *Handler) GetResume(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("video_id")
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "video_id is required")
		return
	}
	rp, err := h.resume.GetResumePosition(videoID)
	if err != nil {
		h.logger.Error().Err(err).Str("video_id", videoID).Msg("failed to read resume position")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read resume position")
		return
	}
	writeJSON(w, http.StatusOK, ResumeResponse{Resume: rp})
}

// GetHistory returns the persisted diagnostics log for a video.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("video_id")
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "video_id is required")
		return
	}
	events, err := h.resume.GetSessionEvents(videoID, 50)
	if err != nil {
		h.logger.Error().Err(err).Str("video_id", videoID).Msg("failed to read session history")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read session history")
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Events: events})
}

// Engine report handlers - called by the player frontend.

func (h *Handler) ReportError(w http.ResponseWriter, r *http.Request) {
	var req EngineErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	h.session.HandleEngineError(player.EngineError{
		Code:  player.ErrorCode(req.Code),
		Cause: req.Cause,
	})
	writeJSON(w, http.StatusAccepted, AcceptedResponse{Status: "accepted"})
}

func (h *Handler) ReportPosition(w http.ResponseWriter, r *http.Request) {
	var req PositionReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	h.remote.ReportTelemetry(req.Position, req.Duration)
	writeJSON(w, http.StatusAccepted, AcceptedResponse{Status: "accepted"})
}

func (h *Handler) ReportBandwidth(w http.ResponseWriter, r *http.Request) {
	var req BandwidthReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	if req.BitsPerSecond <= 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "bits_per_second must be positive")
		return
	}
	h.session.ReportBandwidth(req.BitsPerSecond)
	writeJSON(w, http.StatusAccepted, AcceptedResponse{Status: "accepted"})
}

func (h *Handler) ReportBuffering(w http.ResponseWriter, r *http.Request) {
	var req BufferingReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	h.session.ReportBuffering(req.Buffering)
	writeJSON(w, http.StatusAccepted, AcceptedResponse{Status: "accepted"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
