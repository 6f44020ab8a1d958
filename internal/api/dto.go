package api

import (
	"playkeeper/internal/player"
	"playkeeper/internal/storage"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Session DTOs

type LoadRequest struct {
	VideoID      string                    `json:"video_id"`
	VideoStreams []player.StreamDescriptor `json:"video_streams"`
	AudioStreams []player.StreamDescriptor `json:"audio_streams"`
}

type QualityRequest struct {
	Mode   string `json:"mode"`             // "adaptive" or "manual"
	Height int    `json:"height,omitempty"` // required for manual
}

type AcceptedResponse struct {
	Status string `json:"status"`
}

type ResumeResponse struct {
	Resume *storage.ResumePosition `json:"resume"`
}

type HistoryResponse struct {
	Events []storage.SessionEvent `json:"events"`
}

// Engine report DTOs - the player frontend posts these.

type EngineErrorRequest struct {
	Code  int    `json:"code"`
	Cause string `json:"cause,omitempty"`
}

type PositionReport struct {
	Position float64 `json:"position"` // Seconds
	Duration float64 `json:"duration"` // Seconds, 0 when unknown
}

type BandwidthReport struct {
	BitsPerSecond int64 `json:"bits_per_second"`
}

type BufferingReport struct {
	Buffering bool `json:"buffering"`
}

type SponsorRequest struct {
	Enabled bool `json:"enabled"`
}
