package storage

import "time"

// ResumePosition is the last recorded playback position for a video,
// persisted so an interrupted session can resume where it failed.
type ResumePosition struct {
	VideoID   string    `json:"video_id"`
	Position  float64   `json:"position"` // Seconds
	Duration  float64   `json:"duration"` // Seconds, 0 when unknown
	UpdatedAt time.Time `json:"-"`
}

// SessionEvent is one diagnostics entry in the persistent session log:
// a classified engine error or a terminal session outcome.
type SessionEvent struct {
	ID        int64     `json:"id"`
	VideoID   string    `json:"video_id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StreamFailure records one stream variant giving up during a session.
// The history survives session teardown and is used to warm the in-memory
// failure registry when the same video is loaded again.
type StreamFailure struct {
	VideoID    string    `json:"video_id"`
	ContentKey string    `json:"content_key"`
	Bucket     string    `json:"bucket"`
	CreatedAt  time.Time `json:"-"`
}
