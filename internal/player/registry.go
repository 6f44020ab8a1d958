package player

// Registry tracks which stream variants have already failed for the current
// video and must not be re-selected. It is owned by the session actor and
// reset together with SessionState on video change.
type Registry struct {
	videoID string
	failed  map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{failed: make(map[string]struct{})}
}

// Reset clears all failure marks and scopes the registry to videoID.
func (r *Registry) Reset(videoID string) {
	r.videoID = videoID
	r.failed = make(map[string]struct{})
}

func (r *Registry) VideoID() string {
	return r.videoID
}

func (r *Registry) MarkFailed(contentKey string) {
	if contentKey == "" {
		return
	}
	r.failed[contentKey] = struct{}{}
}

func (r *Registry) IsFailed(contentKey string) bool {
	_, ok := r.failed[contentKey]
	return ok
}

func (r *Registry) FailedCount() int {
	return len(r.failed)
}

// FailedKeys returns the failed content keys; order is not defined.
func (r *Registry) FailedKeys() []string {
	keys := make([]string, 0, len(r.failed))
	for k := range r.failed {
		keys = append(keys, k)
	}
	return keys
}
