package player

import "sort"

// StreamDescriptor identifies a single audio or video variant of a playable
// item. ContentKey is stable across URL rotation and is what failure
// tracking keys on.
type StreamDescriptor struct {
	ContentKey string `json:"content_key"`
	MimeType   string `json:"mime_type"`
	Height     int    `json:"height,omitempty"`  // video variants
	Bitrate    int64  `json:"bitrate,omitempty"` // audio variants (bits/s)
}

// QualityMode selects between automatic and user-pinned quality.
// When Manual is true, Height is the pinned resolution.
type QualityMode struct {
	Manual bool `json:"manual"`
	Height int  `json:"height,omitempty"`
}

func Adaptive() QualityMode {
	return QualityMode{}
}

func ManualQuality(height int) QualityMode {
	return QualityMode{Manual: true, Height: height}
}

// PickBestVideo returns the best candidate video stream: failed keys are
// filtered out, ties break by descending height, then by source order.
func PickBestVideo(streams []StreamDescriptor, reg *Registry) (StreamDescriptor, bool) {
	return pickVideo(streams, reg, 0)
}

// PickVideoAtOrBelow returns the best non-failed video stream whose height
// does not exceed maxHeight. maxHeight <= 0 means unconstrained.
func PickVideoAtOrBelow(streams []StreamDescriptor, reg *Registry, maxHeight int) (StreamDescriptor, bool) {
	return pickVideo(streams, reg, maxHeight)
}

func pickVideo(streams []StreamDescriptor, reg *Registry, maxHeight int) (StreamDescriptor, bool) {
	candidates := make([]StreamDescriptor, 0, len(streams))
	for _, s := range streams {
		if reg != nil && reg.IsFailed(s.ContentKey) {
			continue
		}
		if maxHeight > 0 && s.Height > maxHeight {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		return StreamDescriptor{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Height > candidates[j].Height
	})
	return candidates[0], true
}

// PickLowestVideo returns the lowest-height non-failed video stream, ties by
// source order. It is the fallback when a downgrade target excludes every
// variant and the current stream itself is no longer playable.
func PickLowestVideo(streams []StreamDescriptor, reg *Registry) (StreamDescriptor, bool) {
	candidates := make([]StreamDescriptor, 0, len(streams))
	for _, s := range streams {
		if reg != nil && reg.IsFailed(s.ContentKey) {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		return StreamDescriptor{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Height < candidates[j].Height
	})
	return candidates[0], true
}

// PickBestAudio returns the best candidate audio stream, descending bitrate,
// ties by source order, failed keys excluded.
func PickBestAudio(streams []StreamDescriptor, reg *Registry) (StreamDescriptor, bool) {
	candidates := make([]StreamDescriptor, 0, len(streams))
	for _, s := range streams {
		if reg != nil && reg.IsFailed(s.ContentKey) {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		return StreamDescriptor{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Bitrate > candidates[j].Bitrate
	})
	return candidates[0], true
}

// PickAlternateAudio returns the non-failed audio stream with the next
// highest bitrate relative to current, excluding current itself. If nothing
// sits at or below current's bitrate, the best remaining stream is returned.
func PickAlternateAudio(streams []StreamDescriptor, reg *Registry, current StreamDescriptor) (StreamDescriptor, bool) {
	candidates := make([]StreamDescriptor, 0, len(streams))
	for _, s := range streams {
		if s.ContentKey == current.ContentKey {
			continue
		}
		if reg != nil && reg.IsFailed(s.ContentKey) {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		return StreamDescriptor{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Bitrate > candidates[j].Bitrate
	})
	for _, s := range candidates {
		if s.Bitrate <= current.Bitrate {
			return s, true
		}
	}
	return candidates[0], true
}
