package sponsor

// EventKind tags an event produced by one skipper tick.
type EventKind int

const (
	EventSkip EventKind = iota
	EventMuteOn
	EventMuteOff
	EventToast
)

// Event is emitted by Evaluate for the owning session to publish.
type Event struct {
	Kind    EventKind
	Segment Segment
}

// TickResult is the outcome of evaluating one position tick.
type TickResult struct {
	// SeekTo is the position the player must seek to, valid when Seek is true.
	SeekTo float64
	Seek   bool
	Events []Event
}

// Skipper applies per-category actions for the loaded segment list as
// playback position advances. It holds at most one active mute segment and
// one last-skipped marker; both refer only to segments in the current list
// and are cleared on Reset.
//
// Skipper is not safe for concurrent use; the session actor owns it.
type Skipper struct {
	segments    []Segment
	lastSkipped string
	mutedUUID   string
}

func NewSkipper() *Skipper {
	return &Skipper{}
}

// SetSegments installs the segment list for the current video, dropping
// malformed entries (Start >= End). Markers are cleared: they may not refer
// to segments absent from the new list.
func (k *Skipper) SetSegments(segs []Segment) {
	k.segments = k.segments[:0]
	for _, s := range segs {
		if s.Start >= s.End {
			continue
		}
		k.segments = append(k.segments, s)
	}
	k.lastSkipped = ""
	k.mutedUUID = ""
}

// Reset clears the segment list and both markers. Called on disable and on
// video change, before any new fetch is issued.
func (k *Skipper) Reset() {
	k.segments = nil
	k.lastSkipped = ""
	k.mutedUUID = ""
}

// SegmentCount reports how many segments are loaded.
func (k *Skipper) SegmentCount() int {
	return len(k.segments)
}

// ActiveMute returns the segment currently holding the engine muted, if any.
func (k *Skipper) ActiveMute() (Segment, bool) {
	if k.mutedUUID == "" {
		return Segment{}, false
	}
	return k.find(k.mutedUUID)
}

func (k *Skipper) find(uuid string) (Segment, bool) {
	for _, s := range k.segments {
		if s.UUID == uuid {
			return s, true
		}
	}
	return Segment{}, false
}

// Evaluate runs the per-tick policy for the given position in seconds.
//
// Re-arming runs before containment lookup: after a user drag-seek, a
// backward seek past a skipped segment and a fresh forward containment can
// land on the same polling interval, and the re-arm must win.
func (k *Skipper) Evaluate(pos float64) TickResult {
	var res TickResult
	if len(k.segments) == 0 {
		return res
	}

	// 1. Seeking back before a skipped segment re-arms it.
	if k.lastSkipped != "" {
		if seg, ok := k.find(k.lastSkipped); ok && seg.Start > pos {
			k.lastSkipped = ""
		}
	}

	// 2. First containing segment wins; lists are non-overlapping for
	// lookup purposes.
	var current *Segment
	for i := range k.segments {
		if k.segments[i].contains(pos) {
			current = &k.segments[i]
			break
		}
	}

	// 3. Leaving an active mute segment, in either direction, unmutes.
	if k.mutedUUID != "" {
		if seg, ok := k.find(k.mutedUUID); ok && !seg.contains(pos) {
			res.Events = append(res.Events, Event{Kind: EventMuteOff, Segment: seg})
			k.mutedUUID = ""
		}
	}

	// 4. Dispatch on the containing segment's action.
	if current != nil && current.UUID != k.lastSkipped {
		switch current.Action {
		case ActionSkip:
			k.lastSkipped = current.UUID
			res.Events = append(res.Events, Event{Kind: EventSkip, Segment: *current})
			res.SeekTo = current.End
			res.Seek = true
		case ActionMute:
			if k.mutedUUID != current.UUID {
				k.mutedUUID = current.UUID
				res.Events = append(res.Events, Event{Kind: EventMuteOn, Segment: *current})
			}
		case ActionShowToast:
			// Marked like a skip so the toast does not re-fire every tick.
			k.lastSkipped = current.UUID
			res.Events = append(res.Events, Event{Kind: EventToast, Segment: *current})
		case ActionIgnore:
		}
	}

	return res
}
