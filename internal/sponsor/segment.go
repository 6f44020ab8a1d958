package sponsor

// Action is what the skip engine does when playback enters a segment.
type Action int

const (
	ActionSkip Action = iota
	ActionMute
	ActionShowToast
	ActionIgnore
)

func (a Action) String() string {
	switch a {
	case ActionMute:
		return "mute"
	case ActionShowToast:
		return "show_toast"
	case ActionIgnore:
		return "ignore"
	default:
		return "skip"
	}
}

// ParseAction maps a config string to an Action. Unknown values default to
// skip, matching the default for unmapped categories.
func ParseAction(s string) Action {
	switch s {
	case "mute":
		return ActionMute
	case "show_toast", "toast":
		return ActionShowToast
	case "ignore":
		return ActionIgnore
	default:
		return ActionSkip
	}
}

// ResolveActions converts a category→string config map into the
// category→Action mapping consumed by the skip engine.
func ResolveActions(categories map[string]string) map[string]Action {
	actions := make(map[string]Action, len(categories))
	for category, name := range categories {
		actions[category] = ParseAction(name)
	}
	return actions
}

// Segment is a time range in a video tagged with a category. Start is
// inclusive, End exclusive for containment; Start < End always holds for
// segments accepted by the engine.
type Segment struct {
	UUID     string  `json:"uuid"`
	Category string  `json:"category"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Action   Action  `json:"-"`
}

func (s Segment) contains(pos float64) bool {
	return pos >= s.Start && pos < s.End
}
