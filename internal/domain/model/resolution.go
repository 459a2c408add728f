package model

// Resolution is what a badge request resolved to. Value is meaningful only in
// the Live and Cached states; Reason only in Unavailable.
type Resolution struct {
	State  ResolutionState
	Label  string
	Color  string
	Value  int64
	Reason UnavailableReason
}

// PlaceholderLabel is shown when no record supplies a label.
const PlaceholderLabel = "Badge"

// Unavailable builds an Unavailable resolution with the given label.
func Unavailable(label string, reason UnavailableReason) Resolution {
	if label == "" {
		label = PlaceholderLabel
	}
	return Resolution{State: StateUnavailable, Label: label, Reason: reason}
}
