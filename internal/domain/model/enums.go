package model

// MetricKind identifies what a badge counts.
type MetricKind string

const (
	MetricKindTableCount MetricKind = "table_count"
	MetricKindUserCount  MetricKind = "user_count"
)

// Valid reports whether k is a supported metric kind.
func (k MetricKind) Valid() bool {
	return k == MetricKindTableCount || k == MetricKindUserCount
}

// DefaultLabel returns the label suggested for the kind when the caller has none.
func (k MetricKind) DefaultLabel() string {
	switch k {
	case MetricKindUserCount:
		return "Users"
	default:
		return "Records"
	}
}

// ResolutionState is the outcome of resolving a metric for display.
type ResolutionState int

const (
	StateLive ResolutionState = iota
	StateCached
	StateUnavailable
)

// String returns the lower-case state name used in logs.
func (s ResolutionState) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateCached:
		return "cached"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// UnavailableReason explains why no value could be shown.
type UnavailableReason string

const (
	ReasonNone            UnavailableReason = ""
	ReasonNotFound        UnavailableReason = "not found"
	ReasonOffline         UnavailableReason = "offline"
	ReasonRefreshRequired UnavailableReason = "refresh required"
	ReasonAuthFailed      UnavailableReason = "auth failed"
)
