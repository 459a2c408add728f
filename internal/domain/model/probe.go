package model

import "net/http"

// ProbeResult is the normalized outcome of a single count probe. Status is 0
// when the request never produced a response.
type ProbeResult struct {
	Status     int
	Total      int64
	CountKnown bool
	Err        error
}

// Succeeded reports a 2xx response.
func (p ProbeResult) Succeeded() bool {
	return p.Status >= 200 && p.Status < 300
}

// OK reports a 2xx response with a parsed total.
func (p ProbeResult) OK() bool {
	return p.Succeeded() && p.CountKnown
}

// Blocked reports a 401 or 403 response.
func (p ProbeResult) Blocked() bool {
	return p.Status == http.StatusUnauthorized || p.Status == http.StatusForbidden
}

// Posture is the classifier's verdict on a metric. Rule names the predicate
// that marked it protected and is empty for public metrics.
type Posture struct {
	Protected      bool
	Rule           string
	BestKnownCount *int64
}
