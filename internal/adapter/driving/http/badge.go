package httphandler

import (
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/ericfisherdev/livebadge/internal/domain/badge"
	"github.com/ericfisherdev/livebadge/internal/domain/model"
)

const (
	cacheControlBadge   = "public, max-age=60"
	cacheControlNoStore = "no-store"

	// unavailableColor is the value segment background for every Unavailable state.
	unavailableColor = "#e74c3c"
)

// unavailableText is the value shown for each reason.
var unavailableText = map[model.UnavailableReason]string{
	model.ReasonNotFound:        "Not Found",
	model.ReasonOffline:         "Offline",
	model.ReasonRefreshRequired: "Refresh Required",
	model.ReasonAuthFailed:      "Auth Failed",
}

// presentation maps a resolution to the text and color drawn on the badge.
func presentation(res model.Resolution) (label, value, color string) {
	label = res.Label
	if label == "" {
		label = model.PlaceholderLabel
	}

	switch res.State {
	case model.StateLive, model.StateCached:
		return label, humanize.Comma(res.Value), res.Color
	default:
		text, ok := unavailableText[res.Reason]
		if !ok {
			text = "Error"
		}
		return label, text, unavailableColor
	}
}

// writeBadge renders res as SVG with a 200 status.
func writeBadge(w http.ResponseWriter, res model.Resolution, cacheControl string) {
	img := badge.Render(presentation(res))
	writeImage(w, img, res.State, cacheControl)
}

func writeImage(w http.ResponseWriter, img badge.Image, state model.ResolutionState, cacheControl string) {
	h := w.Header()
	h.Set("Content-Type", badge.ContentType)
	h.Set("Cache-Control", cacheControl)
	h.Set("Content-Length", strconv.Itoa(len(img.Body)))
	h.Set("X-Badge-State", state.String())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Body)
}

// errorBadge is served when a badge handler panics.
func errorBadge(w http.ResponseWriter) {
	img := badge.Render(model.PlaceholderLabel, "Error", unavailableColor)
	writeImage(w, img, model.StateUnavailable, cacheControlNoStore)
}
