// Package badge renders two-segment SVG badges. Layout uses a fixed
// per-character width instead of font metrics so output is deterministic.
package badge

import (
	"bytes"
	"encoding/xml"
	"regexp"
	"strconv"
	"unicode/utf8"
)

const (
	// Height is the fixed badge height in logical pixels.
	Height = 20

	charWidth      = 7
	segmentPadding = 10
	cornerRadius   = 3
	labelColor     = "#555"
	defaultColor   = "#4F46E5"
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Image is a rendered badge.
type Image struct {
	Body       []byte
	Width      int
	Height     int
	LabelWidth int
	ValueWidth int
}

// ContentType is the media type of Image.Body.
const ContentType = "image/svg+xml"

// ValidColor reports whether c is a #RGB or #RRGGBB hex color.
func ValidColor(c string) bool {
	return colorPattern.MatchString(c)
}

// SegmentWidth returns the width of a segment holding text.
func SegmentWidth(text string) int {
	return max(1, utf8.RuneCountInString(text))*charWidth + segmentPadding
}

// Render lays out label and value as a badge. It accepts any input; an
// invalid color falls back to the default.
func Render(label, value, color string) Image {
	if !ValidColor(color) {
		color = defaultColor
	}

	lw := SegmentWidth(label)
	vw := SegmentWidth(value)
	width := lw + vw

	var buf bytes.Buffer
	buf.Grow(1024 + 4*(len(label)+len(value)))

	w := strconv.Itoa(width)
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="` + w + `" height="20">`)
	buf.WriteString(`<linearGradient id="b" x2="0" y2="100%">`)
	buf.WriteString(`<stop offset="0" stop-color="#bbb" stop-opacity=".1"/>`)
	buf.WriteString(`<stop offset="1" stop-opacity=".1"/>`)
	buf.WriteString(`</linearGradient>`)
	buf.WriteString(`<mask id="a"><rect width="` + w + `" height="20" rx="` + strconv.Itoa(cornerRadius) + `" fill="#fff"/></mask>`)
	buf.WriteString(`<g mask="url(#a)">`)
	buf.WriteString(`<rect width="` + strconv.Itoa(lw) + `" height="20" fill="` + labelColor + `"/>`)
	buf.WriteString(`<rect x="` + strconv.Itoa(lw) + `" width="` + strconv.Itoa(vw) + `" height="20" fill="` + color + `"/>`)
	buf.WriteString(`<rect width="` + w + `" height="20" fill="url(#b)"/>`)
	buf.WriteString(`</g>`)
	buf.WriteString(`<g fill="#fff" text-anchor="middle" font-family="DejaVu Sans,Verdana,Geneva,sans-serif" font-size="11">`)
	writeText(&buf, half(lw), label)
	writeText(&buf, float64(lw)+half(vw), value)
	buf.WriteString(`</g></svg>`)

	return Image{
		Body:       buf.Bytes(),
		Width:      width,
		Height:     Height,
		LabelWidth: lw,
		ValueWidth: vw,
	}
}

// writeText emits the shadow pass one unit below, then the white pass.
func writeText(buf *bytes.Buffer, x float64, text string) {
	xs := strconv.FormatFloat(x, 'f', -1, 64)

	buf.WriteString(`<text x="` + xs + `" y="15" fill="#010101" fill-opacity=".3">`)
	_ = xml.EscapeText(buf, []byte(text))
	buf.WriteString(`</text>`)

	buf.WriteString(`<text x="` + xs + `" y="14">`)
	_ = xml.EscapeText(buf, []byte(text))
	buf.WriteString(`</text>`)
}

func half(n int) float64 {
	return float64(n) / 2
}
