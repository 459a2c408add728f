package badge

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SegmentWidths(t *testing.T) {
	img := Render("Records", "123", "#4F46E5")

	assert.Equal(t, 59, img.LabelWidth)
	assert.Equal(t, 31, img.ValueWidth)
	assert.Equal(t, 90, img.Width)
	assert.Equal(t, Height, img.Height)
}

func TestRender_Deterministic(t *testing.T) {
	a := Render("Users", "1,024", "#e74c3c")
	b := Render("Users", "1,024", "#e74c3c")

	assert.Equal(t, a.Body, b.Body)
}

func TestRender_WidthDependsOnlyOnLength(t *testing.T) {
	a := Render("abcd", "12", "#000")
	b := Render("wxyz", "99", "#fff")

	assert.Equal(t, a.Width, b.Width)
	assert.Equal(t, a.LabelWidth, b.LabelWidth)
	assert.Equal(t, a.ValueWidth, b.ValueWidth)
}

func TestRender_EmptyStrings(t *testing.T) {
	img := Render("", "", "")

	assert.Equal(t, 17, img.LabelWidth)
	assert.Equal(t, 17, img.ValueWidth)
	assertWellFormed(t, img.Body)
}

func TestRender_CountsRunesNotBytes(t *testing.T) {
	img := Render("Zählung", "✓", "#000000")

	assert.Equal(t, 7*7+10, img.LabelWidth)
	assert.Equal(t, 17, img.ValueWidth)
}

func TestRender_EscapesMarkup(t *testing.T) {
	img := Render(`<script>"x"</script>`, "a & b", "#123")
	body := string(img.Body)

	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "a &amp; b")
	assertWellFormed(t, img.Body)
}

func TestRender_InvalidColorFallsBack(t *testing.T) {
	img := Render("Records", "1", `red" onload="alert(1)`)
	body := string(img.Body)

	assert.Contains(t, body, `fill="#4F46E5"`)
	assert.NotContains(t, body, "onload")
}

func TestRender_ShadowAndMask(t *testing.T) {
	body := string(Render("Records", "123", "#4F46E5").Body)

	assert.Equal(t, 2, strings.Count(body, `fill-opacity=".3"`))
	assert.Contains(t, body, `<rect width="90" height="20" rx="3" fill="#fff"/>`)
	assert.Contains(t, body, `<text x="29.5" y="15"`)
	assert.Contains(t, body, `<text x="74.5" y="14">123</text>`)
}

func TestValidColor(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"#4F46E5", true},
		{"#abc", true},
		{"#ABCDEF", true},
		{"4F46E5", false},
		{"#12345", false},
		{"#GGGGGG", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidColor(tc.in))
		})
	}
}

func assertWellFormed(t *testing.T, body []byte) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(string(body)))
	for {
		_, err := dec.Token()
		if err != nil {
			require.Equal(t, "EOF", err.Error())
			return
		}
	}
}
