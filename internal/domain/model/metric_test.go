package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTableRef(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   TableRef
		wantOK bool
	}{
		{"bare table", "todos", TableRef{Schema: "public", Name: "todos"}, true},
		{"qualified", "analytics.events", TableRef{Schema: "analytics", Name: "events"}, true},
		{"explicit public", "public.todos", TableRef{Schema: "public", Name: "todos"}, true},
		{"trims space", "  todos ", TableRef{Schema: "public", Name: "todos"}, true},
		{"first dot splits", "a.b.c", TableRef{Schema: "a", Name: "b.c"}, true},
		{"empty", "", TableRef{}, false},
		{"missing schema", ".todos", TableRef{}, false},
		{"missing table", "analytics.", TableRef{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseTableRef(tc.input)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTableRef_String(t *testing.T) {
	assert.Equal(t, "todos", TableRef{Schema: "public", Name: "todos"}.String())
	assert.Equal(t, "analytics.events", TableRef{Schema: "analytics", Name: "events"}.String())
	assert.Equal(t, "public.todos", TableRef{Name: "todos"}.FullName())
}

func TestProbeResult_Predicates(t *testing.T) {
	assert.True(t, ProbeResult{Status: 200, CountKnown: true}.OK())
	assert.False(t, ProbeResult{Status: 200}.OK())
	assert.True(t, ProbeResult{Status: 206}.Succeeded())
	assert.True(t, ProbeResult{Status: 401}.Blocked())
	assert.True(t, ProbeResult{Status: 403}.Blocked())
	assert.False(t, ProbeResult{Status: 404}.Blocked())
	assert.False(t, ProbeResult{}.Succeeded())
}
