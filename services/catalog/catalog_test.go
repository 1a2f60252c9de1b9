package catalog

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lessons(durations ...any) []RawLesson {
	out := make([]RawLesson, len(durations))
	for i, d := range durations {
		out[i] = RawLesson{Title: "lesson", Duration: d}
	}
	return out
}

func moduleIDs(c Course) []string {
	ids := make([]string, len(c.Modules))
	for i, m := range c.Modules {
		ids[i] = m.ID
	}
	return ids
}

func TestModuleOrder(t *testing.T) {
	tests := []struct {
		id     string
		want   int
		wantOK bool
	}{
		{"module_3", 3, true},
		{"module_10", 10, true},
		{"s2_module_7", 7, true},
		{"intro", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := ModuleOrder(tt.id)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeOrdering(t *testing.T) {
	raw := RawCourse{Modules: []RawModule{
		{ID: "module_10"},
		{ID: "bonus"},
		{ID: "module_2"},
		{ID: "extra_2"},
		{ID: "module_1"},
		{ID: "appendix"},
	}}

	got := Normalize(raw)

	assert.Equal(t, []string{"module_1", "module_2", "extra_2", "module_10", "bonus", "appendix"}, moduleIDs(got))
}

func TestNormalizeExplicitOrderWins(t *testing.T) {
	first := 0
	raw := RawCourse{Modules: []RawModule{
		{ID: "module_1"},
		{ID: "welcome", Order: &first},
	}}

	assert.Equal(t, []string{"welcome", "module_1"}, moduleIDs(Normalize(raw)))
}

func TestNormalizeTotals(t *testing.T) {
	ten := 10
	unlock := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := RawCourse{
		ID:    "c1",
		Title: "Go",
		Modules: []RawModule{
			{ID: "module_1", Title: "Basics", Lessons: lessons(10, 10.0, "10", &ten)},
			{ID: "module_2", UnlockDate: &unlock, Lessons: lessons(nil, -5, "abc", 7.9)},
			{ID: "module_3"},
		},
	}

	got := Normalize(raw)

	require.Len(t, got.Modules, 3)
	assert.Equal(t, 40, got.Modules[0].TotalDurationMinutes)
	assert.Equal(t, 7, got.Modules[1].TotalDurationMinutes)
	assert.Equal(t, &unlock, got.Modules[1].UnlockDate)
	assert.Equal(t, 0, got.Modules[2].TotalDurationMinutes)
	assert.Equal(t, 0, got.Modules[2].LessonCount())
	assert.Equal(t, 8, got.TotalLessons)
	assert.Equal(t, 47, got.TotalDurationMinutes)

	for i, l := range got.Modules[0].Lessons {
		assert.Equal(t, i, l.Index)
	}
}

func TestDurationMinutes(t *testing.T) {
	var nilInt *int
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"nil", nil, 0},
		{"int", 12, 12},
		{"nil pointer", nilInt, 0},
		{"float", 12.7, 12},
		{"numeric string", " 15 ", 15},
		{"garbage string", "ten", 0},
		{"negative", -3, 0},
		{"bool", true, 0},
		{"huge float", 1e300, 0},
		{"huge string", "1e19", 0},
		{"largest accepted", MaxDurationMinutes, MaxDurationMinutes},
		{"just above range", float64(MaxDurationMinutes) + 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DurationMinutes(tt.in))
		})
	}
}

func TestNormalizeOutOfRangeDurations(t *testing.T) {
	got := Normalize(RawCourse{Modules: []RawModule{
		{ID: "module_1", Lessons: lessons(1e300, "1e19", 5)},
		{ID: "module_2", Lessons: lessons(MaxDurationMinutes, MaxDurationMinutes)},
	}})

	assert.Equal(t, 0, got.Modules[0].Lessons[0].DurationMinutes)
	assert.Equal(t, 5, got.Modules[0].TotalDurationMinutes)
	assert.Equal(t, 2*MaxDurationMinutes, got.Modules[1].TotalDurationMinutes)
	assert.GreaterOrEqual(t, got.TotalDurationMinutes, 0)
}

func TestAddMinutesSaturates(t *testing.T) {
	assert.Equal(t, 7, addMinutes(3, 4))
	assert.Equal(t, math.MaxInt, addMinutes(math.MaxInt-1, 5))
	assert.Equal(t, math.MaxInt, addMinutes(math.MaxInt, math.MaxInt))
}

func TestCourseModuleLookup(t *testing.T) {
	c := Normalize(RawCourse{Modules: []RawModule{{ID: "module_1"}}})

	_, ok := c.Module("module_1")
	assert.True(t, ok)
	_, ok = c.Module("module_9")
	assert.False(t, ok)
}
