package unlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sahilchouksey/learnhub-api/services/catalog"
	"github.com/sahilchouksey/learnhub-api/services/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func module(id string, lessons int, unlock *time.Time) catalog.RawModule {
	m := catalog.RawModule{ID: id, UnlockDate: unlock}
	for i := 0; i < lessons; i++ {
		m.Lessons = append(m.Lessons, catalog.RawLesson{Duration: 10})
	}
	return m
}

func TestIsLocked(t *testing.T) {
	tests := []struct {
		name   string
		unlock *time.Time
		want   bool
	}{
		{"no unlock date", nil, false},
		{"past", at(-time.Hour), false},
		{"exactly now", at(0), false},
		{"future", at(time.Second), true},
		{"far future", at(30 * 24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := catalog.Module{ID: "module_1", UnlockDate: tt.unlock}
			assert.Equal(t, tt.want, IsLocked(m, now))
		})
	}
}

func TestNilUnlockNeverLocked(t *testing.T) {
	m := catalog.Module{ID: "module_1"}
	for _, instant := range []time.Time{{}, now, now.AddDate(100, 0, 0), now.AddDate(-100, 0, 0)} {
		assert.False(t, IsLocked(m, instant))
	}
}

func TestStatesAndNextUnlock(t *testing.T) {
	c := catalog.Normalize(catalog.RawCourse{Modules: []catalog.RawModule{
		module("module_1", 1, nil),
		module("module_2", 1, at(48*time.Hour)),
		module("module_3", 1, at(24*time.Hour)),
		module("module_4", 1, at(-24*time.Hour)),
	}})

	states := States(c.Modules, now)
	require.Len(t, states, 4)
	assert.False(t, states[0].Locked)
	assert.True(t, states[1].Locked)
	assert.Equal(t, 48*time.Hour, states[1].UnlocksIn)
	assert.True(t, states[2].Locked)
	assert.False(t, states[3].Locked)
	assert.Zero(t, states[3].UnlocksIn)

	next, ok := NextUnlock(c.Modules, now)
	require.True(t, ok)
	assert.Equal(t, *at(24 * time.Hour), next)

	_, ok = NextUnlock(c.Modules, now.Add(72*time.Hour))
	assert.False(t, ok)
}

func TestNextLesson(t *testing.T) {
	c := catalog.Normalize(catalog.RawCourse{Modules: []catalog.RawModule{
		module("module_1", 3, nil),
		module("module_2", 0, nil),
		module("module_3", 2, nil),
	}})

	tests := []struct {
		name      string
		completed progress.Completed
		want      Position
		wantOK    bool
	}{
		{"fresh start", progress.Completed{}, Position{"module_1", 0}, true},
		{"resume in module", progress.Completed{"module_1": {0, 1}}, Position{"module_1", 2}, true},
		{"gap resumes after highest", progress.Completed{"module_1": {1}}, Position{"module_1", 2}, true},
		{"skips empty module", progress.Completed{"module_1": {2}}, Position{"module_3", 0}, true},
		{"stale index ignored", progress.Completed{"module_1": {0, 7}}, Position{"module_1", 1}, true},
		{"second module partly done", progress.Completed{"module_1": {0, 1, 2}, "module_3": {0}}, Position{"module_3", 1}, true},
		{"all done", progress.Completed{"module_1": {0, 1, 2}, "module_3": {0, 1}}, Position{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextLesson(c.Modules, tt.completed)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorkedExample(t *testing.T) {
	tomorrow := at(24 * time.Hour)
	c := catalog.Normalize(catalog.RawCourse{Modules: []catalog.RawModule{
		{ID: "module_2", UnlockDate: tomorrow, Lessons: []catalog.RawLesson{{Duration: 15}, {Duration: 15}}},
		{ID: "module_1", Lessons: []catalog.RawLesson{{Duration: 10}, {Duration: 10}, {Duration: 10}}},
	}})
	completed := progress.Completed{"module_1": {0, 1}}

	summary := progress.Calculate(c, completed)
	m1, _ := summary.Module("module_1")
	assert.Equal(t, 2, m1.Completed)
	assert.Equal(t, 3, m1.Total)
	assert.Equal(t, 40, summary.Progress)

	states := States(c.Modules, now)
	assert.Equal(t, "module_2", states[1].ModuleID)
	assert.True(t, states[1].Locked)

	next, ok := NextLesson(c.Modules, completed)
	require.True(t, ok)
	assert.Equal(t, Position{ModuleID: "module_1", LessonIndex: 2}, next)

	assert.Equal(t, 30, c.Modules[0].TotalDurationMinutes)
	assert.Equal(t, 30, c.Modules[1].TotalDurationMinutes)
}

func TestWatchReportsTransitions(t *testing.T) {
	c := catalog.Normalize(catalog.RawCourse{Modules: []catalog.RawModule{
		module("module_1", 1, at(time.Minute)),
	}})

	var mu sync.Mutex
	current := now
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	updates := make(chan []ModuleState, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Watch(ctx, 5*time.Millisecond, c.Modules, clock, func(s []ModuleState) { updates <- s })
		close(done)
	}()

	first := <-updates
	assert.True(t, first[0].Locked)

	mu.Lock()
	current = now.Add(2 * time.Minute)
	mu.Unlock()

	select {
	case second := <-updates:
		assert.False(t, second[0].Locked)
	case <-time.After(time.Second):
		t.Fatal("watcher did not report the unlock")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}
