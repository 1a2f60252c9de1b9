// Package unlock evaluates time-locked modules and resolves where a learner
// should resume.
package unlock

import (
	"time"

	"github.com/sahilchouksey/learnhub-api/services/catalog"
	"github.com/sahilchouksey/learnhub-api/services/progress"
)

// ModuleState is the lock state of a module at a given instant
type ModuleState struct {
	ModuleID    string        `json:"module_id"`
	Locked      bool          `json:"locked"`
	UnlockDate  *time.Time    `json:"unlock_date,omitempty"`
	UnlocksIn   time.Duration `json:"-"`
	SecondsLeft int64         `json:"seconds_until_unlock,omitempty"`
}

// Position identifies a lesson inside a course
type Position struct {
	ModuleID    string `json:"module_id"`
	LessonIndex int    `json:"lesson_index"`
}

// IsLocked reports whether the module is still waiting for its unlock date.
// Modules without an unlock date are never locked.
func IsLocked(m catalog.Module, now time.Time) bool {
	return m.UnlockDate != nil && m.UnlockDate.After(now)
}

// States evaluates every module at now
func States(modules []catalog.Module, now time.Time) []ModuleState {
	states := make([]ModuleState, 0, len(modules))
	for _, m := range modules {
		s := ModuleState{ModuleID: m.ID, UnlockDate: m.UnlockDate}
		if IsLocked(m, now) {
			s.Locked = true
			s.UnlocksIn = m.UnlockDate.Sub(now)
			s.SecondsLeft = int64(s.UnlocksIn.Seconds())
		}
		states = append(states, s)
	}
	return states
}

// NextUnlock returns the earliest unlock date still in the future
func NextUnlock(modules []catalog.Module, now time.Time) (time.Time, bool) {
	var next time.Time
	found := false
	for _, m := range modules {
		if !IsLocked(m, now) {
			continue
		}
		if !found || m.UnlockDate.Before(next) {
			next = *m.UnlockDate
			found = true
		}
	}
	return next, found
}

// NextLesson scans modules in order and resumes after the highest completed
// lesson of the first module that is not finished. It returns false when
// every module is complete.
func NextLesson(modules []catalog.Module, completed progress.Completed) (Position, bool) {
	for _, m := range modules {
		last := m.LessonCount() - 1
		maxDone := -1
		for _, i := range completed[m.ID] {
			if i > maxDone && i <= last {
				maxDone = i
			}
		}
		if maxDone < last {
			return Position{ModuleID: m.ID, LessonIndex: maxDone + 1}, true
		}
	}
	return Position{}, false
}
