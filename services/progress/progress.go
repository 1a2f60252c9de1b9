// Package progress computes lesson completion and course progress from the
// authoritative set of completed lessons. Progress is always recomputed,
// never adjusted in place.
package progress

import (
	"math"
	"sort"

	"github.com/sahilchouksey/learnhub-api/services/catalog"
)

// Completed maps a module id to the indices of its completed lessons
type Completed map[string][]int

// ModuleProgress is the completion of a single module
type ModuleProgress struct {
	ModuleID  string `json:"module_id"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// Summary is the completion of a whole course
type Summary struct {
	Modules          []ModuleProgress `json:"modules"`
	CompletedLessons int              `json:"completed_lessons"`
	TotalLessons     int              `json:"total_lessons"`
	Progress         int              `json:"progress"`
}

// Module returns the progress of one module
func (s Summary) Module(id string) (ModuleProgress, bool) {
	for _, m := range s.Modules {
		if m.ModuleID == id {
			return m, true
		}
	}
	return ModuleProgress{}, false
}

// Percent returns round(done/total*100) clamped to [0, 100]. It is 0 when
// total is 0 and only reaches 100 when every lesson is done.
func Percent(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	p := int(math.Round(float64(done) / float64(total) * 100))
	if p >= 100 {
		return 99
	}
	return p
}

// Calculate reconciles completed against the course and summarizes it
func Calculate(course catalog.Course, completed Completed) Summary {
	clean := Reconcile(course, completed)

	summary := Summary{Modules: make([]ModuleProgress, 0, len(course.Modules))}
	for _, m := range course.Modules {
		mp := ModuleProgress{
			ModuleID:  m.ID,
			Completed: len(clean[m.ID]),
			Total:     m.LessonCount(),
		}
		summary.CompletedLessons += mp.Completed
		summary.TotalLessons += mp.Total
		summary.Modules = append(summary.Modules, mp)
	}
	summary.Progress = Percent(summary.CompletedLessons, summary.TotalLessons)
	return summary
}

// Reconcile drops indices that no longer point at a lesson, modules the
// course does not have, and duplicates. The result is sorted and never nil.
func Reconcile(course catalog.Course, completed Completed) Completed {
	out := Completed{}
	for _, m := range course.Modules {
		indices, ok := completed[m.ID]
		if !ok {
			continue
		}
		kept := dedupe(indices, m.LessonCount())
		if len(kept) > 0 {
			out[m.ID] = kept
		}
	}
	return out
}

// Toggle flips the membership of index in the module's completed set and
// returns the new set. The input is not modified.
func Toggle(completed Completed, moduleID string, index int) Completed {
	out := completed.Clone()

	indices := out[moduleID]
	for i, v := range indices {
		if v == index {
			indices = append(indices[:i:i], indices[i+1:]...)
			if len(indices) == 0 {
				delete(out, moduleID)
			} else {
				out[moduleID] = indices
			}
			return out
		}
	}

	indices = append(indices, index)
	sort.Ints(indices)
	out[moduleID] = indices
	return out
}

// IsDone reports whether the lesson is in the completed set
func (c Completed) IsDone(moduleID string, index int) bool {
	for _, v := range c[moduleID] {
		if v == index {
			return true
		}
	}
	return false
}

// RemoveLesson drops index from the module and shifts later indices down so
// they keep pointing at the same lessons after the removal.
func RemoveLesson(completed Completed, moduleID string, index int) Completed {
	out := completed.Clone()
	indices, ok := out[moduleID]
	if !ok {
		return out
	}

	shifted := make([]int, 0, len(indices))
	for _, v := range indices {
		switch {
		case v == index:
			continue
		case v > index:
			shifted = append(shifted, v-1)
		default:
			shifted = append(shifted, v)
		}
	}

	if len(shifted) == 0 {
		delete(out, moduleID)
	} else {
		out[moduleID] = shifted
	}
	return out
}

// Clone returns a deep copy
func (c Completed) Clone() Completed {
	out := make(Completed, len(c))
	for k, v := range c {
		out[k] = append([]int(nil), v...)
	}
	return out
}

func dedupe(indices []int, count int) []int {
	seen := make(map[int]struct{}, len(indices))
	kept := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= count {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		kept = append(kept, i)
	}
	sort.Ints(kept)
	return kept
}
