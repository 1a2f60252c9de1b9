// Package catalog turns raw course records into an ordered, typed module list.
package catalog

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RawLesson is a lesson as stored or received. Duration is whatever the source held.
type RawLesson struct {
	Title    string
	VideoRef string
	Duration any
}

// RawModule is a module in insertion order
type RawModule struct {
	ID         string
	Title      string
	Order      *int // explicit order; overrides the number in ID
	UnlockDate *time.Time
	Lessons    []RawLesson
}

// RawCourse is a course record before normalization. Modules are in insertion order.
type RawCourse struct {
	ID          string
	Title       string
	Category    string
	AccessLevel string
	Modules     []RawModule
}

// Lesson is a normalized lesson; Index is its position within the module
type Lesson struct {
	Index           int    `json:"index"`
	Title           string `json:"title"`
	VideoRef        string `json:"video_ref"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Module is a normalized module with derived totals
type Module struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	UnlockDate           *time.Time `json:"unlock_date,omitempty"`
	Lessons              []Lesson   `json:"lessons"`
	TotalDurationMinutes int        `json:"total_duration_minutes"`
}

// LessonCount returns the number of lessons in the module
func (m Module) LessonCount() int {
	return len(m.Lessons)
}

// Course is a normalized course
type Course struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	Category             string   `json:"category"`
	AccessLevel          string   `json:"access_level"`
	Modules              []Module `json:"modules"`
	TotalLessons         int      `json:"total_lessons"`
	TotalDurationMinutes int      `json:"total_duration_minutes"`
}

// Module looks a module up by id
func (c Course) Module(id string) (Module, bool) {
	for _, m := range c.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return Module{}, false
}

var digitsRe = regexp.MustCompile(`\d+`)

// ModuleOrder extracts the numeric component of a module id ("module_3" -> 3).
// The last run of digits wins, so "s2_module_10" orders as 10.
func ModuleOrder(id string) (int, bool) {
	runs := digitsRe.FindAllString(id, -1)
	if len(runs) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(runs[len(runs)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Normalize orders modules by their explicit order or the number in their id
// (insertion order breaks ties, unnumbered ids go last) and derives lesson and
// duration totals.
func Normalize(raw RawCourse) Course {
	type keyed struct {
		order    int
		numbered bool
		pos      int
		module   RawModule
	}

	keys := make([]keyed, len(raw.Modules))
	for i, m := range raw.Modules {
		n, ok := ModuleOrder(m.ID)
		if m.Order != nil {
			n, ok = *m.Order, true
		}
		keys[i] = keyed{order: n, numbered: ok, pos: i, module: m}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.numbered != b.numbered {
			return a.numbered
		}
		if a.numbered && a.order != b.order {
			return a.order < b.order
		}
		return a.pos < b.pos
	})

	course := Course{
		ID:          raw.ID,
		Title:       raw.Title,
		Category:    raw.Category,
		AccessLevel: raw.AccessLevel,
		Modules:     make([]Module, 0, len(keys)),
	}

	for _, k := range keys {
		m := normalizeModule(k.module)
		course.TotalLessons += m.LessonCount()
		course.TotalDurationMinutes = addMinutes(course.TotalDurationMinutes, m.TotalDurationMinutes)
		course.Modules = append(course.Modules, m)
	}

	return course
}

func normalizeModule(raw RawModule) Module {
	m := Module{
		ID:         raw.ID,
		Title:      raw.Title,
		UnlockDate: raw.UnlockDate,
		Lessons:    make([]Lesson, 0, len(raw.Lessons)),
	}
	for i, l := range raw.Lessons {
		d := DurationMinutes(l.Duration)
		m.Lessons = append(m.Lessons, Lesson{
			Index:           i,
			Title:           l.Title,
			VideoRef:        l.VideoRef,
			DurationMinutes: d,
		})
		m.TotalDurationMinutes = addMinutes(m.TotalDurationMinutes, d)
	}
	return m
}

// MaxDurationMinutes is the largest lesson duration accepted. Anything above
// it is treated like garbage input.
const MaxDurationMinutes = math.MaxInt32

// DurationMinutes reads a lesson duration leniently. Missing, negative,
// non-numeric or out of range values count as 0; fractions are truncated.
func DurationMinutes(v any) int {
	var f float64
	switch d := v.(type) {
	case nil:
		return 0
	case int:
		f = float64(d)
	case *int:
		if d == nil {
			return 0
		}
		f = float64(*d)
	case int64:
		f = float64(d)
	case float64:
		f = d
	case json.Number:
		parsed, err := d.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(d), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > MaxDurationMinutes {
		return 0
	}
	return int(f)
}

// addMinutes sums non-negative totals, saturating instead of wrapping
func addMinutes(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}
