package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sahilchouksey/learnhub-api/database/dbtest"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// module_2 is listed first and unlocks one day after testNow
const goFundamentals = `{
	"title": "Go Fundamentals",
	"category": "programming",
	"accessLevel": "vanilla",
	"modules": {
		"module_2": {
			"title": "Concurrency",
			"unlockDate": "2026-03-11T12:00:00Z",
			"lessons": [
				{"title": "Goroutines", "duration": 15},
				{"title": "Channels", "duration": "15"}
			]
		},
		"module_1": {
			"title": "Basics",
			"lessons": [
				{"title": "Syntax", "duration": 10},
				{"title": "Types", "duration": 10},
				{"title": "Functions", "duration": 10}
			]
		}
	}
}`

type fixture struct {
	db        *gorm.DB
	courses   *CourseService
	course    *model.Course
	vanilla   model.AccessLevel
	standard  model.AccessLevel
	student   model.User
	moderator model.User
	admin     model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	f := &fixture{db: db}

	f.vanilla = model.AccessLevel{Name: "vanilla"}
	f.standard = model.AccessLevel{Name: "standard"}
	require.NoError(t, db.Create(&f.vanilla).Error)
	require.NoError(t, db.Create(&f.standard).Error)

	f.student = model.User{Email: "student@learnhub.test", Name: "Sam Student", Role: model.RoleStudent, PasswordHash: "-"}
	f.moderator = model.User{Email: "mod@learnhub.test", Name: "Mo Derator", Role: model.RoleModerator, PasswordHash: "-"}
	f.admin = model.User{Email: "admin@learnhub.test", Name: "Ada Admin", Role: model.RoleAdmin, PasswordHash: "-"}
	for _, u := range []*model.User{&f.student, &f.moderator, &f.admin} {
		require.NoError(t, db.Create(u).Error)
	}

	f.courses = NewCourseService(db, logger.Nop(), CourseServiceOptions{Now: func() time.Time { return testNow }})
	course, err := f.courses.ImportDocument(context.Background(), []byte(goFundamentals))
	require.NoError(t, err)
	f.course = course
	return f
}

func (f *fixture) purchase(t *testing.T, userID uint, level string, completed model.CompletedLessons) {
	t.Helper()
	record := model.PurchasedCourse{UserID: userID, CourseID: f.course.ID, AccessLevel: level}
	record.SetCompleted(completed)
	require.NoError(t, f.db.Omit("User", "Course").Create(&record).Error)
}

func (f *fixture) record(t *testing.T, userID uint) *model.PurchasedCourse {
	t.Helper()
	var record model.PurchasedCourse
	require.NoError(t, f.db.Where("user_id = ? AND course_id = ?", userID, f.course.ID).First(&record).Error)
	return &record
}

func sessionFor(u model.User) *auth.Session {
	return &auth.Session{UserID: u.ID, Email: u.Email, Role: u.Role, Admin: u.Role == model.RoleAdmin}
}

type recorder struct {
	changes []events.Change
}

func (r *recorder) Notify(_ context.Context, c events.Change) error {
	r.changes = append(r.changes, c)
	return nil
}

func (r *recorder) count(collection string) int {
	n := 0
	for _, c := range r.changes {
		if c.Collection == collection {
			n++
		}
	}
	return n
}

type memCache struct {
	items   map[string][]byte
	deletes int
}

func newMemCache() *memCache {
	return &memCache{items: map[string][]byte{}}
}

func (m *memCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	b, ok := m.items[key]
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(b, dest)
}

func (m *memCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = b
	return nil
}

func (m *memCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.items, k)
		m.deletes++
	}
	return nil
}

type memStore struct {
	objects map[string][]byte
	puts    int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.objects[key] = data
	m.puts++
	return "https://cdn.learnhub.test/" + key, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}
