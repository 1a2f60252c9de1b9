package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/access"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProgressService(f *fixture) *ProgressService {
	svc := NewProgressService(f.db, f.courses, logger.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestToggleRecomputesAndIsIdempotentTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchase(t, f.student.ID, "vanilla", model.CompletedLessons{"module_1": {0, 1}})
	svc := newProgressService(f)

	res, err := svc.Toggle(ctx, sessionFor(f.student), f.course.ID, "module_1", 2)
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, 60, res.Summary.Progress)
	assert.Equal(t, 60, f.record(t, f.student.ID).Progress)

	res, err = svc.Toggle(ctx, sessionFor(f.student), f.course.ID, "module_1", 2)
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.Equal(t, 40, res.Summary.Progress)

	record := f.record(t, f.student.ID)
	assert.Equal(t, model.CompletedLessons{"module_1": {0, 1}}, record.Completed())
	assert.Equal(t, 40, record.Progress)
}

func TestToggleDropsStaleIndices(t *testing.T) {
	f := newFixture(t)
	f.purchase(t, f.student.ID, "vanilla", model.CompletedLessons{"module_1": {0, 7}, "gone": {0}})
	svc := newProgressService(f)

	res, err := svc.Toggle(context.Background(), sessionFor(f.student), f.course.ID, "module_1", 1)
	require.NoError(t, err)
	assert.Equal(t, model.CompletedLessons{"module_1": {0, 1}}, f.record(t, f.student.ID).Completed())
	assert.Equal(t, 40, res.Summary.Progress)
}

func TestToggleRejections(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		module string
		index  int
		want   error
	}{
		{"locked module", "vanilla", "module_2", 0, ErrModuleLocked},
		{"unknown module", "vanilla", "module_9", 0, ErrModuleNotFound},
		{"index out of range", "vanilla", "module_1", 3, ErrLessonNotFound},
		{"negative index", "vanilla", "module_1", -1, ErrLessonNotFound},
		{"denied access", model.AccessLevelDenied, "module_1", 0, access.ErrNoCourseAccess},
		{"no purchase record", "", "module_1", 0, access.ErrNoCourseAccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.level != "" {
				f.purchase(t, f.student.ID, tt.level, nil)
			}
			_, err := newProgressService(f).Toggle(context.Background(), sessionFor(f.student), f.course.ID, tt.module, tt.index)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestToggleAfterUnlock(t *testing.T) {
	f := newFixture(t)
	f.purchase(t, f.student.ID, "vanilla", nil)
	svc := newProgressService(f)
	svc.now = func() time.Time { return testNow.Add(25 * time.Hour) }

	res, err := svc.Toggle(context.Background(), sessionFor(f.student), f.course.ID, "module_2", 1)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Summary.Progress)
}

func TestProgressSummary(t *testing.T) {
	f := newFixture(t)
	f.purchase(t, f.student.ID, "vanilla", model.CompletedLessons{"module_1": {0, 1, 2}, "module_2": {0, 1}})

	summary, err := newProgressService(f).Summary(context.Background(), sessionFor(f.student), f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, summary.Progress)
	assert.Equal(t, 5, summary.CompletedLessons)

	_, err = newProgressService(f).Summary(context.Background(), sessionFor(f.moderator), f.course.ID)
	assert.ErrorIs(t, err, access.ErrNoCourseAccess)
}
