package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/examstack/exam-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestAdmissionService_StartAttempt(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		exam    *models.Exam
		wantErr error
	}{
		{
			name: "published exam without window",
			exam: &models.Exam{ID: 1, Title: "Open Exam", Duration: 60, Status: models.ExamStatusPublished},
		},
		{
			name: "published exam inside window",
			exam: &models.Exam{
				ID: 1, Title: "Windowed Exam", Duration: 60,
				Status:    models.ExamStatusPublished,
				StartTime: timePtr(now.Add(-time.Hour)),
				EndTime:   timePtr(now.Add(time.Hour)),
			},
		},
		{
			name:    "draft exam is invisible to learners",
			exam:    &models.Exam{ID: 1, Title: "Draft Exam", Duration: 60, Status: models.ExamStatusDraft},
			wantErr: ErrExamNotPublished,
		},
		{
			name:    "closed exam is invisible to learners",
			exam:    &models.Exam{ID: 1, Title: "Closed Exam", Duration: 60, Status: models.ExamStatusClosed},
			wantErr: ErrExamNotPublished,
		},
		{
			name: "window not yet open",
			exam: &models.Exam{
				ID: 1, Title: "Future Exam", Duration: 60,
				Status:    models.ExamStatusPublished,
				StartTime: timePtr(now.Add(time.Hour)),
			},
			wantErr: ErrExamNotStarted,
		},
		{
			name: "window already closed",
			exam: &models.Exam{
				ID: 1, Title: "Past Exam", Duration: 60,
				Status:  models.ExamStatusPublished,
				EndTime: timePtr(now.Add(-time.Hour)),
			},
			wantErr: ErrExamEnded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			repo.addExam(tt.exam, nil, nil)
			service := NewAdmissionService(repo, testLogger())

			attempt, err := service.StartAttempt(context.Background(), 1, 7, now)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, attempt)
				return
			}

			require.NoError(t, err)
			assert.NotZero(t, attempt.ID)
			assert.Equal(t, models.AttemptInProgress, attempt.Status)
			assert.Equal(t, now, attempt.StartTime)
		})
	}
}

func TestAdmissionService_StartAttempt_UnknownExam(t *testing.T) {
	service := NewAdmissionService(newFakeRepo(), testLogger())

	_, err := service.StartAttempt(context.Background(), 42, 7, time.Now())

	assert.ErrorIs(t, err, ErrExamNotFound)
}

func TestAdmissionService_StartAttempt_SecondStartConflicts(t *testing.T) {
	repo := newFakeRepo()
	repo.addExam(&models.Exam{ID: 1, Title: "Exam", Duration: 60, Status: models.ExamStatusPublished}, nil, nil)
	service := NewAdmissionService(repo, testLogger())

	_, err := service.StartAttempt(context.Background(), 1, 7, time.Now())
	require.NoError(t, err)

	_, err = service.StartAttempt(context.Background(), 1, 7, time.Now())
	assert.ErrorIs(t, err, ErrAttemptAlreadyInProgress)

	// Other users and other exams are unaffected.
	repo.addExam(&models.Exam{ID: 2, Title: "Other Exam", Duration: 60, Status: models.ExamStatusPublished}, nil, nil)
	_, err = service.StartAttempt(context.Background(), 1, 8, time.Now())
	assert.NoError(t, err)
	_, err = service.StartAttempt(context.Background(), 2, 7, time.Now())
	assert.NoError(t, err)
}

// Concurrent starts for the same (exam, user) race through the precondition
// checks; the storage uniqueness guarantee must still admit exactly one.
func TestAdmissionService_StartAttempt_ConcurrentStartsAdmitOne(t *testing.T) {
	repo := newFakeRepo()
	repo.addExam(&models.Exam{ID: 1, Title: "Exam", Duration: 60, Status: models.ExamStatusPublished}, nil, nil)
	service := NewAdmissionService(repo, testLogger())

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		admitted  int
		conflicts int
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.StartAttempt(context.Background(), 1, 7, time.Now())

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case assert.ErrorIs(t, err, ErrAttemptAlreadyInProgress):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, callers-1, conflicts)
}

func TestAdmissionService_GetCurrentAttempt(t *testing.T) {
	repo := newFakeRepo()
	repo.addExam(&models.Exam{ID: 1, Title: "Exam", Duration: 60, Status: models.ExamStatusPublished}, nil, nil)
	service := NewAdmissionService(repo, testLogger())

	_, err := service.GetCurrentAttempt(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrNoAttemptInProgress)

	started, err := service.StartAttempt(context.Background(), 1, 7, time.Now())
	require.NoError(t, err)

	current, err := service.GetCurrentAttempt(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, started.ID, current.ID)
	assert.Equal(t, models.AttemptInProgress, current.Status)
}
