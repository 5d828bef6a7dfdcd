package services

import (
	"context"
	"testing"
	"time"

	"github.com/examstack/exam-engine/internal/events"
	"github.com/examstack/exam-engine/internal/models"
	"github.com/examstack/exam-engine/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scoringFixture struct {
	repo       *fakeRepo
	service    ScoringService
	dispatcher *inlineDispatcher
	publisher  *events.MockPublisher
	mistakes   *stubMistakeTracker
	progress   *stubProgressRecorder
	ranking    *stubRankingService
}

func newScoringFixture(t *testing.T) *scoringFixture {
	t.Helper()

	repo := newFakeRepo()
	logger := testLogger()
	f := &scoringFixture{
		repo:       repo,
		dispatcher: &inlineDispatcher{},
		publisher:  events.NewMockPublisher(utils.ToSlogLogger(logger)),
		mistakes:   &stubMistakeTracker{},
		progress:   &stubProgressRecorder{},
		ranking:    &stubRankingService{},
	}

	catalog := NewCatalogService(repo, nil, logger)
	f.service = NewScoringService(
		repo,
		catalog,
		f.dispatcher,
		f.publisher,
		logger,
		utils.NewValidator(),
		f.mistakes,
		f.progress,
		f.ranking,
	)
	return f
}

// seedAttempt publishes an exam with the standard three-question catalog and
// opens an in-progress attempt for the user.
func (f *scoringFixture) seedAttempt(t *testing.T, examID, userID uint) *models.ExamResult {
	t.Helper()

	f.repo.addExam(&models.Exam{
		ID:         examID,
		Title:      "Unit Exam",
		Duration:   60,
		TotalScore: 60,
		PassScore:  36,
		Status:     models.ExamStatusPublished,
	}, []models.Question{
		{ID: 1, Type: models.SingleChoice, CorrectAnswer: "A", Score: 10},
		{ID: 2, Type: models.SingleChoice, CorrectAnswer: "B", Score: 20},
		{ID: 3, Type: models.TrueFalse, CorrectAnswer: "true", Score: 30},
	}, nil)

	attempt := &models.ExamResult{
		ExamID:    examID,
		UserID:    userID,
		StartTime: time.Now().UTC().Add(-10 * time.Minute),
		Status:    models.AttemptInProgress,
	}
	require.NoError(t, f.repo.Attempt().Create(context.Background(), attempt))
	return attempt
}

func TestScoringService_Submit(t *testing.T) {
	tests := []struct {
		name        string
		answers     map[uint]string
		wantScore   float64
		wantPassed  bool
		wantCorrect int
	}{
		{
			name:        "all correct passes",
			answers:     map[uint]string{1: "A", 2: "B", 3: "true"},
			wantScore:   60,
			wantPassed:  true,
			wantCorrect: 3,
		},
		{
			name:        "partial score below pass mark",
			answers:     map[uint]string{1: "A", 2: "C"},
			wantScore:   10,
			wantPassed:  false,
			wantCorrect: 1,
		},
		{
			name:       "empty submission scores zero",
			answers:    map[uint]string{},
			wantScore:  0,
			wantPassed: false,
		},
		{
			name:        "highest-weight answer alone still fails",
			answers:     map[uint]string{3: "true", 1: "wrong", 2: "wrong"},
			wantScore:   30,
			wantPassed:  false,
			wantCorrect: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newScoringFixture(t)
			attempt := f.seedAttempt(t, 1, 7)

			result, err := f.service.Submit(context.Background(), &SubmitRequest{
				ExamID:  1,
				UserID:  7,
				Answers: tt.answers,
			})

			require.NoError(t, err)
			assert.Equal(t, attempt.ID, result.AttemptID)
			assert.Equal(t, tt.wantScore, result.Score)
			assert.Equal(t, 60.0, result.TotalScore)
			assert.Equal(t, tt.wantPassed, result.Passed)
			assert.Equal(t, tt.wantCorrect, result.CorrectAnswers)

			// Attempt reached its terminal state with the score persisted.
			stored, err := f.repo.Attempt().GetByID(context.Background(), attempt.ID)
			require.NoError(t, err)
			assert.Equal(t, models.AttemptSubmitted, stored.Status)
			require.NotNil(t, stored.Score)
			assert.Equal(t, tt.wantScore, *stored.Score)
			require.NotNil(t, stored.SubmitTime)
			assert.NotEmpty(t, stored.Answers, "raw answer set is stored on the attempt")

			// One answer record per catalogued question, answered or not.
			records, err := f.repo.Attempt().GetAnswerRecords(context.Background(), attempt.ID)
			require.NoError(t, err)
			assert.Len(t, records, 3)
		})
	}
}

func TestScoringService_Submit_NoActiveAttempt(t *testing.T) {
	f := newScoringFixture(t)
	f.seedAttempt(t, 1, 7)

	_, err := f.service.Submit(context.Background(), &SubmitRequest{
		ExamID:  1,
		UserID:  99, // never started
		Answers: map[uint]string{1: "A"},
	})

	assert.ErrorIs(t, err, ErrNoAttemptInProgress)
}

func TestScoringService_Submit_SecondSubmitRejected(t *testing.T) {
	f := newScoringFixture(t)
	f.seedAttempt(t, 1, 7)

	req := &SubmitRequest{ExamID: 1, UserID: 7, Answers: map[uint]string{1: "A"}}

	_, err := f.service.Submit(context.Background(), req)
	require.NoError(t, err)

	// The first submit consumed the in-progress attempt.
	_, err = f.service.Submit(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoAttemptInProgress)

	records, err := f.repo.Attempt().GetAnswerRecords(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, records, 3, "second submit wrote nothing")
}

func TestScoringService_Submit_StorageFailureRollsBack(t *testing.T) {
	f := newScoringFixture(t)
	attempt := f.seedAttempt(t, 1, 7)
	f.repo.failRecordsAfter = 1

	_, err := f.service.Submit(context.Background(), &SubmitRequest{
		ExamID:  1,
		UserID:  7,
		Answers: map[uint]string{1: "A", 2: "B", 3: "true"},
	})
	require.Error(t, err)

	// Nothing committed: no records, attempt still in progress and unscored.
	records, recErr := f.repo.Attempt().GetAnswerRecords(context.Background(), attempt.ID)
	require.NoError(t, recErr)
	assert.Empty(t, records)

	stored, getErr := f.repo.Attempt().GetByID(context.Background(), attempt.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.AttemptInProgress, stored.Status)
	assert.Nil(t, stored.Score)

	assert.Empty(t, f.dispatcher.ran, "no fan-out after a failed submission")

	// A retry on the same attempt succeeds once storage recovers.
	f.repo.failRecordsAfter = -1
	result, err := f.service.Submit(context.Background(), &SubmitRequest{
		ExamID:  1,
		UserID:  7,
		Answers: map[uint]string{1: "A", 2: "B", 3: "true"},
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, result.Score)
}

func TestScoringService_Submit_FanoutRuns(t *testing.T) {
	f := newScoringFixture(t)
	f.seedAttempt(t, 1, 7)

	_, err := f.service.Submit(context.Background(), &SubmitRequest{
		ExamID:  1,
		UserID:  7,
		Answers: map[uint]string{1: "A", 2: "wrong"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"events.attempt-submitted",
		"mistake-tracker.collect",
		"progress-recorder.record",
		"ranking-service.update",
	}, f.dispatcher.ran)

	assert.Equal(t, []uint{1}, f.mistakes.calls)
	assert.Equal(t, 1, f.progress.calls)
	assert.Contains(t, f.ranking.updates, LeaderboardScore)
	assert.Contains(t, f.ranking.updates, LeaderboardAccuracy)

	published := f.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventAttemptSubmitted, published[0].Type)
}

func TestScoringService_Submit_CollaboratorPanicIsolated(t *testing.T) {
	f := newScoringFixture(t)
	f.seedAttempt(t, 1, 7)
	f.ranking.panics = true

	result, err := f.service.Submit(context.Background(), &SubmitRequest{
		ExamID:  1,
		UserID:  7,
		Answers: map[uint]string{1: "A", 2: "B", 3: "true"},
	})

	// The panicking ranking collaborator never reaches the caller.
	require.NoError(t, err)
	assert.Equal(t, 60.0, result.Score)

	stored, getErr := f.repo.Attempt().GetByID(context.Background(), result.AttemptID)
	require.NoError(t, getErr)
	assert.Equal(t, models.AttemptSubmitted, stored.Status)

	// The other collaborators still ran.
	assert.Equal(t, []uint{1}, f.mistakes.calls)
	assert.Equal(t, 1, f.progress.calls)
}

func TestScoringService_GetAttempt(t *testing.T) {
	f := newScoringFixture(t)
	attempt := f.seedAttempt(t, 1, 7)

	got, err := f.service.GetAttempt(context.Background(), attempt.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, got.ID)

	_, err = f.service.GetAttempt(context.Background(), 999, 7)
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	// Another user's attempt is invisible except as a permission failure.
	_, err = f.service.GetAttempt(context.Background(), attempt.ID, 8)
	var pe *PermissionError
	assert.ErrorAs(t, err, &pe)
}
