package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/examstack/exam-engine/internal/dispatch"
	"github.com/examstack/exam-engine/internal/events"
	"github.com/examstack/exam-engine/internal/models"
	"github.com/examstack/exam-engine/internal/repositories"
	"github.com/examstack/exam-engine/internal/utils"
)

// Leaderboard identifiers the ranking collaborator is updated under
const (
	LeaderboardScore    = "exam:score"
	LeaderboardAccuracy = "exam:accuracy"
)

type scoringService struct {
	repo       repositories.Repository
	catalog    CatalogService
	dispatcher dispatch.Dispatcher
	publisher  events.Publisher
	logger     utils.Logger
	validator  *utils.Validator

	mistakes MistakeTracker
	progress ProgressRecorder
	ranking  RankingService
}

// NewScoringService wires the transactional core with its fan-out
// collaborators. The collaborators run only through the dispatcher, after
// the submission transaction commits; their failures never reach the caller.
func NewScoringService(
	repo repositories.Repository,
	catalog CatalogService,
	dispatcher dispatch.Dispatcher,
	publisher events.Publisher,
	logger utils.Logger,
	validator *utils.Validator,
	mistakes MistakeTracker,
	progress ProgressRecorder,
	ranking RankingService,
) ScoringService {
	return &scoringService{
		repo:       repo,
		catalog:    catalog,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		validator:  validator,
		mistakes:   mistakes,
		progress:   progress,
		ranking:    ranking,
	}
}

func (s *scoringService) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	s.logger.Info("Submitting exam attempt",
		"exam_id", req.ExamID,
		"user_id", req.UserID,
		"answers_count", len(req.Answers))

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// A second submit finds no in-progress attempt: the first one already
	// moved the row to its terminal state.
	attempt, err := s.repo.Attempt().GetActive(ctx, req.ExamID, req.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNoAttemptInProgress
		}
		return nil, fmt.Errorf("failed to get active attempt: %w", err)
	}

	snapshot, err := s.catalog.GetExamSnapshot(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}

	summary := GradeAttempt(snapshot.Questions, req.Answers)
	for _, graded := range summary.Answers {
		if graded.Placeholder {
			s.logger.Warn("Short answer auto-passed without grading",
				"flag", AutoGradePlaceholder,
				"attempt_id", attempt.ID,
				"question_id", graded.QuestionID)
		}
	}

	answersJSON, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize answers: %w", err)
	}

	submitTime := time.Now().UTC()
	score := summary.TotalScore

	attempt.Score = &score
	attempt.SubmitTime = &submitTime
	attempt.Status = models.AttemptSubmitted
	attempt.Answers = answersJSON

	records := make([]models.AnswerRecord, 0, len(summary.Answers))
	for _, graded := range summary.Answers {
		records = append(records, models.AnswerRecord{
			ExamResultID: attempt.ID,
			QuestionID:   graded.QuestionID,
			UserAnswer:   graded.UserAnswer,
			IsCorrect:    graded.IsCorrect,
			Score:        graded.EarnedScore,
		})
	}

	// Answer records and the attempt transition appear together or not at
	// all. On any failure the attempt stays in_progress and a retry is safe.
	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Attempt().CreateAnswerRecords(ctx, records); err != nil {
			return fmt.Errorf("failed to persist answer records: %w", err)
		}
		if err := tx.Attempt().Finalize(ctx, attempt); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrNoAttemptInProgress
			}
			return fmt.Errorf("failed to finalize attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exam attempt submitted",
		"attempt_id", attempt.ID,
		"exam_id", req.ExamID,
		"user_id", req.UserID,
		"score", score)

	result := &SubmitResult{
		AttemptID:         attempt.ID,
		ExamID:            req.ExamID,
		UserID:            req.UserID,
		Score:             score,
		TotalScore:        snapshot.TotalScore,
		Passed:            score >= snapshot.PassScore,
		SubmitTime:        submitTime,
		QuestionsAnswered: summary.QuestionsAnswered,
		CorrectAnswers:    summary.CorrectAnswers,
	}

	// Only after the commit: best-effort side effects, isolated from the
	// response already determined above.
	s.enqueueFanout(attempt, snapshot, summary, result)

	return result, nil
}

func (s *scoringService) enqueueFanout(attempt *models.ExamResult, snapshot *ExamSnapshot, summary GradeSummary, result *SubmitResult) {
	attemptID := attempt.ID
	userID := attempt.UserID
	studyTime := int(result.SubmitTime.Sub(attempt.StartTime).Minutes())
	if studyTime < 0 {
		studyTime = 0
	}

	accuracy := 0.0
	if len(snapshot.Questions) > 0 {
		accuracy = float64(summary.CorrectAnswers) / float64(len(snapshot.Questions)) * 100
	}

	s.dispatcher.Enqueue(dispatch.Job{
		Name: "events.attempt-submitted",
		Run: func(ctx context.Context) error {
			event := events.NewStudyEvent(events.EventAttemptSubmitted, events.AttemptSubmittedEvent{
				AttemptID:   attemptID,
				ExamID:      result.ExamID,
				UserID:      userID,
				SubmittedAt: result.SubmitTime,
				Score:       result.Score,
				TotalScore:  result.TotalScore,
				Passed:      result.Passed,
			})
			return s.publisher.PublishStudyEvent(ctx, event)
		},
	})

	s.dispatcher.Enqueue(dispatch.Job{
		Name: "mistake-tracker.collect",
		Run: func(ctx context.Context) error {
			return s.mistakes.Collect(ctx, attemptID)
		},
	})

	s.dispatcher.Enqueue(dispatch.Job{
		Name: "progress-recorder.record",
		Run: func(ctx context.Context) error {
			return s.progress.Record(ctx, userID, studyTime,
				summary.QuestionsAnswered, summary.CorrectAnswers, snapshot.Title)
		},
	})

	score := result.Score
	s.dispatcher.Enqueue(dispatch.Job{
		Name: "ranking-service.update",
		Run: func(ctx context.Context) error {
			if err := s.ranking.UpdateRanking(ctx, LeaderboardScore, userID, score); err != nil {
				return err
			}
			if err := s.ranking.UpdateRanking(ctx, LeaderboardAccuracy, userID, accuracy); err != nil {
				return err
			}
			return s.ranking.CheckAchievements(ctx, userID)
		},
	})
}

func (s *scoringService) GetAttempt(ctx context.Context, attemptID, userID uint) (*models.ExamResult, error) {
	attempt, err := s.repo.Attempt().GetByIDWithRecords(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.UserID != userID {
		return nil, NewPermissionError(userID, attemptID, "attempt", "read", "not owned by caller")
	}

	return attempt, nil
}

func (s *scoringService) ListAttempts(ctx context.Context, userID uint, filters repositories.AttemptFilters) ([]*models.ExamResult, int64, error) {
	attempts, total, err := s.repo.Attempt().ListByUser(ctx, userID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, total, nil
}
