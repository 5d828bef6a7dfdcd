package collaborators

import (
	"context"
	"fmt"
	"time"

	"github.com/examstack/exam-engine/internal/models"
	"github.com/examstack/exam-engine/internal/repositories"
	"github.com/examstack/exam-engine/internal/services"
	"github.com/examstack/exam-engine/internal/utils"
)

type mistakeTracker struct {
	repo   repositories.Repository
	logger utils.Logger
}

// NewMistakeTracker builds the review-queue collaborator. It reads the
// committed answer records of an attempt and upserts one mistake entry per
// wrong answer.
func NewMistakeTracker(repo repositories.Repository, logger utils.Logger) services.MistakeTracker {
	return &mistakeTracker{
		repo:   repo,
		logger: logger,
	}
}

func (t *mistakeTracker) Collect(ctx context.Context, attemptID uint) error {
	attempt, err := t.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("mistake tracker: load attempt %d: %w", attemptID, err)
	}

	records, err := t.repo.Attempt().GetAnswerRecords(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("mistake tracker: load answer records: %w", err)
	}

	now := time.Now().UTC()
	collected := 0
	for _, record := range records {
		if record.IsCorrect {
			continue
		}

		entry := &models.MistakeEntry{
			UserID:       attempt.UserID,
			QuestionID:   record.QuestionID,
			ExamID:       attempt.ExamID,
			WrongAnswer:  record.UserAnswer,
			MissCount:    1,
			LastMissedAt: now,
		}
		if err := t.repo.Mistake().Upsert(ctx, entry); err != nil {
			return fmt.Errorf("mistake tracker: upsert question %d: %w", record.QuestionID, err)
		}
		collected++
	}

	t.logger.Info("Collected mistakes for attempt",
		"attempt_id", attemptID,
		"user_id", attempt.UserID,
		"mistakes", collected)

	return nil
}
