package services

import (
	"context"
	"fmt"
	"time"

	"github.com/examstack/exam-engine/internal/models"
	"github.com/examstack/exam-engine/internal/repositories"
	"github.com/examstack/exam-engine/internal/utils"
)

type admissionService struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewAdmissionService(repo repositories.Repository, logger utils.Logger) AdmissionService {
	return &admissionService{
		repo:   repo,
		logger: logger,
	}
}

// StartAttempt checks the admission preconditions in order and inserts the
// new attempt. The check-then-insert race between concurrent starts for the
// same (exam, user) is closed by the partial unique index on exam_results,
// not by the precondition read: when two callers pass the checks, exactly
// one insert commits and the other surfaces ErrAttemptAlreadyInProgress.
func (s *admissionService) StartAttempt(ctx context.Context, examID, userID uint, now time.Time) (*models.ExamResult, error) {
	s.logger.Info("Starting exam attempt", "exam_id", examID, "user_id", userID)

	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	// Learners cannot observe drafts or closed exams
	if exam.Status != models.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}

	if exam.StartTime != nil && now.Before(*exam.StartTime) {
		return nil, ErrExamNotStarted
	}
	if exam.EndTime != nil && now.After(*exam.EndTime) {
		return nil, ErrExamEnded
	}

	attempt := &models.ExamResult{
		ExamID:    examID,
		UserID:    userID,
		StartTime: now,
		Status:    models.AttemptInProgress,
	}

	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrAttemptAlreadyInProgress
		}
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.Info("Exam attempt started",
		"attempt_id", attempt.ID,
		"exam_id", examID,
		"user_id", userID)

	return attempt, nil
}

func (s *admissionService) GetCurrentAttempt(ctx context.Context, examID, userID uint) (*models.ExamResult, error) {
	attempt, err := s.repo.Attempt().GetActive(ctx, examID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNoAttemptInProgress
		}
		return nil, fmt.Errorf("failed to get current attempt: %w", err)
	}

	return attempt, nil
}
