package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/examstack/exam-engine/internal/cache"
	"github.com/examstack/exam-engine/internal/repositories"
	"github.com/examstack/exam-engine/internal/utils"
)

const examSnapshotTTL = 5 * time.Minute

type catalogService struct {
	repo   repositories.Repository
	cache  cache.CacheService
	logger utils.Logger
}

// NewCatalogService creates the exam catalog read path. cache may be nil,
// in which case every read hits the database.
func NewCatalogService(repo repositories.Repository, cacheService cache.CacheService, logger utils.Logger) CatalogService {
	return &catalogService{
		repo:   repo,
		cache:  cacheService,
		logger: logger,
	}
}

func (s *catalogService) GetExamSnapshot(ctx context.Context, examID uint) (*ExamSnapshot, error) {
	key := examSnapshotKey(examID)

	if s.cache != nil {
		var cached ExamSnapshot
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			// Cache trouble degrades to the database, never to a failure.
			s.logger.Warn("Exam snapshot cache read failed", "exam_id", examID, "error", err)
		}
	}

	exam, bindings, err := s.repo.Exam().GetWithQuestions(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	snapshot := &ExamSnapshot{
		ExamID:     exam.ID,
		Title:      exam.Title,
		Duration:   exam.Duration,
		StartTime:  exam.StartTime,
		EndTime:    exam.EndTime,
		TotalScore: exam.TotalScore,
		PassScore:  exam.PassScore,
		Status:     exam.Status,
		Questions:  make([]QuestionEntry, 0, len(bindings)),
	}

	for _, b := range bindings {
		snapshot.Questions = append(snapshot.Questions, QuestionEntry{
			QuestionID:    b.QuestionID,
			Type:          b.Question.Type,
			CorrectAnswer: b.Question.CorrectAnswer,
			Score:         b.Question.Score,
			Order:         b.Order,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, snapshot, examSnapshotTTL); err != nil {
			s.logger.Warn("Exam snapshot cache write failed", "exam_id", examID, "error", err)
		}
	}

	return snapshot, nil
}

func examSnapshotKey(examID uint) string {
	return fmt.Sprintf("exam:snapshot:%d", examID)
}
