package postgres

import (
	"context"
	"time"

	"github.com/examstack/exam-engine/internal/models"
	"github.com/examstack/exam-engine/internal/repositories"
	"gorm.io/gorm"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a AttemptPostgreSQL) Create(ctx context.Context, attempt *models.ExamResult) error {
	return a.db.WithContext(ctx).Create(attempt).Error
}

func (a AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.ExamResult, error) {
	var attempt models.ExamResult
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}

	return &attempt, nil
}

func (a AttemptPostgreSQL) GetByIDWithRecords(ctx context.Context, id uint) (*models.ExamResult, error) {
	var attempt models.ExamResult
	if err := a.db.WithContext(ctx).
		Preload("Records").
		First(&attempt, id).Error; err != nil {
		return nil, err
	}

	return &attempt, nil
}

func (a AttemptPostgreSQL) GetActive(ctx context.Context, examID, userID uint) (*models.ExamResult, error) {
	var attempt models.ExamResult
	if err := a.db.WithContext(ctx).
		Where("exam_id = ? AND user_id = ? AND status = ?", examID, userID, models.AttemptInProgress).
		First(&attempt).Error; err != nil {
		return nil, err
	}

	return &attempt, nil
}

func (a AttemptPostgreSQL) ListByUser(ctx context.Context, userID uint, filters repositories.AttemptFilters) ([]*models.ExamResult, int64, error) {
	var attempts []*models.ExamResult
	var total int64

	query := a.db.WithContext(ctx).Model(&models.ExamResult{}).Where("user_id = ?", userID)
	query = applyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a AttemptPostgreSQL) CreateAnswerRecords(ctx context.Context, records []models.AnswerRecord) error {
	if len(records) == 0 {
		return nil
	}
	return a.db.WithContext(ctx).Create(&records).Error
}

// Finalize updates the attempt only while it is still in progress, so a
// concurrent or repeated submit cannot overwrite a terminal row.
func (a AttemptPostgreSQL) Finalize(ctx context.Context, attempt *models.ExamResult) error {
	res := a.db.WithContext(ctx).Model(&models.ExamResult{}).
		Where("id = ? AND status = ?", attempt.ID, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":      models.AttemptSubmitted,
			"score":       attempt.Score,
			"submit_time": attempt.SubmitTime,
			"answers":     attempt.Answers,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (a AttemptPostgreSQL) GetAnswerRecords(ctx context.Context, attemptID uint) ([]models.AnswerRecord, error) {
	var records []models.AnswerRecord
	if err := a.db.WithContext(ctx).
		Where("exam_result_id = ?", attemptID).
		Order("question_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// applyAttemptFilters applies common filters to a query
func applyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	return query
}

// applyPaginationAndSort applies pagination and sorting to a query
func applyPaginationAndSort(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	sortBy := filters.SortBy
	switch sortBy {
	case "submit_time", "score", "created_at":
	default:
		sortBy = "created_at"
	}
	order := "DESC"
	if filters.SortOrder == "asc" {
		order = "ASC"
	}
	query = query.Order(sortBy + " " + order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
