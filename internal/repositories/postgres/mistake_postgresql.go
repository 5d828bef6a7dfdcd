package postgres

import (
	"context"

	"github.com/examstack/exam-engine/internal/models"
	"github.com/examstack/exam-engine/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MistakePostgreSQL struct {
	db *gorm.DB
}

func NewMistakePostgreSQL(db *gorm.DB) repositories.MistakeRepository {
	return &MistakePostgreSQL{db: db}
}

// Upsert records a missed question, bumping miss_count on repeats.
func (m MistakePostgreSQL) Upsert(ctx context.Context, entry *models.MistakeEntry) error {
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "question_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"miss_count":     gorm.Expr("mistake_entries.miss_count + 1"),
			"wrong_answer":   entry.WrongAnswer,
			"exam_id":        entry.ExamID,
			"last_missed_at": entry.LastMissedAt,
		}),
	}).Create(entry).Error
}

func (m MistakePostgreSQL) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.MistakeEntry, error) {
	var entries []*models.MistakeEntry
	query := m.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_missed_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
