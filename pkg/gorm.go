package pkg

import (
	"fmt"

	"github.com/examstack/exam-engine/internal/config"
	"github.com/examstack/exam-engine/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// Surface unique violations as gorm.ErrDuplicatedKey; admission
		// relies on this to detect the losing concurrent start.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Migrate creates the schema plus the partial unique index that enforces
// the single-active-attempt invariant. AutoMigrate cannot express a partial
// index, so it is created with raw SQL.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Question{},
		&models.Exam{},
		&models.ExamQuestion{},
		&models.ExamResult{},
		&models.AnswerRecord{},
		&models.MistakeEntry{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_exam_results_active
		 ON exam_results (exam_id, user_id)
		 WHERE status = 'in_progress'`,
	).Error; err != nil {
		return fmt.Errorf("create active attempt index: %w", err)
	}

	return nil
}
