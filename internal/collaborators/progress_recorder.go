package collaborators

import (
	"context"
	"fmt"
	"time"

	"github.com/examstack/exam-engine/internal/events"
	"github.com/examstack/exam-engine/internal/services"
	"github.com/examstack/exam-engine/internal/utils"
)

type progressRecorder struct {
	publisher events.Publisher
	logger    utils.Logger
}

// NewProgressRecorder builds the study-analytics collaborator. Entries are
// published as events; the analytics service downstream owns the durable
// state.
func NewProgressRecorder(publisher events.Publisher, logger utils.Logger) services.ProgressRecorder {
	return &progressRecorder{
		publisher: publisher,
		logger:    logger,
	}
}

func (r *progressRecorder) Record(ctx context.Context, userID uint, studyTimeMinutes, questionsAnswered, correctAnswers int, label string) error {
	event := events.NewStudyEvent(events.EventProgressRecorded, events.ProgressRecordedEvent{
		UserID:            userID,
		StudyTimeMinutes:  studyTimeMinutes,
		QuestionsAnswered: questionsAnswered,
		CorrectAnswers:    correctAnswers,
		Label:             label,
		RecordedAt:        time.Now().UTC(),
	})

	if err := r.publisher.PublishStudyEvent(ctx, event); err != nil {
		return fmt.Errorf("progress recorder: publish: %w", err)
	}

	r.logger.Info("Recorded study session",
		"user_id", userID,
		"questions_answered", questionsAnswered,
		"correct_answers", correctAnswers,
		"label", label)

	return nil
}
