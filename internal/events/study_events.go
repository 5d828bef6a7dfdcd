package events

import (
	"time"
)

// EventType identifies the study-activity events emitted after a submission
// commits.
type EventType string

const (
	EventAttemptSubmitted    EventType = "attempt.submitted"
	EventProgressRecorded    EventType = "progress.recorded"
	EventAchievementUnlocked EventType = "achievement.unlocked"
)

// StudyEvent is the envelope for all study-activity events
type StudyEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type AttemptSubmittedEvent struct {
	AttemptID   uint      `json:"attempt_id"`
	ExamID      uint      `json:"exam_id"`
	UserID      uint      `json:"user_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	Score       float64   `json:"score"`
	TotalScore  float64   `json:"total_score"`
	Passed      bool      `json:"passed"`
}

// ProgressRecordedEvent is the coarse study-session entry the
// progress-recorder collaborator emits per graded attempt.
type ProgressRecordedEvent struct {
	UserID            uint      `json:"user_id"`
	StudyTimeMinutes  int       `json:"study_time_minutes"`
	QuestionsAnswered int       `json:"questions_answered"`
	CorrectAnswers    int       `json:"correct_answers"`
	Label             string    `json:"label"`
	RecordedAt        time.Time `json:"recorded_at"`
}

type AchievementUnlockedEvent struct {
	UserID      uint      `json:"user_id"`
	Achievement string    `json:"achievement"`
	Leaderboard string    `json:"leaderboard"`
	Rank        int64     `json:"rank"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}
