package collaborators

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/examstack/exam-engine/internal/events"
	"github.com/examstack/exam-engine/internal/services"
	"github.com/examstack/exam-engine/internal/utils"
	"github.com/redis/go-redis/v9"
)

// Rank-based achievements, best rank first
var rankAchievements = []struct {
	Name    string
	MaxRank int64 // zero-based rank on the score leaderboard
}{
	{"top_1", 0},
	{"top_10", 9},
	{"top_100", 99},
}

type rankingService struct {
	client    *redis.Client
	publisher events.Publisher
	logger    utils.Logger
}

// NewRankingService builds the leaderboard collaborator on redis sorted
// sets. The raw-score board accumulates, the accuracy board keeps the
// latest value.
func NewRankingService(client *redis.Client, publisher events.Publisher, logger utils.Logger) services.RankingService {
	return &rankingService{
		client:    client,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *rankingService) UpdateRanking(ctx context.Context, leaderboardID string, userID uint, value float64) error {
	key := leaderboardKey(leaderboardID)
	member := memberKey(userID)

	var err error
	switch leaderboardID {
	case services.LeaderboardScore:
		err = s.client.ZIncrBy(ctx, key, value, member).Err()
	default:
		err = s.client.ZAdd(ctx, key, redis.Z{Score: value, Member: member}).Err()
	}
	if err != nil {
		return fmt.Errorf("ranking: update %s for user %d: %w", leaderboardID, userID, err)
	}

	s.logger.Debug("Updated leaderboard",
		"leaderboard", leaderboardID,
		"user_id", userID,
		"value", value)

	return nil
}

// CheckAchievements reads the learner's rank on the score leaderboard and
// unlocks any rank-based achievement not yet held. Unlocks are deduplicated
// in a per-user set and announced as events.
func (s *rankingService) CheckAchievements(ctx context.Context, userID uint) error {
	key := leaderboardKey(services.LeaderboardScore)
	member := memberKey(userID)

	rank, err := s.client.ZRevRank(ctx, key, member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// not ranked yet, nothing to unlock
			return nil
		}
		return fmt.Errorf("ranking: rank for user %d: %w", userID, err)
	}

	unlockedKey := fmt.Sprintf("achievements:%d", userID)
	for _, achievement := range rankAchievements {
		if rank > achievement.MaxRank {
			continue
		}

		added, err := s.client.SAdd(ctx, unlockedKey, achievement.Name).Result()
		if err != nil {
			return fmt.Errorf("ranking: unlock %s: %w", achievement.Name, err)
		}
		if added == 0 {
			continue // already held
		}

		s.logger.Info("Achievement unlocked",
			"user_id", userID,
			"achievement", achievement.Name,
			"rank", rank)

		event := events.NewStudyEvent(events.EventAchievementUnlocked, events.AchievementUnlockedEvent{
			UserID:      userID,
			Achievement: achievement.Name,
			Leaderboard: services.LeaderboardScore,
			Rank:        rank,
			UnlockedAt:  time.Now().UTC(),
		})
		if err := s.publisher.PublishStudyEvent(ctx, event); err != nil {
			// the unlock itself is already durable
			s.logger.Warn("Failed to publish achievement event",
				"user_id", userID,
				"achievement", achievement.Name,
				"error", err)
		}
	}

	return nil
}

func leaderboardKey(leaderboardID string) string {
	return "leaderboard:" + leaderboardID
}

func memberKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}
