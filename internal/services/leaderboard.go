package services

import (
	"context"
	"sort"
	"time"

	"minicode/internal/logger"
	"minicode/internal/models"
	"minicode/internal/repositories"

	"go.uber.org/zap"
)

const (
	leaderboardCacheKey = "leaderboard"
	leaderboardCacheTTL = 60 * time.Second
)

// LeaderboardService ranks users by the sum of their best accepted score
// per problem. Rankings are cached briefly; the leaderboard tolerates
// slight staleness but not dirty reads, and the underlying query only sees
// terminal submissions.
type LeaderboardService struct {
	subs  repositories.SubmissionRepository
	cache Cache
}

func NewLeaderboardService(subs repositories.SubmissionRepository, cache Cache) *LeaderboardService {
	return &LeaderboardService{subs: subs, cache: cache}
}

func (s *LeaderboardService) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var cached []models.LeaderboardEntry
	if err := s.cache.Get(ctx, leaderboardCacheKey, &cached); err == nil {
		return cached, nil
	}

	rows, err := s.subs.GetAcceptedRows(ctx)
	if err != nil {
		return nil, err
	}

	entries := Rank(rows)

	if err := s.cache.Set(ctx, leaderboardCacheKey, entries, leaderboardCacheTTL); err != nil {
		logger.Log.Warn("Failed to cache leaderboard", zap.Error(err))
	}
	return entries, nil
}

// Rank aggregates accepted submissions into ranked leaderboard entries:
// per user, the best score of each distinct problem is summed. Users with a
// zero total are omitted.
func Rank(rows []models.LeaderboardRow) []models.LeaderboardEntry {
	type userAgg struct {
		row    models.LeaderboardRow
		scores map[int]int
	}
	users := make(map[int]*userAgg)

	for _, row := range rows {
		agg, ok := users[row.UserID]
		if !ok {
			agg = &userAgg{row: row, scores: make(map[int]int)}
			users[row.UserID] = agg
		}
		score := 0
		if row.Score != nil {
			score = *row.Score
		}
		if best, ok := agg.scores[row.ProblemID]; !ok || score > best {
			agg.scores[row.ProblemID] = score
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(users))
	for _, agg := range users {
		total := 0
		for _, score := range agg.scores {
			total += score
		}
		if total == 0 {
			continue
		}
		name := agg.row.Username
		if agg.row.FullName != nil && *agg.row.FullName != "" {
			name = *agg.row.FullName
		}
		entries = append(entries, models.LeaderboardEntry{
			ID:       agg.row.UserID,
			Name:     name,
			Username: agg.row.Username,
			Score:    total,
			Problems: len(agg.scores),
			Avatar:   agg.row.AvatarURL,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Username < entries[j].Username
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
