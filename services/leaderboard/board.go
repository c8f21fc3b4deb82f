package leaderboard

import (
	"context"
	"errors"

	"habitquest/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// Standing is a student's position on a campaign board. Position is 1-based.
type Standing struct {
	StudentID string `json:"student_id"`
	Points    int64  `json:"points"`
	Position  int64  `json:"position"`
}

// Board keeps per-campaign point totals in redis sorted sets.
type Board struct {
	rdb redis.Cmdable
}

type Params struct {
	fx.In

	Redis *redis.Client
}

func NewBoard(p Params) *Board {
	return &Board{rdb: p.Redis}
}

func (b *Board) Add(ctx context.Context, campaignID, studentID string, points int64) error {
	return b.rdb.ZIncrBy(ctx, rediskey.BuildLeaderboardKey(campaignID), float64(points), studentID).Err()
}

func (b *Board) Top(ctx context.Context, campaignID string, n int64) ([]Standing, error) {
	if n <= 0 {
		return nil, nil
	}

	members, err := b.rdb.ZRevRangeWithScores(ctx, rediskey.BuildLeaderboardKey(campaignID), 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Standing, 0, len(members))
	for i, m := range members {
		id, _ := m.Member.(string)
		out = append(out, Standing{StudentID: id, Points: int64(m.Score), Position: int64(i) + 1})
	}
	return out, nil
}

// Position returns the standing of one student, or nil when absent.
func (b *Board) Position(ctx context.Context, campaignID, studentID string) (*Standing, error) {
	key := rediskey.BuildLeaderboardKey(campaignID)

	rank, err := b.rdb.ZRevRank(ctx, key, studentID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	score, err := b.rdb.ZScore(ctx, key, studentID).Result()
	if err != nil {
		return nil, err
	}
	return &Standing{StudentID: studentID, Points: int64(score), Position: rank + 1}, nil
}
