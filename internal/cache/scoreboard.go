package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ScoreBoard ranks learners of a quiz by their latest submission total.
type ScoreBoard interface {
	Record(ctx context.Context, quizID, learnerID string, total float64) error
	Top(ctx context.Context, quizID string, n int) ([]Entry, error)
	Rank(ctx context.Context, quizID, learnerID string) (int64, error)
}

type Entry struct {
	LearnerID string  `json:"learner_id"`
	Total     float64 `json:"total"`
	Rank      int     `json:"rank"`
}

type redisScoreBoard struct {
	client *redis.Client
}

func NewRedisScoreBoard(client *redis.Client) ScoreBoard {
	return &redisScoreBoard{client: client}
}

func (c *redisScoreBoard) key(quizID string) string {
	return fmt.Sprintf("quiz:%s:scores", quizID)
}

func (c *redisScoreBoard) Record(ctx context.Context, quizID, learnerID string, total float64) error {
	return c.client.ZAdd(ctx, c.key(quizID), redis.Z{
		Score:  total,
		Member: learnerID,
	}).Err()
}

func (c *redisScoreBoard) Top(ctx context.Context, quizID string, n int) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(quizID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		entries[i] = Entry{
			LearnerID: member,
			Total:     z.Score,
			Rank:      i + 1,
		}
	}
	return entries, nil
}

// Rank is 1-indexed; -1 means the learner has no recorded total.
func (c *redisScoreBoard) Rank(ctx context.Context, quizID, learnerID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(quizID), learnerID).Result()
	if errors.Is(err, redis.Nil) {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	return rank + 1, nil
}

// Nop is used when no Redis is configured.
type Nop struct{}

func (Nop) Record(context.Context, string, string, float64) error { return nil }
func (Nop) Top(context.Context, string, int) ([]Entry, error)     { return []Entry{}, nil }
func (Nop) Rank(context.Context, string, string) (int64, error)   { return -1, nil }
