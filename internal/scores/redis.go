package scores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis keeps scores in a single sorted set under Key.
//
// The zset score is `score + unixSeconds/1e10`, so equal scores rank newer first
// and ZREMRANGEBYRANK drops the oldest of the lowest.
type Redis struct {
	client *redis.Client
	key    string
}

type redisMember struct {
	ID         string `json:"id"` // keeps identical records distinct in the set
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
	At         int64  `json:"at"` // unix nanoseconds
}

// NewRedisStore uses client with the fixed Key.
func NewRedisStore(client *redis.Client) *Redis {
	return &Redis{client: client, key: Key}
}

func (r *Redis) Record(ctx context.Context, playerName string, score int, at time.Time) error {
	member, err := json.Marshal(redisMember{
		ID:         uuid.NewString(),
		PlayerName: playerName,
		Score:      score,
		At:         at.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, r.key, redis.Z{Score: rank(score, at), Member: string(member)})
	pipe.ZRemRangeByRank(ctx, r.key, 0, -int64(Cap)-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record: %w", err)
	}
	return nil
}

func (r *Redis) Top(ctx context.Context, n int) ([]Entry, error) {
	members, err := r.client.ZRevRange(ctx, r.key, 0, int64(limit(n))-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis top: %w", err)
	}
	out := make([]Entry, 0, len(members))
	for _, m := range members {
		var rm redisMember
		if err := json.Unmarshal([]byte(m), &rm); err != nil {
			return nil, fmt.Errorf("decode score: %w", err)
		}
		out = append(out, Entry{PlayerName: rm.PlayerName, Score: rm.Score, At: time.Unix(0, rm.At).UTC()})
	}
	return out, nil
}

func (r *Redis) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

func rank(score int, at time.Time) float64 {
	return float64(score) + float64(at.Unix())/1e10
}
