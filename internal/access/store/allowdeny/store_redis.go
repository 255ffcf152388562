package allowdeny

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"custodia/internal/access/models"
	"custodia/pkg/domain"
)

const (
	// Redis key holding the list membership set.
	listSetKey = "custodia:compliance:list"
	// Hash keyed by account holding entry metadata for audit reads.
	listMetaKey = "custodia:compliance:list:meta"
)

// RedisListStore is a Redis-backed compliance list. Intended for deployments
// where the read path (transfer gating) runs on several instances while
// writes stay serialized through the sequencer.
//
// Pagination order is the sorted-set score (insertion time), which matches
// the memory store's insertion order for monotonic clocks.
type RedisListStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed list store.
func NewRedis(client *redis.Client) *RedisListStore {
	return &RedisListStore{client: client}
}

func (s *RedisListStore) Add(ctx context.Context, entry models.ListEntry) error {
	member := entry.Account.String()
	pipe := s.client.TxPipeline()
	pipe.ZAddNX(ctx, listSetKey, redis.Z{Score: float64(entry.AddedAt.UnixNano()), Member: member})
	pipe.HSet(ctx, listMetaKey, member, entry.AddedBy.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add list entry: %w", err)
	}
	return nil
}

func (s *RedisListStore) Remove(ctx context.Context, account domain.AccountID) error {
	member := account.String()
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, listSetKey, member)
	pipe.HDel(ctx, listMetaKey, member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove list entry: %w", err)
	}
	return nil
}

func (s *RedisListStore) Contains(ctx context.Context, account domain.AccountID) (bool, error) {
	err := s.client.ZScore(ctx, listSetKey, account.String()).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check list entry: %w", err)
	}
	return true, nil
}

func (s *RedisListStore) List(ctx context.Context, offset, limit int) ([]models.ListEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	zs, err := s.client.ZRangeWithScores(ctx, listSetKey, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	out := make([]models.ListEntry, 0, len(zs))
	for _, z := range zs {
		raw, ok := z.Member.(string)
		if !ok {
			continue
		}
		account, err := domain.ParseAccountID(raw)
		if err != nil {
			continue
		}
		out = append(out, models.ListEntry{
			Account: account,
			AddedAt: time.Unix(0, int64(z.Score)),
		})
	}
	return out, nil
}
