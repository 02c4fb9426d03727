package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kakrote/udyam-registration-app/internal/location/models"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/sentinel"
)

const redisKeyPrefix = "udyam:pincode:"

// RedisStore keeps records as JSON values with no expiry.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisRecord struct {
	City       string    `json:"city"`
	District   string    `json:"district"`
	State      string    `json:"state"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

func (s *RedisStore) Get(ctx context.Context, code models.PostalCode) (*models.LocationRecord, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+code.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("redis get postal code: %w", err)
	}
	var r redisRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode cached postal code: %w", err)
	}
	return &models.LocationRecord{
		PostalCode: code,
		City:       r.City,
		District:   r.District,
		State:      r.State,
		Source:     models.SourceCache,
		ResolvedAt: r.ResolvedAt,
	}, nil
}

func (s *RedisStore) PutIfAbsent(ctx context.Context, rec models.LocationRecord) (bool, error) {
	raw, err := json.Marshal(redisRecord{
		City:       rec.City,
		District:   rec.District,
		State:      rec.State,
		ResolvedAt: rec.ResolvedAt,
	})
	if err != nil {
		return false, fmt.Errorf("encode postal code: %w", err)
	}
	stored, err := s.client.SetNX(ctx, redisKeyPrefix+rec.PostalCode.String(), raw, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx postal code: %w", err)
	}
	return stored, nil
}
