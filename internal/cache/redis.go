package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lotusair/booking/config"
	"github.com/lotusair/booking/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client    *redis.Client
	searchTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, searchTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		searchTTL: searchTTL,
	}
}

func (c *RedisCache) GetSearch(ctx context.Context, key string) ([]domain.FlightQuote, error) {
	data, err := c.client.Get(ctx, searchKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var quotes []domain.FlightQuote
	if err := json.Unmarshal(data, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

func (c *RedisCache) SetSearch(ctx context.Context, key string, quotes []domain.FlightQuote) error {
	payload, err := json.Marshal(quotes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, searchKey(key), payload, c.searchTTL).Err()
}

// AcquireSeatHold takes a short-lived hold on a seat for a draft.
// SetNX makes the first holder win; the value records the owner so a
// commit can verify the hold is still the draft's own.
func (c *RedisCache) AcquireSeatHold(ctx context.Context, flightID, seatID int64, draftID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, holdKey(flightID, seatID), draftID, ttl).Result()
}

func (c *RedisCache) ReleaseSeatHold(ctx context.Context, flightID, seatID int64, draftID string) error {
	key := holdKey(flightID, seatID)
	owner, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}
	if owner != draftID {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) SeatHoldOwner(ctx context.Context, flightID, seatID int64) (string, error) {
	owner, err := c.client.Get(ctx, holdKey(flightID, seatID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return owner, err
}

// HeldSeats lists seat ids with an active hold on the flight, for
// annotating the seat map.
func (c *RedisCache) HeldSeats(ctx context.Context, flightID int64) (map[int64]bool, error) {
	held := make(map[int64]bool)
	prefix := fmt.Sprintf("hold:flight:%d:seat:", flightID)
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		seatID, err := strconv.ParseInt(strings.TrimPrefix(iter.Val(), prefix), 10, 64)
		if err == nil {
			held[seatID] = true
		}
	}
	return held, iter.Err()
}

// SeatHolds enumerates every active hold with its owning draft, for
// the worker's orphan sweep.
func (c *RedisCache) SeatHolds(ctx context.Context) ([]domain.SeatHold, error) {
	var holds []domain.SeatHold
	iter := c.client.Scan(ctx, 0, "hold:flight:*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		var flightID, seatID int64
		if _, err := fmt.Sscanf(key, "hold:flight:%d:seat:%d", &flightID, &seatID); err != nil {
			continue
		}
		owner, err := c.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		holds = append(holds, domain.SeatHold{FlightID: flightID, SeatID: seatID, DraftID: owner})
	}
	return holds, iter.Err()
}

func (c *RedisCache) SaveDraft(ctx context.Context, draft *domain.Draft) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	ttl := time.Until(draft.ExpiresAt)
	if ttl <= 0 {
		return domain.NewError(domain.KindGone, "draft has expired")
	}
	return c.client.Set(ctx, draftKey(draft.ID), payload, ttl).Err()
}

func (c *RedisCache) GetDraft(ctx context.Context, id string) (*domain.Draft, error) {
	data, err := c.client.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.NewError(domain.KindGone, "draft not found or expired")
		}
		return nil, err
	}

	var draft domain.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func (c *RedisCache) DeleteDraft(ctx context.Context, id string) error {
	return c.client.Del(ctx, draftKey(id)).Err()
}

// Action tokens back email verification and password reset links.
func (c *RedisCache) SetActionToken(ctx context.Context, kind, token string, memberID int64, ttl time.Duration) error {
	return c.client.Set(ctx, tokenKey(kind, token), memberID, ttl).Err()
}

func (c *RedisCache) GetActionToken(ctx context.Context, kind, token string) (int64, error) {
	id, err := c.client.Get(ctx, tokenKey(kind, token)).Int64()
	if err == redis.Nil {
		return 0, domain.NewError(domain.KindGone, "link is invalid or has expired")
	}
	return id, err
}

func (c *RedisCache) DeleteActionToken(ctx context.Context, kind, token string) error {
	return c.client.Del(ctx, tokenKey(kind, token)).Err()
}

func searchKey(key string) string {
	return "cache:search:" + key
}

func holdKey(flightID, seatID int64) string {
	return fmt.Sprintf("hold:flight:%d:seat:%d", flightID, seatID)
}

func draftKey(id string) string {
	return "draft:" + id
}

func tokenKey(kind, token string) string {
	return fmt.Sprintf("token:%s:%s", kind, token)
}
