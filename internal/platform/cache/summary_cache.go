// Package cache keeps rendered seller dashboards in Redis. Entries are JSON,
// grouped per seller so one delete drops every variant.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "ledger:dashboard:"

type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewSummaryCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *SummaryCache {
	return &SummaryCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func sellerKey(sellerID uuid.UUID) string {
	return keyPrefix + sellerID.String()
}

// Get decodes the cached dashboard for the window into dst and reports whether
// one was found.
func (c *SummaryCache) Get(ctx context.Context, sellerID uuid.UUID, months int, dst any) (bool, error) {
	data, err := c.client.HGet(ctx, sellerKey(sellerID), strconv.Itoa(months)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		c.logger.Warn("Failed to read dashboard cache", "seller_id", sellerID.String(), "error", err)
		return false, fmt.Errorf("failed to read dashboard cache: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		// a stale layout is treated as a miss
		c.logger.Warn("Discarding undecodable dashboard cache entry", "seller_id", sellerID.String(), "error", err)
		return false, nil
	}
	return true, nil
}

func (c *SummaryCache) Set(ctx context.Context, sellerID uuid.UUID, months int, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard: %w", err)
	}

	key := sellerKey(sellerID)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, strconv.Itoa(months), data)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn("Failed to write dashboard cache", "seller_id", sellerID.String(), "error", err)
		return fmt.Errorf("failed to write dashboard cache: %w", err)
	}
	return nil
}

// Invalidate drops every cached window of the seller.
func (c *SummaryCache) Invalidate(ctx context.Context, sellerID uuid.UUID) error {
	if err := c.client.Del(ctx, sellerKey(sellerID)).Err(); err != nil {
		c.logger.Warn("Failed to invalidate dashboard cache", "seller_id", sellerID.String(), "error", err)
		return fmt.Errorf("failed to invalidate dashboard cache: %w", err)
	}
	return nil
}
