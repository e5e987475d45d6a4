// Package redisstore implements the pending store on Redis. Each request is
// a JSON value whose TTL matches its expiry, indexed by a sorted set on
// creation time.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nextlevelbuilder/msgauth/internal/store"
)

const defaultPrefix = "msgauth:"

// PendingStore implements store.PendingStore backed by Redis.
type PendingStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// Open parses a redis:// URL and verifies the connection.
func Open(ctx context.Context, url, prefix string) (*PendingStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Debug("redis connected", "addr", opts.Addr, "db", opts.DB)
	return New(rdb, prefix), nil
}

// New wraps an existing client.
func New(rdb redis.UniversalClient, prefix string) *PendingStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &PendingStore{rdb: rdb, prefix: prefix}
}

func (s *PendingStore) indexKey() string { return s.prefix + "pending" }

func (s *PendingStore) itemKey(id string) string { return s.prefix + "pending:" + id }

func (s *PendingStore) Save(ctx context.Context, req store.PendingRequest) error {
	if err := store.ValidateRequestID(req.RequestID); err != nil {
		return err
	}
	ttl := time.Until(time.UnixMilli(req.ExpiresAt))
	if ttl <= 0 {
		// Already expired: make sure no stale copy survives.
		_, err := s.remove(ctx, req.RequestID)
		return err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal pending request: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.itemKey(req.RequestID), data, ttl)
		p.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(req.CreatedAt), Member: req.RequestID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save pending request: %w", err)
	}
	return nil
}

func (s *PendingStore) Get(ctx context.Context, requestID string) (*store.PendingRequest, error) {
	data, err := s.rdb.Get(ctx, s.itemKey(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending request: %w", err)
	}
	var p store.PendingRequest
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pending request: %w", err)
	}
	return &p, nil
}

func (s *PendingStore) Latest(ctx context.Context) (*store.PendingRequest, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.ErrNotFound
	}
	return &list[0], nil
}

// List resolves the index and drops members whose value has expired.
func (s *PendingStore) List(ctx context.Context) ([]store.PendingRequest, error) {
	ids, err := s.rdb.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending index: %w", err)
	}
	result := []store.PendingRequest{}
	if len(ids) == 0 {
		return result, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.itemKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load pending requests: %w", err)
	}

	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var p store.PendingRequest
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			slog.Warn("skipping undecodable pending request", "request_id", ids[i], "error", err)
			continue
		}
		result = append(result, p)
	}
	if len(stale) > 0 {
		if err := s.rdb.ZRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			slog.Warn("prune pending index failed", "backend", "redis", "error", err)
		}
	}
	return result, nil
}

func (s *PendingStore) Delete(ctx context.Context, requestID string) error {
	n, err := s.remove(ctx, requestID)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PendingStore) Close() error { return s.rdb.Close() }

func (s *PendingStore) remove(ctx context.Context, requestID string) (int64, error) {
	var del *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.Del(ctx, s.itemKey(requestID))
		p.ZRem(ctx, s.indexKey(), requestID)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete pending request: %w", err)
	}
	return del.Val(), nil
}
