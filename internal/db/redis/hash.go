package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/unisearch/internal/db"
)

// HGetAllMulti fetches all fields for multiple hashes in a single DoMulti round-trip.
// Missing keys yield empty maps at their position.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]map[string]string, len(results))

	for i, res := range results {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		out[i] = m
	}

	return out, nil
}

// HMGetMulti reads one field from many hashes in a single DoMulti round-trip.
// Keys without the field yield "" at their position.
func (s *Store) HMGetMulti(ctx context.Context, keys []string, field string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hmget().Key(key).Field(field).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]string, len(results))
	for i, res := range results {
		vals, err := res.ToArray()
		if err != nil {
			return nil, &db.Error{Op: db.OpHMGet, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		if len(vals) == 0 || vals[0].IsNil() {
			continue
		}
		v, err := vals[0].ToString()
		if err != nil {
			return nil, &db.Error{Op: db.OpHMGet, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		out[i] = v
	}
	return out, nil
}

// Scan iterates keys matching a pattern.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(100).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}
