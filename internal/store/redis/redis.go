// Package redis persists the tree in Redis, one key per node under a common
// prefix. Subtree reads and deletes walk matching keys with SCAN.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"timelog/internal/store"
)

const keyPrefix = "timelog:"

type Store struct {
	client *redis.Client
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

func New(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Read(ctx context.Context, path string) (store.Snapshot, error) {
	if err := store.ValidatePath(path); err != nil {
		return store.Snapshot{}, err
	}

	value, err := s.client.Get(ctx, keyPrefix+path).Result()
	switch {
	case err == nil:
		return store.NewSnapshot(json.RawMessage(value)), nil
	case err != redis.Nil:
		return store.Snapshot{}, fmt.Errorf("read node %s: %w", path, err)
	}

	children := make(map[string]json.RawMessage)
	iter := s.client.Scan(ctx, 0, scanPattern(path), 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		v, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return store.Snapshot{}, fmt.Errorf("read subtree node %s: %w", key, err)
		}
		rel := strings.TrimPrefix(key, keyPrefix+path+"/")
		children[rel] = json.RawMessage(v)
	}
	if err := iter.Err(); err != nil {
		return store.Snapshot{}, fmt.Errorf("scan subtree %s: %w", path, err)
	}

	raw, err := store.Assemble(children)
	if err != nil {
		return store.Snapshot{}, err
	}
	return store.NewSnapshot(raw), nil
}

func (s *Store) Write(ctx context.Context, path string, value any) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", path, err)
	}

	// Full-subtree replace: descendants first, then the node itself.
	if err := s.deleteSubtree(ctx, path); err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+path, string(raw), 0).Err(); err != nil {
		return fmt.Errorf("write node %s: %w", path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}
	if err := s.client.Del(ctx, keyPrefix+path).Err(); err != nil {
		return fmt.Errorf("delete node %s: %w", path, err)
	}
	return s.deleteSubtree(ctx, path)
}

func (s *Store) deleteSubtree(ctx context.Context, path string) error {
	iter := s.client.Scan(ctx, 0, scanPattern(path), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan subtree %s: %w", path, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete subtree %s: %w", path, err)
	}
	return nil
}

// scanPattern matches strict descendants of path, escaping the glob
// metacharacters SCAN honors.
func scanPattern(path string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`).Replace(keyPrefix + path)
	return escaped + "/*"
}
