package tree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event is published on the events channel for every write, inside the same
// MULTI as the write itself. Listeners see one event per landed write, so a
// value rewritten twice yields two events.
type Event struct {
	Op     string   `json:"op"`
	Path   string   `json:"path"`
	Fields []string `json:"fields,omitempty"`
	At     int64    `json:"at"`
}

// Redis stores each node as a hash under prefix+path; hash fields are child
// names and hash values are JSON documents.
type Redis struct {
	client     redis.UniversalClient
	prefix     string
	channel    string
	maxRetries int
}

type RedisOption func(*Redis)

// WithEventsChannel enables change events. An empty channel disables them.
func WithEventsChannel(channel string) RedisOption {
	return func(r *Redis) { r.channel = channel }
}

// WithMaxRetries bounds UpdateIf retries after a concurrent modification.
func WithMaxRetries(n int) RedisOption {
	return func(r *Redis) {
		if n > 0 {
			r.maxRetries = n
		}
	}
}

func NewRedis(client redis.UniversalClient, prefix string, opts ...RedisOption) *Redis {
	r := &Redis{
		client:     client,
		prefix:     prefix,
		maxRetries: 5,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(path string) string {
	return r.prefix + path
}

func (r *Redis) Get(ctx context.Context, path string) (Node, error) {
	vals, err := r.client.HGetAll(ctx, r.key(path)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}
	node := make(Node, len(vals))
	for k, v := range vals {
		node[k] = json.RawMessage(v)
	}
	return node, nil
}

func (r *Redis) Set(ctx context.Context, path string, fields map[string]any) error {
	encoded, err := encodeFields(fields)
	if err != nil {
		return err
	}
	key := r.key(path)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(encoded) > 0 {
			pipe.HSet(ctx, key, encoded)
		}
		r.publish(ctx, pipe, "set", path, encoded)
		return nil
	})
	if err != nil {
		return fmt.Errorf("setting %s: %w", path, err)
	}
	return nil
}

func (r *Redis) Update(ctx context.Context, path string, fields map[string]any) error {
	encoded, err := encodeFields(fields)
	if err != nil {
		return err
	}
	if len(encoded) == 0 {
		return nil
	}
	key := r.key(path)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, encoded)
		r.publish(ctx, pipe, "update", path, encoded)
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating %s: %w", path, err)
	}
	return nil
}

func (r *Redis) Push(ctx context.Context, path string, fields map[string]any) (string, error) {
	key := NewKey()
	if err := r.Set(ctx, path+"/"+key, fields); err != nil {
		return "", err
	}
	return key, nil
}

func (r *Redis) UpdateIf(ctx context.Context, path, field string, cond Condition, fields map[string]any) (bool, error) {
	encoded, err := encodeFields(fields)
	if err != nil {
		return false, err
	}
	key := r.key(path)

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		applied := false
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			var current json.RawMessage
			v, err := tx.HGet(ctx, key, field).Result()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				current = json.RawMessage(v)
			}
			if !cond(current) {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, encoded)
				r.publish(ctx, pipe, "update", path, encoded)
				return nil
			})
			if err == nil {
				applied = true
			}
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("conditionally updating %s: %w", path, err)
		}
		return applied, nil
	}
	return false, ErrContention
}

func (r *Redis) publish(ctx context.Context, pipe redis.Pipeliner, op, path string, encoded map[string]any) {
	if r.channel == "" {
		return
	}
	names := make([]string, 0, len(encoded))
	for k := range encoded {
		names = append(names, k)
	}
	sort.Strings(names)
	payload, err := json.Marshal(Event{Op: op, Path: path, Fields: names, At: time.Now().UnixMilli()})
	if err != nil {
		return
	}
	pipe.Publish(ctx, r.channel, payload)
}
