// Package session keeps the staged resequencing work of each document in
// Redis so it survives a restart of the API.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"binder/api/internal/outline"
)

const defaultTTL = 24 * time.Hour

// Entry is one staged move.
type Entry struct {
	Move  outline.Move `json:"move"`
	Actor string       `json:"actor"`
	At    time.Time    `json:"at"`
}

// Draft is the staged state of one document. Base fingerprints the live
// outline the moves were staged against.
type Draft struct {
	Actor     string    `json:"actor"`
	Base      string    `json:"base"`
	StartedAt time.Time `json:"started_at"`
	Entries   []Entry   `json:"-"`
}

// Moves returns the staged moves in the order they were accepted.
func (d Draft) Moves() []outline.Move {
	moves := make([]outline.Move, 0, len(d.Entries))
	for _, e := range d.Entries {
		moves = append(moves, e.Move)
	}
	return moves
}

// RedisStore implements the draft journal using Redis
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed draft journal
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: "draft:",
		ttl:    ttl,
	}
}

func (s *RedisStore) movesKey(documentID string) string {
	return s.prefix + documentID
}

func (s *RedisStore) metaKey(documentID string) string {
	return s.prefix + documentID + ":meta"
}

// Begin marks documentID as resequencing and drops any older journal.
func (s *RedisStore) Begin(ctx context.Context, documentID, actor, base string) error {
	meta, err := json.Marshal(Draft{Actor: actor, Base: base, StartedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.movesKey(documentID))
		pipe.Set(ctx, s.metaKey(documentID), meta, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("begin draft: %w", err)
	}
	return nil
}

// Append records a staged move and refreshes the journal's expiry.
func (s *RedisStore) Append(ctx context.Context, documentID string, entry Entry) error {
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal draft entry: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.movesKey(documentID), data)
		pipe.Expire(ctx, s.movesKey(documentID), s.ttl)
		pipe.Expire(ctx, s.metaKey(documentID), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append draft entry: %w", err)
	}
	return nil
}

// Load returns the draft of documentID. ok is false when none is stored.
func (s *RedisStore) Load(ctx context.Context, documentID string) (draft Draft, ok bool, err error) {
	meta, err := s.client.Get(ctx, s.metaKey(documentID)).Result()
	if err == redis.Nil {
		return Draft{}, false, nil
	}
	if err != nil {
		return Draft{}, false, fmt.Errorf("load draft: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &draft); err != nil {
		return Draft{}, false, fmt.Errorf("unmarshal draft: %w", err)
	}

	raw, err := s.client.LRange(ctx, s.movesKey(documentID), 0, -1).Result()
	if err != nil {
		return Draft{}, false, fmt.Errorf("load draft entries: %w", err)
	}
	draft.Entries = make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return Draft{}, false, fmt.Errorf("unmarshal draft entry: %w", err)
		}
		draft.Entries = append(draft.Entries, entry)
	}
	return draft, true, nil
}

// Clear deletes the draft of documentID. Clearing a missing draft is not an error.
func (s *RedisStore) Clear(ctx context.Context, documentID string) error {
	if err := s.client.Del(ctx, s.movesKey(documentID), s.metaKey(documentID)).Err(); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
