package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttlRecord = 30 * 24 * time.Hour

// Store keeps recent match records in Redis with a per-player index so the
// client can show recent results without the relational archive.
type Store struct {
	rdb *redis.Client
}

func NewStore(redisURL string) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url required")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func keyRecord(matchID string) string { return "match:record:" + strings.TrimSpace(matchID) }
func keyPlayerIdx(playerID string) string {
	return "match:index:player:" + strings.TrimSpace(playerID)
}

// SaveRecord stores the record and indexes it under both participants.
func (s *Store) SaveRecord(ctx context.Context, rec *MatchRecord) error {
	if s == nil || s.rdb == nil || rec == nil {
		return nil
	}
	if strings.TrimSpace(rec.MatchID) == "" {
		return fmt.Errorf("record missing match id")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, keyRecord(rec.MatchID), raw, ttlRecord).Err(); err != nil {
		return err
	}
	for _, player := range []string{rec.WhiteID, rec.BlackID} {
		if strings.TrimSpace(player) == "" {
			continue
		}
		key := keyPlayerIdx(player)
		if err := s.rdb.SAdd(ctx, key, rec.MatchID).Err(); err != nil {
			return err
		}
		_ = s.rdb.Expire(ctx, key, ttlRecord).Err()
	}
	return nil
}

// LoadRecord returns the record for a match, nil when absent or expired.
func (s *Store) LoadRecord(ctx context.Context, matchID string) (*MatchRecord, error) {
	if s == nil || s.rdb == nil {
		return nil, nil
	}
	raw, err := s.rdb.Get(ctx, keyRecord(matchID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec MatchRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecentByPlayer returns a player's records, most recent first.
func (s *Store) RecentByPlayer(ctx context.Context, playerID string, limit int) ([]*MatchRecord, error) {
	if s == nil || s.rdb == nil || strings.TrimSpace(playerID) == "" {
		return nil, nil
	}
	ids, err := s.rdb.SMembers(ctx, keyPlayerIdx(playerID)).Result()
	if err != nil {
		return nil, err
	}
	var out []*MatchRecord
	for _, id := range ids {
		rec, rerr := s.LoadRecord(ctx, id)
		if rerr != nil || rec == nil {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
