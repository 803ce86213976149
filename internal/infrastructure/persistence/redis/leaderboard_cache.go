package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/application/query"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrBoardEmpty is returned when a prebuilt board has no entries.
	ErrBoardEmpty = errors.New("leaderboard_cache: board is empty")

	// ErrInvalidBoard is returned when kind or window is empty.
	ErrInvalidBoard = errors.New("leaderboard_cache: invalid board identifier")
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache serves prebuilt leaderboards from Redis Sorted Sets.
//
// Architecture:
//   - Sorted Set "leaderboard:{kind}:{window}" stores studentID -> value
//   - Hash "leaderboard:{kind}:{window}:levels" stores studentID -> level
//     (points boards only)
//
// The rebuild job replaces boards wholesale; readers fall back to
// PostgreSQL on a miss, so a missing board is never an error for callers.
type LeaderboardCache struct {
	cache *Cache
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

func levelsKey(kind, window string) string {
	return BoardKey(kind, window) + ":levels"
}

// ─────────────────────────────────────────────────────────────────────────────
// Read Path
// ─────────────────────────────────────────────────────────────────────────────

// GetBoard returns the top entries of a prebuilt board. The second return
// value is false when the board has not been built (cache miss).
func (lc *LeaderboardCache) GetBoard(ctx context.Context, kind, window string, limit int) ([]query.LeaderboardEntryDTO, bool, error) {
	if kind == "" || window == "" {
		return nil, false, ErrInvalidBoard
	}

	key := BoardKey(kind, window)
	members, err := lc.cache.Client().ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("leaderboard_cache: range failed: %w", err)
	}
	if len(members) == 0 {
		return nil, false, nil
	}

	levels, err := lc.cache.Client().HGetAll(ctx, levelsKey(kind, window)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, false, fmt.Errorf("leaderboard_cache: levels lookup failed: %w", err)
	}

	entries := make([]query.LeaderboardEntryDTO, 0, len(members))
	for i, m := range members {
		studentID, _ := m.Member.(string)
		entry := query.LeaderboardEntryDTO{
			Rank:      i + 1,
			StudentID: studentID,
			Value:     int(m.Score),
		}
		if lvl, ok := levels[studentID]; ok {
			entry.Level, _ = strconv.Atoi(lvl)
		}
		entries = append(entries, entry)
	}

	return entries, true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Write Path (rebuild job)
// ─────────────────────────────────────────────────────────────────────────────

// RebuildBoard atomically replaces a board with the given entries. Entries
// must already be ordered; only StudentID, Value and Level are used.
func (lc *LeaderboardCache) RebuildBoard(ctx context.Context, kind, window string, entries []query.LeaderboardEntryDTO, ttl time.Duration) error {
	if kind == "" || window == "" {
		return ErrInvalidBoard
	}
	if ttl <= 0 {
		ttl = TTLLeaderboardCache
	}

	key := BoardKey(kind, window)
	lvlKey := levelsKey(kind, window)
	tmpKey := key + ":rebuild"
	tmpLvlKey := lvlKey + ":rebuild"

	pipe := lc.cache.Client().TxPipeline()
	pipe.Del(ctx, tmpKey, tmpLvlKey)

	if len(entries) > 0 {
		members := make([]redis.Z, 0, len(entries))
		levels := make(map[string]interface{}, len(entries))
		for _, e := range entries {
			members = append(members, redis.Z{Member: e.StudentID, Score: float64(e.Value)})
			if e.Level > 0 {
				levels[e.StudentID] = e.Level
			}
		}
		pipe.ZAdd(ctx, tmpKey, members...)
		if len(levels) > 0 {
			pipe.HSet(ctx, tmpLvlKey, levels)
		}
	}

	// Rename over the live keys so readers never see a partial board.
	pipe.Rename(ctx, tmpKey, key)
	pipe.Expire(ctx, key, ttl)
	pipe.Del(ctx, lvlKey)
	pipe.RenameNX(ctx, tmpLvlKey, lvlKey)
	pipe.Expire(ctx, lvlKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		// An empty rebuild leaves no temp keys to rename; treat that as
		// clearing the board.
		if len(entries) == 0 {
			return lc.cache.Delete(ctx, key, lvlKey)
		}
		return fmt.Errorf("leaderboard_cache: rebuild failed: %w", err)
	}

	return nil
}

// InvalidateBoard drops a prebuilt board.
func (lc *LeaderboardCache) InvalidateBoard(ctx context.Context, kind, window string) error {
	if kind == "" || window == "" {
		return ErrInvalidBoard
	}
	return lc.cache.Delete(ctx, BoardKey(kind, window), levelsKey(kind, window))
}
