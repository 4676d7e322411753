package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Enabled    bool
	Addr       string
	Password   string
	DB         int
	SeatMapTTL time.Duration
}

const seatMapKeyPrefix = "seatmap:"

// SeatMapCache keeps the occupied seat codes of a showtime in Redis
type SeatMapCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSeatMapCache(cfg Config) (*SeatMapCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newSeatMapCache(rdb, cfg.SeatMapTTL), nil
}

func newSeatMapCache(rdb *redis.Client, ttl time.Duration) *SeatMapCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SeatMapCache{client: rdb, ttl: ttl}
}

func seatMapKey(showtimeID int64) string {
	return seatMapKeyPrefix + strconv.FormatInt(showtimeID, 10)
}

// generationKey counts invalidations of a showtime's seat map. A reader that
// saw generation g may only store a map while the counter still reads g.
func generationKey(showtimeID int64) string {
	return seatMapKeyPrefix + strconv.FormatInt(showtimeID, 10) + ":gen"
}

// setIfGeneration writes KEYS[1] only when KEYS[2] (missing reads as 0) equals ARGV[1]
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Get returns the cached codes and the generation to pass to Set on a miss;
// ok is false on a cache miss
func (c *SeatMapCache) Get(ctx context.Context, showtimeID int64) (codes []string, gen int64, ok bool, err error) {
	vals, err := c.client.MGet(ctx, seatMapKey(showtimeID), generationKey(showtimeID)).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("cache lookup error: %w", err)
	}

	if raw, isStr := vals[1].(string); isStr {
		if gen, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, 0, false, fmt.Errorf("invalid seat map generation in cache: %w", err)
		}
	}

	raw, isStr := vals[0].(string)
	if !isStr {
		return nil, gen, false, nil
	}

	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, gen, false, fmt.Errorf("invalid seat map in cache: %w", err)
	}

	return codes, gen, true, nil
}

// Set stores codes unless the seat map was invalidated after the Get that
// returned gen. stored is false when the write was skipped.
func (c *SeatMapCache) Set(ctx context.Context, showtimeID, gen int64, codes []string) (stored bool, err error) {
	raw, err := json.Marshal(codes)
	if err != nil {
		return false, err
	}

	n, err := setIfGeneration.Run(ctx, c.client,
		[]string{seatMapKey(showtimeID), generationKey(showtimeID)},
		strconv.FormatInt(gen, 10), raw, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("cache write error: %w", err)
	}
	return n == 1, nil
}

// Invalidate drops the seat maps of the given showtimes and bumps their
// generations so that in-flight reads cannot store what they loaded.
func (c *SeatMapCache) Invalidate(ctx context.Context, showtimeIDs ...int64) error {
	if len(showtimeIDs) == 0 {
		return nil
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range showtimeIDs {
			pipe.Incr(ctx, generationKey(id))
			pipe.Expire(ctx, generationKey(id), c.generationTTL())
			pipe.Del(ctx, seatMapKey(id))
		}
		return nil
	})
	return err
}

// generationTTL outlives any cached map and any read in flight
func (c *SeatMapCache) generationTTL() time.Duration {
	if ttl := 10 * c.ttl; ttl > time.Hour {
		return ttl
	}
	return time.Hour
}

func (c *SeatMapCache) Close() error {
	return c.client.Close()
}
