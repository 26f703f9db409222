package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/ports/repository"
)

var _ repository.CounterStore = (*CounterStore)(nil)

const counterPrefix = "seq:"

// CounterStore keeps each destination's counter under seq:<destination>.
// INCR is atomic on the server, so replicas sharing the instance never collide.
// The instance must run with persistence enabled (AOF) or numbers can repeat after a restart.
type CounterStore struct {
	cli *redis.Client
}

func NewCounterStore(c *Client) *CounterStore {
	return &CounterStore{cli: c.cli}
}

func (s *CounterStore) Increment(ctx context.Context, destinationID string) (int64, error) {
	n, err := s.cli.Incr(ctx, counterPrefix+destinationID).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return n, nil
}

func (s *CounterStore) LoadAll(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	iter := s.cli.Scan(ctx, 0, counterPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		v, err := s.cli.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: counter %s holds %q", domain.ErrStorageUnavailable, key, v)
		}
		out[strings.TrimPrefix(key, counterPrefix)] = n
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return out, nil
}

// returns 1 when the value was stored, 0 when it would move the counter backwards
var luaSetUpward = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]) or "0")
if tonumber(ARGV[1]) < cur then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1])
return 1`)

func (s *CounterStore) Set(ctx context.Context, destinationID string, value int64) error {
	ok, err := luaSetUpward.Run(ctx, s.cli, []string{counterPrefix + destinationID}, value).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if ok == 0 {
		return domain.ErrCounterRegress
	}
	return nil
}
