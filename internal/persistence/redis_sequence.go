package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/legal-service/internal/domain"
)

const sequenceKeyPrefix = "legal:seq:"

// Counters live two days so a number allocated just before midnight UTC
// cannot collide with a restarted counter.
const sequenceTTL = 48 * time.Hour

var incrWithExpiry = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisNumberSequence allocates human numbers from one Redis counter per
// prefix and UTC day, so every replica shares the sequence.
type RedisNumberSequence struct {
	client redis.Scripter
}

func NewRedisNumberSequence(client redis.Scripter) *RedisNumberSequence {
	return &RedisNumberSequence{client: client}
}

func (s *RedisNumberSequence) Next(ctx context.Context, prefix string, now time.Time) (domain.HumanNumber, error) {
	day := now.UTC().Format("20060102")
	key := sequenceKeyPrefix + prefix + ":" + day
	n, err := incrWithExpiry.Run(ctx, s.client, []string{key}, sequenceTTL.Milliseconds()).Int64()
	if err != nil {
		return "", fmt.Errorf("allocate %s number: %w", prefix, err)
	}
	return domain.NewHumanNumber(fmt.Sprintf("%s-%s-%04d", prefix, day, n))
}
