package app

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/luckypool/luckypool-service/internal/domain"
)

var activityReleaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisActivityGuard implements the per-account exclusivity mark on Redis so
// that the guard holds across replicas. A safety TTL bounds how long a mark
// can outlive a crashed holder.
type RedisActivityGuard struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	owner  string
}

func NewRedisActivityGuard(client redis.UniversalClient, prefix, owner string, ttl time.Duration) *RedisActivityGuard {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "luckypool:active"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	return &RedisActivityGuard{
		client: client,
		prefix: trimmedPrefix,
		ttl:    ttl,
		owner:  owner,
	}
}

func (g *RedisActivityGuard) key(account domain.AccountID) string {
	return g.prefix + ":" + string(account)
}

// TryMarkActive atomically sets the mark; false means another operation for
// the account is in flight somewhere in the cluster.
func (g *RedisActivityGuard) TryMarkActive(ctx context.Context, account domain.AccountID) (bool, error) {
	return g.client.SetNX(ctx, g.key(account), g.owner, g.ttl).Result()
}

// MarkInactive releases the mark only if this process still owns it, so a
// TTL-expired mark re-acquired elsewhere is never released by the old holder.
func (g *RedisActivityGuard) MarkInactive(ctx context.Context, account domain.AccountID) error {
	return activityReleaseScript.Run(ctx, g.client, []string{g.key(account)}, g.owner).Err()
}
