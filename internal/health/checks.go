package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/wiggly/internal/lifecycle"
)

// StateSource reports the route server state.
type StateSource interface {
	State() lifecycle.State
	Generation() uint64
}

// LifecycleCheck is healthy while the route server is serving or
// rebuilding, and unhealthy otherwise.
func LifecycleCheck(src StateSource) CheckFunc {
	return func(context.Context) Check {
		state := src.State()
		msg := fmt.Sprintf("state %s, generation %d", state, src.Generation())
		if !state.Ready() {
			return Check{Status: StatusUnhealthy, Message: msg}
		}
		return Check{Status: StatusHealthy, Message: msg}
	}
}

// RedisCheck pings a Redis client. A failed ping is unhealthy when
// critical, degraded otherwise.
func RedisCheck(client redis.UniversalClient, critical bool) CheckFunc {
	return func(ctx context.Context) Check {
		if client == nil {
			return Check{Status: StatusUnhealthy, Message: "redis client is nil"}
		}
		if err := client.Ping(ctx).Err(); err != nil {
			status := StatusDegraded
			if critical {
				status = StatusUnhealthy
			}
			return Check{Status: status, Message: fmt.Sprintf("redis ping failed: %v", err)}
		}
		return Check{Status: StatusHealthy}
	}
}
