package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates session access across several server replicas.
type DistributedLocker interface {
	// Lock blocks until key is held, ctx is done, or the attempt times out.
	// The lock expires after ttl if the holder dies without unlocking.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
