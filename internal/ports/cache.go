package ports

import (
	"context"
	"time"
)

type Cache interface {
	// Get renvoie ok=false si la clé est absente ou expirée.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
