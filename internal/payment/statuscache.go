package payment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusCachePrefix = "payment:status:"

// StatusCache keeps final gateway answers in Redis so duplicate notifications
// for a settled payment skip the gateway round trip.
type StatusCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewStatusCache returns nil when client is nil or ttl is not positive; a nil
// cache is valid and never hits.
func NewStatusCache(client redis.Cmdable, ttl time.Duration) *StatusCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &StatusCache{client: client, ttl: ttl}
}

// Get returns the cached record for paymentID.
func (c *StatusCache) Get(ctx context.Context, paymentID string) (PaymentInfo, bool, error) {
	if c == nil || paymentID == "" {
		return PaymentInfo{}, false, nil
	}
	data, err := c.client.Get(ctx, statusCachePrefix+paymentID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return PaymentInfo{}, false, nil
		}
		return PaymentInfo{}, false, err
	}
	var info PaymentInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return PaymentInfo{}, false, err
	}
	return info, true, nil
}

// Put stores info when the gateway status is final. Other statuses are skipped.
func (c *StatusCache) Put(ctx context.Context, info PaymentInfo) error {
	if c == nil || info.ID == "" || !isFinalGatewayStatus(info.Status) {
		return nil
	}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statusCachePrefix+info.ID, data, c.ttl).Err()
}
