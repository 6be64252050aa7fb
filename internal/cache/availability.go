package cache

import (
	"context"
	"fmt"
	"time"
)

const availabilityTTL = 5 * time.Minute

// Availability responses are cached under a per-barber version counter.
// A booking write bumps the version, which orphans every cached grid for
// that barber at once; the orphans simply age out.

func (c *Cache) availabilityVersion(ctx context.Context, barberID uint) int64 {
	var ver int64
	ok, err := c.Get(ctx, fmt.Sprintf("avail:ver:%d", barberID), &ver)
	if err != nil || !ok {
		return 0
	}
	return ver
}

func (c *Cache) AvailabilityKey(ctx context.Context, barberID, serviceID uint, date string) string {
	ver := c.availabilityVersion(ctx, barberID)
	return fmt.Sprintf("avail:%d:%d:%d:%s", ver, barberID, serviceID, date)
}

func (c *Cache) GetAvailability(ctx context.Context, key string, result any) bool {
	ok, err := c.Get(ctx, key, result)
	return err == nil && ok
}

func (c *Cache) SetAvailability(ctx context.Context, key string, value any) {
	_ = c.Set(ctx, key, value, availabilityTTL)
}

// BumpAvailability invalidates all cached grids for the barber.
func (c *Cache) BumpAvailability(ctx context.Context, barberID uint) {
	key := fmt.Sprintf("avail:ver:%d", barberID)
	ver := c.availabilityVersion(ctx, barberID) + 1
	_ = c.Set(ctx, key, ver, 24*time.Hour)
}
