package cache

import (
	"context"
	"fmt"
	"time"
)

const sessionTTL = 30 * 24 * time.Hour

type Session struct {
	UserID       uint   `json:"user_id"`
	BarbershopID uint   `json:"barbershop_id"`
	Role         string `json:"role"`
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func (c *Cache) SaveSession(ctx context.Context, id string, s Session) error {
	return c.Set(ctx, sessionKey(id), s, sessionTTL)
}

func (c *Cache) GetSession(ctx context.Context, id string) (*Session, bool, error) {
	var s Session
	ok, err := c.Get(ctx, sessionKey(id), &s)
	if err != nil || !ok {
		return nil, false, err
	}
	return &s, true, nil
}

func (c *Cache) DeleteSession(ctx context.Context, id string) error {
	return c.Invalidate(ctx, sessionKey(id))
}
