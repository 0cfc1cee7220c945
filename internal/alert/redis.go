package alert

import (
	"context"
	"time"

	"crypto-telegram-bot/internal/types"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisTimeout = 5 * time.Second

// RedisPersister keeps both documents as plain string keys "<prefix><namespace>_alerts".
type RedisPersister struct {
	client *redis.Client
	prefix string
}

func NewRedisPersister(client *redis.Client, prefix string) *RedisPersister {
	return &RedisPersister{client: client, prefix: prefix}
}

// Ping verifies the server is reachable before the store is loaded.
func (p *RedisPersister) Ping(ctx context.Context) error {
	return errors.Wrap(p.client.Ping(ctx).Err(), "redis ping failed")
}

func (p *RedisPersister) key(ns types.Namespace) string {
	return p.prefix + ns.DocumentName()
}

func (p *RedisPersister) LoadDocument(ns types.Namespace) (types.Alerts, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	raw, err := p.client.Get(ctx, p.key(ns)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "redis get %s failed", p.key(ns))
	}

	alerts, err := DecodeDocument(raw)
	if err != nil {
		return nil, true, err
	}
	return alerts, true, nil
}

func (p *RedisPersister) SaveDocument(ns types.Namespace, alerts types.Alerts) error {
	data, err := EncodeDocument(alerts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	return errors.Wrapf(p.client.Set(ctx, p.key(ns), data, 0).Err(), "redis set %s failed", p.key(ns))
}

func (p *RedisPersister) Close() error {
	return p.client.Close()
}
