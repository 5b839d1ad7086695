package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	KindNone     = "none"
	KindHub      = "hub"
	KindSQLite   = "sqlite"
	KindRedis    = "redis"
	KindPostgres = "postgres"
	KindMQTT     = "mqtt"
)

type Options struct {
	Kind string

	// sqlite
	Cursor       ChangeCursor
	PollInterval time.Duration

	// redis
	RedisAddr     string
	RedisPassword string
	RedisChannel  string

	// postgres
	PostgresDSN     string
	PostgresChannel string

	// mqtt
	MQTT MQTTConfig

	Logger *zap.Logger
}

// Open builds the configured Notifier. "none" returns a Hub nobody else publishes
// to, which degrades to manual refresh.
func Open(ctx context.Context, opts Options) (Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "", KindNone, KindHub:
		return NewHub(), nil
	case KindSQLite:
		if opts.Cursor == nil {
			return nil, fmt.Errorf("sqlite notifier needs the sqlite repository")
		}
		return NewSQLitePoller(opts.Cursor, opts.PollInterval, opts.Logger), nil
	case KindRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis notifier needs an address")
		}
		r := NewRedis(opts.RedisAddr, opts.RedisPassword, opts.RedisChannel, opts.Logger)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return r, nil
	case KindPostgres:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres notifier needs a dsn")
		}
		return NewPostgres(opts.PostgresDSN, opts.PostgresChannel, opts.Logger)
	case KindMQTT:
		if opts.MQTT.Broker == "" {
			return nil, fmt.Errorf("mqtt notifier needs a broker url")
		}
		return NewMQTT(opts.MQTT, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown notifier: %q (expected none|hub|sqlite|redis|postgres|mqtt)", opts.Kind)
	}
}
