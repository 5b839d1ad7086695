package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Postgres listens on a LISTEN/NOTIFY channel through lib/pq. Repository writes
// already NOTIFY inside their transaction; Publish is for out-of-band signals.
type Postgres struct {
	dsn     string
	channel string
	db      *sql.DB
	origin  string
	log     *zap.Logger

	stop chan struct{}
}

// NewPostgres opens a lib/pq handle for publishing. Listening opens its own
// dedicated connection per subscription.
func NewPostgres(dsn, channel string, log *zap.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return newPostgres(db, dsn, channel, log), nil
}

func newPostgres(db *sql.DB, dsn, channel string, log *zap.Logger) *Postgres {
	if log == nil {
		log = zap.NewNop()
	}
	return &Postgres{dsn: dsn, channel: channel, db: db, origin: newOrigin(), log: log, stop: make(chan struct{})}
}

func (p *Postgres) Publish(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, p.channel, p.origin); err != nil {
		return fmt.Errorf("pg_notify %s: %w", p.channel, err)
	}
	return nil
}

func (p *Postgres) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	l := pq.NewListener(p.dsn, 500*time.Millisecond, 30*time.Second, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			p.log.Warn("postgres listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := l.Listen(p.channel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("listen %s: %w", p.channel, err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer l.Close()
		p.follow(ctx, l.Notify, l.Ping, ch)
	}()
	return ch, nil
}

// follow forwards notifications to ch until ctx ends, Close is called or the
// listener gives up. ch is closed on return.
func (p *Postgres) follow(ctx context.Context, notes <-chan *pq.Notification, ping func() error, ch chan struct{}) {
	defer close(ch)
	keepalive := time.NewTicker(90 * time.Second)
	defer keepalive.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case n, ok := <-notes:
			if !ok {
				return
			}
			if p.deliver(n) {
				signal(ch)
			}
		case <-keepalive.C:
			if err := ping(); err != nil {
				p.log.Warn("postgres listener ping failed", zap.Error(err))
			}
		}
	}
}

// deliver reports whether a notification should reach subscribers. A nil
// notification follows a reconnect, when changes may have been missed.
func (p *Postgres) deliver(n *pq.Notification) bool {
	if n == nil {
		return true
	}
	return n.Extra != p.origin
}

// Close ends every subscription and closes the publish handle.
func (p *Postgres) Close() error {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	return p.db.Close()
}
