package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ChangeCursor exposes the newest change log sequence of a repository.
type ChangeCursor interface {
	LatestChange(ctx context.Context) (int64, error)
}

// SQLitePoller turns change log growth into signals. Writes through the sqlite
// repository already append to the log, so Publish is a no-op.
type SQLitePoller struct {
	cursor   ChangeCursor
	interval time.Duration
	log      *zap.Logger

	stop chan struct{}
}

func NewSQLitePoller(cursor ChangeCursor, interval time.Duration, log *zap.Logger) *SQLitePoller {
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLitePoller{cursor: cursor, interval: interval, log: log, stop: make(chan struct{})}
}

func (p *SQLitePoller) Publish(ctx context.Context) error { return nil }

func (p *SQLitePoller) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	last, err := p.cursor.LatestChange(ctx)
	if err != nil {
		return nil, err
	}
	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
				seq, err := p.cursor.LatestChange(ctx)
				if err != nil {
					if ctx.Err() == nil {
						p.log.Warn("change log poll failed", zap.Error(err))
					}
					continue
				}
				if seq != last {
					last = seq
					signal(ch)
				}
			}
		}
	}()
	return ch, nil
}

func (p *SQLitePoller) Close() error {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	return nil
}
