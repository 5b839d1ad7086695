package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	signalsPrefix = "data: signals "
	reconnectWait = 2 * time.Second
)

// Changes is a notify.Notifier fed by a server's change stream. It signals when the
// server's changeSeq moves, including a move noticed after a reconnect.
type Changes struct {
	http   *resty.Client
	logger *zap.Logger

	mu     sync.Mutex
	cancel []context.CancelFunc
	closed bool
}

func NewChanges(baseURL string, logger *zap.Logger) (*Changes, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote: base url is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "text/event-stream")
	return &Changes{http: c, logger: logger}, nil
}

// Publish is a no-op: the server announces every write it accepts.
func (c *Changes) Publish(ctx context.Context) error { return nil }

func (c *Changes) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("remote: changes closed")
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = append(c.cancel, cancel)
	c.mu.Unlock()

	out := make(chan struct{}, 1)
	go c.run(ctx, out)
	return out, nil
}

func (c *Changes) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for _, cancel := range c.cancel {
		cancel()
	}
	c.cancel = nil
	return nil
}

func (c *Changes) run(ctx context.Context, out chan struct{}) {
	defer close(out)
	var last *int64
	for {
		err := c.follow(ctx, &last, out)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("change stream dropped", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectWait):
		}
	}
}

// follow reads one connection until it ends.
func (c *Changes) follow(ctx context.Context, last **int64, out chan struct{}) error {
	resp, err := c.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get("/api/changes")
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() != http.StatusOK {
		return errors.New("change stream: " + resp.Status())
	}
	return readSignals(body, func(seq int64) {
		if *last != nil && **last != seq {
			select {
			case out <- struct{}{}:
			default:
			}
		}
		*last = &seq
	})
}

// readSignals calls fn with every changeSeq carried by a signals patch. Patches
// without it (keepalives) are skipped.
func readSignals(r io.Reader, fn func(seq int64)) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, signalsPrefix) {
			continue
		}
		var sig struct {
			ChangeSeq *int64 `json:"changeSeq"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, signalsPrefix)), &sig); err != nil || sig.ChangeSeq == nil {
			continue
		}
		fn(*sig.ChangeSeq)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}
