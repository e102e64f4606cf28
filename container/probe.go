package container

import (
	"context"
	"time"

	"github.com/mediocregopher/radix/v3"
	"golang.org/x/time/rate"
)

// PositiveReply is the only PING answer that counts as ready.
const PositiveReply = "PONG"

// Prober sends a liveness request to addr and returns the reply.
type Prober interface {
	Ping(ctx context.Context, addr string) (string, error)
}

// RedisProber issues PING over a fresh RESP connection per attempt.
type RedisProber struct {
	Timeout time.Duration
}

// Ping dials addr, sends PING and returns the simple-string reply.
func (p *RedisProber) Ping(ctx context.Context, addr string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var opts []radix.DialOpt
	if p.Timeout > 0 {
		opts = append(opts, radix.DialTimeout(p.Timeout))
	}

	conn, err := radix.Dial("tcp", addr, opts...)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	var reply string
	if err := conn.Do(radix.Cmd(&reply, "PING")); err != nil {
		return "", err
	}

	return reply, nil
}

// WaitUntilReady probes addr until it answers PositiveReply. It gives up
// after attempts probes or when ctx is done. Probes are spaced interval
// apart; the first one is sent immediately.
func WaitUntilReady(
	ctx context.Context,
	p Prober,
	addr string,
	attempts int,
	interval time.Duration,
) bool {
	if attempts < 1 {
		attempts = 1
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	limiter := rate.NewLimiter(limit, 1)

	for i := 0; i < attempts; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return false
		}

		reply, err := p.Ping(ctx, addr)
		if err == nil && reply == PositiveReply {
			return true
		}
	}

	return false
}
