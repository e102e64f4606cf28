package container

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

// scriptedProber answers with replies in order, then keeps failing.
type scriptedProber struct {
	replies []string
	calls   int
}

func (p *scriptedProber) Ping(_ context.Context, _ string) (string, error) {
	p.calls++
	if p.calls > len(p.replies) {
		return "", errors.New("connection refused")
	}

	reply := p.replies[p.calls-1]
	if reply == "" {
		return "", errors.New("connection refused")
	}

	return reply, nil
}

func TestWaitUntilReadyImmediate(t *testing.T) {
	p := &scriptedProber{replies: []string{"PONG"}}

	if !WaitUntilReady(context.Background(), p, "x", 5, time.Hour) {
		t.Fatal("expected ready on first probe")
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

func TestWaitUntilReadyAfterRetries(t *testing.T) {
	p := &scriptedProber{replies: []string{"", "LOADING", "PONG"}}

	if !WaitUntilReady(context.Background(), p, "x", 5, time.Millisecond) {
		t.Fatal("expected ready on third probe")
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
}

func TestWaitUntilReadyGivesUp(t *testing.T) {
	p := &scriptedProber{}

	if WaitUntilReady(context.Background(), p, "x", 4, time.Millisecond) {
		t.Fatal("expected not ready")
	}
	if p.calls != 4 {
		t.Errorf("calls = %d, want 4", p.calls)
	}
}

func TestWaitUntilReadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &scriptedProber{replies: []string{"PONG"}}
	if WaitUntilReady(ctx, p, "x", 3, time.Millisecond) {
		t.Fatal("expected not ready with cancelled context")
	}
}

// serveRESP answers every request on a local listener with reply.
func serveRESP(t *testing.T, reply string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			go func(c net.Conn) {
				defer c.Close()

				r := bufio.NewReader(c)
				// PING arrives as a three line array: *1, $4, PING.
				for i := 0; i < 3; i++ {
					line, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if i == 2 && !strings.EqualFold(strings.TrimSpace(line), "PING") {
						return
					}
				}

				c.Write([]byte(reply))
			}(conn)
		}
	}()

	return ln.Addr().String()
}

func TestRedisProberPong(t *testing.T) {
	addr := serveRESP(t, "+PONG\r\n")
	p := &RedisProber{Timeout: time.Second}

	reply, err := p.Ping(context.Background(), addr)
	if err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if reply != PositiveReply {
		t.Errorf("reply = %q, want PONG", reply)
	}

	if !WaitUntilReady(context.Background(), p, addr, 1, 0) {
		t.Error("WaitUntilReady = false against a PONG server")
	}
}

func TestRedisProberErrorReply(t *testing.T) {
	addr := serveRESP(t, "-LOADING server is loading\r\n")
	p := &RedisProber{Timeout: time.Second}

	if _, err := p.Ping(context.Background(), addr); err == nil {
		t.Error("expected error for RESP error reply")
	}
	if WaitUntilReady(context.Background(), p, addr, 2, time.Millisecond) {
		t.Error("WaitUntilReady = true against a loading server")
	}
}

func TestRedisProberRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	p := &RedisProber{Timeout: 200 * time.Millisecond}
	if _, err := p.Ping(context.Background(), addr); err == nil {
		t.Error("expected error for closed port")
	}
}
