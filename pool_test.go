package mapi

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/mapidb/mapi-go/internal/frame"
)

// acceptHandshakes runs n independent fakeServer handshake sessions on one
// listener, one per accepted connection, so a Pool of size n can dial it
// n times.
func acceptHandshakes(t *testing.T, n int) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for i := 0; i < n; i++ {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go func(nc net.Conn) {
				defer nc.Close()
				fc := frame.New(nc, 0, 0)
				if err := fc.Send([]byte("testsalt:merovingian:9:SHA512:BIG:SHA512:")); err != nil {
					return
				}
				if _, err := fc.Receive(); err != nil {
					return
				}
				if err := fc.Send(nil); err != nil {
					return
				}
				if _, err := fc.Receive(); err != nil {
					return
				}
				if err := fc.Send([]byte("&3 0")); err != nil {
					return
				}
				if _, err := fc.Receive(); err != nil {
					return
				}
				if err := fc.Send(nil); err != nil {
					return
				}
				// keep the socket open so Checkout can use it
				buf := make([]byte, 1)
				nc.Read(buf)
			}(nc)
		}
	}()

	return ln.Addr().String()
}

func poolOpts(t *testing.T, addr string, size int) Options {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return Options{
		Host: host, Port: port,
		Username: "monetdb", Password: "monetdb", Database: "demo",
		PoolSize:       size,
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    2 * time.Second,
		SendTimeout:    2 * time.Second,
	}
}

func TestBackoffForSchedule(t *testing.T) {
	cases := []struct {
		failures uint32
		want     time.Duration
	}{
		{0, 0},
		{1, 0},
		{2, 100 * time.Millisecond},
		{8, 4 * time.Second},
		{11, 4 * time.Second},
		{100, 4 * time.Second},
	}
	for _, c := range cases {
		if got := backoffFor(c.failures); got != c.want {
			t.Errorf("backoffFor(%d) = %v, want %v", c.failures, got, c.want)
		}
	}
}

func TestRecordFailureClampsAtMax(t *testing.T) {
	p := &Pool{}
	var last uint32
	for i := 0; i < int(maxFailureCount)+5; i++ {
		last = p.recordFailure()
	}
	if last != maxFailureCount {
		t.Fatalf("failures not clamped: got %d, want %d", last, maxFailureCount)
	}
}

func TestStartPoolCheckoutCheckin(t *testing.T) {
	addr := acceptHandshakes(t, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := StartPool(ctx, poolOpts(t, addr, 2))
	if err != nil {
		t.Fatalf("StartPool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	conn1, err := pool.Checkout(ctx)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if conn1.pool != pool {
		t.Fatal("checked-out connection missing pool back-reference")
	}

	conn2, err := pool.Checkout(ctx)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	checkoutCtx, checkoutCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer checkoutCancel()
	if _, err := pool.Checkout(checkoutCtx); err == nil {
		t.Fatal("expected Checkout to block when pool is exhausted")
	}

	pool.Checkin(conn1)
	pool.Checkin(conn2)

	conn3, err := pool.Checkout(ctx)
	if err != nil {
		t.Fatalf("Checkout after Checkin: %v", err)
	}
	pool.Checkin(conn3)
}

func TestCheckinEvictsClosedConnection(t *testing.T) {
	addr := acceptHandshakes(t, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := StartPool(ctx, poolOpts(t, addr, 1))
	if err != nil {
		t.Fatalf("StartPool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	conn, err := pool.Checkout(ctx)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	conn.Close()
	pool.Checkin(conn)

	select {
	case slot := <-pool.available:
		if slot.conn != nil {
			t.Fatal("expected evicted slot to have nil conn")
		}
		pool.available <- slot
	default:
		t.Fatal("expected a slot to be available after Checkin")
	}
}

func TestCheckoutAfterPoolCloseFails(t *testing.T) {
	addr := acceptHandshakes(t, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := StartPool(ctx, poolOpts(t, addr, 1))
	if err != nil {
		t.Fatalf("StartPool: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := pool.Checkout(ctx); err != ErrPoolClosed {
		t.Fatalf("Checkout after Close: got %v, want ErrPoolClosed", err)
	}
}
