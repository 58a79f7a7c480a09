package mapi

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/mapidb/mapi-go/internal/auth"
	"github.com/mapidb/mapi-go/internal/frame"
	"github.com/mapidb/mapi-go/internal/prepared"
	"github.com/mapidb/mapi-go/internal/resultparser"
	"github.com/mapidb/mapi-go/internal/wgroup"
	"github.com/mapidb/mapi-go/mapitypes"
)

// maxRedirects bounds the authenticate/redirect/reconnect loop so a
// misconfigured cluster can't wedge Dial forever.
const maxRedirects = 10

// Connection owns a single authenticated socket. It is not safe for
// concurrent use: once obtained (via Dial or Pool.Checkout), only the
// caller holding it may read or write until it is closed or checked back
// in.
type Connection struct {
	fc     *frame.Conn
	logger *slog.Logger
	opts   Options

	mu     sync.Mutex
	closed bool

	// wg tracks goroutines started by a *Context query so Close doesn't
	// return while one is still reading from the socket it's about to tear
	// down.
	wg *sync.WaitGroup

	// pool/slot are set only for pool-owned connections, so Checkin and
	// the transaction prepared-cache know where to route.
	pool *Pool
	slot *connSlot

	// localCache backs the transaction prepared-statement cache for a
	// standalone (non-pooled) Connection, which has no Pool to hold the
	// shared keyed map a pool-owned Connection uses instead.
	localCacheMu sync.Mutex
	localCache   map[cacheKey]*prepared.Statement
}

// Dial establishes a standalone Connection: TCP connect, authenticate
// (following any proxy/redirect hand-off), and session configuration.
func Dial(ctx context.Context, opts Options) (*Connection, error) {
	return connect(ctx, opts.withDefaults(), defaultLogger)
}

func connect(ctx context.Context, opts Options, baseLogger *slog.Logger) (*Connection, error) {
	var fc *frame.Conn

	for i := 0; i < maxRedirects; i++ {
		addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
		d := net.Dialer{Timeout: opts.ConnectTimeout}
		nc, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, &mapitypes.Error{Source: mapitypes.SourceNetwork, Message: err.Error()}
		}
		fc = frame.New(nc, opts.ReadTimeout, opts.SendTimeout)

		redirect, err := auth.Handshake(fc, auth.Options{
			Username: opts.Username,
			Password: opts.Password,
			Database: opts.Database,
		})
		if err != nil {
			fc.Close()
			return nil, wireErr(err)
		}
		if redirect == nil {
			break // authenticated against this socket
		}

		fc.Close()
		port, convErr := strconv.Atoi(redirect.Port)
		if convErr != nil {
			return nil, driverErr("redirect port %q: %v", redirect.Port, convErr)
		}
		opts.Host, opts.Port, opts.Database = redirect.Host, port, redirect.Database

		if i == maxRedirects-1 {
			return nil, driverErr("too many redirects")
		}
	}

	logger := newConnLogger(baseLogger, opts.Name)
	c := &Connection{
		fc:         fc,
		logger:     logger,
		opts:       opts,
		wg:         new(sync.WaitGroup),
		localCache: make(map[cacheKey]*prepared.Statement),
	}

	if err := c.configureSession(); err != nil {
		c.fail(err)
		fc.Close()
		return nil, err
	}

	return c, nil
}

// configureSession applies the time zone, reply_size, schema and role
// settings required right after authentication.
func (c *Connection) configureSession() error {
	tzResult, err := c.sendPlain(fmt.Sprintf("set time zone interval '%d' minute", c.opts.TimeZoneOffsetMinutes))
	if err != nil {
		return err
	}
	if tzResult.Kind != mapitypes.ResultMeta {
		return driverErr("set time zone: unexpected reply kind %v", tzResult.Kind)
	}

	if err := c.fc.SendCommand("reply_size -1"); err != nil {
		return wireErr(err)
	}
	reply, err := c.fc.Receive()
	if err != nil {
		return wireErr(err)
	}
	if len(reply) != 0 {
		return driverErr("reply_size: expected empty reply, got %q", reply)
	}

	if c.opts.Schema != "" {
		if _, err := c.sendPlain("set schema " + Identifier(c.opts.Schema).String()); err != nil {
			return err
		}
	}
	if c.opts.Role != "" {
		if _, err := c.sendPlain("set role " + Identifier(c.opts.Role).String()); err != nil {
			return err
		}
	}
	return nil
}

// sendPlain sends command unprefixed (the wire form `prepare`/`set …`/etc.
// use) and parses the reply as a Result.
func (c *Connection) sendPlain(command string) (*mapitypes.Result, error) {
	if err := c.fc.Send([]byte(command)); err != nil {
		c.fail(err)
		return nil, wireErr(err)
	}
	reply, err := c.fc.Receive()
	if err != nil {
		c.fail(err)
		return nil, wireErr(err)
	}
	res, err := resultparser.Parse(reply)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// fail marks the Connection closed if err is a fatal (network) error; it
// never closes the Connection for a server or driver error, which may
// still be perfectly usable.
func (c *Connection) fail(err error) {
	if isFatal(err) {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
	}
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close closes the underlying socket. Safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	err := c.fc.Close()
	c.wg.Wait()
	return err
}

// Query runs sql with no arguments via the simple (non-prepared) path.
func (c *Connection) Query(sql string) (*mapitypes.Result, error) {
	return c.QueryContext(context.Background(), sql)
}

// QueryContext is Query, but returns as soon as ctx is done even though the
// socket read it started keeps running in the background (tracked by c.wg)
// until the server actually replies or the connection is closed.
func (c *Connection) QueryContext(ctx context.Context, sql string) (*mapitypes.Result, error) {
	if c.isClosed() {
		return nil, ErrConnClosed
	}

	var res *mapitypes.Result
	var err error
	done := make(chan struct{})
	wgroup.Go(c.wg, func() {
		defer close(done)
		if sendErr := c.fc.SendQuery(sql); sendErr != nil {
			c.fail(sendErr)
			err = wireErr(sendErr)
			return
		}
		reply, recvErr := c.fc.Receive()
		if recvErr != nil {
			c.fail(recvErr)
			err = wireErr(recvErr)
			return
		}
		res, err = resultparser.Parse(reply)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
		return res, err
	}
}

// QueryArgs runs sql with args via prepare+exec+deallocate. A deallocate
// failure other than the benign "unknown prepared statement" (code 7003)
// closes the Connection, so a leaked server-side statement is never left
// behind on a socket the driver keeps using.
func (c *Connection) QueryArgs(sql string, args []mapitypes.Value) (*mapitypes.Result, error) {
	if c.isClosed() {
		return nil, ErrConnClosed
	}
	stmt, err := prepared.New(c.fc, sql)
	if err != nil {
		c.fail(err)
		return nil, wireErr(err)
	}

	encoded, err := prepared.EncodeArgs(args, stmt.ParameterTypes)
	if err != nil {
		return nil, clientErr("encode arguments: %v", err)
	}

	res, execErr := stmt.Exec(encoded)
	closeErr := stmt.Close()
	if closeErr != nil {
		c.logger.Warn("prepared statement deallocate failed, closing connection", "error", closeErr)
		c.Close()
	}

	if execErr != nil {
		return nil, wireErr(execErr)
	}
	return res, nil
}
