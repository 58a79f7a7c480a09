package mapi

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/strategy"

	"github.com/mapidb/mapi-go/internal/prepared"
	"github.com/mapidb/mapi-go/mapimetrics"
)

// backoffSchedule is the Pool's consecutive-failure backoff ladder: the
// first two worker-init attempts retry immediately, then the sleep grows
// until it saturates at 4s.
var backoffSchedule = []time.Duration{
	0, 0,
	100 * time.Millisecond,
	300 * time.Millisecond,
	600 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
	3 * time.Second,
	4 * time.Second,
}

// maxFailureCount clamps the Pool's failure counter so it never grows
// without bound; every attempt at or beyond this count sleeps the
// schedule's last (4s) entry.
const maxFailureCount = 11

func backoffFor(failures uint32) time.Duration {
	idx := int(failures)
	if idx >= len(backoffSchedule) {
		idx = len(backoffSchedule) - 1
	}
	return backoffSchedule[idx]
}

// cacheKey identifies one named prepared statement scoped to a transaction.
type cacheKey struct {
	txID string
	name string
}

// connSlot is one of a Pool's fixed reservation slots. conn is nil when the
// slot's connection is known dead and awaiting replacement.
type connSlot struct {
	conn *Connection
}

// Pool amortises connection setup across callers: a fixed number of slots,
// each either holding a live Connection or standing in for one that needs
// to be (re)established, reserved and released through Checkout/Checkin.
type Pool struct {
	opts   Options
	logger *slog.Logger

	available chan *connSlot
	size      int

	cacheMu  sync.Mutex
	prepared map[cacheKey]*prepared.Statement

	failures atomic.Uint32
	closed   atomic.Bool

	// metrics is nil unless SetMetrics is called; every call site guards on
	// that so metrics remain strictly optional.
	metrics *mapimetrics.Collector
}

// SetMetrics attaches a Collector that Checkout/Checkin and the reconnect
// loop report to. Must be called before the Pool is used concurrently.
func (p *Pool) SetMetrics(c *mapimetrics.Collector) {
	p.metrics = c
	p.reportGauges()
}

func (p *Pool) reportGauges() {
	if p.metrics == nil {
		return
	}
	snap := p.Stats()
	p.metrics.SetLiveDead(snap.Live, snap.Dead)
}

// StartPool opens opts.PoolSize connections (defaulted, see Options) and
// returns a Pool ready for Checkout. Workers that fail to connect at
// startup are left as dead slots; Checkout will retry them under the
// backoff schedule.
func StartPool(ctx context.Context, opts Options) (*Pool, error) {
	opts = opts.withDefaults()
	logger := defaultLogger.With(slog.String("pool", opts.Name))

	p := &Pool{
		opts:      opts,
		logger:    logger,
		available: make(chan *connSlot, opts.PoolSize),
		size:      opts.PoolSize,
		prepared:  make(map[cacheKey]*prepared.Statement),
	}

	for i := 0; i < opts.PoolSize; i++ {
		slot := &connSlot{}
		conn, err := connect(ctx, opts, logger)
		if err != nil {
			logger.Warn("pool worker failed to connect at startup", "error", err)
			p.recordFailure()
		} else {
			slot.conn = conn
			p.failures.Store(0)
		}
		p.available <- slot
	}

	return p, nil
}

func (p *Pool) recordFailure() uint32 {
	for {
		cur := p.failures.Load()
		next := cur + 1
		if next > maxFailureCount {
			next = maxFailureCount
		}
		if p.failures.CompareAndSwap(cur, next) {
			return cur
		}
	}
}

// Checkout blocks until a live Connection is available or ctx is done. The
// returned Connection is bound exclusively to the caller until Checkin.
func (p *Pool) Checkout(ctx context.Context) (*Connection, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	select {
	case slot := <-p.available:
		if slot.conn == nil || slot.conn.isClosed() {
			conn, err := p.reconnect(ctx)
			if err != nil {
				p.available <- &connSlot{}
				if p.metrics != nil {
					p.metrics.CheckoutFailed()
				}
				return nil, err
			}
			slot.conn = conn
		}
		slot.conn.slot = slot
		slot.conn.pool = p
		if p.metrics != nil {
			p.metrics.CheckoutSucceeded()
			p.reportGauges()
		}
		return slot.conn, nil
	case <-ctx.Done():
		if p.metrics != nil {
			p.metrics.CheckoutFailed()
		}
		return nil, ErrCheckoutTimeout
	}
}

// reconnect retries connect under the Pool's backoff schedule until it
// succeeds or ctx is done.
func (p *Pool) reconnect(ctx context.Context) (*Connection, error) {
	var conn *Connection
	strat := func(attempt uint) bool {
		if ctx.Err() != nil {
			return false
		}
		if attempt > 0 {
			d := backoffFor(p.failures.Load())
			if p.metrics != nil {
				p.metrics.BackoffSlept(d)
			}
			time.Sleep(d)
		}
		return true
	}

	err := retry.Retry(func(attempt uint) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c, err := connect(ctx, p.opts, p.logger)
		if err != nil {
			p.recordFailure()
			return err
		}
		p.failures.Store(0)
		conn = c
		return nil
	}, strategy.Strategy(strat))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return conn, nil
}

// Checkin releases conn back to its reserving slot. A connection that ended
// its last operation in a fatal (network-closed) state is evicted instead
// of returned, so the next Checkout reconnects it.
func (p *Pool) Checkin(conn *Connection) {
	if conn == nil || conn.slot == nil {
		return
	}
	slot := conn.slot
	conn.slot = nil

	if conn.isClosed() {
		slot.conn = nil
	} else {
		slot.conn = conn
	}

	if p.closed.Load() {
		if slot.conn != nil {
			slot.conn.Close()
		}
		return
	}
	p.available <- slot
	p.reportGauges()
}

// Close closes every live connection currently sitting in the available
// channel. Connections checked out at the time of Close are closed by their
// own Checkin once returned.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	for i := 0; i < p.size; i++ {
		select {
		case slot := <-p.available:
			if slot.conn != nil {
				slot.conn.Close()
			}
		default:
			return nil
		}
	}
	return nil
}

// Stats is a point-in-time snapshot of a Pool's slot occupancy and backoff
// state, used by mapiadmin and by tests.
type Stats struct {
	Live     int
	Dead     int
	Size     int
	Failures uint32
	Closed   bool
}

// Stats returns a snapshot of the Pool's current state. Slot occupancy is
// sampled non-blockingly, so it reflects slots sitting idle in the available
// channel at the instant of the call, not slots currently checked out.
func (p *Pool) Stats() Stats {
	live, dead := 0, 0
	for i := 0; i < p.size; i++ {
		select {
		case slot := <-p.available:
			if slot.conn != nil {
				live++
			} else {
				dead++
			}
			p.available <- slot
		default:
		}
	}
	return Stats{
		Live:     live,
		Dead:     dead,
		Size:     p.size,
		Failures: p.failures.Load(),
		Closed:   p.closed.Load(),
	}
}

func (p *Pool) cachedStatement(txID, name string) (*prepared.Statement, bool) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	s, ok := p.prepared[cacheKey{txID: txID, name: name}]
	return s, ok
}

func (p *Pool) cacheStatement(txID, name string, s *prepared.Statement) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.prepared[cacheKey{txID: txID, name: name}] = s
}

// deleteTxCache deallocates and drops every statement cached under txID,
// regardless of whether the transaction committed or rolled back.
func (p *Pool) deleteTxCache(txID string) {
	if txID == "" {
		return
	}
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	for k, s := range p.prepared {
		if k.txID != txID {
			continue
		}
		_ = s.Close()
		delete(p.prepared, k)
	}
}
