package mapi

import (
	"github.com/google/uuid"

	"github.com/mapidb/mapi-go/internal/prepared"
	"github.com/mapidb/mapi-go/mapitypes"
)

// Transaction is a handle passed into a Connection.InTransaction body. It
// holds no state of its own beyond its identity: named prepared statements
// created through it live in the owning Connection's (or Pool's) shared
// cache, keyed by this ID, and are deallocated when the transaction ends.
type Transaction struct {
	Connection *Connection
	ID         string
}

// RollbackError is returned by a transaction body (via Rollback) to force
// a rollback while still carrying an arbitrary caller value back out as
// the error seen by InTransaction's caller.
type RollbackError struct {
	Value any
}

func (r *RollbackError) Error() string {
	return "mapi: transaction rolled back"
}

// Rollback wraps v as a RollbackError: returning it from an InTransaction
// body forces a rollback and makes v observable to the caller via
// errors.As.
func Rollback(v any) error { return &RollbackError{Value: v} }

// InTransaction runs body inside `start transaction` ... `commit`/`rollback`.
// If body returns a non-nil error (including one produced by Rollback),
// the transaction is rolled back and that error is returned. Otherwise it
// is committed and body's value is returned. Every prepared statement
// cached under the transaction's id is deallocated before InTransaction
// returns, regardless of outcome — including when body panics, in which
// case the transaction is rolled back before the panic propagates.
func (c *Connection) InTransaction(body func(tx *Transaction) (any, error)) (value any, err error) {
	if c.isClosed() {
		return nil, ErrConnClosed
	}
	if _, err := c.sendPlain("start transaction"); err != nil {
		return nil, err
	}

	tx := &Transaction{Connection: c, ID: uuid.NewString()}
	defer c.deallocateTxCache(tx.ID)

	defer func() {
		if r := recover(); r != nil {
			c.sendPlain("rollback") //nolint:errcheck // best-effort; the panic takes priority
			panic(r)
		}
	}()

	value, bodyErr := body(tx)
	if bodyErr != nil {
		if _, rbErr := c.sendPlain("rollback"); rbErr != nil {
			return nil, rbErr
		}
		return nil, bodyErr
	}

	if _, commitErr := c.sendPlain("commit"); commitErr != nil {
		return nil, commitErr
	}
	return value, nil
}

// Query runs sql (optionally with args) against the transaction's
// Connection.
func (tx *Transaction) Query(sql string, args ...mapitypes.Value) (*mapitypes.Result, error) {
	if len(args) == 0 {
		return tx.Connection.Query(sql)
	}
	return tx.Connection.QueryArgs(sql, args)
}

// Prepare returns the transaction's cached statement for name, preparing
// and caching it against sql if this is the first use of that name within
// the transaction.
func (tx *Transaction) Prepare(name, sql string) (*PreparedStatement, error) {
	c := tx.Connection
	if stmt, ok := c.cacheGet(tx.ID, name); ok {
		return stmt, nil
	}
	stmt, err := prepared.New(c.fc, sql)
	if err != nil {
		c.fail(err)
		return nil, wireErr(err)
	}
	c.cacheSet(tx.ID, name, stmt)
	return stmt, nil
}

func (c *Connection) cacheGet(txID, name string) (*prepared.Statement, bool) {
	if c.pool != nil {
		return c.pool.cachedStatement(txID, name)
	}
	c.localCacheMu.Lock()
	defer c.localCacheMu.Unlock()
	s, ok := c.localCache[cacheKey{txID: txID, name: name}]
	return s, ok
}

func (c *Connection) cacheSet(txID, name string, s *prepared.Statement) {
	if c.pool != nil {
		c.pool.cacheStatement(txID, name, s)
		return
	}
	c.localCacheMu.Lock()
	defer c.localCacheMu.Unlock()
	c.localCache[cacheKey{txID: txID, name: name}] = s
}

// deallocateTxCache deallocates and drops every statement cached under
// txID, regardless of whether the transaction committed or rolled back.
func (c *Connection) deallocateTxCache(txID string) {
	if c.pool != nil {
		c.pool.deleteTxCache(txID)
		return
	}
	c.localCacheMu.Lock()
	defer c.localCacheMu.Unlock()
	for k, s := range c.localCache {
		if k.txID != txID {
			continue
		}
		_ = s.Close()
		delete(c.localCache, k)
	}
}
