package mapi

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/mapidb/mapi-go/internal/frame"
)

// fakeServer accepts a single connection, runs the standard MAPI
// authentication and session-configuration handshake, then sends resp[i]
// in reply to the i-th request it receives (request bytes themselves are
// discarded — these tests only exercise the client's framing and parsing).
func fakeServer(t *testing.T, resp ...[]byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		defer nc.Close()
		fc := frame.New(nc, 0, 0)

		if err := fc.Send([]byte("testsalt:merovingian:9:SHA512:BIG:SHA512:")); err != nil {
			return
		}
		if _, err := fc.Receive(); err != nil {
			return
		}
		if err := fc.Send(nil); err != nil { // empty reply: authenticated
			return
		}

		if _, err := fc.Receive(); err != nil { // set time zone ...
			return
		}
		if err := fc.Send([]byte("&3 0")); err != nil {
			return
		}

		if _, err := fc.Receive(); err != nil { // Xreply_size -1
			return
		}
		if err := fc.Send(nil); err != nil {
			return
		}

		for _, r := range resp {
			if _, err := fc.Receive(); err != nil {
				return
			}
			if err := fc.Send(r); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func dialFake(t *testing.T, addr string) *Connection {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := Dial(ctx, Options{
		Host: host, Port: port,
		Username: "monetdb", Password: "monetdb", Database: "demo",
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    2 * time.Second,
		SendTimeout:    2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestDialAndSimpleQuery(t *testing.T) {
	selectReply := []byte("&1 0 1 1 1\n% sys.foo # table\n% x # name\n% int # type\n% 1 # length\n[ 1\t]\n")
	addr := fakeServer(t, selectReply)

	conn := dialFake(t, addr)
	res, err := conn.Query("select 1")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Kind != ResultRows || len(res.Rows) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Rows[0][0] != int64(1) {
		t.Fatalf("unexpected value: %#v", res.Rows[0][0])
	}
}

func TestQueryArgsPrepareExecDeallocate(t *testing.T) {
	prepareReply := []byte("&5 7\n%\n%\n%\n%\n[ 1,\tint,\t0,\tNULL,\tNULL,\tNULL\t]\n")
	execReply := []byte("&2 1 -1")
	deallocateReply := []byte(nil)
	addr := fakeServer(t, prepareReply, execReply, deallocateReply)

	conn := dialFake(t, addr)
	res, err := conn.QueryArgs("insert into t values (?)", []Value{int64(42)})
	if err != nil {
		t.Fatalf("QueryArgs: %v", err)
	}
	if res.Kind != ResultUpsert || res.RowCount != 1 || res.LastID != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestInTransactionCommit(t *testing.T) {
	selectReply := []byte("&1 0 1 1 1\n% sys.foo # table\n% x # name\n% int # type\n% 1 # length\n[ 3\t]\n")
	startTxReply := []byte("&3 0")
	commitReply := []byte("&3 0")
	addr := fakeServer(t, startTxReply, selectReply, commitReply)

	conn := dialFake(t, addr)
	value, err := conn.InTransaction(func(tx *Transaction) (any, error) {
		return tx.Query("select 3")
	})
	if err != nil {
		t.Fatalf("InTransaction: %v", err)
	}
	res, ok := value.(*Result)
	if !ok || res.Rows[0][0] != int64(3) {
		t.Fatalf("unexpected transaction result: %#v", value)
	}
}

func TestInTransactionRollback(t *testing.T) {
	startTxReply := []byte("&3 0")
	rollbackReply := []byte("&3 0")
	addr := fakeServer(t, startTxReply, rollbackReply)

	conn := dialFake(t, addr)
	_, err := conn.InTransaction(func(tx *Transaction) (any, error) {
		return nil, Rollback("business rule violated")
	})
	if err == nil {
		t.Fatal("expected rollback error")
	}
	rbErr, ok := err.(*RollbackError)
	if !ok {
		t.Fatalf("expected *RollbackError, got %T (%v)", err, err)
	}
	if rbErr.Value != "business rule violated" {
		t.Fatalf("unexpected rollback value: %#v", rbErr.Value)
	}
}
