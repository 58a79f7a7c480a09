package frame

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"
)

// pipeConn lets Send and Receive talk to each other through an in-memory
// net.Pipe without touching the network.
func pipeConn(t *testing.T) (client, server net.Conn) {
	t.Helper()
	client, server = net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })
	return client, server
}

func TestSendReceiveRoundTrip(t *testing.T) {
	lengths := []int{0, 1, 8190, 8191, 16380, 16381}

	for _, n := range lengths {
		n := n
		t.Run(sizeLabel(n), func(t *testing.T) {
			client, server := pipeConn(t)
			cConn := New(client, time.Second, time.Second)
			sConn := New(server, time.Second, time.Second)

			msg := make([]byte, n)
			for i := range msg {
				msg[i] = byte('a' + i%26)
			}

			errCh := make(chan error, 1)
			go func() { errCh <- cConn.Send(msg) }()

			got, err := sConn.Receive()
			if err != nil {
				t.Fatalf("Receive: %v", err)
			}
			if err := <-errCh; err != nil {
				t.Fatalf("Send: %v", err)
			}
			if n == 0 {
				if len(got) != 0 {
					t.Fatalf("expected empty message, got %d bytes", len(got))
				}
				return
			}
			if !bytes.Equal(got, msg) {
				t.Fatalf("round trip mismatch for n=%d", n)
			}
		})
	}
}

func sizeLabel(n int) string {
	switch n {
	case 0:
		return "empty"
	default:
		return "n"
	}
}

func TestReceiveServerError(t *testing.T) {
	client, server := pipeConn(t)
	cConn := New(client, time.Second, time.Second)
	sConn := New(server, time.Second, time.Second)

	go func() { _ = cConn.Send([]byte("!123!oops")) }()

	_, err := sConn.Receive()
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if fe.Source != "server" || fe.Code == nil || *fe.Code != 123 || fe.Message != "oops" {
		t.Fatalf("unexpected error: %+v", fe)
	}
}

func TestReceiveServerErrorUnparseableCode(t *testing.T) {
	client, server := pipeConn(t)
	cConn := New(client, time.Second, time.Second)
	sConn := New(server, time.Second, time.Second)

	go func() { _ = cConn.Send([]byte("!not-a-code!oops")) }()

	_, err := sConn.Receive()
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if fe.Code != nil {
		t.Fatalf("expected nil code, got %v", *fe.Code)
	}
	if fe.Message != "not-a-code!oops" {
		t.Fatalf("unexpected message: %q", fe.Message)
	}
}

func TestSendEmptyMessage(t *testing.T) {
	client, server := pipeConn(t)
	cConn := New(client, time.Second, time.Second)
	sConn := New(server, time.Second, time.Second)

	done := make(chan struct{})
	var got []byte
	var rerr error
	go func() {
		got, rerr = sConn.Receive()
		close(done)
	}()
	if err := cConn.Send(nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	<-done
	if rerr != nil {
		t.Fatalf("Receive: %v", rerr)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty message, got %v", got)
	}
}
