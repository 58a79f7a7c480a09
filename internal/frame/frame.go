// Package frame implements the MAPI wire framing codec: splitting and
// reassembling logical messages out of fixed-header chunks on a TCP byte
// stream, and recognising the framer-level server error encoding.
package frame

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/mapidb/mapi-go/internal/neterr"
)

// maxPayload is the largest payload a single frame may carry. The header's
// length field is 15 bits wide but the server additionally caps it at 8190;
// the wire-level "non-final, full" header is derived from this constant
// rather than hard-coded, so a future protocol revision only needs to
// change one number.
const maxPayload = 8190

// finalBit marks the last frame of a logical message.
const finalBit = 0x1

// fullNonFinalHeader is the header byte pattern written on every frame
// except the last one: a maximum-length payload with the final bit clear.
var fullNonFinalHeader = uint16(maxPayload<<1) | 0

// Conn wraps a net.Conn with MAPI frame Send/Receive semantics and the
// connect/read/send timeouts configured for the driver.
type Conn struct {
	nc          net.Conn
	r           *bufio.Reader
	readTimeout time.Duration
	sendTimeout time.Duration
}

// New wraps nc for MAPI framing. readTimeout/sendTimeout of zero disable
// the respective deadline.
func New(nc net.Conn, readTimeout, sendTimeout time.Duration) *Conn {
	return &Conn{nc: nc, r: bufio.NewReader(nc), readTimeout: readTimeout, sendTimeout: sendTimeout}
}

// Close closes the underlying socket.
func (c *Conn) Close() error { return c.nc.Close() }

// Error is the transport-level error surfaced by this package. Source is
// either "network" (socket failure) or "server" (a `!code!message`
// payload arrived instead of data).
type Error struct {
	Source  string
	Code    *int32
	Message string
}

func (e *Error) Error() string {
	if e.Source == "server" && e.Code != nil {
		return fmt.Sprintf("server %d %s", *e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s", e.Source, e.Message)
}

// Unwrap exposes neterr.ErrFatal for network-sourced errors so callers can
// test with errors.Is without inspecting Source directly.
func (e *Error) Unwrap() error {
	if e.Source == "network" {
		return neterr.ErrFatal
	}
	return nil
}

func networkErr(reason string) error {
	return &Error{Source: "network", Message: reason}
}

// parseServerError decodes a `!<decimal_code>!<message>` payload. If the
// code segment does not parse, the whole payload (after the leading `!`)
// becomes the message and Code stays nil.
func parseServerError(payload []byte) *Error {
	body := string(payload[1:]) // drop leading '!'
	idx := strings.IndexByte(body, '!')
	if idx < 0 {
		return &Error{Source: "server", Message: body}
	}
	codeStr, msg := body[:idx], body[idx+1:]
	n, err := strconv.ParseInt(codeStr, 10, 32)
	if err != nil {
		return &Error{Source: "server", Message: body}
	}
	code := int32(n)
	return &Error{Source: "server", Code: &code, Message: msg}
}

// Send writes message as one or more frames, splitting at maxPayload
// bytes, flushing after the final frame. An empty message is sent as the
// single frame header 0x0001.
func (c *Conn) Send(message []byte) error {
	if c.sendTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.sendTimeout)); err != nil {
			return networkErr(err.Error())
		}
	}

	if len(message) == 0 {
		return c.writeFrame(nil, true)
	}

	for off := 0; off < len(message); off += maxPayload {
		end := off + maxPayload
		final := end >= len(message)
		if final {
			end = len(message)
		}
		if err := c.writeFrame(message[off:end], final); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) writeFrame(chunk []byte, final bool) error {
	var header uint16
	if final {
		header = uint16(len(chunk)<<1) | finalBit
	} else {
		header = fullNonFinalHeader
	}
	hdr := make([]byte, 2)
	binary.LittleEndian.PutUint16(hdr, header)
	if _, err := c.nc.Write(hdr); err != nil {
		return networkErr(err.Error())
	}
	if len(chunk) > 0 {
		if _, err := c.nc.Write(chunk); err != nil {
			return networkErr(err.Error())
		}
	}
	return nil
}

// Receive reads one full logical message: one or more frames until the
// final bit is set. A payload beginning with '!' is decoded as a server
// error and returned as an *Error instead of a byte slice.
func (c *Conn) Receive() ([]byte, error) {
	if c.readTimeout > 0 {
		if err := c.nc.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return nil, networkErr(err.Error())
		}
	}

	var msg []byte
	for {
		hdr := make([]byte, 2)
		if _, err := readFull(c.r, hdr); err != nil {
			return nil, networkReadErr(err)
		}
		header := binary.LittleEndian.Uint16(hdr)
		fin := header&finalBit != 0
		length := header >> 1

		payload := make([]byte, length)
		if length > 0 {
			if _, err := readFull(c.r, payload); err != nil {
				return nil, networkReadErr(err)
			}
		}
		msg = append(msg, payload...)
		if fin {
			break
		}
	}

	if len(msg) > 0 && msg[0] == '!' {
		return nil, parseServerError(msg)
	}
	return msg, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func networkReadErr(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return networkErr("read timeout")
	}
	return networkErr(err.Error())
}

// SendCommand sends a MAPI control command: `X<cmd>\n`.
func (c *Conn) SendCommand(cmd string) error {
	return c.Send([]byte("X" + cmd + "\n"))
}

// SendQuery sends a MAPI SQL statement: `s<sql>;`.
func (c *Conn) SendQuery(sql string) error {
	return c.Send([]byte("s" + sql + ";"))
}
