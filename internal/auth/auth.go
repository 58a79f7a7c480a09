// Package auth implements the MAPI challenge/response handshake: algorithm
// negotiation, password digesting, and proxy/redirect handling.
package auth

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required by the MAPI hash-negotiation list

	"github.com/mapidb/mapi-go/internal/frame"
	"github.com/mapidb/mapi-go/mapitypes"
)

// protocolVersion is the only MAPI handshake version this driver speaks.
const protocolVersion = "9"

// maxProxyIterations bounds the proxy/redirect re-authentication loop so a
// misbehaving merovingian can't wedge a caller forever.
const maxProxyIterations = 10

// authHashPreference lists the client's auth-hash algorithms from
// strongest to weakest; the first one present in the server's advertised
// list wins.
var authHashPreference = []string{"SHA512", "SHA256", "SHA224", "RIPEMD160"}

func authHasher(name string) (func() hash.Hash, string, bool) {
	switch name {
	case "SHA512":
		return sha512.New, "{SHA512}", true
	case "SHA256":
		return sha256.New, "{SHA256}", true
	case "SHA224":
		return sha256.New224, "{SHA224}", true
	case "RIPEMD160":
		return ripemd160.New, "{RIPEMD160}", true
	default:
		return nil, "", false
	}
}

func passwordHasher(name string) (func() hash.Hash, bool) {
	switch name {
	case "SHA512":
		return sha512.New, true
	case "SHA384":
		return sha512.New384, true
	case "SHA256":
		return sha256.New, true
	case "SHA224":
		return sha256.New224, true
	default:
		return nil, false
	}
}

// Redirect is returned when the server tells the client to reconnect
// elsewhere (e.g. after a merovingian proxy hands off to the real mserver).
type Redirect struct {
	Host     string
	Port     string
	Database string
}

// Options carries the credentials and target database used to answer a
// challenge.
type Options struct {
	Username string
	Password string
	Database string
}

func driverErr(msg string) error {
	return &mapitypes.Error{Source: mapitypes.SourceDriver, Message: msg}
}

// Handshake performs the full challenge/response exchange over fc,
// following proxy indications for up to maxProxyIterations rounds and
// returning a *Redirect if the server hands the connection off elsewhere.
func Handshake(fc *frame.Conn, opts Options) (*Redirect, error) {
	for i := 0; i < maxProxyIterations; i++ {
		challenge, err := fc.Receive()
		if err != nil {
			return nil, errors.Wrap(err, "reading challenge")
		}

		salt, authName, final, database, err := computeResponse(string(challenge), opts)
		if err != nil {
			return nil, err
		}
		_ = salt

		msg := fmt.Sprintf("LIT:%s:%s%s:sql:%s:", opts.Username, authName, final, database)
		if err := fc.Send([]byte(msg)); err != nil {
			return nil, errors.Wrap(err, "sending credentials")
		}

		reply, err := fc.Receive()
		if err != nil {
			return nil, errors.Wrap(err, "reading authentication reply")
		}
		replyStr := string(reply)

		switch {
		case replyStr == "":
			return nil, nil // authenticated
		case strings.HasPrefix(replyStr, "^mapi:merovingian:"):
			continue // proxy: loop and read a fresh challenge
		case strings.HasPrefix(replyStr, "^mapi:"):
			redirect, err := parseRedirect(replyStr)
			if err != nil {
				return nil, err
			}
			return redirect, nil
		default:
			return nil, driverErr(fmt.Sprintf("unexpected authentication reply %q", replyStr))
		}
	}
	return nil, driverErr("too many proxy iterations")
}

// computeResponse parses a challenge line and derives the wire-ready
// auth tag and digest.
func computeResponse(challenge string, opts Options) (salt, authName, final, database string, err error) {
	fields := strings.Split(challenge, ":")
	if len(fields) < 6 {
		return "", "", "", "", driverErr(fmt.Sprintf("malformed challenge %q", challenge))
	}
	salt = fields[0]
	version := fields[2]
	authTypes := fields[3]
	pwHashName := fields[5]

	if version != protocolVersion {
		return "", "", "", "", driverErr(fmt.Sprintf("unsupported protocol version %q", version))
	}

	advertised := make(map[string]bool)
	for _, t := range strings.Split(authTypes, ",") {
		advertised[strings.TrimSpace(t)] = true
	}

	var authHash func() hash.Hash
	for _, name := range authHashPreference {
		if advertised[name] {
			var tag string
			authHash, tag, _ = authHasher(name)
			authName = tag
			break
		}
	}
	if authHash == nil {
		return "", "", "", "", driverErr(fmt.Sprintf("no supported auth hash in %q", authTypes))
	}

	pwHash, ok := passwordHasher(pwHashName)
	if !ok {
		return "", "", "", "", driverErr(fmt.Sprintf("unsupported password hash %q", pwHashName))
	}

	passwordDigest := hexLowerSum(pwHash(), []byte(opts.Password))
	final = hexLowerSum(authHash(), []byte(passwordDigest+salt))
	return salt, authName, final, opts.Database, nil
}

func hexLowerSum(h hash.Hash, data []byte) string {
	h.Write(data)
	return strings.ToLower(hex.EncodeToString(h.Sum(nil)))
}

// parseRedirect parses a "^mapi:monetdb://host:port/database\n" payload.
func parseRedirect(payload string) (*Redirect, error) {
	uri := strings.TrimPrefix(payload, "^")
	uri = strings.TrimSuffix(uri, "\n")

	// uri looks like "mapi:monetdb://host:port/database"; url.Parse
	// doesn't like the "mapi:monetdb:" double-scheme, so only parse the
	// part after the first ':'.
	idx := strings.Index(uri, ":")
	if idx < 0 {
		return nil, driverErr(fmt.Sprintf("malformed redirect %q", payload))
	}
	inner := uri[idx+1:]

	u, err := url.Parse(inner)
	if err != nil {
		return nil, driverErr(fmt.Sprintf("malformed redirect %q: %v", payload, err))
	}

	host := u.Hostname()
	port := u.Port()
	database := strings.TrimPrefix(u.Path, "/")

	if host == "" || port == "" || database == "" {
		return nil, driverErr(fmt.Sprintf("incomplete redirect %q", payload))
	}
	if _, err := strconv.Atoi(port); err != nil {
		return nil, driverErr(fmt.Sprintf("malformed redirect port %q", port))
	}

	return &Redirect{Host: host, Port: port, Database: database}, nil
}
