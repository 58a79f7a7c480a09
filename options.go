package mapi

import "time"

// Default option values, applied by Dial and StartPool (through
// Options.withDefaults) when a field is left zero.
const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 50000
	DefaultDatabase       = "monetdb"
	DefaultUsername       = "monetdb"
	DefaultPassword       = "monetdb"
	DefaultPoolSize       = 10
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 10 * time.Second
	DefaultSendTimeout    = 10 * time.Second
)

// Options configures a Connection or a Pool.
type Options struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// PoolSize bounds the number of concurrent connections a Pool keeps
	// open; it is ignored by a standalone Connection.
	PoolSize int

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	SendTimeout    time.Duration

	// Schema, if set, is applied with `set schema` right after the
	// session is established.
	Schema string
	// Role, if set, is applied with `set role` right after Schema.
	Role string
	// TimeZoneOffsetMinutes sets the session's reported time zone, via
	// `set time zone interval '<offset>' minute`. Zero means UTC.
	TimeZoneOffsetMinutes int

	// Name identifies this Options' owner in logs and metrics (e.g. a
	// pool name); purely cosmetic.
	Name string
}

// withDefaults returns a copy of o with every zero-valued field replaced by
// its documented default.
func (o Options) withDefaults() Options {
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.Database == "" {
		o.Database = DefaultDatabase
	}
	if o.Username == "" {
		o.Username = DefaultUsername
	}
	if o.Password == "" {
		o.Password = DefaultPassword
	}
	if o.PoolSize == 0 {
		o.PoolSize = DefaultPoolSize
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.SendTimeout == 0 {
		o.SendTimeout = DefaultSendTimeout
	}
	return o
}
