// Package channel carries code fragments to a remote eval service over TCP
// and collects whatever the service writes back. The protocol has no framing:
// a response is considered complete once the socket goes idle, mirroring the
// request/response rhythm these services expose.
package channel

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	DefaultDialTimeout = 10 * time.Second
	DefaultIdleTimeout = 350 * time.Millisecond
	DefaultFirstByte   = 5 * time.Second
)

// TransportError marks a broken channel. Any error of this type is fatal to
// the session; everything else the client recovers from.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "channel " + e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Options tune the adapter. Zero values fall back to the defaults above.
type Options struct {
	// DialTimeout bounds the initial TCP connect.
	DialTimeout time.Duration
	// IdleTimeout is the read-idle window that ends a response once output
	// has stopped arriving.
	IdleTimeout time.Duration
	// FirstByte bounds the wait for the first byte of a response, so slow
	// remote commands are not cut off by the (much shorter) idle window.
	FirstByte time.Duration
}

func (o Options) withDefaults() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.FirstByte <= 0 {
		o.FirstByte = DefaultFirstByte
	}
	return o
}

// Conn is a connected channel to the remote evaluator. It is not safe for
// concurrent use; the session issues exactly one call at a time.
type Conn struct {
	nc   net.Conn
	opts Options
}

// Dial connects to the eval service.
func Dial(ctx context.Context, host string, port int, opts Options) (*Conn, error) {
	opts = opts.withDefaults()
	d := net.Dialer{Timeout: opts.DialTimeout}
	nc, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	return &Conn{nc: nc, opts: opts}, nil
}

// New wraps an already-established connection. Used by tests.
func New(nc net.Conn, opts Options) *Conn {
	return &Conn{nc: nc, opts: opts.withDefaults()}
}

// SendAndReceive writes one fragment and returns the remote output, reading
// until the socket goes idle. A write error, EOF, or reset is fatal.
func (c *Conn) SendAndReceive(fragment string) (string, error) {
	if _, err := c.nc.Write([]byte(fragment)); err != nil {
		return "", &TransportError{Op: "send", Err: err}
	}
	return c.receive(c.opts.FirstByte)
}

// DrainBanner collects any greeting the service prints on connect. There may
// be none, so only the idle window is waited.
func (c *Conn) DrainBanner() (string, error) {
	return c.receive(c.opts.IdleTimeout)
}

func (c *Conn) Close() error { return c.nc.Close() }

func (c *Conn) receive(firstWait time.Duration) (string, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 4096)
	wait := firstWait
	for {
		_ = c.nc.SetReadDeadline(time.Now().Add(wait))
		n, err := c.nc.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			wait = c.opts.IdleTimeout
		}
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				// Idle: the response is complete.
				return buf.String(), nil
			}
			return buf.String(), &TransportError{Op: "receive", Err: err}
		}
	}
}
