// Package transport carries B1500 ASCII commands over a LAN socket.
package transport

import (
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ansel1/merry"
	"github.com/fpawel/comm"
	"github.com/powerman/structlog"
)

// DefaultPort is the raw socket port of the B1500 LAN interface.
const DefaultPort = 5025

// ErrBroken is returned by every call made after an exchange failed midway.
var ErrBroken = merry.New("connection is broken")

// Conn exchanges '\n' terminated commands and replies with the mainframe.
// A failed query closes the connection: a late reply would otherwise be
// taken for the answer to the next one.
type Conn struct {
	addr string
	cfg  comm.Config
	s    *stream
	cm   comm.T
	log  *structlog.Logger

	mu     sync.Mutex
	broken error
}

// Dial connects to addr. Only one read attempt is made per query whatever
// cfg.MaxAttemptsRead says.
func Dial(ctx context.Context, addr string, cfg comm.Config) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, merry.Prependf(err, "connect %s", addr)
	}
	cfg.MaxAttemptsRead = 1
	s := newStream(addr, conn, cfg.TimeoutGetResponse)
	return &Conn{
		addr: addr,
		cfg:  cfg,
		s:    s,
		cm:   comm.New(s, cfg).WithAppendParse(parseLine),
		log:  structlog.New(structlog.KeyUnit, "tcp", "addr", addr),
	}, nil
}

func (x *Conn) Close() error {
	return x.s.close()
}

func (x *Conn) Write(ctx context.Context, cmd string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.ready(ctx); err != nil {
		return err
	}
	if err := comm.Write(ctx, []byte(cmd+"\n"), x.s, x.cfg); err != nil {
		x.fail(err)
		return merry.Prependf(err, "%s: %s", x.addr, cmd)
	}
	return nil
}

func (x *Conn) Ask(ctx context.Context, cmd string) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.ready(ctx); err != nil {
		return "", err
	}
	if n := x.s.discard(); n > 0 {
		x.log.Warn("unexpected input discarded", "cmd", cmd, "bytes", n)
	}
	b, err := x.cm.GetResponse(x.log, ctx, []byte(cmd+"\n"))
	if err != nil {
		x.fail(err)
		return "", merry.Prependf(err, "%s: %s", x.addr, cmd)
	}
	return strings.TrimSpace(string(b)), nil
}

func (x *Conn) ready(ctx context.Context) error {
	if x.broken != nil {
		return x.broken
	}
	if err := ctx.Err(); err != nil {
		return merry.Wrap(err)
	}
	return nil
}

func (x *Conn) fail(err error) {
	x.broken = merry.Appendf(ErrBroken, "%s: %v", x.addr, err)
	x.log.ErrIfFail(x.s.close)
}

func parseLine(_, response []byte) error {
	if !bytes.HasSuffix(response, []byte("\n")) {
		return merry.Appendf(comm.Err, "reply is not terminated: %q", response)
	}
	return nil
}

// stream presents a socket the way comm expects a serial port: Read(nil)
// reports the number of bytes received so far without blocking.
type stream struct {
	addr    string
	conn    net.Conn
	timeout time.Duration

	mu  sync.Mutex
	buf bytes.Buffer
	err error

	closeOnce sync.Once
	closeErr  error
}

func newStream(addr string, conn net.Conn, timeout time.Duration) *stream {
	x := &stream{
		addr:    addr,
		conn:    conn,
		timeout: timeout,
	}
	go x.receive()
	return x
}

func (x *stream) String() string {
	return x.addr
}

func (x *stream) receive() {
	b := make([]byte, 4096)
	for {
		n, err := x.conn.Read(b)
		x.mu.Lock()
		x.buf.Write(b[:n])
		if err != nil {
			x.err = merry.Wrap(err)
		}
		x.mu.Unlock()
		if err != nil {
			return
		}
	}
}

func (x *stream) Read(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(p) == 0 {
		if x.buf.Len() == 0 && x.err != nil {
			return 0, x.err
		}
		return x.buf.Len(), nil
	}
	return x.buf.Read(p)
}

func (x *stream) Write(p []byte) (int, error) {
	if x.timeout > 0 {
		if err := x.conn.SetWriteDeadline(time.Now().Add(x.timeout)); err != nil {
			return 0, err
		}
	}
	return x.conn.Write(p)
}

// discard drops the bytes received and not read yet.
func (x *stream) discard() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := x.buf.Len()
	x.buf.Reset()
	return n
}

func (x *stream) close() error {
	x.closeOnce.Do(func() {
		x.closeErr = x.conn.Close()
	})
	return x.closeErr
}
