package transport

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ansel1/merry"
	"github.com/fpawel/comm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replyFunc = func(cmd string) string

func idnReply(cmd string) string {
	if strings.HasSuffix(cmd, "?") {
		return "Keysight,B1500A,0,A.06.01\r\n"
	}
	return ""
}

func serve(ln net.Listener, got chan<- string, reply replyFunc) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		s, err := r.ReadString('\n')
		if err != nil {
			close(got)
			return
		}
		s = strings.TrimSuffix(s, "\n")
		got <- s
		if a := reply(s); a != "" {
			_, _ = conn.Write([]byte(a))
		}
	}
}

func testConfig(timeout time.Duration) comm.Config {
	return comm.Config{
		TimeoutGetResponse: timeout,
		TimeoutEndResponse: 20 * time.Millisecond,
		MaxAttemptsRead:    3,
	}
}

func dial(t *testing.T, reply replyFunc, timeout time.Duration) (*Conn, chan string) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ln.Close()
	})
	got := make(chan string, 10)
	go serve(ln, got, reply)

	c, err := Dial(context.Background(), ln.Addr().String(), testConfig(timeout))
	require.NoError(t, err)
	return c, got
}

func TestConn(t *testing.T) {
	c, got := dial(t, idnReply, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Write(ctx, "CN 1"))
	reply, err := c.Ask(ctx, "*IDN?")
	require.NoError(t, err)
	assert.Equal(t, "Keysight,B1500A,0,A.06.01", reply)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	var cmds []string
	for s := range got {
		cmds = append(cmds, s)
	}
	assert.Equal(t, []string{"CN 1", "*IDN?"}, cmds)
}

func TestConn_Canceled(t *testing.T) {
	c, _ := dial(t, idnReply, time.Second)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Write(ctx, "CN 1")
	assert.True(t, merry.Is(err, context.Canceled))
	_, err = c.Ask(ctx, "*IDN?")
	assert.True(t, merry.Is(err, context.Canceled))

	// nothing was sent, the connection is still usable
	reply, err := c.Ask(context.Background(), "*IDN?")
	require.NoError(t, err)
	assert.Equal(t, "Keysight,B1500A,0,A.06.01", reply)
}

func TestConn_Timeout(t *testing.T) {
	// the server only answers queries ending with '?'
	c, got := dial(t, idnReply, 100*time.Millisecond)
	defer c.Close()

	start := time.Now()
	_, err := c.Ask(context.Background(), "CN 1")
	require.Error(t, err)
	assert.True(t, merry.Is(err, context.DeadlineExceeded))
	assert.True(t, merry.Is(err, comm.Err))
	assert.Less(t, int64(time.Since(start)), int64(time.Second))
	assert.Equal(t, "CN 1", <-got, "a single attempt is made")

	err = c.Write(context.Background(), "CL 1")
	assert.True(t, merry.Is(err, ErrBroken))
}

func TestConn_LateReply(t *testing.T) {
	c, _ := dial(t, func(cmd string) string {
		switch cmd {
		case "*IDN?":
			time.Sleep(200 * time.Millisecond)
			return "IDN-REPLY\n"
		case "*OPC?":
			return "1\n"
		}
		return ""
	}, 100*time.Millisecond)
	defer c.Close()

	ctx := context.Background()
	_, err := c.Ask(ctx, "*IDN?")
	require.True(t, merry.Is(err, context.DeadlineExceeded))

	reply, err := c.Ask(ctx, "*OPC?")
	assert.True(t, merry.Is(err, ErrBroken))
	assert.NotEqual(t, "IDN-REPLY", reply)
	assert.Empty(t, reply)
}

func TestConn_Unterminated(t *testing.T) {
	c, _ := dial(t, func(string) string {
		return "1"
	}, time.Second)
	defer c.Close()

	_, err := c.Ask(context.Background(), "*OPC?")
	assert.True(t, merry.Is(err, comm.Err))
}

func TestConn_DiscardsUnexpectedInput(t *testing.T) {
	c, _ := dial(t, func(cmd string) string {
		switch cmd {
		case "CN 1":
			return "+0\n"
		case "*OPC?":
			return "1\n"
		}
		return ""
	}, time.Second)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Write(ctx, "CN 1"))
	require.Eventually(t, func() bool {
		n, _ := c.s.Read(nil)
		return n > 0
	}, time.Second, time.Millisecond)

	reply, err := c.Ask(ctx, "*OPC?")
	require.NoError(t, err)
	assert.Equal(t, "1", reply)
}
