// Package tests has helpers to talk to a running server the way a terminal client would.
package tests

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elastic/hey-hull/server/api/io"
)

const prompt = ">> "

// Client is a line oriented connection, it expects colors to be disabled on the server.
type Client struct {
	t    testing.TB
	conn net.Conn
	r    *bufio.Reader
	// greeting sent by the server before the first prompt
	Greeting string
}

// Dial connects to `addr` and consumes the greeting.
func Dial(t testing.TB, addr string) *Client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	require.NoError(t, err)
	c := &Client{t: t, conn: conn, r: bufio.NewReader(conn)}
	c.Greeting = c.Read()
	return c
}

// Send writes one command line and returns its reply.
func (c *Client) Send(line string) string {
	c.t.Helper()
	c.Write(line + "\n")
	return c.Read()
}

// Write sends raw bytes, eg. a partial line or several commands at once.
func (c *Client) Write(raw string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(raw))
	require.NoError(c.t, err)
}

// Read returns the next reply, everything up to the following prompt.
func (c *Client) Read() string {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var sb strings.Builder
	for !strings.HasSuffix(sb.String(), prompt) {
		b, err := c.r.ReadByte()
		require.NoError(c.t, err, "read so far: %q", sb.String())
		sb.WriteByte(b)
	}
	return strings.TrimSuffix(strings.TrimSuffix(sb.String(), prompt), "\n")
}

// Hungup is true when the server closed the connection.
func (c *Client) Hungup() bool {
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err := c.r.ReadByte()
	return err != nil && !isTimeout(err)
}

func (c *Client) Close() {
	c.conn.Close()
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// WithoutColors is shorthand for comparing colored replies.
func WithoutColors(s string) string {
	return io.WithoutColors(s)
}
