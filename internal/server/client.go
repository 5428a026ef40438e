// Package server implements the TCP front end: client connections,
// message dispatch, broadcast fan-out and the server lifecycle.
package server

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/hailam/chessnet/internal/errs"
	"github.com/hailam/chessnet/internal/logging"
	"github.com/hailam/chessnet/internal/protocol"
)

var log = logging.GetLog()

// ClientState tracks where a connection is in its lifecycle.
type ClientState int

const (
	StateConnecting ClientState = iota
	StateConnected
	StateAuthenticated
	StateInGame
	StateDisconnecting
)

// String returns the state name.
func (s ClientState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateInGame:
		return "in_game"
	case StateDisconnecting:
		return "disconnecting"
	}
	return "unknown"
}

// Client is one TCP connection and its outbound queue.
type Client struct {
	conn net.Conn

	mu        sync.Mutex
	state     ClientState
	playerID  string
	sessionID string

	out  chan []byte
	done chan struct{}

	closeOnce sync.Once

	connectedAt  uint64
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewClient wraps a connection with a bounded outbound queue.
func NewClient(conn net.Conn, queueSize int, timeout time.Duration, connectedAt uint64) *Client {
	return &Client{
		conn:         conn,
		state:        StateConnecting,
		out:          make(chan []byte, queueSize),
		done:         make(chan struct{}),
		connectedAt:  connectedAt,
		readTimeout:  timeout,
		writeTimeout: timeout,
	}
}

// RemoteIP returns the connection's remote address without the port.
func (c *Client) RemoteIP() string {
	host, _, err := net.SplitHostPort(c.conn.RemoteAddr().String())
	if err != nil {
		return c.conn.RemoteAddr().String()
	}
	return host
}

// State returns the client's lifecycle state.
func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetState moves the client to a new lifecycle state.
func (c *Client) SetState(s ClientState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// PlayerID returns the associated player, empty before Connect.
func (c *Client) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// SessionID returns the associated session, empty before Connect.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Associate binds the client to its player and session after Connect.
func (c *Client) Associate(playerID, sessionID string) {
	c.mu.Lock()
	c.playerID = playerID
	c.sessionID = sessionID
	c.state = StateConnected
	c.mu.Unlock()
}

// Disassociate clears the binding after a withdrawn or failed Connect.
func (c *Client) Disassociate() {
	c.mu.Lock()
	c.playerID = ""
	c.sessionID = ""
	c.state = StateConnected
	c.mu.Unlock()
}

// Send queues an encoded message for the writer. A full queue means
// the client cannot keep up; the connection is marked for teardown
// rather than blocking the sender.
func (c *Client) Send(msg *protocol.Message) error {
	line, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return errs.ConnectionLost()
	default:
	}

	select {
	case c.out <- line:
		return nil
	default:
		log.Warningf("client %s: outbound queue full, dropping connection", c.RemoteIP())
		c.SetState(StateDisconnecting)
		c.Close()
		return errs.ConnectionLost()
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Done is closed when the connection is torn down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ReadLoop reads newline-delimited messages and hands each to handle.
// It returns when the connection closes, errors or idles out.
func (c *Client) ReadLoop(handle func(line []byte)) {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), protocol.MaxMessageSize+1)

	for {
		if c.readTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				if err == bufio.ErrTooLong {
					// Best effort; the writer may not flush before teardown.
					c.Send(protocol.NewError("", errs.MessageTooLarge(protocol.MaxMessageSize)))
				}
				log.Debugf("client %s: read: %v", c.RemoteIP(), err)
			}
			return
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		handle(line)

		select {
		case <-c.done:
			return
		default:
		}
	}
}

// WriteLoop drains the outbound queue onto the connection, one message
// per line. It returns when the client closes.
func (c *Client) WriteLoop() {
	for {
		select {
		case line := <-c.out:
			if c.writeTimeout > 0 {
				c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			}
			if _, err := c.conn.Write(append(line, '\n')); err != nil {
				log.Debugf("client %s: write: %v", c.RemoteIP(), err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
