package daemon

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/b/tmux-tabsplit/pkg/splitstore"
)

// ErrClosed is returned by Client methods once the connection is gone.
var ErrClosed = errors.New("daemon connection closed")

// Client talks to a running daemon. Calls are serialized; a client that
// has subscribed should only be used with Next.
type Client struct {
	id      string
	conn    net.Conn
	scanner *bufio.Scanner
	mu      sync.Mutex
}

// Dial connects to the daemon of a session.
func Dial(sessionID string) (*Client, error) {
	return DialPath(SocketPath(sessionID))
}

// DialPath connects to the daemon socket at path.
func DialPath(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon at %s: %w", path, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Client{
		id:      uuid.NewString(),
		conn:    conn,
		scanner: scanner,
	}
}

// ID returns the client id sent with every message.
func (c *Client) ID() string {
	return c.id
}

// Update submits one action batch and waits for its result.
func (c *Client) Update(actions ...splitstore.Action) (splitstore.Change, error) {
	payload := UpdatePayload{Actions: make([]ActionPayload, 0, len(actions))}
	for _, a := range actions {
		p, err := EncodeAction(a)
		if err != nil {
			return splitstore.Change{}, err
		}
		payload.Actions = append(payload.Actions, p)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.send(MsgUpdate, payload); err != nil {
		return splitstore.Change{}, err
	}
	msg, err := c.readType(MsgResult)
	if err != nil {
		return splitstore.Change{}, err
	}
	var result ResultPayload
	if err := msg.Decode(&result); err != nil {
		return splitstore.Change{}, err
	}
	return result.Change, result.Err()
}

// State fetches a snapshot of the daemon's store.
func (c *Client) State() (splitstore.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.send(MsgGetState, nil); err != nil {
		return splitstore.State{}, err
	}
	msg, err := c.readType(MsgState)
	if err != nil {
		return splitstore.State{}, err
	}
	var payload StatePayload
	if err := msg.Decode(&payload); err != nil {
		return splitstore.State{}, err
	}
	return payload.State, nil
}

// Subscribe asks the daemon for state messages. The first one, carrying
// the current state, is returned by the next call to Next.
func (c *Client) Subscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(MsgSubscribe, nil)
}

// Next blocks until the next state message arrives.
func (c *Client) Next() (StatePayload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, err := c.readType(MsgState)
	if err != nil {
		return StatePayload{}, err
	}
	var payload StatePayload
	err = msg.Decode(&payload)
	return payload, err
}

// Ping checks that the daemon answers.
func (c *Client) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.send(MsgPing, nil); err != nil {
		return err
	}
	_, err := c.readType(MsgPong)
	return err
}

// Close unsubscribes and closes the connection.
func (c *Client) Close() error {
	_ = c.send(MsgUnsubscribe, nil)
	return c.conn.Close()
}

func (c *Client) send(t MessageType, payload interface{}) error {
	msg, err := NewMessage(t, c.id, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("send %s: %w", t, err)
	}
	return nil
}

// readType reads messages until one of type t arrives. State pushes that
// arrive while waiting for a result are dropped.
func (c *Client) readType(t MessageType) (Message, error) {
	for c.scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(c.scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.Type == t {
			return msg, nil
		}
	}
	if err := c.scanner.Err(); err != nil {
		return Message{}, fmt.Errorf("read %s: %w", t, err)
	}
	return Message{}, ErrClosed
}
