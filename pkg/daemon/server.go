package daemon

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/b/tmux-tabsplit/pkg/splitstore"
)

// clientConn is one connected client. Subscribed clients are registered
// with the store as listeners.
type clientConn struct {
	id      string
	conn    net.Conn
	writeMu sync.Mutex
	server  *Server
}

// OnStateChange pushes the new state to the client.
func (c *clientConn) OnStateChange(store *splitstore.Store, change splitstore.Change) {
	if err := c.server.sendState(c, store.GetState(), change); err != nil {
		c.server.Logger.Printf("STATE_SEND client=%s err=%v", c.id, err)
	}
}

func (c *clientConn) send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, err = c.conn.Write(append(data, '\n'))
	return err
}

// Server is the daemon server that exposes a split store to clients
type Server struct {
	socketPath string
	pidPath    string
	listener   net.Listener
	store      *splitstore.Store
	clients    map[string]*clientConn
	clientsMu  sync.RWMutex
	done       chan struct{}
	stopOnce   sync.Once

	sequenceNum atomic.Uint64

	// Logger receives one line per client event (default: discard)
	Logger *log.Logger

	// Called after every update batch, successful or not
	OnUpdate func(clientID string, change splitstore.Change, err error)
}

// NewServer creates a daemon server for a session, serving store
func NewServer(sessionID string, store *splitstore.Store) *Server {
	return &Server{
		socketPath: SocketPath(sessionID),
		pidPath:    PidPath(sessionID),
		store:      store,
		clients:    make(map[string]*clientConn),
		done:       make(chan struct{}),
		Logger:     log.New(io.Discard, "", 0),
	}
}

// Start begins listening for client connections
func (s *Server) Start() error {
	// Check if another daemon is already running
	if err := s.checkAndClaimPid(); err != nil {
		return err
	}

	// Remove stale socket if exists (safe now that we own the pidfile)
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		os.Remove(s.pidPath) // Clean up pidfile on failure
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.listener = listener

	go s.acceptLoop()

	return nil
}

// checkAndClaimPid checks for existing daemon and claims pidfile
func (s *Server) checkAndClaimPid() error {
	if data, err := os.ReadFile(s.pidPath); err == nil {
		pidStr := strings.TrimSpace(string(data))
		if pid, err := strconv.Atoi(pidStr); err == nil && pid > 0 {
			if process, err := os.FindProcess(pid); err == nil {
				// On Unix, FindProcess always succeeds, so we need to send signal 0
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("daemon already running with pid %d", pid)
				}
			}
		}
		// Stale pidfile, remove it
		os.Remove(s.pidPath)
	}

	pid := os.Getpid()
	if err := os.WriteFile(s.pidPath, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("failed to write pidfile: %w", err)
	}

	return nil
}

// Stop shuts down the server. The store is left as is.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.clientsMu.Lock()
		for id, client := range s.clients {
			s.store.Unsubscribe(client)
			client.conn.Close()
			delete(s.clients, id)
		}
		s.clientsMu.Unlock()
		os.Remove(s.socketPath)
		os.Remove(s.pidPath)
	})
}

// Done is closed when the server stops
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// GetSocketPath returns the socket path
func (s *Server) GetSocketPath() string {
	return s.socketPath
}

// acceptLoop handles incoming connections
func (s *Server) acceptLoop() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}

		go s.handleClient(conn)
	}
}

// handleClient processes messages from a client until it disconnects
func (s *Server) handleClient(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	client := &clientConn{conn: conn, server: s}

	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			s.Logger.Printf("BAD_MESSAGE err=%v", err)
			continue
		}
		if client.id == "" {
			client.id = msg.ClientID
			s.clientsMu.Lock()
			if client.id == "" {
				client.id = uuid.NewString()
			} else if _, taken := s.clients[client.id]; taken {
				client.id += "-" + uuid.NewString()
			}
			s.clients[client.id] = client
			s.clientsMu.Unlock()
		}

		switch msg.Type {
		case MsgSubscribe:
			s.Logger.Printf("SUBSCRIBE client=%s", client.id)
			s.store.Subscribe(client)
			s.sendState(client, s.store.GetState(), splitstore.Change{})

		case MsgUnsubscribe:
			s.Logger.Printf("UNSUBSCRIBE client=%s", client.id)
			s.dropClient(client)
			return

		case MsgUpdate:
			s.handleUpdate(client, msg)

		case MsgGetState:
			s.sendState(client, s.store.GetState(), splitstore.Change{})

		case MsgPing:
			client.send(Message{Type: MsgPong, ClientID: client.id})
		}
	}

	// Client disconnected
	if client.id != "" {
		s.dropClient(client)
	}
}

func (s *Server) handleUpdate(client *clientConn, msg Message) {
	var payload UpdatePayload
	if err := msg.Decode(&payload); err != nil {
		s.sendResult(client, splitstore.Change{}, &splitstore.ActionError{Index: 0, Err: fmt.Errorf("%w: %v", splitstore.ErrInvalidActionValue, err)})
		return
	}

	actions := make([]splitstore.Action, 0, len(payload.Actions))
	for i, p := range payload.Actions {
		action, err := p.Decode()
		if err != nil {
			// Nothing from this batch has been applied yet.
			s.sendResult(client, splitstore.Change{}, &splitstore.ActionError{Index: i, Type: p.Type, Err: err})
			return
		}
		actions = append(actions, action)
	}

	change, err := s.store.Update(actions...)
	s.Logger.Printf("UPDATE client=%s actions=%d added=%v removed=%v updated=%v err=%v",
		client.id, len(actions), change.Added, change.Removed, change.Updated, err)
	if s.OnUpdate != nil {
		s.OnUpdate(client.id, change, err)
	}
	s.sendResult(client, change, err)
}

func (s *Server) dropClient(client *clientConn) {
	s.store.Unsubscribe(client)
	s.clientsMu.Lock()
	if s.clients[client.id] == client {
		delete(s.clients, client.id)
	}
	s.clientsMu.Unlock()
}

func (s *Server) sendResult(client *clientConn, change splitstore.Change, err error) error {
	result := ResultPayload{OK: err == nil, Change: change}
	if err != nil {
		result.Code = ErrorCode(err)
		result.Error = err.Error()
		var aerr *splitstore.ActionError
		if errors.As(err, &aerr) {
			result.Index = aerr.Index
		}
	}
	msg, merr := NewMessage(MsgResult, client.id, result)
	if merr != nil {
		return merr
	}
	return client.send(msg)
}

func (s *Server) sendState(client *clientConn, st splitstore.State, change splitstore.Change) error {
	msg, err := NewMessage(MsgState, client.id, StatePayload{
		SequenceNum: s.sequenceNum.Add(1),
		State:       st,
		Change:      change,
	})
	if err != nil {
		return err
	}
	return client.send(msg)
}

// GetAllClientIDs returns all connected client IDs
func (s *Server) GetAllClientIDs() []string {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	return ids
}
