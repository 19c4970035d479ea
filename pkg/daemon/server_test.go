package daemon

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b/tmux-tabsplit/pkg/splitstore"
)

func newTestServer(t *testing.T, panels ...string) (*Server, *splitstore.Store) {
	t.Helper()
	t.Setenv("TABSPLIT_RUNTIME_DIR", t.TempDir())
	store := splitstore.New(splitstore.NewStaticHost(panels...))
	return NewServer("test", store), store
}

// connect serves one end of a pipe and returns a client on the other.
func connect(t *testing.T, server *Server) *Client {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	go server.handleClient(serverConn)
	client := NewClient(clientConn)
	t.Cleanup(func() { clientConn.Close() })
	return client
}

func TestServerAppliesUpdates(t *testing.T) {
	server, store := newTestServer(t, "%1", "%2")
	client := connect(t, server)

	change, err := client.Update(
		splitstore.SetActive(),
		splitstore.UpdateWindowWidth(200),
		splitstore.AddTabGroup(splitstore.ColumnSplit("#ff0000", "%1", "%2", 0.5)),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"group-1"}, change.Added)

	st := store.GetState()
	assert.Equal(t, splitstore.StatusActive, st.Status)
	assert.Equal(t, 200, st.WindowWidth)
	assert.Len(t, st.Groups, 1)

	remote, err := client.State()
	require.NoError(t, err)
	assert.Equal(t, st, remote)
}

func TestServerReportsStoreErrors(t *testing.T) {
	server, store := newTestServer(t, "%1", "%2")
	client := connect(t, server)

	_, err := client.Update(
		splitstore.SetActive(),
		splitstore.AddTabGroup(splitstore.GroupSpec{
			Color:  "#ff0000",
			Layout: splitstore.LayoutColumnSplit,
			Tabs: []splitstore.TabMember{
				{PanelID: "%1", Col: 0, Distribution: 0.5},
				{PanelID: "%2", Col: 1, Distribution: 0.4},
			},
		}),
	)
	require.ErrorIs(t, err, splitstore.ErrDistributionSumMismatch)

	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 1, rerr.Index)
	assert.Equal(t, "distribution_sum_mismatch", rerr.Code)

	assert.Equal(t, splitstore.StatusActive, store.Status(), "earlier actions stay applied")
	assert.Empty(t, store.GetState().Groups)
}

func TestServerRejectsMalformedActionsBeforeApplying(t *testing.T) {
	server, store := newTestServer(t)
	client := connect(t, server)

	_, err := client.Update(
		splitstore.SetActive(),
		splitstore.Action{Type: splitstore.ActionUpdateWindowWidth, Value: "wide"},
	)
	require.ErrorIs(t, err, splitstore.ErrInvalidActionValue)
	assert.Equal(t, splitstore.StatusInactive, store.Status())
}

func TestSubscribedClientReceivesChanges(t *testing.T) {
	server, store := newTestServer(t, "%1", "%2")
	watcher := connect(t, server)
	writer := connect(t, server)

	require.NoError(t, watcher.Subscribe())
	initial, err := watcher.Next()
	require.NoError(t, err)
	assert.Equal(t, splitstore.StatusInactive, initial.State.Status)

	// The push to the watcher happens inside the writer's update, so it
	// must be read concurrently.
	next := make(chan StatePayload, 1)
	go func() {
		p, err := watcher.Next()
		if err == nil {
			next <- p
		}
	}()

	_, err = writer.Update(
		splitstore.SetActive(),
		splitstore.AddTabGroup(splitstore.ColumnSplit("#00ff00", "%1", "%2", 0.5)),
	)
	require.NoError(t, err)

	select {
	case p := <-next:
		assert.Equal(t, []string{"group-1"}, p.Change.Added)
		assert.Equal(t, splitstore.StatusActive, p.State.Status)
		assert.Greater(t, p.SequenceNum, initial.SequenceNum)
	case <-time.After(2 * time.Second):
		t.Fatal("no state pushed to subscriber")
	}

	assert.Equal(t, 1, store.ListenerCount())
}

func TestDisconnectUnsubscribes(t *testing.T) {
	server, store := newTestServer(t)
	serverConn, clientConn := net.Pipe()
	done := make(chan struct{})
	go func() {
		server.handleClient(serverConn)
		close(done)
	}()

	client := NewClient(clientConn)
	require.NoError(t, client.Subscribe())
	_, err := client.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, store.ListenerCount())
	assert.Equal(t, 1, server.ClientCount())

	clientConn.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not notice disconnect")
	}
	assert.Equal(t, 0, store.ListenerCount())
	assert.Equal(t, 0, server.ClientCount())
}

// rawConn sends messages with a fixed client id, bypassing Client.
type rawConn struct {
	conn net.Conn
	in   *bufio.Scanner
}

func dialRaw(t *testing.T, server *Server) *rawConn {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	go server.handleClient(serverConn)
	t.Cleanup(func() { clientConn.Close() })
	return &rawConn{conn: clientConn, in: bufio.NewScanner(clientConn)}
}

func (r *rawConn) ping(t *testing.T, clientID string) {
	t.Helper()
	data, err := json.Marshal(Message{Type: MsgPing, ClientID: clientID})
	require.NoError(t, err)
	_, err = r.conn.Write(append(data, '\n'))
	require.NoError(t, err)
	require.True(t, r.in.Scan(), "no pong")
	var msg Message
	require.NoError(t, json.Unmarshal(r.in.Bytes(), &msg))
	assert.Equal(t, MsgPong, msg.Type)
}

func TestDuplicateClientIDsAreKeptApart(t *testing.T) {
	server, _ := newTestServer(t)
	a := dialRaw(t, server)
	b := dialRaw(t, server)

	a.ping(t, "same")
	b.ping(t, "same")
	assert.Equal(t, 2, server.ClientCount())
	assert.Contains(t, server.GetAllClientIDs(), "same")

	a.conn.Close()
	assert.Eventually(t, func() bool { return server.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	b.ping(t, "same")
	assert.Equal(t, 1, server.ClientCount())
}

func TestPing(t *testing.T) {
	server, _ := newTestServer(t)
	client := connect(t, server)
	require.NoError(t, client.Ping())
}

func TestServerStartStop(t *testing.T) {
	server, _ := newTestServer(t)
	require.NoError(t, server.Start())

	client, err := DialPath(server.GetSocketPath())
	require.NoError(t, err)
	require.NoError(t, client.Ping())
	require.NoError(t, client.Close())

	second := NewServer("test", splitstore.New(nil))
	assert.Error(t, second.Start(), "pidfile is held by this process")

	server.Stop()
	_, err = DialPath(server.GetSocketPath())
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(server.GetSocketPath()), "tabsplit-daemon-test.pid"))
}
