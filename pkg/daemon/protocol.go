package daemon

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/b/tmux-tabsplit/pkg/paths"
	"github.com/b/tmux-tabsplit/pkg/splitstore"
)

// MessageType identifies the type of message
type MessageType string

const (
	MsgSubscribe   MessageType = "subscribe"   // Client -> Daemon: start receiving state messages
	MsgUnsubscribe MessageType = "unsubscribe" // Client -> Daemon: stop and disconnect
	MsgUpdate      MessageType = "update"      // Client -> Daemon: apply an action batch
	MsgGetState    MessageType = "get_state"   // Client -> Daemon: request a snapshot
	MsgResult      MessageType = "result"      // Daemon -> Client: outcome of an update
	MsgState       MessageType = "state"       // Daemon -> Client: snapshot, after a change or on request
	MsgPing        MessageType = "ping"
	MsgPong        MessageType = "pong"
)

// Message is the envelope for daemon<->client communication. One message
// per line, JSON encoded.
type Message struct {
	Type     MessageType     `json:"type"`
	ClientID string          `json:"client_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// NewMessage encodes payload into a message. A nil payload is omitted.
func NewMessage(t MessageType, clientID string, payload interface{}) (Message, error) {
	msg := Message{Type: t, ClientID: clientID}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	msg.Payload = data
	return msg, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// ActionPayload is the wire form of a splitstore.Action.
type ActionPayload struct {
	Type  splitstore.ActionType `json:"type"`
	Value json.RawMessage       `json:"value,omitempty"`
}

// UpdatePayload carries one batch of actions.
type UpdatePayload struct {
	Actions []ActionPayload `json:"actions"`
}

// ResultPayload reports how an update batch went.
type ResultPayload struct {
	OK     bool              `json:"ok"`
	Code   string            `json:"code,omitempty"`  // Machine readable error, see errorCodes
	Error  string            `json:"error,omitempty"` // Full error text
	Index  int               `json:"index"`           // Failing action, when !OK
	Change splitstore.Change `json:"change"`
}

// StatePayload contains a snapshot and the change that produced it.
type StatePayload struct {
	SequenceNum uint64            `json:"seq"` // Monotonic per daemon
	State       splitstore.State  `json:"state"`
	Change      splitstore.Change `json:"change"`
}

// EncodeAction converts an action to its wire form.
func EncodeAction(a splitstore.Action) (ActionPayload, error) {
	p := ActionPayload{Type: a.Type}
	if a.Value == nil {
		return p, nil
	}
	data, err := json.Marshal(a.Value)
	if err != nil {
		return ActionPayload{}, fmt.Errorf("encode %s value: %w", a.Type, err)
	}
	p.Value = data
	return p, nil
}

// Decode converts the wire form back into an action. Unknown types are
// passed through so the store can reject them.
func (p ActionPayload) Decode() (splitstore.Action, error) {
	action := splitstore.Action{Type: p.Type}

	switch p.Type {
	case splitstore.ActionUpdateWindowWidth:
		var width int
		err := p.decodeValue(&width)
		action.Value = width
		return action, err
	case splitstore.ActionUpdateSelectedPanel, splitstore.ActionRemoveTabGroup:
		var id string
		err := p.decodeValue(&id)
		action.Value = id
		return action, err
	case splitstore.ActionAddTabGroup:
		var spec splitstore.GroupSpec
		err := p.decodeValue(&spec)
		action.Value = spec
		return action, err
	case splitstore.ActionUpdateTabDistributions:
		var update splitstore.DistributionUpdate
		err := p.decodeValue(&update)
		action.Value = update
		return action, err
	}
	return action, nil
}

func (p ActionPayload) decodeValue(v interface{}) error {
	if len(p.Value) == 0 {
		return fmt.Errorf("%w: %s needs a value", splitstore.ErrInvalidActionValue, p.Type)
	}
	if err := json.Unmarshal(p.Value, v); err != nil {
		return fmt.Errorf("%w: %s: %v", splitstore.ErrInvalidActionValue, p.Type, err)
	}
	return nil
}

var errorCodes = []struct {
	err  error
	code string
}{
	{splitstore.ErrInvalidStatusTransition, "invalid_status_transition"},
	{splitstore.ErrInvalidWindowWidth, "invalid_window_width"},
	{splitstore.ErrUnknownPanel, "unknown_panel"},
	{splitstore.ErrUnknownGroup, "unknown_group"},
	{splitstore.ErrInvalidLayout, "invalid_layout"},
	{splitstore.ErrMissingColor, "missing_color"},
	{splitstore.ErrWrongGroupSize, "wrong_group_size"},
	{splitstore.ErrColumnMismatch, "column_mismatch"},
	{splitstore.ErrInvalidTabFields, "invalid_tab_fields"},
	{splitstore.ErrDuplicatePanelInGroup, "duplicate_panel_in_group"},
	{splitstore.ErrPanelAlreadySplit, "panel_already_split"},
	{splitstore.ErrDistributionSumMismatch, "distribution_sum_mismatch"},
	{splitstore.ErrUnknownActionType, "unknown_action_type"},
	{splitstore.ErrInvalidActionValue, "invalid_action_value"},
	{splitstore.ErrStoreDestroyed, "store_destroyed"},
}

// ErrorCode returns the wire code of err, or "internal".
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}

// Err rebuilds the error of a failed result so that errors.Is matches the
// store's sentinel errors on the client side.
func (r ResultPayload) Err() error {
	if r.OK {
		return nil
	}
	for _, ec := range errorCodes {
		if ec.code == r.Code {
			return &RemoteError{Code: r.Code, Message: r.Error, Index: r.Index, sentinel: ec.err}
		}
	}
	return &RemoteError{Code: r.Code, Message: r.Error, Index: r.Index}
}

// RemoteError is a store error reported by the daemon.
type RemoteError struct {
	Code     string
	Message  string
	Index    int
	sentinel error
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.sentinel
}

// SocketPath returns the daemon socket path for a session
func SocketPath(sessionID string) string {
	return paths.RuntimePath("daemon", sessionID, ".sock")
}

// PidPath returns the pidfile path for a session
func PidPath(sessionID string) string {
	return paths.RuntimePath("daemon", sessionID, ".pid")
}
