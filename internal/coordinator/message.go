// Package coordinator implements the reference, in-process authoritative
// document: it accepts operations from many editorclient.Client
// instances (by way of internal/wsconn), transforms them against
// history, and rebroadcasts the result. It is one concrete
// implementation of the coordinator role the core libraries leave
// abstract, not the library's core itself.
package coordinator

import (
	"encoding/json"

	"github.com/quillpad/quillpad/editorclient"
	"github.com/quillpad/quillpad/ot"
)

// UserInfo is the display information a participant reports about
// itself: the editor's SetUserColor/SetUserName calls land here.
type UserInfo struct {
	Name string `json:"name"`
	Hue  uint32 `json:"hue"`
}

// StampedOperation is an operation together with the participant who
// authored it, as recorded in the coordinator's history log.
type StampedOperation struct {
	ID editorclient.ClientID `json:"id"`
	Op *ot.Operation         `json:"operation"`
}

// ClientMessage is the tagged union of messages a participant sends to
// the coordinator. Exactly one field is populated per message.
type ClientMessage struct {
	Edit       *EditMessage `json:"edit,omitempty"`
	ClientInfo *UserInfo    `json:"clientInfo,omitempty"`
	Cursor     *ot.Cursor   `json:"cursor,omitempty"`
	CursorOff  bool         `json:"cursorOff,omitempty"`
}

// EditMessage carries a locally authored operation and the revision it
// was composed against.
type EditMessage struct {
	Revision  int           `json:"revision"`
	Operation *ot.Operation `json:"operation"`
}

// ServerMessage is the tagged union of messages the coordinator sends to
// a participant. Exactly one field is populated per message.
type ServerMessage struct {
	Identity   *string            `json:"identity,omitempty"`
	History    *HistoryMessage    `json:"history,omitempty"`
	UserInfo   *UserInfoMessage   `json:"userInfo,omitempty"`
	UserCursor *UserCursorMessage `json:"userCursor,omitempty"`
}

// HistoryMessage carries a contiguous run of operations starting at
// revision Start.
type HistoryMessage struct {
	Start      int                `json:"start"`
	Operations []StampedOperation `json:"operations"`
}

// UserInfoMessage announces a participant joining, updating its display
// attributes, or leaving (Info == nil).
type UserInfoMessage struct {
	ID   editorclient.ClientID `json:"id"`
	Info *UserInfo             `json:"info,omitempty"`
}

// UserCursorMessage announces a participant's cursor, or its absence
// (Cursor == nil) after a blur or disconnect. Name and Hue are a
// snapshot of that participant's UserInfo at the time the cursor moved,
// so a late-joining client can render the cursor's label without a
// separate lookup.
type UserCursorMessage struct {
	ID     editorclient.ClientID `json:"id"`
	Name   string                `json:"name"`
	Hue    uint32                `json:"hue"`
	Cursor *ot.Cursor            `json:"cursor,omitempty"`
}

// NewIdentityMessage reports id as the recipient's own client ID.
func NewIdentityMessage(id editorclient.ClientID) *ServerMessage {
	s := string(id)
	return &ServerMessage{Identity: &s}
}

// NewHistoryMessage reports a contiguous run of history starting at
// start.
func NewHistoryMessage(start int, ops []StampedOperation) *ServerMessage {
	return &ServerMessage{History: &HistoryMessage{Start: start, Operations: ops}}
}

// NewUserInfoMessage reports id joining or updating its display info,
// or leaving if info is nil.
func NewUserInfoMessage(id editorclient.ClientID, info *UserInfo) *ServerMessage {
	return &ServerMessage{UserInfo: &UserInfoMessage{ID: id, Info: info}}
}

// NewUserCursorMessage reports id's cursor, alongside its display info
// at the time (nil cursor clears it).
func NewUserCursorMessage(id editorclient.ClientID, info UserInfo, cursor *ot.Cursor) *ServerMessage {
	return &ServerMessage{UserCursor: &UserCursorMessage{ID: id, Name: info.Name, Hue: info.Hue, Cursor: cursor}}
}

// MarshalJSON ensures only the populated field of the union is emitted.
func (m *ServerMessage) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 1)
	switch {
	case m.Identity != nil:
		out["identity"] = *m.Identity
	case m.History != nil:
		out["history"] = m.History
	case m.UserInfo != nil:
		out["userInfo"] = m.UserInfo
	case m.UserCursor != nil:
		out["userCursor"] = m.UserCursor
	}
	return json.Marshal(out)
}
