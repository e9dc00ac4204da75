package wsconn

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/quillpad/quillpad/editorclient"
	"github.com/quillpad/quillpad/internal/coordinator"
	"github.com/quillpad/quillpad/ot"
	"github.com/quillpad/quillpad/pkg/otlog"
)

// DialAdapter implements editorclient.CoordinatorAdapter over a websocket
// connection to a document hosted by internal/wsconn.ServeDocument
// (typically cmd/server). It is the client side of the same wire protocol
// ServeDocument speaks on the server side.
//
// The coordinator broadcasts every accepted operation, including the
// submitter's own, back to that submitter inside the same HistoryMessage
// stream used for remote operations — there is no separate "ack" frame on
// the wire. DialAdapter recovers the Ack/Operation distinction by
// comparing each history entry's author ID against its own: an entry it
// authored is an Ack, anything else is a remote Operation.
type DialAdapter struct {
	conn *websocket.Conn

	mu          sync.Mutex
	ownID       editorclient.ClientID
	color       string
	name        string
	revision    int
	historySeen bool
	cb          editorclient.CoordinatorCallbacks
}

// Dial connects to url (a ws:// or wss:// URL pointing at a
// ServeDocument-backed endpoint, e.g. ".../api/socket/my-doc") and
// returns a DialAdapter ready to be passed to editorclient.New. The
// caller owns the returned adapter's lifetime; call Close when done.
func Dial(ctx context.Context, url string) (*DialAdapter, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsconn: dial %s: %w", url, err)
	}
	d := &DialAdapter{conn: conn}
	go d.readLoop(ctx)
	return d, nil
}

// Close closes the underlying connection.
func (d *DialAdapter) Close() error {
	return d.conn.Close(websocket.StatusNormalClosure, "")
}

func (d *DialAdapter) readLoop(ctx context.Context) {
	for {
		var msg coordinator.ServerMessage
		if err := wsjson.Read(ctx, d.conn, &msg); err != nil {
			return
		}
		d.dispatch(&msg)
	}
}

func (d *DialAdapter) dispatch(msg *coordinator.ServerMessage) {
	switch {
	case msg.Identity != nil:
		d.mu.Lock()
		d.ownID = editorclient.ClientID(*msg.Identity)
		d.mu.Unlock()
	case msg.History != nil:
		d.mu.Lock()
		own := d.ownID
		d.historySeen = d.historySeen || len(msg.History.Operations) > 0
		d.revision = msg.History.Start + len(msg.History.Operations)
		cb := d.cb
		d.mu.Unlock()

		for _, stamped := range msg.History.Operations {
			if stamped.ID == own {
				if cb.Ack != nil {
					cb.Ack()
				}
				continue
			}
			if cb.Operation != nil {
				cb.Operation(stamped.Op)
			}
		}
	case msg.UserCursor != nil:
		d.mu.Lock()
		cb := d.cb
		d.mu.Unlock()
		if cb.Cursor != nil {
			cb.Cursor(msg.UserCursor.ID, msg.UserCursor.Cursor, hueToColor(msg.UserCursor.Hue), msg.UserCursor.Name)
		}
	case msg.UserInfo != nil && msg.UserInfo.Info == nil:
		// A participant left; the coordinator sends no separate cursor
		// clear for a departure, so report it as a nil cursor.
		otlog.L().Debugw("participant left", "id", msg.UserInfo.ID)
		d.mu.Lock()
		cb := d.cb
		d.mu.Unlock()
		if cb.Cursor != nil {
			cb.Cursor(msg.UserInfo.ID, nil, "", "")
		}
	}
}

// SendOperation implements editorclient.CoordinatorAdapter.
func (d *DialAdapter) SendOperation(op *ot.Operation) {
	d.mu.Lock()
	rev := d.revision
	d.mu.Unlock()
	d.send(&coordinator.ClientMessage{Edit: &coordinator.EditMessage{Revision: rev, Operation: op}})
}

// SendCursor implements editorclient.CoordinatorAdapter.
func (d *DialAdapter) SendCursor(c *ot.Cursor) {
	if c == nil {
		d.send(&coordinator.ClientMessage{CursorOff: true})
		return
	}
	d.send(&coordinator.ClientMessage{Cursor: c})
}

// IsCurrentUser implements editorclient.CoordinatorAdapter.
func (d *DialAdapter) IsCurrentUser(id editorclient.ClientID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return id == d.ownID
}

// IsHistoryEmpty implements editorclient.CoordinatorAdapter.
func (d *DialAdapter) IsHistoryEmpty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.historySeen
}

// SetUserID implements editorclient.CoordinatorAdapter. The reference
// coordinator assigns identity itself on connect (the Identity message),
// so this only overrides the locally cached value; it does not renegotiate
// with the coordinator.
func (d *DialAdapter) SetUserID(id editorclient.ClientID) {
	d.mu.Lock()
	d.ownID = id
	d.mu.Unlock()
}

// SetUserColor implements editorclient.CoordinatorAdapter.
func (d *DialAdapter) SetUserColor(color string) {
	d.mu.Lock()
	d.color = color
	d.mu.Unlock()
	d.sendClientInfo()
}

// SetUserName implements editorclient.CoordinatorAdapter.
func (d *DialAdapter) SetUserName(name string) {
	d.mu.Lock()
	d.name = name
	d.mu.Unlock()
	d.sendClientInfo()
}

// RegisterCallbacks implements editorclient.CoordinatorAdapter.
func (d *DialAdapter) RegisterCallbacks(cb editorclient.CoordinatorCallbacks) {
	d.mu.Lock()
	d.cb = cb
	d.mu.Unlock()
}

func (d *DialAdapter) sendClientInfo() {
	d.mu.Lock()
	info := coordinator.UserInfo{Name: d.name, Hue: colorToHue(d.color)}
	d.mu.Unlock()
	d.send(&coordinator.ClientMessage{ClientInfo: &info})
}

func (d *DialAdapter) send(msg *coordinator.ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, d.conn, msg); err != nil {
		otlog.L().Warnw("send client message", "error", err)
	}
}

// hueToColor and colorToHue round-trip a participant's display color
// through the wire protocol's hue field (cursor colors derive from an
// HSL hue), so the reference adapters never need a real color-naming
// library for a presentation-only concern.
func hueToColor(hue uint32) string {
	return fmt.Sprintf("hsl(%d,70%%,50%%)", hue%360)
}

func colorToHue(color string) uint32 {
	if !strings.HasPrefix(color, "hsl(") {
		return hashHue(color)
	}
	body := strings.TrimPrefix(color, "hsl(")
	comma := strings.IndexByte(body, ',')
	if comma < 0 {
		return hashHue(color)
	}
	h, err := strconv.Atoi(body[:comma])
	if err != nil || h < 0 {
		return hashHue(color)
	}
	return uint32(h) % 360
}

func hashHue(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h % 360
}
