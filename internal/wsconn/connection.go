// Package wsconn is the websocket transport binding a document to
// editorclient.CoordinatorAdapter, in both directions: ServeDocument
// handles the server side of a connection against an
// internal/coordinator.Document, and Dial implements CoordinatorAdapter
// itself for a process that wants to join a document hosted elsewhere
// (cmd/otcli uses it this way). Both sides speak the same
// internal/coordinator message envelope over nhooyr.io/websocket.
package wsconn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/quillpad/quillpad/editorclient"
	"github.com/quillpad/quillpad/internal/coordinator"
	"github.com/quillpad/quillpad/pkg/otlog"
	"github.com/quillpad/quillpad/pkg/otmetrics"
)

const writeTimeout = 10 * time.Second

// connection is the server side of one participant's websocket.
type connection struct {
	id   editorclient.ClientID
	doc  *coordinator.Document
	conn *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc
	sendMu sync.Mutex
}

// ServeDocument drives the full connection lifecycle for one participant
// against doc until the client disconnects, the document is killed, or
// ctx is cancelled. The caller is responsible for the websocket upgrade
// (cmd/server does it inside its gin handler).
func ServeDocument(ctx context.Context, doc *coordinator.Document, conn *websocket.Conn) error {
	id := doc.Join()
	cctx, cancel := context.WithCancel(ctx)
	c := &connection{id: id, doc: doc, conn: conn, ctx: cctx, cancel: cancel}
	defer c.cleanup()

	otmetrics.ConnectedClients.Inc()
	defer otmetrics.ConnectedClients.Dec()

	otlog.L().Infow("connection opened", "clientId", id)

	revision, err := c.sendInitial()
	if err != nil {
		return fmt.Errorf("send initial state: %w", err)
	}

	done := make(chan struct{})
	go c.pushLoop(revision, done)
	defer func() { c.cancel(); <-done }()

	for {
		var msg coordinator.ClientMessage
		if err := wsjson.Read(cctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			if cctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		if err := c.handle(&msg); err != nil {
			otlog.L().Warnw("rejecting client message", "clientId", id, "error", err)
		}
	}
}

func (c *connection) sendInitial() (int, error) {
	if err := c.send(coordinator.NewIdentityMessage(c.id)); err != nil {
		return 0, err
	}

	history, users, cursors := c.doc.InitialState()
	if len(history) > 0 {
		if err := c.send(coordinator.NewHistoryMessage(0, history)); err != nil {
			return 0, err
		}
	}
	for id, info := range users {
		infoCopy := info
		if err := c.send(coordinator.NewUserInfoMessage(id, &infoCopy)); err != nil {
			return 0, err
		}
	}
	for id, cursor := range cursors {
		if err := c.send(coordinator.NewUserCursorMessage(id, users[id], cursor)); err != nil {
			return 0, err
		}
	}
	return len(history), nil
}

func (c *connection) sendHistory(start int) (int, error) {
	history := c.doc.History(start)
	if len(history) == 0 {
		return start, nil
	}
	if err := c.send(coordinator.NewHistoryMessage(start, history)); err != nil {
		return start, err
	}
	return start + len(history), nil
}

func (c *connection) handle(msg *coordinator.ClientMessage) error {
	switch {
	case msg.Edit != nil:
		return c.doc.ApplyEdit(c.id, msg.Edit.Revision, msg.Edit.Operation)
	case msg.ClientInfo != nil:
		c.doc.SetUserInfo(c.id, *msg.ClientInfo)
		return nil
	case msg.CursorOff:
		c.doc.SetCursor(c.id, nil)
		return nil
	case msg.Cursor != nil:
		c.doc.SetCursor(c.id, msg.Cursor)
		return nil
	}
	return nil
}

// pushLoop owns outbound delivery after the initial state: it streams new
// history whenever the document's notify channel fires, and forwards
// presence broadcasts from the subscriber channel. On any send failure it
// cancels the connection so the read loop unblocks too.
func (c *connection) pushLoop(revision int, done chan struct{}) {
	defer close(done)
	ch := c.doc.Subscribe(c.id)
	for {
		if c.doc.Killed() {
			c.cancel()
			return
		}

		// Fetch the notify channel before comparing revisions, so an edit
		// landing between the check and the select still wakes us.
		notify := c.doc.NotifyChannel()

		if c.doc.Revision() > revision {
			rev, err := c.sendHistory(revision)
			if err != nil {
				otlog.L().Warnw("history send failed, dropping connection", "clientId", c.id, "error", err)
				c.cancel()
				return
			}
			revision = rev
			continue
		}

		select {
		case <-c.ctx.Done():
			return
		case <-notify:
		case msg, ok := <-ch:
			if !ok {
				// Unsubscribed or the document was killed.
				c.cancel()
				return
			}
			if err := c.send(msg); err != nil {
				otlog.L().Warnw("broadcast send failed, dropping connection", "clientId", c.id, "error", err)
				c.cancel()
				return
			}
		}
	}
}

func (c *connection) send(msg *coordinator.ServerMessage) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, msg)
}

func (c *connection) cleanup() {
	otlog.L().Infow("connection closed", "clientId", c.id)
	c.cancel()
	c.doc.Leave(c.id)
}
