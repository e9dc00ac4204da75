// Package client implements the three-state client synchronization
// protocol that mediates between local edits, coordinator
// acknowledgements, and remote operations.
//
// The state machine is deliberately a tagged union (sum type), not a
// class hierarchy: each state carries only the operations it needs, and
// the four public methods pattern-match on the current state and return
// the next one. All four methods are synchronous; none yields mid-call.
package client

import (
	"errors"

	"github.com/quillpad/quillpad/ot"
)

// ErrNoPendingOp is returned by ServerAck or ServerRetry when called while
// the client is Synchronized: the coordinator is out of sync with this
// client, since neither call makes sense without an outstanding operation.
var ErrNoPendingOp = errors.New("client: no pending operation")

// Sender is the capability a Client needs from its coordinator transport:
// push a locally authored operation, and apply a remote one to the
// editor. A two-method capability interface, not an inheritance
// relationship.
type Sender interface {
	SendOperation(op *ot.Operation)
	ApplyOperation(op *ot.Operation)
}

// State is the tagged union of the three client states. It has no
// exported fields of its own; callers type-switch on the concrete types
// below. Synchronized is a plain value; only equality, not identity,
// carries meaning here.
type State interface {
	isState()
}

// Synchronized means there is no outstanding operation.
type Synchronized struct{}

func (Synchronized) isState() {}

// AwaitingConfirm means Outstanding has been sent to the coordinator and
// not yet acknowledged.
type AwaitingConfirm struct {
	Outstanding *ot.Operation
}

func (AwaitingConfirm) isState() {}

// AwaitingWithBuffer means Outstanding is pending acknowledgement and
// Buffer holds local edits composed since, not yet sent.
type AwaitingWithBuffer struct {
	Outstanding *ot.Operation
	Buffer      *ot.Operation
}

func (AwaitingWithBuffer) isState() {}

// Client drives the synchronization protocol for a single document
// session. It is not safe for concurrent use without external
// synchronization: the whole core is single-threaded cooperative,
// relying on the caller to serialize events.
type Client struct {
	state  State
	sender Sender
}

// New creates a Client in the Synchronized state.
func New(sender Sender) *Client {
	return &Client{state: Synchronized{}, sender: sender}
}

// State returns the current state.
func (c *Client) State() State { return c.state }

// ApplyClient handles a locally authored operation.
func (c *Client) ApplyClient(a *ot.Operation) error {
	switch s := c.state.(type) {
	case Synchronized:
		c.sender.SendOperation(a)
		c.state = AwaitingConfirm{Outstanding: a}
	case AwaitingConfirm:
		c.state = AwaitingWithBuffer{Outstanding: s.Outstanding, Buffer: a}
	case AwaitingWithBuffer:
		composed, err := s.Buffer.Compose(a)
		if err != nil {
			return err
		}
		c.state = AwaitingWithBuffer{Outstanding: s.Outstanding, Buffer: composed}
	}
	return nil
}

// ApplyServer handles an operation delivered by the coordinator.
func (c *Client) ApplyServer(serverOp *ot.Operation) error {
	switch s := c.state.(type) {
	case Synchronized:
		c.sender.ApplyOperation(serverOp)
	case AwaitingConfirm:
		oPrime, sPrime, err := s.Outstanding.Transform(serverOp)
		if err != nil {
			return err
		}
		c.sender.ApplyOperation(sPrime)
		c.state = AwaitingConfirm{Outstanding: oPrime}
	case AwaitingWithBuffer:
		oPrime, sPrime, err := s.Outstanding.Transform(serverOp)
		if err != nil {
			return err
		}
		bPrime, sDoublePrime, err := s.Buffer.Transform(sPrime)
		if err != nil {
			return err
		}
		c.sender.ApplyOperation(sDoublePrime)
		c.state = AwaitingWithBuffer{Outstanding: oPrime, Buffer: bPrime}
	}
	return nil
}

// ServerAck handles a coordinator acknowledgement of the outstanding
// operation.
func (c *Client) ServerAck() error {
	switch s := c.state.(type) {
	case Synchronized:
		return ErrNoPendingOp
	case AwaitingConfirm:
		c.state = Synchronized{}
	case AwaitingWithBuffer:
		c.sender.SendOperation(s.Buffer)
		c.state = AwaitingConfirm{Outstanding: s.Buffer}
	}
	return nil
}

// ServerRetry handles the coordinator's request to resend the outstanding
// operation, recomposing outstanding+buffer so the retry reflects all
// local work.
func (c *Client) ServerRetry() error {
	switch s := c.state.(type) {
	case Synchronized:
		return ErrNoPendingOp
	case AwaitingConfirm:
		c.sender.SendOperation(s.Outstanding)
	case AwaitingWithBuffer:
		merged, err := s.Outstanding.Compose(s.Buffer)
		if err != nil {
			return err
		}
		c.sender.SendOperation(merged)
		c.state = AwaitingConfirm{Outstanding: merged}
	}
	return nil
}
