// Package remote is the message-passing bridge to the diff engine. The
// engine runs out of process (or at least on its own goroutines) and is
// reachable only by exchanging byte messages over a Transport; the Client
// multiplexes concurrent requests over one transport by correlation id.
package remote

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
)

// Message frames every request and response on the wire. Err is set only on
// responses, when the engine could not serve the request.
type Message struct {
	ID   uint64          `json:"id"`
	Body json.RawMessage `json:"body"`
	Err  string          `json:"error,omitempty"`
}

// Transport moves opaque byte messages between the two sides. There is no
// shared memory across a transport: both ends only ever see copies.
type Transport interface {
	// Send queues one message for the other side.
	Send(data []byte) error
	// Inbox is the stream of messages from the other side. It is closed
	// when the transport is closed.
	Inbox() <-chan []byte
	// Close tears down both directions.
	Close() error
}

// Past this many in-flight ids the counter wraps to 0, bounding the pending
// map no matter how long the process lives.
const idCeiling = 1000000

var errClientClosed = errors.New("remote: client closed")

type pendingReply struct {
	body []byte
	err  error
}

type submission struct {
	body  []byte
	reply chan pendingReply
}

// Client issues requests over a transport and matches responses back to
// callers. It is safe for concurrent use; response order is unconstrained.
// The correlation counter and pending map are owned by a single goroutine
// and are never touched from outside it.
type Client struct {
	transport Transport
	submit    chan submission
	closed    chan struct{}
	closeOnce sync.Once
}

// NewClient starts the client's owner goroutine on the given transport.
func NewClient(transport Transport) *Client {
	c := &Client{
		transport: transport,
		submit:    make(chan submission),
		closed:    make(chan struct{}),
	}
	go c.loop()
	return c
}

func (c *Client) loop() {
	var nextID uint64
	pending := make(map[uint64]chan pendingReply)
	defer func() {
		for _, reply := range pending {
			reply <- pendingReply{err: errClientClosed}
		}
	}()
	for {
		select {
		case sub := <-c.submit:
			id := nextID
			nextID++
			if nextID > idCeiling {
				nextID = 0
			}
			data, err := json.Marshal(Message{ID: id, Body: sub.body})
			if err == nil {
				err = c.transport.Send(data)
			}
			if err != nil {
				sub.reply <- pendingReply{err: err}
				continue
			}
			pending[id] = sub.reply
		case data, ok := <-c.transport.Inbox():
			if !ok {
				return
			}
			var m Message
			if err := json.Unmarshal(data, &m); err != nil {
				// A frame we cannot read correlates with nothing;
				// nobody can be woken for it.
				continue
			}
			reply, ok := pending[m.ID]
			if !ok {
				continue
			}
			delete(pending, m.ID)
			if m.Err != "" {
				reply <- pendingReply{err: errors.New(m.Err)}
			} else {
				reply <- pendingReply{body: m.Body}
			}
		case <-c.closed:
			return
		}
	}
}

// Call submits a request body and blocks until the matching response
// arrives. There is no timeout: an engine that never answers leaves the
// caller suspended until ctx is canceled.
func (c *Client) Call(ctx context.Context, body []byte) ([]byte, error) {
	reply := make(chan pendingReply, 1)
	select {
	case c.submit <- submission{body: body, reply: reply}:
	case <-c.closed:
		return nil, errClientClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.body, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Response carries one engine reply to a Submit caller.
type Response struct {
	Body []byte
	Err  error
}

// Submit is the non-blocking form of Call: the returned channel yields
// exactly one Response.
func (c *Client) Submit(ctx context.Context, body []byte) <-chan Response {
	out := make(chan Response, 1)
	go func() {
		b, err := c.Call(ctx, body)
		out <- Response{Body: b, Err: err}
	}()
	return out
}

// CallJSON marshals the request value and unmarshals the response body into
// result.
func (c *Client) CallJSON(ctx context.Context, request interface{}, result interface{}) error {
	body, err := json.Marshal(request)
	if err != nil {
		return errors.Wrap(err, "remote: marshal request")
	}
	response, err := c.Call(ctx, body)
	if err != nil {
		return err
	}
	return errors.Wrap(json.Unmarshal(response, result), "remote: unmarshal response")
}

// Close stops the owner goroutine and closes the transport. In-flight
// callers fail with a closed-client error.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.transport.Close()
	})
	return err
}
