// bus.go
package bus

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"gpioblink-go/errcode"
)

// -----------------------------------------------------------------------------
// Tokens + Topics
// -----------------------------------------------------------------------------

// Token is a single element in a topic path: a string or an int.
// The string "+" matches exactly one token in a subscription; "#" matches
// the remainder of the topic and must be last.
type Token = any

// Topic is a sequence of tokens.
type Topic []Token

// T is a convenience constructor: bus.T("hal", "state").
func T(tokens ...Token) Topic { return Topic(tokens) }

const (
	wildOne  = "+"
	wildRest = "#"
)

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok Token, create bool) *node {
	if n.children == nil {
		if !create {
			return nil
		}
		n.children = make(map[Token]*node)
	}
	c, ok := n.children[tok]
	if !ok {
		if !create {
			return nil
		}
		c = &node{}
		n.children[tok] = c
	}
	return c
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu   sync.RWMutex
	root *node
	qLen int
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		root: &node{},
		qLen: queueLen,
	}
}

// addSubscription inserts a subscription into the trie and delivers any
// retained messages its topic matches.
func (b *Bus) addSubscription(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	deliverRetained(b.root, topic, sub)
}

// deliverRetained walks the trie for retained messages matching the
// (possibly wildcarded) subscription topic.
func deliverRetained(n *node, topic Topic, sub *Subscription) {
	if len(topic) == 0 {
		if n.retained != nil {
			offer(sub.ch, n.retained)
		}
		return
	}
	tok := topic[0]
	switch tok {
	case Token(wildRest):
		walkRetained(n, sub)
	case Token(wildOne):
		for _, c := range n.children {
			deliverRetained(c, topic[1:], sub)
		}
	default:
		if c := n.child(tok, false); c != nil {
			deliverRetained(c, topic[1:], sub)
		}
	}
}

func walkRetained(n *node, sub *Subscription) {
	if n.retained != nil {
		offer(sub.ch, n.retained)
	}
	for _, c := range n.children {
		walkRetained(c, sub)
	}
}

func offer(ch chan *Message, m *Message) {
	select {
	case ch <- m:
	default:
	}
}

// Publish delivers a message to all subscribers whose topics match.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	matchSubs(b.root, msg.Topic, msg)

	// Store or clear retained message at the exact topic node.
	if msg.Retained {
		n := b.root
		for _, tok := range msg.Topic {
			n = n.child(tok, true)
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}
}

// matchSubs recursively matches a published topic against subscription
// nodes, honouring "+" and "#" children.
func matchSubs(n *node, rest Topic, msg *Message) {
	if len(rest) == 0 {
		deliver(n.subs, msg)
		// A trailing "#" also matches the empty remainder.
		if c := n.child(Token(wildRest), false); c != nil {
			deliver(c.subs, msg)
		}
		return
	}
	if c := n.child(rest[0], false); c != nil {
		matchSubs(c, rest[1:], msg)
	}
	if c := n.child(Token(wildOne), false); c != nil {
		matchSubs(c, rest[1:], msg)
	}
	if c := n.child(Token(wildRest), false); c != nil {
		deliver(c.subs, msg)
	}
}

func deliver(subs []*Subscription, msg *Message) {
	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		default:
			// drop oldest if queue full
			select {
			case <-sub.ch:
			default:
			}
			offer(sub.ch, msg)
		}
	}
}

// unsubscribe removes a subscription from the trie.
func (b *Bus) unsubscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, t := range topic {
		child := n.child(t, false)
		if child == nil {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus    *Bus
	subs   []*Subscription
	mu     sync.Mutex
	id     string
	nextRq uint32 // reply-topic sequence
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{
		bus: b,
		id:  id,
	}
}

// NewMessage builds a message originating from this connection.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub.topic, sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Reply answers a request message on its ReplyTo topic.
// It is a no-op for messages that carry no ReplyTo.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if len(req.ReplyTo) == 0 {
		return
	}
	c.bus.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}

// RequestWait publishes msg with a unique ReplyTo topic and waits for the
// first reply or context expiry.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	seq := atomic.AddUint32(&c.nextRq, 1)
	msg.ReplyTo = Topic{"_reply", c.id, strconv.FormatUint(uint64(seq), 10)}

	sub := c.Subscribe(msg.ReplyTo)
	defer c.Unsubscribe(sub)

	c.bus.Publish(msg)

	select {
	case rep := <-sub.ch:
		return rep, nil
	case <-ctx.Done():
		return nil, errcode.Timeout
	}
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.topic, sub)
		close(sub.ch)
	}
}
