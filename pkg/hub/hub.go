package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// queueSize bounds broadcasts waiting for Run.
const queueSize = 256

// Hub broadcasts messages to a changing set of clients. Only Run touches
// the client set.
type Hub struct {
	name   string
	logger *slog.Logger
	replay bool

	clients    map[*Client]struct{}
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	count atomic.Int32

	lastMu sync.RWMutex
	last   *Message

	started  atomic.Bool
	stopOnce sync.Once
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// WithReplay sends the latest message to each client as it joins.
func WithReplay() Option {
	return func(h *Hub) { h.replay = true }
}

// New returns a hub named for its log lines. Start it with Run.
func New(name string, opts ...Option) *Hub {
	h := &Hub{
		name:       name,
		logger:     slog.Default(),
		clients:    map[*Client]struct{}{},
		broadcast:  make(chan Message, queueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "hub", "hub", name)
	return h
}

// Name returns the hub name.
func (h *Hub) Name() string { return h.name }

// Run serves registrations and broadcasts until ctx is done or Stop is
// called, then closes every client. Later calls return at once.
func (h *Hub) Run(ctx context.Context) {
	if !h.started.CompareAndSwap(false, true) {
		return
	}
	defer func() {
		for c := range h.clients {
			h.drop(c)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Debug("client disconnected", "clients", len(h.clients))
			}
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.clients[c] = struct{}{}
	h.count.Store(int32(len(h.clients)))

	if h.replay {
		if last, ok := h.Last(); ok {
			c.send <- last
		}
	}
	h.logger.Debug("client connected", "clients", len(h.clients))
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int32(len(h.clients)))
}

func (h *Hub) fanOut(msg Message) {
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.drop(c)
			h.logger.Warn("dropped slow client")
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast queues msg without blocking. The message is dropped when the
// queue is full.
func (h *Hub) Broadcast(msg Message) {
	if h.replay {
		h.lastMu.Lock()
		h.last = &msg
		h.lastMu.Unlock()
	}

	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// BroadcastJSON marshals v and broadcasts it as text.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastBinary broadcasts data as a binary frame.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Last returns the message a joining client would be replayed.
func (h *Hub) Last() (Message, bool) {
	h.lastMu.RLock()
	defer h.lastMu.RUnlock()
	if h.last == nil {
		return Message{}, false
	}
	return *h.last, true
}
