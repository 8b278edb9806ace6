package notifier

import (
	"context"
	"sync"

	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/task"
)

// Notifier fans events out to event-stream subscribers. Publish and
// subscription are safe from any goroutine; the fan-out itself happens in
// Listen, which is the notifier's join-set task.
type Notifier struct {
	inbox      chan Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
	doneOnce   sync.Once

	mu      sync.RWMutex
	clients map[string]*client
	log     *logger.Logger
}

var _ Publisher = (*Notifier)(nil)

// New creates a Notifier. Events published before Listen starts are
// buffered up to the inbox size.
func New(log *logger.Logger) *Notifier {
	return &Notifier{
		inbox:      make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		clients:    make(map[string]*client),
		log:        log.WithComponent("notifier"),
	}
}

// Task returns Listen as a join-set member.
func (n *Notifier) Task() task.Task {
	return task.New("notifier", n.Listen)
}

// Publish queues ev for every subscriber.
func (n *Notifier) Publish(ev Event) {
	select {
	case n.inbox <- ev:
	default:
		n.log.Warn("Notification inbox full, dropping event", logger.Fields("type", ev.Type))
	}
}

// Listen runs the fan-out loop until ctx is cancelled. It only returns nil:
// a subscriber that goes away is not a failure of the notifier.
func (n *Notifier) Listen(ctx context.Context) error {
	defer n.shutdown()
	n.log.Info("Listening for notifications")

	for {
		select {
		case <-ctx.Done():
			return nil

		case c := <-n.register:
			n.mu.Lock()
			n.clients[c.id] = c
			total := len(n.clients)
			n.mu.Unlock()
			n.log.Debug("Subscriber registered", logger.Fields("client_id", c.id, "total_clients", total))

		case c := <-n.unregister:
			n.mu.Lock()
			if _, ok := n.clients[c.id]; ok {
				delete(n.clients, c.id)
				c.close()
			}
			total := len(n.clients)
			n.mu.Unlock()
			n.log.Debug("Subscriber unregistered", logger.Fields("client_id", c.id, "total_clients", total))

		case ev := <-n.inbox:
			n.broadcast(ev)
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.clients)
}

// subscribe registers c with the loop. It fails once the loop has exited or
// ctx is done.
func (n *Notifier) subscribe(ctx context.Context, c *client) bool {
	select {
	case n.register <- c:
		return true
	case <-n.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (n *Notifier) unsubscribe(c *client) {
	select {
	case n.unregister <- c:
	case <-n.done:
	}
}

func (n *Notifier) broadcast(ev Event) {
	data, err := ev.encode()
	if err != nil {
		n.log.Error("Failed to encode event", logger.Fields("type", ev.Type, logger.FieldError, err.Error()))
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	sent := 0
	for _, c := range n.clients {
		if c.send(data) {
			sent++
		}
	}
	n.log.Debug("Event broadcast", logger.Fields("type", ev.Type, "sent", sent))
}

func (n *Notifier) shutdown() {
	n.doneOnce.Do(func() { close(n.done) })
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, c := range n.clients {
		c.close()
		delete(n.clients, id)
	}
}
