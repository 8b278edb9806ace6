package notifier

import (
	"github.com/kbukum/streambot/logger"
)

// client is one connected event-stream subscriber.
type client struct {
	id     string
	events chan []byte
	log    *logger.Logger
}

func newClient(id string, log *logger.Logger) *client {
	return &client{
		id:     id,
		events: make(chan []byte, 64),
		log:    log,
	}
}

// send queues data for the subscriber. A slow subscriber loses the event
// rather than stalling every other one.
func (c *client) send(data []byte) bool {
	select {
	case c.events <- data:
		return true
	default:
		c.log.Warn("Subscriber channel full, dropping event", logger.Fields("client_id", c.id))
		return false
	}
}

func (c *client) close() {
	close(c.events)
}
