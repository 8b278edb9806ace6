package notifier

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/streambot/logger"
)

// keepAliveInterval stays below common proxy idle timeouts.
const keepAliveInterval = 30 * time.Second

// Handler serves the event stream. Each request becomes one subscriber
// until the client disconnects or the notifier stops.
func (n *Notifier) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		n.serve(c.Writer, c.Request)
	}
}

func (n *Notifier) serve(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Event streams are long-lived; lift any server write deadline.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	ctx := r.Context()
	sub := newClient(uuid.NewString(), n.log)
	if !n.subscribe(ctx, sub) {
		http.Error(w, "notifier not running", http.StatusServiceUnavailable)
		return
	}
	defer n.unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	hello, _ := Event{Type: EventConnected, Data: map[string]string{"client_id": sub.id}}.encode()
	writeEvent(w, EventConnected, hello)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			n.log.Debug("Subscriber disconnected", logger.Fields("client_id", sub.id))
			return
		case data, ok := <-sub.events:
			if !ok {
				return
			}
			writeEvent(w, "", data)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data []byte) {
	if name != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", name)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
