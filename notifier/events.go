package notifier

import "encoding/json"

// Event types published by the subsystems.
const (
	// EventConnected is sent once to each new subscriber.
	EventConnected = "connected"
	// EventSong is published when the player switches tracks.
	EventSong = "song"
	// EventQueue is published when the song-request queue changes.
	EventQueue = "queue"
	// EventReward is published when a chat reward is paid out.
	EventReward = "reward"
	// EventCommand is published when a custom command is edited or deleted.
	EventCommand = "command"
)

// Event is one notification. Data is JSON-encoded on the wire.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Publisher accepts notifications. Publishing never blocks and never fails;
// an event that cannot be queued is dropped and logged.
type Publisher interface {
	Publish(Event)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}
