// Package notifier relays events from the player and the chat runtime to
// browser overlays over Server-Sent Events.
//
//	n := notifier.New(log)
//	engine.GET("/events", n.Handler())
//	app.Go(n.Task())
//	n.Publish(notifier.Event{Type: notifier.EventSong, Data: track})
package notifier
