// Package twitch is a small Helix client plus the stream-info poller the
// chat runtime uses to learn when the stream started.
package twitch
