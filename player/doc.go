// Package player controls a Spotify device for song requests.
//
// The player is optional. Consumers receive a Handle, which may be absent,
// instead of a *Player; the web layer reads it through a Slot because the
// web server is up long before the player is constructed.
package player
