// Package app assembles streambot: it loads the configuration, plans the
// credentials to acquire, registers the web server and the database, and
// provides the subsystem factory the bootstrap runs once every credential
// is in hand.
//
// Construction policy:
//
//   - the notifier is always built;
//   - the player only with a [player] section and the "song" feature;
//     otherwise player.Handle is explicitly absent;
//   - the chat runtime only with an [irc] section, which also adds the
//     Twitch bot credential to the acquisition plan.
package app
