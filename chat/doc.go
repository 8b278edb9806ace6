// Package chat is the chat-bot runtime.
//
// A Runtime reads one Twitch channel through a Conn (IRCConn in
// production), warns about bad words, rewrites aliases and dispatches
// !commands to registered Handlers. Handlers answer through their Context
// and push persistence and API calls into detached tasks with
// Context.Spawn: a failing side effect is logged and never fails the
// runtime, which is a join-set member and fails only when the connection
// does.
package chat
