// Package credential obtains and renews the OAuth2 credentials the service
// runs on.
//
// Each credential is identified by a provider and a role (twitch-streamer,
// twitch-bot). Acquisition drives the authorization-code flow: the operator
// opens a logged URL, the provider redirects back to the web server, and
// the code is exchanged for a token. Cached tokens are refreshed silently
// first. There is deliberately no timeout on the interactive step; only
// cancelling the context ends the wait.
//
// The token lives in a Cell that every holder reads. The credential's
// renewal task is the only writer and swaps whole tokens atomically.
package credential
