// Package server provides the web server: Gin behind an h2c handler, with
// recovery, request-id and request logging middleware and a /health
// endpoint.
//
// Start binds the listener and returns, so the OAuth redirect target is
// reachable before acquisition begins. Run serves until its context is
// cancelled; the registry component makes Run a join-set task.
package server
