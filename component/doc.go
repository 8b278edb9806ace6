// Package component defines the lifecycle interfaces for infrastructure
// owned by the bot process.
//
// Components are started in registration order before any credential is
// acquired and stopped in reverse order on shutdown.
//
// # Interfaces
//
//   - Component: Start/Stop/Health lifecycle
//   - Runner: a background loop that joins the running phase
//   - Describable: startup summary description
//   - RouteProvider: HTTP routes for the startup summary
package component
