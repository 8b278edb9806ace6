// Package bootstrap runs the bot's startup sequence and its running phase.
//
// An App moves through fixed phases:
//
//  1. Starting web: registered components start; those implementing
//     component.Runner (the callback server) join the task set.
//  2. Acquiring: every required credential is acquired concurrently. Any
//     failure ends the run before anything is constructed.
//  3. Constructing: OnConfigure callbacks build the subsystems from the
//     acquired credentials and add their tasks with Go.
//  4. Running: all tasks run until the first failure or shutdown.
//  5. Terminated: remaining tasks are cancelled and components stopped.
//
// There is no timeout on acquisition. A flow waiting for the operator to
// authorize in a browser blocks construction until it completes or the
// process receives SIGINT/SIGTERM.
package bootstrap
