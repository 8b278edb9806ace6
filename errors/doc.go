// Package errors defines the failure taxonomy of the service.
//
// Bootstrap failures (configuration, secrets, acquisition, task failure) are
// fatal and carry an exit code; request-facing failures carry an HTTP status
// and render as RFC 7807 style JSON bodies.
//
//	if err := app.Run(ctx); err != nil {
//	    os.Exit(errors.ExitCode(err))
//	}
package errors
