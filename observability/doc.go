// Package observability wires OpenTelemetry tracing and metrics.
//
// Export is optional: with no endpoint configured the global providers stay
// no-op and every span and instrument below is free.
//
//	shutdown, err := observability.Init(ctx, cfg.Observability, info)
//	defer shutdown(context.Background())
//
//	ctx, span := observability.StartSpan(ctx, "credential.acquire")
//	defer span.End()
//
//	observability.Default().RecordTaskFailure(ctx, "chat")
package observability
