// Package logger builds *slog.Logger values with functional options and a
// handler decorator that copies request-scoped values from context.Context
// into every record.
//
// Attribute helpers (Error, SessionID, RequestID, Store, Component, ...) keep
// key names consistent across packages.
//
//	log := logger.New(
//	    logger.WithConfig(cfg),
//	    logger.WithContextValue("request_id", requestIDKey),
//	)
//	log.InfoContext(ctx, "session created", logger.SessionID(id))
package logger
