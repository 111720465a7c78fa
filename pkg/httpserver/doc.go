// Package httpserver runs an http.Server with graceful shutdown and exposes
// liveness and readiness handlers.
//
// Run blocks until the context is cancelled or SIGINT/SIGTERM arrives, then
// calls http.Server.Shutdown bounded by Config.ShutdownTimeout and runs the
// stop hooks registered with WithStopHook (closing store clients, stopping
// cleanup loops). Failures are wrapped with ErrStart or ErrShutdown.
//
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	err := srv.Run(ctx, router)
package httpserver
