// Package requestid tags every request with a correlation identifier.
//
// Middleware reuses a well-formed X-Request-ID header or generates a UUID,
// stores it in the request context and echoes it in the response. Extractor
// feeds the identifier into every log record written with that context, so
// session lifecycle logs can be matched to the request that caused them:
//
//	log := logger.New(logger.WithContextExtractors(requestid.Extractor))
//	router.Use(requestid.Middleware)
package requestid
