// Package middleware groups the HTTP middleware of the Fiber application.
//
//   - auth: API key validation for protected routes.
//   - rayid: a unique request id in the locals and the X-Ray-ID header, used
//     by logger.WithRayID to correlate log lines.
//
// rayid must be registered first so every later log line carries the id.
package middleware
