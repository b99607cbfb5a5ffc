// Package server holds the HTTP server configuration.
//
// The start command builds the Fiber application from it: the listen port,
// the API key required by the auth middleware and the path prefixes that
// stay public.
package server
