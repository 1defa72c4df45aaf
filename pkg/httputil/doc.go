// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// Helpers for JSON encoding/decoding, error responses, parameter parsing and
// the middleware shared by the API server.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, unit)
//	httputil.WriteCreated(w, version)
//	httputil.WriteNotFoundError(w, "version 7: not found")
//	httputil.WriteConflict(w, "version 1.2.0 already exists")
//
// # Request Parsing
//
//	var req createUnitRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//	if !ok {
//		return
//	}
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil
