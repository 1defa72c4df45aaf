// Package api serves the registry over HTTP with gorilla/mux.
//
// # Routes
//
//	GET/POST   /units                GET/PUT/DELETE /units/{id}
//	GET/POST   /tags
//	GET/POST   /units/{id}/versions  (?constraint=~1.2 filters)
//	GET/DELETE /versions/{id}        PUT /versions/{id}/state
//	GET/PUT    /versions/{id}/includes
//	POST/DELETE /versions/{id}/includes/{childId}
//	POST       /versions/{id}/includes/{childId}/check
//	GET        /versions/{id}/included-in
//	GET        /versions/{id}/dependencies (?order=topological)
//	GET        /versions/{id}/dependents
//	GET        /versions/{id}/impact
//	POST       /graph/audit
//
// # Errors
//
// A rejected includes mutation is a 409 with a RejectionResponse naming the
// conflicting versions or the cycle. Unknown ids are 404, a duplicate version
// or tag is 409, and malformed input is 400.
package api
