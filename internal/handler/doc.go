// Package handler implements the HTTP API of the allocation server.
//
// AllocationHandler accepts topology documents, returns the resulting
// snapshots, exports them in every codec format and answers address lookups.
// NewRouter wires it together with the SSE hub and the metrics endpoint
// behind the Recover, CORS and Logger middleware.
//
// Errors are returned as JSON with an {error, details} body. Allocation
// failures (exhausted pool, subnet too small, no address left) reply 422,
// malformed documents 400 and unknown snapshots 404.
package handler
