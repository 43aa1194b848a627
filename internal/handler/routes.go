package handler

import "net/http"

// NewRouter wires the API routes. events and metrics may be nil.
func NewRouter(h *AllocationHandler, events, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()

	// Allocation endpoints
	mux.HandleFunc("POST /api/allocations", h.Allocate)
	mux.HandleFunc("GET /api/allocations", h.ListSnapshots)
	mux.HandleFunc("GET /api/allocations/latest", h.LatestSnapshot)
	mux.HandleFunc("GET /api/allocations/{id}", h.GetSnapshot)
	mux.HandleFunc("DELETE /api/allocations/{id}", h.DeleteSnapshot)
	mux.HandleFunc("GET /api/allocations/{id}/export/{format}", h.ExportSnapshot)

	// Address lookup, the address may carry a prefix length
	mux.HandleFunc("GET /api/lookup/{address...}", h.Lookup)

	if events != nil {
		mux.Handle("GET /events", events)
	}
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return Chain(mux,
		Recover,
		CORS,
		Logger,
	)
}
