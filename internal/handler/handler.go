package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"ipnetlab/internal/codec"
	"ipnetlab/internal/ipam"
	"ipnetlab/internal/loader"
	"ipnetlab/internal/log"
	"ipnetlab/internal/service"
)

// maxTopologySize bounds topology documents posted to the API
const maxTopologySize = 4 << 20

// AllocationHandler handles allocation API requests
type AllocationHandler struct {
	svc *service.AllocationService
}

// NewAllocationHandler creates a new allocation handler
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{svc: svc}
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// LookupResponse is the reply of an address lookup
type LookupResponse struct {
	Address  string `json:"address"`
	Node     string `json:"node,omitempty"`
	Found    bool   `json:"found"`
	Snapshot int64  `json:"snapshot,omitempty"`
}

// Allocate runs the engine over a posted topology document. The snapshot is
// stored unless ?save=false is given.
func (h *AllocationHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTopologySize))
	if err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	topo, err := loader.ParseYAML(body)
	if err != nil {
		h.writeError(w, "Invalid topology", err.Error(), http.StatusBadRequest)
		return
	}

	save := r.URL.Query().Get("save") != "false"
	_, snap, err := h.svc.Allocate(r.Context(), topo, save)
	if err != nil {
		if ipam.IsAllocationError(err) {
			h.writeError(w, "Allocation failed", err.Error(), http.StatusUnprocessableEntity)
			return
		}
		log.G(r.Context()).WithError(err).Error("allocation failed")
		h.writeError(w, "Allocation failed", err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if snap.ID != 0 {
		status = http.StatusCreated
	}
	h.writeJSON(w, snap, status)
}

// ListSnapshots returns the stored snapshots, newest first
func (h *AllocationHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, "Invalid limit", fmt.Sprintf("%q is not a count", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := h.svc.ListSnapshots(r.Context(), limit)
	if err != nil {
		log.G(r.Context()).WithError(err).Error("failed to list snapshots")
		h.writeError(w, "Failed to list snapshots", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, list, http.StatusOK)
}

// LatestSnapshot returns the most recent snapshot
func (h *AllocationHandler) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	h.serveSnapshot(w, r, 0)
}

// GetSnapshot returns a snapshot by ID
func (h *AllocationHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := h.snapshotID(w, r)
	if !ok {
		return
	}
	h.serveSnapshot(w, r, id)
}

func (h *AllocationHandler) serveSnapshot(w http.ResponseWriter, r *http.Request, id int64) {
	snap, err := h.svc.Snapshot(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "Failed to get snapshot", err)
		return
	}
	h.writeJSON(w, snap, http.StatusOK)
}

// DeleteSnapshot removes a stored snapshot
func (h *AllocationHandler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := h.snapshotID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteSnapshot(r.Context(), id); err != nil {
		h.writeServiceError(w, r, "Failed to delete snapshot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportSnapshot writes a snapshot in the format named by the path
func (h *AllocationHandler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := h.snapshotID(w, r)
	if !ok {
		return
	}
	format := r.PathValue("format")
	exp, err := codec.ExporterFor(format)
	if err != nil {
		h.writeError(w, "Unknown format", err.Error(), http.StatusBadRequest)
		return
	}

	// buffered so that a failing export still gets a JSON error reply
	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), id, format, &buf); err != nil {
		h.writeServiceError(w, r, "Failed to export snapshot", err)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=snapshot-%d.%s", id, exp.Format()))
	w.Write(buf.Bytes())
}

// Lookup returns the node owning an address, bare or in CIDR form. The
// snapshot query parameter selects a stored snapshot, the latest by default.
func (h *AllocationHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	addr := r.PathValue("address")
	if addr == "" {
		h.writeError(w, "Invalid address", "Address is required", http.StatusBadRequest)
		return
	}

	var id int64
	if v := r.URL.Query().Get("snapshot"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			h.writeError(w, "Invalid snapshot ID", fmt.Sprintf("%q is not a snapshot ID", v), http.StatusBadRequest)
			return
		}
		id = n
	}

	node, found, err := h.svc.Lookup(r.Context(), id, addr)
	if err != nil {
		h.writeServiceError(w, r, "Failed to look up address", err)
		return
	}

	resp := LookupResponse{Address: addr, Node: node, Found: found, Snapshot: id}
	if !found {
		h.writeJSON(w, resp, http.StatusNotFound)
		return
	}
	h.writeJSON(w, resp, http.StatusOK)
}

// Helper methods

func (h *AllocationHandler) snapshotID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, "Invalid snapshot ID", fmt.Sprintf("%q is not a snapshot ID", raw), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *AllocationHandler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, service.ErrNoSnapshot) {
		h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
		return
	}
	log.G(r.Context()).WithError(err).Error(msg)
	h.writeError(w, msg, err.Error(), http.StatusInternalServerError)
}

func (h *AllocationHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.L.WithError(err).Error("failed to encode JSON")
	}
}

func (h *AllocationHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}
