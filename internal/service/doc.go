// Package service coordinates allocation runs between the command line, the
// HTTP handlers and the snapshot store.
//
// AllocationService loads a topology, runs the ipam engine over it, turns the
// result into a snapshot and optionally persists it. Every run publishes an
// event on the EventBus, which the SSE hub forwards to connected clients, and
// is recorded in the Prometheus metrics when they are configured.
//
// Without a repository the service keeps the snapshot of the last run in
// memory so lookups and exports still work for one-shot commands.
package service
