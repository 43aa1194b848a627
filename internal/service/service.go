package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"ipnetlab/internal/codec"
	"ipnetlab/internal/domain"
	"ipnetlab/internal/ipam"
	"ipnetlab/internal/loader"
	"ipnetlab/internal/log"
	"ipnetlab/internal/metrics"
	"ipnetlab/internal/repository"
)

// ErrNoSnapshot is returned when no allocation has been run or stored yet
var ErrNoSnapshot = errors.New("no snapshot available")

// AllocationService provides business logic for allocation runs
type AllocationService struct {
	engine   *ipam.Engine
	repo     repository.Repository
	eventBus *EventBus
	metrics  *metrics.Metrics

	mu   sync.Mutex
	last *domain.Snapshot
}

// NewAllocationService creates a new allocation service. repo and m may be
// nil.
func NewAllocationService(engine *ipam.Engine, repo repository.Repository, eventBus *EventBus, m *metrics.Metrics) *AllocationService {
	if eventBus == nil {
		eventBus = NewEventBus()
	}
	return &AllocationService{
		engine:   engine,
		repo:     repo,
		eventBus: eventBus,
		metrics:  m,
	}
}

// Persistent reports whether snapshots are stored
func (s *AllocationService) Persistent() bool {
	return s.repo != nil
}

// AllocateFile loads a topology file and allocates it
func (s *AllocationService) AllocateFile(ctx context.Context, path string, save bool) (*ipam.Result, *domain.Snapshot, error) {
	topo, err := loader.LoadYAML(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load topology %s: %w", path, err)
	}
	return s.Allocate(ctx, topo, save)
}

// AllocateYAML parses a topology document and allocates it
func (s *AllocationService) AllocateYAML(ctx context.Context, data []byte, save bool) (*ipam.Result, *domain.Snapshot, error) {
	topo, err := loader.ParseYAML(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse topology: %w", err)
	}
	return s.Allocate(ctx, topo, save)
}

// Allocate runs the engine over a topology. When save is set and a
// repository is configured the snapshot is stored and its ID set.
func (s *AllocationService) Allocate(ctx context.Context, topo *domain.Topology, save bool) (*ipam.Result, *domain.Snapshot, error) {
	logger := log.G(ctx).WithField("topology", topo.Name)

	res, err := s.engine.Run(ctx, topo)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveFailure()
		}
		s.eventBus.Publish(Event{
			Type:    EventAllocationFailed,
			Payload: map[string]string{"topology": topo.Name, "error": err.Error()},
		})
		return nil, nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveResult(res)
	}

	snap := res.Snapshot()
	if save && s.repo != nil {
		id, err := s.repo.SaveSnapshot(ctx, snap)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to save snapshot: %w", err)
		}
		logger.WithField("snapshot", id).Info("snapshot saved")
		s.eventBus.Publish(Event{Type: EventSnapshotSaved, Payload: snap.Summary()})
	}

	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()

	s.eventBus.Publish(Event{
		Type: EventAllocationCompleted,
		Payload: map[string]interface{}{
			"topology": topo.Name,
			"snapshot": snap.ID,
			"domains":  len(res.Domains),
			"ipv4":     res.Issued[domain.IPv4],
			"ipv6":     res.Issued[domain.IPv6],
		},
	})
	logger.WithFields(logrus.Fields{
		"domains":  len(res.Domains),
		"duration": res.Duration,
	}).Debug("allocation published")
	return res, snap, nil
}

// Snapshot returns a stored snapshot, or the latest one when id is zero.
// Without a repository only the last in-memory run is available.
func (s *AllocationService) Snapshot(ctx context.Context, id int64) (*domain.Snapshot, error) {
	if s.repo == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.last == nil || (id != 0 && id != s.last.ID) {
			return nil, ErrNoSnapshot
		}
		return s.last, nil
	}

	var (
		snap *domain.Snapshot
		err  error
	)
	if id == 0 {
		snap, err = s.repo.LatestSnapshot(ctx)
	} else {
		snap, err = s.repo.GetSnapshot(ctx, id)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("snapshot %d: %w", id, ErrNoSnapshot)
	}
	return snap, err
}

// ListSnapshots returns the stored snapshots, newest first
func (s *AllocationService) ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotSummary, error) {
	if s.repo == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.last == nil {
			return nil, nil
		}
		return []domain.SnapshotSummary{s.last.Summary()}, nil
	}
	return s.repo.ListSnapshots(ctx, limit)
}

// DeleteSnapshot removes a stored snapshot
func (s *AllocationService) DeleteSnapshot(ctx context.Context, id int64) error {
	if s.repo == nil {
		return ErrNoSnapshot
	}
	if err := s.repo.DeleteSnapshot(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("snapshot %d: %w", id, ErrNoSnapshot)
		}
		return err
	}
	s.eventBus.Publish(Event{
		Type:    EventSnapshotDeleted,
		Payload: map[string]int64{"snapshot": id},
	})
	return nil
}

// Lookup returns the node owning an address in a snapshot, the latest one
// when id is zero. The boolean is false when no node owns it.
func (s *AllocationService) Lookup(ctx context.Context, id int64, addr string) (string, bool, error) {
	if s.repo == nil {
		snap, err := s.Snapshot(ctx, id)
		if err != nil {
			return "", false, err
		}
		node, ok := snap.Lookup(addr)
		return node, ok, nil
	}

	node, err := s.repo.LookupAddress(ctx, id, addr)
	if errors.Is(err, repository.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return node, true, nil
}

// Export writes a snapshot in the given format
func (s *AllocationService) Export(ctx context.Context, id int64, format string, w io.Writer) error {
	exp, err := codec.ExporterFor(format)
	if err != nil {
		return err
	}
	snap, err := s.Snapshot(ctx, id)
	if err != nil {
		return err
	}
	return exp.Export(snap, w)
}

// Publish forwards an event from a collaborator, such as the watcher or the
// verifier, to the event bus
func (s *AllocationService) Publish(event Event) {
	s.eventBus.Publish(event)
}
