package reference

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Lister is the read side of the backend client.
type Lister interface {
	List(ctx context.Context, endpoint string, dest any) error
}

// Backend list endpoints.
const (
	EndpointBranches  = "/branches"
	EndpointCheckers  = "/checkers"
	EndpointCustomers = "/customers"
	EndpointProducts  = "/products"
	EndpointEmployees = "/employees"
)

// Service builds snapshots from the backend.
type Service struct {
	lister Lister
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs the snapshot service.
func NewService(lister Lister, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{lister: lister, cache: cache, logger: logger}
}

// Snapshot returns the cached snapshot or loads a fresh one. Concurrent callers
// share a single load.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap, ok, err := s.cache.Get(ctx); err != nil {
		s.logger.Warn("reference cache read", slog.Any("error", err))
	} else if ok {
		return snap, nil
	}

	ch := s.group.DoChan(snapshotKey, func() (interface{}, error) {
		return s.load(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Invalidate forgets the cached snapshot, typically after an import.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("reference cache invalidate", slog.Any("error", err))
	}
}

func (s *Service) load(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.lister.List(gctx, EndpointBranches, &snap.Branches) })
	g.Go(func() error { return s.lister.List(gctx, EndpointCheckers, &snap.Checkers) })
	g.Go(func() error { return s.lister.List(gctx, EndpointCustomers, &snap.Customers) })
	g.Go(func() error { return s.lister.List(gctx, EndpointProducts, &snap.Products) })
	g.Go(func() error { return s.lister.List(gctx, EndpointEmployees, &snap.Employees) })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reference: load snapshot: %w", err)
	}
	if err := s.cache.Set(ctx, &snap); err != nil {
		s.logger.Warn("reference cache write", slog.Any("error", err))
	}
	return &snap, nil
}
