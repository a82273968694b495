package storage

import (
	"strings"
	"sync"

	"github.com/uhyunpark/squidroute/pkg/util"
)

// InMemoryRouteStore keeps route history for the life of the process.
type InMemoryRouteStore struct {
	mu     sync.Mutex
	clock  util.Clock
	routes map[string][]*RouteRecord // lowercase toAddress → oldest first
}

func NewInMemoryRouteStore() *InMemoryRouteStore {
	return &InMemoryRouteStore{
		clock:  util.RealClock{},
		routes: make(map[string][]*RouteRecord),
	}
}

func (s *InMemoryRouteStore) SaveRoute(rec *RouteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock.Now().UTC()
	}
	key := strings.ToLower(rec.ToAddress)
	s.routes[key] = append(s.routes[key], rec)
	return nil
}

func (s *InMemoryRouteStore) LoadRecentRoutes(toAddress string, limit int) ([]*RouteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.routes[strings.ToLower(toAddress)]
	var out []*RouteRecord
	for i := len(all) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *InMemoryRouteStore) Close() error { return nil }

var _ RouteStore = (*InMemoryRouteStore)(nil)
