package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/squidroute/pkg/util"
)

type PebbleStore struct {
	db    *pebble.DB
	clock util.Clock

	mu       sync.Mutex
	lastNano int64
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	return NewPebbleStoreWithClock(path, util.RealClock{})
}

func NewPebbleStoreWithClock(path string, clock util.Clock) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open route store %s: %w", path, err)
	}
	return &PebbleStore{db: db, clock: clock}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// SaveRoute persists a route record to Pebble
func (s *PebbleStore) SaveRoute(rec *RouteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock.Now().UTC()
	}
	// keys within one store are strictly increasing so records saved in
	// the same nanosecond do not overwrite each other
	nano := rec.CreatedAt.UnixNano()
	if nano <= s.lastNano {
		nano = s.lastNano + 1
	}
	s.lastNano = nano

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal route: %w", err)
	}
	if err := s.db.Set(routeKey(rec.ToAddress, nano), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save route: %w", err)
	}
	return nil
}

// LoadRecentRoutes loads the most recent N routes for a recipient
func (s *PebbleStore) LoadRecentRoutes(toAddress string, limit int) ([]*RouteRecord, error) {
	prefix := routePrefix(toAddress)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var routes []*RouteRecord
	for iter.Last(); iter.Valid() && (limit <= 0 || len(routes) < limit); iter.Prev() {
		var rec RouteRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // Skip invalid entries
		}
		routes = append(routes, &rec)
	}
	return routes, iter.Error()
}

var _ RouteStore = (*PebbleStore)(nil)
