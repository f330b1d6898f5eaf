package cache

import (
	gocache "github.com/patrickmn/go-cache"

	"datachat-be/pkg/store"
)

// DrilldownStore holds one structured result per session: the most recent
// non-drilldown query's payload. Entries live and die with the session
// rather than a TTL; they are replaced when a new top-level query succeeds
// and dropped when the session ends.
type DrilldownStore struct {
	cache *gocache.Cache
}

func NewDrilldownStore() *DrilldownStore {
	return &DrilldownStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Store replaces the session's drilldown slot
func (s *DrilldownStore) Store(sessionID string, entry *store.DrilldownEntry) {
	s.cache.Set(sessionID, entry, gocache.NoExpiration)
}

// Get returns the session's cached structured result, if any
func (s *DrilldownStore) Get(sessionID string) (*store.DrilldownEntry, bool) {
	if x, found := s.cache.Get(sessionID); found {
		return x.(*store.DrilldownEntry), true
	}
	return nil, false
}

// Invalidate drops the slot, e.g. when the session ends or is evicted
func (s *DrilldownStore) Invalidate(sessionID string) {
	s.cache.Delete(sessionID)
}
