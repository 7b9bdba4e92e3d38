// Package store implements the sharded, content-addressed object store
// and its scratch-store companion used during staging.
package store

import (
	"sync"

	"github.com/pinebranch/gitwire/modules/object"
	"github.com/pinebranch/gitwire/modules/plumbing"
	"github.com/sirupsen/logrus"
)

const shardCount = 256

type shard struct {
	mu   sync.RWMutex
	objs map[plumbing.Hash]*object.Object
}

// Store is a sharded map of identifier to object record. Sharding by
// the hash's first byte bounds per-shard size without requiring an
// eviction policy — the working set of one clone's reachable object
// graph is bounded, not unbounded.
type Store struct {
	shards [shardCount]*shard
	log    *logrus.Logger
}

// New returns an empty Store. A nil logger discards log output.
func New(log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	s := &Store{log: log}
	for i := range s.shards {
		s.shards[i] = &shard{objs: make(map[plumbing.Hash]*object.Object)}
	}
	return s
}

func (s *Store) shardFor(h plumbing.Hash) *shard {
	return s.shards[h.Shard()]
}

// Insert computes the hash of (type, content), stores it, and returns
// the hash. Insertion is idempotent by hash: if an object with the same
// hash already exists, only its delta-hint is overwritten (the simpler
// of the two policies the identical content allows).
func (s *Store) Insert(t object.Type, content []byte, deltaHint plumbing.Hash) plumbing.Hash {
	h := object.Identity(t, content)
	sh := s.shardFor(h)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if existing, ok := sh.objs[h]; ok {
		existing.DeltaHint = deltaHint
		return h
	}
	sh.objs[h] = &object.Object{Type: t, Content: content, DeltaHint: deltaHint}
	return h
}

// Get returns the object for h, or ok=false if absent.
func (s *Store) Get(h plumbing.Hash) (*object.Object, bool) {
	sh := s.shardFor(h)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	o, ok := sh.objs[h]
	return o, ok
}

// Has reports whether h is present.
func (s *Store) Has(h plumbing.Hash) bool {
	_, ok := s.Get(h)
	return ok
}

// GetAs returns the content of h if present and of the expected type;
// otherwise it logs and returns (nil, false).
func (s *Store) GetAs(h plumbing.Hash, expected object.Type) ([]byte, bool) {
	o, ok := s.Get(h)
	if !ok {
		return nil, false
	}
	if o.Type != expected {
		s.log.Warnf("object %s: expected type %s, got %s", h, expected, o.Type)
		return nil, false
	}
	return o.Content, true
}

// Remove deletes and returns h's object, used when promoting a scratch
// entry into the main store.
func (s *Store) Remove(h plumbing.Hash) (*object.Object, bool) {
	sh := s.shardFor(h)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	o, ok := sh.objs[h]
	if ok {
		delete(sh.objs, h)
	}
	return o, ok
}

// PromoteInto moves h's object from s into dst and returns it. Commit
// uses this to promote scratch objects without re-encoding content
// already computed during staging.
func (s *Store) PromoteInto(dst *Store, h plumbing.Hash) (*object.Object, bool) {
	o, ok := s.Remove(h)
	if !ok {
		return nil, false
	}
	dh := dst.shardFor(h)
	dh.mu.Lock()
	dh.objs[h] = o
	dh.mu.Unlock()
	return o, true
}
