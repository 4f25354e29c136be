// Package jobs holds the in-memory job store and the cleanup sweeper.
package jobs

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"diagramgen/internal/domain"
)

const shardCount = 16

// entry wraps one job with its own lock so that transitions on a single
// id are serialized without contending on the whole store.
type entry struct {
	mu  sync.Mutex
	job domain.Job
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Store is a concurrency-safe keyed collection of job records. All
// access goes through Create/Get/Transition/Delete/List; callers never
// hold a live pointer into the map.
type Store struct {
	shards [shardCount]*shard
	now    func() time.Time
}

// NewStore returns an empty job store.
func NewStore() *Store {
	s := &Store{now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return s
}

func (s *Store) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%shardCount]
}

// Create registers a new queued job for the given request and returns
// its id.
func (s *Store) Create(req domain.DiagramRequest) string {
	id := uuid.NewString()
	now := s.now().UTC()
	e := &entry{job: domain.Job{
		ID:        id,
		Status:    domain.JobStatusQueued,
		Progress:  0,
		Stage:     domain.StageQueued,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}}

	sh := s.shardFor(id)
	sh.mu.Lock()
	sh.entries[id] = e
	sh.mu.Unlock()
	return id
}

func (s *Store) lookup(id string) (*entry, bool) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	e, ok := sh.entries[id]
	sh.mu.RUnlock()
	return e, ok
}

// Get returns a snapshot of the job, or domain.ErrNotFound.
func (s *Store) Get(id string) (domain.Job, error) {
	e, ok := s.lookup(id)
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	e.mu.Lock()
	snap := e.job.Clone()
	e.mu.Unlock()
	return snap, nil
}

// Transition applies an atomic read-modify-write to the job's mutable
// fields. Mutations on the same id never interleave. UpdatedAt is bumped
// on every call; CompletedAt is stamped once when the mutator moves the
// job into a terminal status.
func (s *Store) Transition(id string, mutate func(*domain.Job)) error {
	e, ok := s.lookup(id)
	if !ok {
		return domain.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	wasTerminal := e.job.Status.Terminal()
	mutate(&e.job)
	e.job.UpdatedAt = s.now().UTC()
	if !wasTerminal && e.job.Status.Terminal() && e.job.CompletedAt.IsZero() {
		e.job.CompletedAt = e.job.UpdatedAt
	}
	return nil
}

// Delete removes the job. Unknown ids report domain.ErrNotFound.
func (s *Store) Delete(id string) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.entries[id]; !ok {
		return domain.ErrNotFound
	}
	delete(sh.entries, id)
	return nil
}

// List returns a snapshot of every job in the store.
func (s *Store) List() []domain.Job {
	var out []domain.Job
	for _, sh := range s.shards {
		sh.mu.RLock()
		batch := make([]*entry, 0, len(sh.entries))
		for _, e := range sh.entries {
			batch = append(batch, e)
		}
		sh.mu.RUnlock()
		for _, e := range batch {
			e.mu.Lock()
			out = append(out, e.job.Clone())
			e.mu.Unlock()
		}
	}
	return out
}

// Stats counts jobs per status.
func (s *Store) Stats() domain.JobStats {
	var stats domain.JobStats
	for _, job := range s.List() {
		stats.Total++
		switch job.Status {
		case domain.JobStatusQueued:
			stats.Queued++
		case domain.JobStatusProcessing:
			stats.Processing++
		case domain.JobStatusCompleted:
			stats.Completed++
		case domain.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats
}
