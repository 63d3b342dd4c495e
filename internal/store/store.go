// Package store holds the one snapshot that is live for a dashboard
// session. Both the live channel and the refresh controller write here,
// possibly from different goroutines, so every write is serialized.
package store

import (
	"sync"

	"github.com/darshan-golchha/code-complexity/internal/snapshot"
)

// Source identifies who produced the current snapshot.
type Source string

const (
	SourceDefault Source = "default"
	SourcePush    Source = "push"
	SourceRefresh Source = "refresh"
	SourceCache   Source = "cache"
)

type Store struct {
	mu       sync.RWMutex
	current  snapshot.Snapshot
	source   Source
	revision uint64

	subMu       sync.Mutex
	subscribers map[int]chan struct{}
	nextSub     int
}

func New() *Store {
	return &Store{
		current:     snapshot.Default(),
		source:      SourceDefault,
		subscribers: make(map[int]chan struct{}),
	}
}

// Current returns a copy of the live snapshot and the revision it was
// stored at.
func (s *Store) Current() (snapshot.Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone(), s.revision
}

func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Store) Source() Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Replace swaps in snap wholesale and returns the new revision.
func (s *Store) Replace(snap snapshot.Snapshot, source Source) uint64 {
	s.mu.Lock()
	s.current = snap.Clone()
	s.source = source
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	s.Notify()
	return rev
}

// ReplaceIf swaps in snap only when the store is still at revision
// expected. It reports whether the write happened.
func (s *Store) ReplaceIf(expected uint64, snap snapshot.Snapshot, source Source) (uint64, bool) {
	s.mu.Lock()
	if s.revision != expected {
		rev := s.revision
		s.mu.Unlock()
		return rev, false
	}
	s.current = snap.Clone()
	s.source = source
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	s.Notify()
	return rev, true
}

// Subscribe returns a channel that receives a value whenever the store
// changes. Notifications coalesce: a slow reader sees at most one pending
// signal. The returned func unsubscribes and closes the channel; calling
// it again is a no-op.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

// Notify wakes every subscriber. Other session components call it when
// state outside the snapshot (loading, connection) changes.
func (s *Store) Notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
