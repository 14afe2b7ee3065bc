// Package session tracks each user's progress through the two-step upload
// conversation. State is per-user, in-memory and never expires; it is reset
// explicitly by the upload workflow.
package session

import (
	"sync"
	"time"

	"tagstash/internal/registry"
)

type Phase int

const (
	Idle Phase = iota
	AwaitingMedia
	AwaitingTags
)

// PendingFile is a partially-built upload: the media has been received but
// tags, download link and file ID are still missing.
type PendingFile struct {
	Kind       registry.MediaKind
	SourceRef  string
	ReceivedAt time.Time
}

// State is a tagged variant: Pending is set only in the AwaitingTags phase.
type State struct {
	Phase   Phase
	Pending *PendingFile
}

// Store holds one State per user, defaulting to Idle.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]State
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]State)}
}

// Get returns the user's current state, Idle if none exists.
func (s *Store) Get(userID int64) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID]
}

// Set replaces the user's state.
func (s *Store) Set(userID int64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = state
}

// Update applies fn to the user's state as one atomic read-modify-write.
// fn must not block; it runs under the store lock.
func (s *Store) Update(userID int64, fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := fn(s.sessions[userID])
	s.sessions[userID] = next
	return next
}

// Reset returns the user to Idle, discarding any pending upload.
func (s *Store) Reset(userID int64) {
	s.Set(userID, State{})
}
