package mcp

import (
	"fmt"
	"sync"
)

// Session assigns short references (R1, R2, ...) to records shown to an
// agent so later tool calls can name them without repeating full ids.
// Refs are never reused within a session.
type Session struct {
	mu      sync.Mutex
	refs    map[string]string // session ref -> record id
	reverse map[string]string // record id -> session ref
	counter int
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{
		refs:    make(map[string]string),
		reverse: make(map[string]string),
	}
}

// Track returns the session ref for recordID, assigning the next one if the
// record has not been seen.
func (s *Session) Track(recordID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref, ok := s.reverse[recordID]; ok {
		return ref
	}

	s.counter++
	ref := fmt.Sprintf("R%d", s.counter)
	s.refs[ref] = recordID
	s.reverse[recordID] = ref
	return ref
}

// Resolve returns the record id for ref.
func (s *Session) Resolve(ref string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.refs[ref]
	return id, ok
}

// ResolveID returns ref if it is a session ref, otherwise ref itself as a
// record id.
func (s *Session) ResolveID(ref string) string {
	if id, ok := s.Resolve(ref); ok {
		return id
	}
	return ref
}

// Forget drops the ref held by recordID. The counter is not rewound.
func (s *Session) Forget(recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref, ok := s.reverse[recordID]; ok {
		delete(s.refs, ref)
		delete(s.reverse, recordID)
	}
}

// All returns a copy of every tracked ref.
func (s *Session) All() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.refs))
	for ref, id := range s.refs {
		out[ref] = id
	}
	return out
}

// Clear resets the session, including the counter.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs = make(map[string]string)
	s.reverse = make(map[string]string)
	s.counter = 0
}
