package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrSessionBusy = errors.New("chalkboard already has an open session")

// ─────────────────────────────────────────────────────────────
// SessionRegistry — one editing session per chalkboard
// ─────────────────────────────────────────────────────────────

// SessionRegistry tracks open sessions so a chalkboard is never edited by
// two sessions at once, and so shutdown can close them all.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// Open starts a session for chalkboardID. It fails with ErrSessionBusy when
// one is already open.
func (r *SessionRegistry) Open(store ChalkboardUpdater, chalkboardID string, opts SessionOptions) (*Session, error) {
	if !r.tryLock(chalkboardID) {
		return nil, fmt.Errorf("open session %s: %w", chalkboardID, ErrSessionBusy)
	}
	s, err := OpenSession(store, chalkboardID, opts)
	if err != nil {
		r.unlock(chalkboardID)
		return nil, err
	}

	r.mu.Lock()
	r.sessions[chalkboardID] = s
	r.mu.Unlock()

	s.mu.Lock()
	s.onClose = func() { r.unlock(chalkboardID) }
	s.mu.Unlock()
	return s, nil
}

// Get returns the open session for chalkboardID.
func (r *SessionRegistry) Get(chalkboardID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[chalkboardID]
	return s, s != nil
}

// All returns the open sessions.
func (r *SessionRegistry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// SyncAll pulls cards added outside the sessions into every open session.
// Its signature matches WithReloadHook.
func (r *SessionRegistry) SyncAll() {
	for _, s := range r.All() {
		s.Sync()
	}
}

// Close closes the chalkboard's session, if any.
func (r *SessionRegistry) Close(chalkboardID string) {
	if s, ok := r.Get(chalkboardID); ok {
		s.Close()
	}
}

// CloseAll closes every open session, each with its final flush, and waits
// until they are done or ctx is cancelled.
func (r *SessionRegistry) CloseAll(ctx context.Context) {
	for _, s := range r.All() {
		go s.Close()
	}
	r.waitAll(ctx)
}

func (r *SessionRegistry) tryLock(chalkboardID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions == nil {
		r.sessions = make(map[string]*Session)
	}
	if _, ok := r.sessions[chalkboardID]; ok {
		return false // already open
	}
	r.sessions[chalkboardID] = nil
	r.wg.Add(1)
	return true
}

func (r *SessionRegistry) unlock(chalkboardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[chalkboardID]; !ok {
		return
	}
	delete(r.sessions, chalkboardID)
	r.wg.Done()
}

func (r *SessionRegistry) waitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
