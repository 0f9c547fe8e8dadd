package boardweb

import (
	"context"
	"sync"

	"github.com/eventboard/project/internal/app/boardctl"
)

// session is one connected viewer: its controller and the stream feeding it.
type session struct {
	id     string
	ctrl   *boardctl.Controller
	view   *sseView
	cancel context.CancelFunc
}

type sessionRegistry struct {
	mu   sync.Mutex
	byID map[string]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{byID: make(map[string]*session)}
}

func (r *sessionRegistry) Add(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.id] = s
}

func (r *sessionRegistry) Get(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	return s, ok
}

// Release forgets the session only if it is still the registered one.
func (r *sessionRegistry) Release(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.byID[s.id]; ok && current == s {
		delete(r.byID, s.id)
	}
}

func (r *sessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *sessionRegistry) snapshot() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	return out
}

// CancelAll ends every stream; used on shutdown.
func (r *sessionRegistry) CancelAll() {
	for _, s := range r.snapshot() {
		if s.cancel != nil {
			s.cancel()
		}
	}
}
